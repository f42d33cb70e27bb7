package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name" validate:"required,max=100"`
	Description string `gorm:"type:text" json:"description"`
}

type Product struct {
	BaseModel
	Code       string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code" validate:"required,max=50"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	CategoryID *uuid.UUID      `gorm:"type:char(36);index" json:"category_id"`
	Category   *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty" validate:"-"`
	Price      decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"price" validate:"decimal_gte0"`
	MinStock   int             `gorm:"not null;default:0" json:"min_stock" validate:"gte=0"`

	Batches []Batch `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"batches,omitempty" validate:"-"`
}

// ProductStock is a product row with its stock summed over batches
type ProductStock struct {
	ID         uuid.UUID       `json:"id"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	CategoryID *uuid.UUID      `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	MinStock   int             `json:"min_stock"`
	OnHand     int             `json:"on_hand"`
	Available  int             `json:"available"`
	LowStock   bool            `json:"low_stock" gorm:"-"`
}
