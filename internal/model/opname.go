package model

import (
	"github.com/google/uuid"
)

// StockOpname records one physical count of a batch against system stock
type StockOpname struct {
	RecordModel
	BatchID    uuid.UUID `gorm:"type:char(36);not null;index" json:"batch_id"`
	Batch      *Batch    `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	SystemQty  int       `gorm:"not null" json:"system_qty"`
	CountedQty int       `gorm:"not null" json:"counted_qty"`
	Difference int       `gorm:"not null" json:"difference"`
	Note       string    `gorm:"type:text" json:"note"`
	UserID     uuid.UUID `gorm:"type:char(36);not null;index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
