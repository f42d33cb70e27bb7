package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Sale struct {
	RecordModel
	UserID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	SalesDate   time.Time       `gorm:"type:date;not null;index" json:"sales_date"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`
	Details     []SalesDetail   `gorm:"constraint:OnDelete:CASCADE;" json:"details"`
}

// SalesDetail records the stock one batch supplied to a sale
type SalesDetail struct {
	RecordModel
	SaleID       uuid.UUID       `gorm:"type:char(36);not null;index" json:"sale_id"`
	ProductID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"product_id"`
	Product      *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	BatchID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"batch_id"`
	Batch        *Batch          `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"selling_price"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`
}

func (s *Sale) SumTotal() {
	total := decimal.Zero
	for _, d := range s.Details {
		total = total.Add(d.Subtotal)
	}
	s.TotalAmount = total
}
