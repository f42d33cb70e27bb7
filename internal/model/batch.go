package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is a priced, dated lot of stock for one product.
// InitialStock holds stock credited when the batch was opened (and legacy
// restores); StockQuantity holds stock received through orders and is the
// counter sales draw from. On-hand is the sum of both.
type Batch struct {
	RecordModel
	BatchCode     string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"batch_code"`
	ProductID     uuid.UUID       `gorm:"type:char(36);not null;index" json:"product_id"`
	Product       *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"purchase_price"`
	ArrivalDate   time.Time       `gorm:"not null" json:"arrival_date"`
	ExpiryDate    *time.Time      `gorm:"index" json:"expiry_date,omitempty"`
	InitialStock  int             `gorm:"not null;default:0;check:initial_stock >= 0" json:"initial_stock"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
}

func (b *Batch) OnHand() int {
	return b.InitialStock + b.StockQuantity
}
