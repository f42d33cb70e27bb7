package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderApproved  OrderStatus = "approved"
	OrderReceived  OrderStatus = "received"
	OrderCancelled OrderStatus = "cancelled"
)

// orderTransitions lists the statuses reachable from each status.
// received and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:  {OrderApproved, OrderCancelled},
	OrderApproved: {OrderReceived, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderApproved, OrderReceived, OrderCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the order state machine allows s -> next
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order is a purchase order placed by a user
type Order struct {
	RecordModel
	UserID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"user_id"`
	User        *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`
	Note        string          `gorm:"type:text" json:"note"`
	Details     []OrderDetail   `gorm:"constraint:OnDelete:CASCADE;" json:"details"`
}

type OrderDetail struct {
	RecordModel
	OrderID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"order_id"`
	ProductID    uuid.UUID       `gorm:"type:char(36);not null;index" json:"product_id"`
	Product      *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	BatchID      uuid.UUID       `gorm:"type:char(36);not null;index" json:"batch_id"`
	Batch        *Batch          `gorm:"foreignKey:BatchID" json:"batch,omitempty"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	OrderedPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"ordered_price"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"subtotal"`

	// Stock this line currently withholds from its batch. Cancelling the
	// order or moving the line gives exactly this amount back.
	DeductedQuantity int `gorm:"not null;default:0" json:"deducted_quantity"`
}

// Recalculate keeps the subtotal consistent with quantity and price
func (d *OrderDetail) Recalculate() {
	d.Subtotal = d.OrderedPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// SumTotal recomputes the order total from its current details
func (o *Order) SumTotal() {
	total := decimal.Zero
	for _, d := range o.Details {
		total = total.Add(d.Subtotal)
	}
	o.TotalAmount = total
}
