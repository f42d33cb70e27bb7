package model

import (
	"github.com/google/uuid"
)

type MovementType string

const (
	MovementIn      MovementType = "IN"      // order received
	MovementOut     MovementType = "OUT"     // sale or order line deduction
	MovementRestore MovementType = "RESTORE" // order cancelled, deleted or line moved
	MovementAdjust  MovementType = "ADJUST"  // stock opname
)

// StockMovement is the ledger row written for every stock change
type StockMovement struct {
	RecordModel
	BatchID   uuid.UUID    `gorm:"type:char(36);not null;index" json:"batch_id"`
	ProductID uuid.UUID    `gorm:"type:char(36);not null;index" json:"product_id"`
	Type      MovementType `gorm:"type:varchar(10);not null;index" json:"type"`
	Quantity  int          `gorm:"not null" json:"quantity"` // signed for ADJUST
	Reference string       `gorm:"type:varchar(64);index" json:"reference"`
	Note      string       `gorm:"type:varchar(255)" json:"note"`

	CreatedByUserID *uuid.UUID `gorm:"type:char(36)" json:"created_by_user_id,omitempty"`
}
