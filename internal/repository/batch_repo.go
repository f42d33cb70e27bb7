package repository

import (
	"errors"
	"fmt"
	"time"

	"siops/internal/apperr"
	"siops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RestorePolicy decides which batch counter takes back restored stock.
type RestorePolicy string

const (
	// RestoreAvailable always credits stock_quantity, the counter sales draw from.
	RestoreAvailable RestorePolicy = "available"
	// RestoreLegacy credits stock_quantity only when initial_stock is 0 and
	// stock_quantity is positive, initial_stock otherwise.
	RestoreLegacy RestorePolicy = "legacy"
)

func ParseRestorePolicy(s string) (RestorePolicy, error) {
	switch RestorePolicy(s) {
	case RestoreAvailable, RestoreLegacy:
		return RestorePolicy(s), nil
	case "":
		return RestoreAvailable, nil
	}
	return "", fmt.Errorf("unknown restore policy %q (use available or legacy)", s)
}

// Counter names the batch column a restore credited.
func (p RestorePolicy) Counter(b *model.Batch) string {
	if p == RestoreLegacy && !(b.InitialStock == 0 && b.StockQuantity > 0) {
		return "initial_stock"
	}
	return "stock_quantity"
}

// BatchRepository is the inventory store. Every method runs on the handle it
// is given so callers can keep all stock mutation inside one transaction.
type BatchRepository interface {
	Create(tx *gorm.DB, batch *model.Batch) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Batch, error)
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Batch, error)
	FindByProduct(tx *gorm.DB, productID uuid.UUID) ([]model.Batch, error)

	// FindAvailable returns the product's batches with stock_quantity > 0,
	// locked for update, soonest expiry first (no expiry last), then
	// arrival date, then id.
	FindAvailable(tx *gorm.DB, productID uuid.UUID) ([]model.Batch, error)

	Deduct(tx *gorm.DB, id uuid.UUID, amount int) error
	Restore(tx *gorm.DB, id uuid.UUID, amount int, policy RestorePolicy) (string, error)
	Receive(tx *gorm.DB, id uuid.UUID, amount int, arrivedAt time.Time) error
	SetCounted(tx *gorm.DB, id uuid.UUID, counted int) error
}

type batchRepo struct{}

func NewBatchRepo() BatchRepository {
	return &batchRepo{}
}

func (r *batchRepo) Create(tx *gorm.DB, batch *model.Batch) error {
	return tx.Create(batch).Error
}

func (r *batchRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Batch, error) {
	return r.find(tx, id)
}

func (r *batchRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Batch, error) {
	return r.find(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *batchRepo) find(tx *gorm.DB, id uuid.UUID) (*model.Batch, error) {
	var batch model.Batch
	if err := tx.First(&batch, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("batch", id)
		}
		return nil, apperr.Persistence("find batch", err)
	}
	return &batch, nil
}

func (r *batchRepo) FindByProduct(tx *gorm.DB, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	err := fifoOrder(tx.Where("product_id = ?", productID)).Find(&batches).Error
	return batches, err
}

func (r *batchRepo) FindAvailable(tx *gorm.DB, productID uuid.UUID) ([]model.Batch, error) {
	var batches []model.Batch
	err := fifoOrder(tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND stock_quantity > 0", productID)).
		Find(&batches).Error
	if err != nil {
		return nil, apperr.Persistence("find available batches", err)
	}
	return batches, nil
}

func fifoOrder(tx *gorm.DB) *gorm.DB {
	return tx.Order("CASE WHEN expiry_date IS NULL THEN 1 ELSE 0 END").
		Order("expiry_date ASC").
		Order("arrival_date ASC").
		Order("id ASC")
}

// Deduct takes amount out of stock_quantity. The guarded UPDATE keeps the
// counter non-negative even if the caller skipped the lock.
func (r *batchRepo) Deduct(tx *gorm.DB, id uuid.UUID, amount int) error {
	if amount <= 0 {
		return apperr.Validation("deduct amount must be positive, got %d", amount)
	}

	res := tx.Model(&model.Batch{}).
		Where("id = ? AND stock_quantity >= ?", id, amount).
		Updates(map[string]interface{}{
			"stock_quantity": gorm.Expr("stock_quantity - ?", amount),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return apperr.Persistence("deduct batch stock", res.Error)
	}
	if res.RowsAffected == 0 {
		batch, err := r.find(tx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: batch %s holds %d, requested %d",
			apperr.ErrInsufficientStock, batch.BatchCode, batch.StockQuantity, amount)
	}
	return nil
}

// Restore gives amount back to the batch and returns the counter credited.
func (r *batchRepo) Restore(tx *gorm.DB, id uuid.UUID, amount int, policy RestorePolicy) (string, error) {
	if amount <= 0 {
		return "", apperr.Validation("restore amount must be positive, got %d", amount)
	}

	batch, err := r.FindForUpdate(tx, id)
	if err != nil {
		return "", err
	}

	column := policy.Counter(batch)
	err = tx.Model(&model.Batch{}).Where("id = ?", id).Updates(map[string]interface{}{
		column:       gorm.Expr(column+" + ?", amount),
		"updated_at": time.Now(),
	}).Error
	if err != nil {
		return "", apperr.Persistence("restore batch stock", err)
	}
	return column, nil
}

// Receive credits ordered stock and stamps the arrival date.
func (r *batchRepo) Receive(tx *gorm.DB, id uuid.UUID, amount int, arrivedAt time.Time) error {
	res := tx.Model(&model.Batch{}).Where("id = ?", id).Updates(map[string]interface{}{
		"stock_quantity": gorm.Expr("stock_quantity + ?", amount),
		"arrival_date":   arrivedAt,
		"updated_at":     time.Now(),
	})
	if res.Error != nil {
		return apperr.Persistence("receive batch stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("batch", id)
	}
	return nil
}

// SetCounted replaces both counters with a physical count.
func (r *batchRepo) SetCounted(tx *gorm.DB, id uuid.UUID, counted int) error {
	if counted < 0 {
		return apperr.Validation("counted quantity cannot be negative")
	}
	err := tx.Model(&model.Batch{}).Where("id = ?", id).Updates(map[string]interface{}{
		"initial_stock":  0,
		"stock_quantity": counted,
		"updated_at":     time.Now(),
	}).Error
	return apperr.Persistence("set counted stock", err)
}
