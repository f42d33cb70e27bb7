package service

import (
	"siops/internal/apperr"
	"siops/internal/model"
	"siops/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Allocation is the stock one batch supplied to a request.
type Allocation struct {
	BatchID   uuid.UUID `json:"batch_id"`
	BatchCode string    `json:"batch_code"`
	Quantity  int       `json:"quantity"`
}

// Allocator takes stock out of a product's batches, soonest expiry first.
// It only ever runs inside the caller's transaction: on error the caller must
// roll back, which undoes every deduction already made.
type Allocator interface {
	Allocate(tx *gorm.DB, productCode string, quantity int) ([]Allocation, error)
	AllocateProduct(tx *gorm.DB, product *model.Product, quantity int) ([]Allocation, error)
}

type allocator struct {
	productRepo repository.ProductRepository
	batchRepo   repository.BatchRepository
}

func NewAllocator(pRepo repository.ProductRepository, bRepo repository.BatchRepository) Allocator {
	return &allocator{productRepo: pRepo, batchRepo: bRepo}
}

func (a *allocator) Allocate(tx *gorm.DB, productCode string, quantity int) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("invalid quantity %d for product %s", quantity, productCode)
	}
	product, err := a.productRepo.FindByCode(tx, productCode)
	if err != nil {
		return nil, err
	}
	return a.AllocateProduct(tx, product, quantity)
}

func (a *allocator) AllocateProduct(tx *gorm.DB, product *model.Product, quantity int) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("invalid quantity %d for product %s", quantity, product.Code)
	}

	batches, err := a.batchRepo.FindAvailable(tx, product.ID)
	if err != nil {
		return nil, err
	}

	var allocations []Allocation
	remaining := quantity
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := min(remaining, b.StockQuantity)
		if err := a.batchRepo.Deduct(tx, b.ID, take); err != nil {
			return nil, err
		}
		allocations = append(allocations, Allocation{BatchID: b.ID, BatchCode: b.BatchCode, Quantity: take})
		remaining -= take
	}

	if remaining > 0 {
		return nil, apperr.Short(product.Code, quantity, quantity-remaining)
	}
	return allocations, nil
}
