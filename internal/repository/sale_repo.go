package repository

import (
	"errors"
	"time"

	"siops/internal/apperr"
	"siops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleRepository interface {
	Create(tx *gorm.DB, sale *model.Sale) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	FindAll(tx *gorm.DB, from, to *time.Time) ([]model.Sale, error)
}

type saleRepo struct{}

func NewSaleRepo() SaleRepository {
	return &saleRepo{}
}

func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	return tx.Omit("User").Create(sale).Error
}

func (r *saleRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := tx.Preload("User").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") }).
		Preload("Details.Product").
		Preload("Details.Batch").
		First(&sale, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("sale", id)
	}
	if err != nil {
		return nil, apperr.Persistence("find sale", err)
	}
	return &sale, nil
}

// FindAll lists sales, newest first. Nil bounds are open.
func (r *saleRepo) FindAll(tx *gorm.DB, from, to *time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	q := tx.Preload("User").Preload("Details").Preload("Details.Product")
	if from != nil {
		q = q.Where("sales_date >= ?", *from)
	}
	if to != nil {
		q = q.Where("sales_date <= ?", *to)
	}
	err := q.Order("sales_date DESC").Order("created_at DESC").Find(&sales).Error
	return sales, err
}
