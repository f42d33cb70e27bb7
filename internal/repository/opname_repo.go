package repository

import (
	"siops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OpnameRepository interface {
	Create(tx *gorm.DB, opname *model.StockOpname) error
	FindAll(batchID *uuid.UUID) ([]model.StockOpname, error)
}

type opnameRepo struct {
	db *gorm.DB
}

func NewOpnameRepo(db *gorm.DB) OpnameRepository {
	return &opnameRepo{db}
}

func (r *opnameRepo) Create(tx *gorm.DB, opname *model.StockOpname) error {
	return tx.Omit("Batch", "User").Create(opname).Error
}

func (r *opnameRepo) FindAll(batchID *uuid.UUID) ([]model.StockOpname, error) {
	var opnames []model.StockOpname
	q := r.db.Preload("Batch").Preload("User")
	if batchID != nil {
		q = q.Where("batch_id = ?", *batchID)
	}
	err := q.Order("created_at DESC").Find(&opnames).Error
	return opnames, err
}
