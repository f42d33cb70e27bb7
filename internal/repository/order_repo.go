package repository

import (
	"errors"

	"siops/internal/apperr"
	"siops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository interface {
	Create(tx *gorm.DB, order *model.Order) error
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Order, error)
	FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Order, error)
	FindAll(tx *gorm.DB, filter OrderFilter) ([]model.Order, error)
	UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus) error
	UpdateTotal(tx *gorm.DB, id uuid.UUID, total decimal.Decimal) error
	SaveDetail(tx *gorm.DB, detail *model.OrderDetail) error
	Delete(tx *gorm.DB, id uuid.UUID) error
}

type OrderFilter struct {
	Status model.OrderStatus
	UserID *uuid.UUID
}

type orderRepo struct{}

func NewOrderRepo() OrderRepository {
	return &orderRepo{}
}

func (r *orderRepo) Create(tx *gorm.DB, order *model.Order) error {
	return tx.Omit("User").Create(order).Error
}

func (r *orderRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := tx.Preload("User").
		Preload("Details", orderDetails).
		Preload("Details.Product").
		Preload("Details.Batch").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, apperr.Persistence("find order", err)
	}
	return &order, nil
}

// FindForUpdate locks the order row and loads its details.
func (r *orderRepo) FindForUpdate(tx *gorm.DB, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order", id)
	}
	if err != nil {
		return nil, apperr.Persistence("lock order", err)
	}
	if err := orderDetails(tx).Where("order_id = ?", id).Find(&order.Details).Error; err != nil {
		return nil, apperr.Persistence("load order details", err)
	}
	return &order, nil
}

func orderDetails(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func (r *orderRepo) FindAll(tx *gorm.DB, filter OrderFilter) ([]model.Order, error) {
	var orders []model.Order
	q := tx.Preload("User").Preload("Details", orderDetails).Preload("Details.Product")
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	err := q.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.OrderStatus) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepo) UpdateTotal(tx *gorm.DB, id uuid.UUID, total decimal.Decimal) error {
	return tx.Model(&model.Order{}).Where("id = ?", id).Update("total_amount", total).Error
}

func (r *orderRepo) SaveDetail(tx *gorm.DB, detail *model.OrderDetail) error {
	return tx.Omit("Product", "Batch").Save(detail).Error
}

func (r *orderRepo) Delete(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("order_id = ?", id).Delete(&model.OrderDetail{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Order{}, "id = ?", id).Error
}
