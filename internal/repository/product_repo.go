package repository

import (
	"errors"

	"siops/internal/apperr"
	"siops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProductRepository interface {
	Create(product *model.Product) error
	FindAll() ([]model.ProductStock, error)
	FindByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	FindByCode(tx *gorm.DB, code string) (*model.Product, error)
	Update(product *model.Product) error
	Delete(id uuid.UUID, deletedBy string) error
	FindLowStock() ([]model.ProductStock, error)
	Count() (int64, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

// stockColumns sums batch counters per product. Available is what sales can draw.
const stockColumns = `products.id, products.code, products.name,
	products.category_id, products.price, products.min_stock,
	COALESCE(SUM(batches.initial_stock + batches.stock_quantity), 0) AS on_hand,
	COALESCE(SUM(batches.stock_quantity), 0) AS available`

func (r *productRepo) stockQuery() *gorm.DB {
	return r.db.Model(&model.Product{}).
		Select(stockColumns).
		Joins("LEFT JOIN batches ON batches.product_id = products.id").
		Group("products.id, products.code, products.name, products.category_id, products.price, products.min_stock")
}

func (r *productRepo) Create(product *model.Product) error {
	return r.db.Create(product).Error
}

func (r *productRepo) FindAll() ([]model.ProductStock, error) {
	var products []model.ProductStock
	err := r.stockQuery().Order("products.code ASC").Scan(&products).Error
	markLowStock(products)
	return products, err
}

// FindByID resolves a product on the given handle so workflows can read it
// inside their transaction.
func (r *productRepo) FindByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.Preload("Category").First(&product, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product", id)
	}
	if err != nil {
		return nil, apperr.Persistence("find product", err)
	}
	return &product, nil
}

// FindByCode resolves a product by its unique code on the given handle.
func (r *productRepo) FindByCode(tx *gorm.DB, code string) (*model.Product, error) {
	var product model.Product
	err := tx.First(&product, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product", code)
	}
	if err != nil {
		return nil, apperr.Persistence("find product", err)
	}
	return &product, nil
}

func (r *productRepo) Update(product *model.Product) error {
	return r.db.Omit("Category", "Batches").Save(product).Error
}

func (r *productRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("product", id)
		}
		return tx.Delete(&model.Product{}, "id = ?", id).Error
	})
}

// FindLowStock lists products whose on-hand stock is below min_stock.
func (r *productRepo) FindLowStock() ([]model.ProductStock, error) {
	var products []model.ProductStock
	err := r.stockQuery().
		Having("COALESCE(SUM(batches.initial_stock + batches.stock_quantity), 0) < products.min_stock").
		Order("products.code ASC").
		Scan(&products).Error
	markLowStock(products)
	return products, err
}

func (r *productRepo) Count() (int64, error) {
	var n int64
	err := r.db.Model(&model.Product{}).Count(&n).Error
	return n, err
}

func markLowStock(products []model.ProductStock) {
	for i := range products {
		products[i].LowStock = products[i].OnHand < products[i].MinStock
	}
}
