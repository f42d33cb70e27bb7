package service

import (
	"context"
	"fmt"
	"time"

	"siops/internal/apperr"
	"siops/internal/model"
	"siops/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService manages products, categories and opening batches. It never
// moves stock except when a batch is opened with stock on hand.
type CatalogService interface {
	CreateCategory(actor *Actor, req *CategoryRequest) (*model.Category, error)
	UpdateCategory(actor *Actor, id uuid.UUID, req *CategoryRequest) (*model.Category, error)
	DeleteCategory(actor *Actor, id uuid.UUID) error
	GetAllCategories() ([]model.Category, error)

	CreateProduct(actor *Actor, req *ProductRequest) (*model.Product, error)
	UpdateProduct(actor *Actor, id uuid.UUID, req *ProductRequest) (*model.Product, error)
	DeleteProduct(actor *Actor, id uuid.UUID) error
	GetAllProducts() ([]model.ProductStock, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error)
	GetLowStock() ([]model.ProductStock, error)

	CreateBatch(ctx context.Context, actor *Actor, req *BatchRequest) (*model.Batch, error)
	GetMovements(filter repository.MovementFilter) ([]model.StockMovement, error)
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type ProductRequest struct {
	Code       string          `json:"code" validate:"required,max=50"`
	Name       string          `json:"name" validate:"required"`
	CategoryID *uuid.UUID      `json:"category_id"`
	Price      decimal.Decimal `json:"price" validate:"decimal_gte0"`
	MinStock   int             `json:"min_stock" validate:"gte=0"`
}

// BatchRequest opens a batch. Opening stock lands in initial_stock.
type BatchRequest struct {
	ProductID     uuid.UUID       `json:"product_id" validate:"uuid_required"`
	BatchCode     string          `json:"batch_code" validate:"max=64"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"decimal_gte0"`
	ArrivalDate   string          `json:"arrival_date"`
	ExpiryDate    string          `json:"expiry_date"`
	InitialStock  int             `json:"initial_stock" validate:"gte=0"`
}

type ProductDetail struct {
	Product   *model.Product `json:"product"`
	Batches   []model.Batch  `json:"batches"`
	OnHand    int            `json:"on_hand"`
	Available int            `json:"available"`
	LowStock  bool           `json:"low_stock"`
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	batchRepo    repository.BatchRepository
	movementRepo repository.MovementRepository
	db           *gorm.DB
	notifier     Notifier
}

func NewCatalogService(pRepo repository.ProductRepository, cRepo repository.CategoryRepository, bRepo repository.BatchRepository,
	mRepo repository.MovementRepository, db *gorm.DB, notifier Notifier) CatalogService {
	return &catalogService{
		productRepo:  pRepo,
		categoryRepo: cRepo,
		batchRepo:    bRepo,
		movementRepo: mRepo,
		db:           db,
		notifier:     notifierOrNop(notifier),
	}
}

func (s *catalogService) CreateCategory(actor *Actor, req *CategoryRequest) (*model.Category, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if s.exists(&model.Category{}, "name = ?", req.Name, uuid.Nil) {
		return nil, apperr.Validation("category %q already exists", req.Name)
	}

	category := &model.Category{Name: req.Name, Description: req.Description}
	category.CreatedBy = actor.ID.String()
	category.UpdatedBy = actor.ID.String()
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, apperr.Persistence("create category", err)
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(actor *Actor, id uuid.UUID, req *CategoryRequest) (*model.Category, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if s.exists(&model.Category{}, "name = ?", req.Name, id) {
		return nil, apperr.Validation("category %q already exists", req.Name)
	}

	category.Name = req.Name
	category.Description = req.Description
	category.UpdatedBy = actor.ID.String()
	if err := s.categoryRepo.Update(category); err != nil {
		return nil, apperr.Persistence("update category", err)
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(actor *Actor, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.categoryRepo.Delete(id, actor.ID.String())
}

func (s *catalogService) GetAllCategories() ([]model.Category, error) {
	return s.categoryRepo.FindAll()
}

func (s *catalogService) CreateProduct(actor *Actor, req *ProductRequest) (*model.Product, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req.Code = NormalizeProductCode(req.Code)
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkCategory(req.CategoryID); err != nil {
		return nil, err
	}
	// Soft-deleted products still hold their code in the unique index.
	if s.exists(&model.Product{}, "code = ?", req.Code, uuid.Nil) {
		return nil, apperr.Validation("product code %q already exists", req.Code)
	}

	product := &model.Product{
		Code:       req.Code,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		Price:      req.Price,
		MinStock:   req.MinStock,
	}
	product.CreatedBy = actor.ID.String()
	product.UpdatedBy = actor.ID.String()
	if err := s.productRepo.Create(product); err != nil {
		return nil, apperr.Persistence("create product", err)
	}

	s.publish("product_created", product, actor, fmt.Sprintf("product '%s' created", product.Name))
	return product, nil
}

func (s *catalogService) UpdateProduct(actor *Actor, id uuid.UUID, req *ProductRequest) (*model.Product, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req.Code = NormalizeProductCode(req.Code)
	if err := validate(req); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(s.db, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkCategory(req.CategoryID); err != nil {
		return nil, err
	}
	if s.exists(&model.Product{}, "code = ?", req.Code, id) {
		return nil, apperr.Validation("product code %q already exists", req.Code)
	}

	product.Code = req.Code
	product.Name = req.Name
	product.CategoryID = req.CategoryID
	product.Price = req.Price
	product.MinStock = req.MinStock
	product.UpdatedBy = actor.ID.String()
	if err := s.productRepo.Update(product); err != nil {
		return nil, apperr.Persistence("update product", err)
	}

	s.publish("product_updated", product, actor, fmt.Sprintf("product '%s' updated", product.Name))
	return product, nil
}

func (s *catalogService) DeleteProduct(actor *Actor, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.productRepo.Delete(id, actor.ID.String()); err != nil {
		return err
	}
	s.publish("product_deleted", map[string]interface{}{"id": id}, actor, fmt.Sprintf("product %s deleted", id))
	return nil
}

func (s *catalogService) GetAllProducts() ([]model.ProductStock, error) {
	return s.productRepo.FindAll()
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	db := s.db.WithContext(ctx)
	product, err := s.productRepo.FindByID(db, id)
	if err != nil {
		return nil, err
	}
	batches, err := s.batchRepo.FindByProduct(db, id)
	if err != nil {
		return nil, apperr.Persistence("list product batches", err)
	}

	detail := &ProductDetail{Product: product, Batches: batches}
	for _, b := range batches {
		detail.OnHand += b.OnHand()
		detail.Available += b.StockQuantity
	}
	detail.LowStock = detail.OnHand < product.MinStock
	return detail, nil
}

func (s *catalogService) GetLowStock() ([]model.ProductStock, error) {
	return s.productRepo.FindLowStock()
}

func (s *catalogService) CreateBatch(ctx context.Context, actor *Actor, req *BatchRequest) (*model.Batch, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	arrival := time.Now()
	if req.ArrivalDate != "" {
		d, err := time.Parse("2006-01-02", req.ArrivalDate)
		if err != nil {
			return nil, apperr.Validation("invalid arrival_date format, use YYYY-MM-DD")
		}
		arrival = d
	}
	var expiry *time.Time
	if req.ExpiryDate != "" {
		d, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			return nil, apperr.Validation("invalid expiry_date format, use YYYY-MM-DD")
		}
		expiry = &d
	}

	var batch *model.Batch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.productRepo.FindByID(tx, req.ProductID)
		if err != nil {
			return err
		}

		code := req.BatchCode
		if code == "" {
			code = newBatchCode(product.Code, arrival)
		}
		batch = &model.Batch{
			BatchCode:     code,
			ProductID:     product.ID,
			PurchasePrice: req.PurchasePrice,
			ArrivalDate:   arrival,
			ExpiryDate:    expiry,
			InitialStock:  req.InitialStock,
		}
		var n int64
		if err := tx.Model(&model.Batch{}).Where("batch_code = ?", code).Count(&n).Error; err != nil {
			return apperr.Persistence("check batch code", err)
		}
		if n > 0 {
			return apperr.Validation("batch code %q already exists", code)
		}
		if err := s.batchRepo.Create(tx, batch); err != nil {
			return apperr.Persistence("create batch", err)
		}
		if req.InitialStock > 0 {
			return s.movementRepo.Log(tx, stockMovement(batch.ID, product.ID, model.MovementIn, req.InitialStock, batch.ID, "opening stock", actor))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish("batch_created", batch, actor, fmt.Sprintf("batch %s opened with %d units", batch.BatchCode, batch.InitialStock))
	return batch, nil
}

func (s *catalogService) GetMovements(filter repository.MovementFilter) ([]model.StockMovement, error) {
	return s.movementRepo.FindAll(filter)
}

func (s *catalogService) checkCategory(id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	_, err := s.categoryRepo.FindByID(*id)
	return err
}

// exists reports whether another row (soft-deleted ones included) already
// uses a unique value.
func (s *catalogService) exists(table interface{}, query string, value string, except uuid.UUID) bool {
	var n int64
	q := s.db.Unscoped().Model(table).Where(query, value)
	if except != uuid.Nil {
		q = q.Where("id <> ?", except)
	}
	q.Count(&n)
	return n > 0
}

func (s *catalogService) publish(action string, data any, actor *Actor, message string) {
	s.notifier.Publish(Event{Type: "stock_update", Action: action, Data: data, UserID: actor.ID, Message: message})
}
