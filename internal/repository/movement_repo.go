package repository

import (
	"time"

	"siops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MovementRepository interface {
	Log(tx *gorm.DB, movements ...model.StockMovement) error
	FindAll(filter MovementFilter) ([]model.StockMovement, error)
	GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error)
	GetDashboardStats(startDate, endDate time.Time) (*DashboardStats, error)
}

type MovementFilter struct {
	BatchID   *uuid.UUID
	ProductID *uuid.UUID
	Reference string
	Limit     int
}

// StockMovementData is one day of the inbound/outbound chart
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
	Restored int    `json:"restored"`
}

// DashboardStats is the overview card data
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	PendingOrders  int64           `json:"pending_orders"`
	SalesCount     int64           `json:"sales_count"`
	SalesRevenue   decimal.Decimal `json:"sales_revenue"`
}

type movementRepo struct {
	db *gorm.DB
}

func NewMovementRepo(db *gorm.DB) MovementRepository {
	return &movementRepo{db}
}

func (r *movementRepo) Log(tx *gorm.DB, movements ...model.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return tx.Create(&movements).Error
}

func (r *movementRepo) FindAll(filter MovementFilter) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	q := r.db.Model(&model.StockMovement{})
	if filter.BatchID != nil {
		q = q.Where("batch_id = ?", *filter.BatchID)
	}
	if filter.ProductID != nil {
		q = q.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Reference != "" {
		q = q.Where("reference = ?", filter.Reference)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	err := q.Order("created_at DESC").Find(&movements).Error
	return movements, err
}

func (r *movementRepo) GetStockMovement(startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	rows, err := r.db.Model(&model.StockMovement{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN type = 'IN' THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN type = 'OUT' THEN quantity ELSE 0 END), 0) as outbound,
			COALESCE(SUM(CASE WHEN type = 'RESTORE' THEN quantity ELSE 0 END), 0) as restored
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound, &data.Restored); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *movementRepo) GetDashboardStats(startDate, endDate time.Time) (*DashboardStats, error) {
	var stats DashboardStats

	if err := r.db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	// Products whose on-hand stock is below min_stock
	low := r.db.Model(&model.Product{}).
		Select("products.id").
		Joins("LEFT JOIN batches ON batches.product_id = products.id").
		Group("products.id, products.min_stock").
		Having("COALESCE(SUM(batches.initial_stock + batches.stock_quantity), 0) < products.min_stock")
	if err := r.db.Table("(?) AS low", low).Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	// Valuation at purchase price of everything on hand
	var valuation struct{ Total decimal.Decimal }
	err := r.db.Model(&model.Batch{}).
		Select("COALESCE(SUM((batches.initial_stock + batches.stock_quantity) * batches.purchase_price), 0) AS total").
		Joins("JOIN products ON products.id = batches.product_id AND products.deleted_at IS NULL").
		Scan(&valuation).Error
	if err != nil {
		return nil, err
	}
	stats.TotalValuation = valuation.Total

	if err := r.db.Model(&model.Order{}).Where("status = ?", model.OrderPending).Count(&stats.PendingOrders).Error; err != nil {
		return nil, err
	}

	var sales struct {
		Count   int64
		Revenue decimal.Decimal
	}
	err = r.db.Model(&model.Sale{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS revenue").
		Where("sales_date BETWEEN ? AND ?", startDate, endDate).
		Scan(&sales).Error
	if err != nil {
		return nil, err
	}
	stats.SalesCount = sales.Count
	stats.SalesRevenue = sales.Revenue

	return &stats, nil
}
