// Package testdb opens a migrated in-memory SQLite database for tests.
package testdb

import (
	"fmt"
	"testing"
	"time"

	"siops/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a fresh database private to t. A single connection keeps the
// in-memory database alive and serializes transactions the way row locks do.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// Seed helpers write rows directly so tests can set up stock precisely.

func User(t *testing.T, db *gorm.DB, roleCode string) *model.User {
	t.Helper()
	role := model.Role{Code: roleCode, Name: roleCode}
	if err := db.Where("code = ?", roleCode).FirstOrCreate(&role).Error; err != nil {
		t.Fatalf("seed role: %v", err)
	}
	u := &model.User{
		Email:    uuid.NewString()[:8] + "@siops.test",
		FullName: "Test " + roleCode,
		RoleID:   &role.ID,
		Role:     &role,
		IsActive: true,
	}
	if err := u.SetPassword("secret123"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Omit("Role").Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func Product(t *testing.T, db *gorm.DB, code string, price int64) *model.Product {
	t.Helper()
	p := &model.Product{Code: code, Name: "Product " + code, Price: decimal.NewFromInt(price), MinStock: 5}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

// Batch seeds a batch with stock_quantity = stock. expiry may be empty for
// a batch without expiry; dates are YYYY-MM-DD.
func Batch(t *testing.T, db *gorm.DB, p *model.Product, code string, stock int, expiry, arrival string) *model.Batch {
	t.Helper()
	b := &model.Batch{
		BatchCode:     code,
		ProductID:     p.ID,
		PurchasePrice: p.Price.Div(decimal.NewFromInt(2)),
		ArrivalDate:   Date(t, arrival),
		StockQuantity: stock,
	}
	if expiry != "" {
		e := Date(t, expiry)
		b.ExpiryDate = &e
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	return b
}

func Date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// Reload re-reads a batch's counters.
func Reload(t *testing.T, db *gorm.DB, id uuid.UUID) *model.Batch {
	t.Helper()
	var b model.Batch
	if err := db.First(&b, "id = ?", id).Error; err != nil {
		t.Fatalf("reload batch: %v", err)
	}
	return &b
}

// ProductStock sums on-hand stock of every batch of a product.
func ProductStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var total int
	if err := db.Model(&model.Batch{}).Where("product_id = ?", productID).
		Select("COALESCE(SUM(initial_stock + stock_quantity), 0)").Scan(&total).Error; err != nil {
		t.Fatalf("sum stock: %v", err)
	}
	return total
}
