package service_test

import (
	"context"
	"errors"
	"testing"

	"siops/internal/apperr"
	"siops/internal/model"
	"siops/internal/repository"
	"siops/internal/service"
	"siops/internal/testdb"

	"github.com/shopspring/decimal"
)

func TestCatalogProductLifecycle(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()

	category, err := f.catalog.CreateCategory(f.staff, &service.CategoryRequest{Name: "Beverages"})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := f.catalog.CreateCategory(f.staff, &service.CategoryRequest{Name: "Beverages"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected duplicate category to fail validation, got %v", err)
	}

	product, err := f.catalog.CreateProduct(f.staff, &service.ProductRequest{
		Code:       "'8991234567890",
		Name:       "Mineral Water",
		CategoryID: &category.ID,
		Price:      decimal.NewFromInt(3500),
		MinStock:   10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.Code != "8991234567890" {
		t.Errorf("expected normalized code, got %s", product.Code)
	}
	if _, err := f.catalog.CreateProduct(f.staff, &service.ProductRequest{Code: "8991234567890", Name: "Dup"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected duplicate code to fail validation, got %v", err)
	}
	if _, err := f.catalog.CreateProduct(f.staff, &service.ProductRequest{Code: "X", Name: "Neg", Price: decimal.NewFromInt(-1)}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected negative price to fail validation, got %v", err)
	}

	batch, err := f.catalog.CreateBatch(ctx, f.staff, &service.BatchRequest{
		ProductID:     product.ID,
		PurchasePrice: decimal.NewFromInt(2000),
		ExpiryDate:    "2027-01-01",
		InitialStock:  4,
	})
	if err != nil {
		t.Fatalf("create batch: %v", err)
	}
	if batch.InitialStock != 4 || batch.StockQuantity != 0 {
		t.Errorf("expected opening stock in initial_stock, got %+v", batch)
	}
	if n := movementCount(t, f.db, model.MovementIn); n != 1 {
		t.Errorf("expected 1 IN movement, got %d", n)
	}
	if _, err := f.catalog.CreateBatch(ctx, f.staff, &service.BatchRequest{ProductID: product.ID, BatchCode: batch.BatchCode}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected duplicate batch code to fail, got %v", err)
	}
	if _, err := f.catalog.CreateBatch(ctx, f.staff, &service.BatchRequest{ProductID: product.ID, ExpiryDate: "01/01/2027"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected bad expiry format to fail, got %v", err)
	}

	detail, err := f.catalog.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if detail.OnHand != 4 || detail.Available != 0 || !detail.LowStock || len(detail.Batches) != 1 {
		t.Errorf("unexpected detail %+v", detail)
	}

	low, err := f.catalog.GetLowStock()
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 1 || low[0].ID != product.ID || low[0].OnHand != 4 || !low[0].LowStock {
		t.Errorf("unexpected low stock list %+v", low)
	}

	if err := f.catalog.DeleteProduct(f.staff, product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if _, err := f.catalog.GetProduct(ctx, product.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected deleted product to be gone, got %v", err)
	}
	// The code stays reserved by the soft-deleted row.
	if _, err := f.catalog.CreateProduct(f.staff, &service.ProductRequest{Code: "8991234567890", Name: "Again"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected code of deleted product to stay taken, got %v", err)
	}
}

func TestCatalogListsStockPerProduct(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	p1 := testdb.Product(t, f.db, "P1", 10000)
	p2 := testdb.Product(t, f.db, "P2", 5000)
	testdb.Batch(t, f.db, p1, "B1", 6, "2025-01-01", "2024-01-01")
	testdb.Batch(t, f.db, p1, "B2", 4, "2025-06-01", "2024-01-01")

	products, err := f.catalog.GetAllProducts()
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	stock := map[string]int{}
	for _, p := range products {
		stock[p.Code] = p.OnHand
	}
	if len(products) != 2 || stock["P1"] != 10 || stock["P2"] != 0 {
		t.Errorf("unexpected stock %v", stock)
	}

	if _, err := f.catalog.UpdateProduct(f.staff, p2.ID, &service.ProductRequest{Code: "P1", Name: "Clash"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected code clash to fail, got %v", err)
	}
	updated, err := f.catalog.UpdateProduct(f.staff, p2.ID, &service.ProductRequest{Code: "P2", Name: "Renamed", Price: decimal.NewFromInt(6000), MinStock: 1})
	if err != nil || updated.Name != "Renamed" {
		t.Errorf("update product: %v (%v)", err, updated)
	}
	if _, err := f.catalog.CreateProduct(nil, &service.ProductRequest{Code: "P9", Name: "Anon"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}
