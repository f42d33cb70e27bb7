package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"siops/internal/apperr"
	"siops/internal/model"
	"siops/internal/repository"
	"siops/internal/service"
	"siops/internal/testdb"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestCreateOrderResolvesBatchByPrice(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	existing := testdb.Batch(t, f.db, p, "B1", 4, "2025-01-01", "2024-01-01") // bought at 5000

	order, err := f.orders.Create(ctx, f.staff, &service.CreateOrderRequest{
		Note: "weekly restock",
		Lines: []service.OrderLine{
			{ProductID: p.ID, Quantity: 2, OrderedPrice: decimal.NewFromInt(5000)},
			{ProductID: p.ID, Quantity: 3, OrderedPrice: decimal.NewFromInt(7000)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != model.OrderPending {
		t.Errorf("expected pending, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(31000)) {
		t.Errorf("expected total 31000, got %s", order.TotalAmount)
	}
	if len(order.Details) != 2 {
		t.Fatalf("expected 2 details, got %d", len(order.Details))
	}

	var shared, fresh *model.OrderDetail
	for i := range order.Details {
		if order.Details[i].OrderedPrice.Equal(decimal.NewFromInt(5000)) {
			shared = &order.Details[i]
		} else {
			fresh = &order.Details[i]
		}
	}
	if shared == nil || shared.BatchID != existing.ID {
		t.Errorf("expected same-price line to reuse batch B1, got %+v", shared)
	}
	if fresh == nil || fresh.BatchID == existing.ID {
		t.Fatalf("expected new batch for different price, got %+v", fresh)
	}

	created := testdb.Reload(t, f.db, fresh.BatchID)
	if !strings.HasPrefix(created.BatchCode, "B-P1-") {
		t.Errorf("unexpected generated batch code %s", created.BatchCode)
	}
	if created.OnHand() != 0 || created.ExpiryDate == nil {
		t.Errorf("expected empty batch with expiry, got %+v", created)
	}
	if testdb.Reload(t, f.db, existing.ID).StockQuantity != 4 {
		t.Error("placing an order must not move stock")
	}
	if got := f.events.actions(); len(got) != 1 || got[0] != "order_created" {
		t.Errorf("expected order_created event, got %v", got)
	}
}

func TestCreateOrderSharesNewBatchPerPrice(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P9", 10000)

	order, err := f.orders.Create(ctx, f.staff, &service.CreateOrderRequest{
		Lines: []service.OrderLine{
			{ProductID: p.ID, Quantity: 1, OrderedPrice: decimal.NewFromInt(5000)},
			{ProductID: p.ID, Quantity: 2, OrderedPrice: decimal.NewFromInt(5000)},
			{ProductID: p.ID, Quantity: 1, OrderedPrice: decimal.NewFromInt(6000)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.Details) != 3 {
		t.Fatalf("expected 3 details, got %d", len(order.Details))
	}

	byPrice := map[int64]map[uuid.UUID]bool{}
	for _, d := range order.Details {
		key := d.OrderedPrice.IntPart()
		if byPrice[key] == nil {
			byPrice[key] = map[uuid.UUID]bool{}
		}
		byPrice[key][d.BatchID] = true
	}
	if len(byPrice[5000]) != 1 {
		t.Errorf("expected both 5000 lines to share one batch, got %v", byPrice[5000])
	}
	if len(byPrice[6000]) != 1 {
		t.Fatalf("expected one batch for the 6000 line, got %v", byPrice[6000])
	}
	for id := range byPrice[6000] {
		if byPrice[5000][id] {
			t.Error("expected a different price to get its own batch")
		}
	}

	var batches int64
	if err := f.db.Model(&model.Batch{}).Where("product_id = ?", p.ID).Count(&batches).Error; err != nil {
		t.Fatalf("count batches: %v", err)
	}
	if batches != 2 {
		t.Errorf("expected 2 batches created, got %d", batches)
	}
}

func TestCreateOrderDefaultsPriceAndChecksBatchOwner(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p1 := testdb.Product(t, f.db, "P1", 10000)
	p2 := testdb.Product(t, f.db, "P2", 3000)
	other := testdb.Batch(t, f.db, p2, "B-P2", 1, "2025-01-01", "2024-01-01")

	order, err := f.orders.Create(ctx, f.staff, &service.CreateOrderRequest{
		Lines: []service.OrderLine{{ProductID: p1.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !order.Details[0].OrderedPrice.Equal(p1.Price) {
		t.Errorf("expected product price, got %s", order.Details[0].OrderedPrice)
	}

	_, err = f.orders.Create(ctx, f.staff, &service.CreateOrderRequest{
		Lines: []service.OrderLine{{ProductID: p1.ID, BatchID: &other.ID, Quantity: 1}},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for foreign batch, got %v", err)
	}

	_, err = f.orders.Create(ctx, f.staff, &service.CreateOrderRequest{})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for empty order, got %v", err)
	}

	_, err = f.orders.Create(ctx, f.staff, &service.CreateOrderRequest{
		Lines: []service.OrderLine{{ProductID: uuid.New(), Quantity: 1}},
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown product, got %v", err)
	}
}

func placeOrder(t *testing.T, f *fixture, b *model.Batch, qty int) *model.Order {
	t.Helper()
	order, err := f.orders.Create(context.Background(), f.staff, &service.CreateOrderRequest{
		Lines: []service.OrderLine{{ProductID: b.ProductID, BatchID: &b.ID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return order
}

func TestOrderStatusTransitions(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	b := testdb.Batch(t, f.db, p, "B1", 2, "2025-01-01", "2024-01-01")
	order := placeOrder(t, f, b, 6)

	// Validity is checked before the role.
	if _, err := f.orders.UpdateStatus(ctx, f.staff, order.ID, model.OrderReceived); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("expected invalid transition, got %v", err)
	}
	if _, err := f.orders.UpdateStatus(ctx, f.staff, order.ID, model.OrderApproved); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden for staff approval, got %v", err)
	}
	if _, err := f.orders.UpdateStatus(ctx, f.admin, order.ID, "shipped"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}

	approved, err := f.orders.UpdateStatus(ctx, f.admin, order.ID, model.OrderApproved)
	if err != nil || approved.Status != model.OrderApproved {
		t.Fatalf("approve: %v (%v)", err, approved)
	}
	received, err := f.orders.UpdateStatus(ctx, f.admin, order.ID, model.OrderReceived)
	if err != nil || received.Status != model.OrderReceived {
		t.Fatalf("receive: %v (%v)", err, received)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 8 {
		t.Errorf("expected received stock 8, got %d", got)
	}
	if n := movementCount(t, f.db, model.MovementIn); n != 1 {
		t.Errorf("expected 1 IN movement, got %d", n)
	}

	// received is terminal; a rejected transition changes nothing.
	if _, err := f.orders.UpdateStatus(ctx, f.admin, order.ID, model.OrderCancelled); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("expected invalid transition from received, got %v", err)
	}
	reloaded, err := f.orders.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != model.OrderReceived {
		t.Errorf("expected status to stay received, got %s", reloaded.Status)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 8 {
		t.Errorf("expected stock to stay 8, got %d", got)
	}
}

func TestUpdateDetailThenCancelRestoresStock(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	b := testdb.Batch(t, f.db, p, "B1", 10, "2025-01-01", "2024-01-01")
	order := placeOrder(t, f, b, 2)
	detailID := order.Details[0].ID

	four := 4
	updated, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, detailID, &service.UpdateDetailRequest{Quantity: &four})
	if err != nil {
		t.Fatalf("update detail: %v", err)
	}
	if d := updated.Details[0]; d.Quantity != 4 || d.DeductedQuantity != 4 {
		t.Errorf("unexpected detail after update %+v", d)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 6 {
		t.Errorf("expected stock 6, got %d", got)
	}

	three := 3
	price := decimal.NewFromInt(2000)
	updated, err = f.orders.UpdateDetail(ctx, f.staff, order.ID, detailID, &service.UpdateDetailRequest{Quantity: &three, OrderedPrice: &price})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 7 {
		t.Errorf("expected stock 7 after shrinking the line, got %d", got)
	}
	if !updated.TotalAmount.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("expected total 6000, got %s", updated.TotalAmount)
	}

	cancelled, err := f.orders.UpdateStatus(ctx, f.staff, order.ID, model.OrderCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Details[0].DeductedQuantity != 0 {
		t.Errorf("expected nothing withheld after cancel, got %d", cancelled.Details[0].DeductedQuantity)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 10 {
		t.Errorf("expected stock back at 10, got %d", got)
	}
	if n := movementCount(t, f.db, model.MovementRestore); n != 2 {
		t.Errorf("expected 2 RESTORE movements, got %d", n)
	}
}

func TestReceiveAfterEditCreditsFullQuantity(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	b := testdb.Batch(t, f.db, p, "B1", 10, "2025-01-01", "2024-01-01")
	order := placeOrder(t, f, b, 2)

	four := 4
	if _, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, order.Details[0].ID, &service.UpdateDetailRequest{Quantity: &four}); err != nil {
		t.Fatalf("update detail: %v", err)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 6 {
		t.Fatalf("expected stock 6 after edit, got %d", got)
	}

	if _, err := f.orders.UpdateStatus(ctx, f.admin, order.ID, model.OrderApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	received, err := f.orders.UpdateStatus(ctx, f.admin, order.ID, model.OrderReceived)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if d := received.Details[0].DeductedQuantity; d != 0 {
		t.Errorf("expected nothing withheld after receive, got %d", d)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 14 {
		t.Errorf("expected stock 14 after receiving 4, got %d", got)
	}

	if err := f.orders.Delete(ctx, f.admin, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 14 {
		t.Errorf("expected delete of a received order to leave stock at 14, got %d", got)
	}
}

func TestUpdateDetailGuards(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	b := testdb.Batch(t, f.db, p, "B1", 3, "2025-01-01", "2024-01-01")
	order := placeOrder(t, f, b, 1)
	detailID := order.Details[0].ID

	two := 2
	if _, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, detailID, &service.UpdateDetailRequest{Quantity: &two}); err != nil {
		t.Fatalf("update detail: %v", err)
	}

	nine := 9
	_, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, detailID, &service.UpdateDetailRequest{Quantity: &nine})
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	// The failed edit rolls back, including the release of the old amount.
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 1 {
		t.Errorf("expected stock 1 after rollback, got %d", got)
	}

	zero := 0
	if _, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, detailID, &service.UpdateDetailRequest{Quantity: &zero}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for zero quantity, got %v", err)
	}
	if _, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, uuid.New(), &service.UpdateDetailRequest{Quantity: &two}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found for unknown line, got %v", err)
	}

	if _, err := f.orders.UpdateStatus(ctx, f.admin, order.ID, model.OrderApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, detailID, &service.UpdateDetailRequest{Quantity: &two}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error on approved order, got %v", err)
	}
}

func TestCancelWithLegacyRestorePolicy(t *testing.T) {
	f := newFixture(t, repository.RestoreLegacy)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	b := testdb.Batch(t, f.db, p, "B1", 10, "2025-01-01", "2024-01-01")
	if err := f.db.Model(&model.Batch{}).Where("id = ?", b.ID).Update("initial_stock", 5).Error; err != nil {
		t.Fatalf("seed initial stock: %v", err)
	}
	order := placeOrder(t, f, b, 1)

	four := 4
	if _, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, order.Details[0].ID, &service.UpdateDetailRequest{Quantity: &four}); err != nil {
		t.Fatalf("update detail: %v", err)
	}
	if _, err := f.orders.UpdateStatus(ctx, f.staff, order.ID, model.OrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	got := testdb.Reload(t, f.db, b.ID)
	if got.InitialStock != 9 || got.StockQuantity != 6 {
		t.Errorf("expected legacy restore into initial_stock (9/6), got %d/%d", got.InitialStock, got.StockQuantity)
	}
}

func TestDeleteOrder(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	b := testdb.Batch(t, f.db, p, "B1", 5, "2025-01-01", "2024-01-01")
	order := placeOrder(t, f, b, 1)

	three := 3
	if _, err := f.orders.UpdateDetail(ctx, f.staff, order.ID, order.Details[0].ID, &service.UpdateDetailRequest{Quantity: &three}); err != nil {
		t.Fatalf("update detail: %v", err)
	}

	if err := f.orders.Delete(ctx, f.staff, order.ID); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden for staff delete, got %v", err)
	}
	if err := f.orders.Delete(ctx, f.admin, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := testdb.Reload(t, f.db, b.ID).StockQuantity; got != 5 {
		t.Errorf("expected stock restored to 5, got %d", got)
	}
	if _, err := f.orders.Get(ctx, order.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected deleted order to be gone, got %v", err)
	}
	if err := f.orders.Delete(ctx, f.admin, order.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestOrderWorkflowRequiresActiveActor(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	req := &service.CreateOrderRequest{Lines: []service.OrderLine{{ProductID: p.ID, Quantity: 1}}}

	if _, err := f.orders.Create(ctx, nil, req); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized for missing actor, got %v", err)
	}
	inactive := *f.staff
	inactive.Active = false
	if _, err := f.orders.Create(ctx, &inactive, req); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized for inactive actor, got %v", err)
	}
}

func TestListOrdersFilters(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	ctx := context.Background()
	p := testdb.Product(t, f.db, "P1", 10000)
	b := testdb.Batch(t, f.db, p, "B1", 5, "2025-01-01", "2024-01-01")
	first := placeOrder(t, f, b, 1)
	placeOrder(t, f, b, 2)
	if _, err := f.orders.UpdateStatus(ctx, f.staff, first.ID, model.OrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	pending, err := f.orders.List(ctx, repository.OrderFilter{Status: model.OrderPending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID == first.ID {
		t.Errorf("expected one pending order, got %d", len(pending))
	}
	all, err := f.orders.List(ctx, repository.OrderFilter{UserID: &f.staff.ID})
	if err != nil || len(all) != 2 {
		t.Errorf("expected 2 orders for staff, got %d (%v)", len(all), err)
	}
	if _, err := f.orders.List(ctx, repository.OrderFilter{Status: "bogus"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for bogus status, got %v", err)
	}
}
