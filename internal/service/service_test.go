package service_test

import (
	"sync"
	"testing"

	"siops/internal/model"
	"siops/internal/repository"
	"siops/internal/service"
	"siops/internal/testdb"

	"gorm.io/gorm"
)

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []service.Event
}

func (r *recorder) Publish(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(service.Event); ok {
		r.events = append(r.events, e)
	}
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	events   *recorder
	admin    *service.Actor
	staff    *service.Actor
	products repository.ProductRepository
	batches  repository.BatchRepository
	orders   service.OrderService
	sales    service.SalesService
	catalog  service.CatalogService
	opnames  service.OpnameService
	alloc    service.Allocator
}

func newFixture(t *testing.T, policy repository.RestorePolicy) *fixture {
	t.Helper()
	db := testdb.Open(t)
	f := &fixture{
		db:       db,
		events:   &recorder{},
		products: repository.NewProductRepo(db),
		batches:  repository.NewBatchRepo(),
	}
	movements := repository.NewMovementRepo(db)
	f.alloc = service.NewAllocator(f.products, f.batches)
	f.orders = service.NewOrderService(repository.NewOrderRepo(), f.products, f.batches, movements, policy, db, f.events)
	f.sales = service.NewSalesService(repository.NewSaleRepo(), f.products, f.batches, movements, f.alloc, db, f.events)
	f.catalog = service.NewCatalogService(f.products, repository.NewCategoryRepo(db), f.batches, movements, db, f.events)
	f.opnames = service.NewOpnameService(repository.NewOpnameRepo(db), f.batches, movements, db, f.events)

	f.admin = actorOf(testdb.User(t, db, model.RoleAdmin))
	f.staff = actorOf(testdb.User(t, db, model.RoleStaff))
	return f
}

func actorOf(u *model.User) *service.Actor {
	return &service.Actor{ID: u.ID, Role: u.RoleCode(), Active: u.IsActive}
}

func movementCount(t *testing.T, db *gorm.DB, kind model.MovementType) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&model.StockMovement{}).Where("type = ?", kind).Count(&n).Error; err != nil {
		t.Fatalf("count movements: %v", err)
	}
	return n
}
