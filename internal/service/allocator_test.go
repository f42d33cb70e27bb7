package service_test

import (
	"errors"
	"testing"

	"siops/internal/apperr"
	"siops/internal/repository"
	"siops/internal/service"
	"siops/internal/testdb"

	"gorm.io/gorm"
)

func TestAllocateTakesSoonestExpiryFirst(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	p := testdb.Product(t, f.db, "P1", 10000)
	b1 := testdb.Batch(t, f.db, p, "B1", 5, "2025-01-01", "2024-01-01")
	b2 := testdb.Batch(t, f.db, p, "B2", 10, "2025-06-01", "2024-01-01")

	var got []service.Allocation
	err := f.db.Transaction(func(tx *gorm.DB) error {
		var err error
		got, err = f.alloc.Allocate(tx, "P1", 7)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []service.Allocation{{BatchID: b1.ID, BatchCode: "B1", Quantity: 5}, {BatchID: b2.ID, BatchCode: "B2", Quantity: 2}}
	if len(got) != len(want) {
		t.Fatalf("expected %d allocations, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("allocation %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
	if s := testdb.Reload(t, f.db, b1.ID).StockQuantity; s != 0 {
		t.Errorf("expected B1 empty, got %d", s)
	}
	if s := testdb.Reload(t, f.db, b2.ID).StockQuantity; s != 8 {
		t.Errorf("expected B2 at 8, got %d", s)
	}
}

func TestAllocateShortageRollsBack(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	p := testdb.Product(t, f.db, "P1", 10000)
	b1 := testdb.Batch(t, f.db, p, "B1", 5, "2025-01-01", "2024-01-01")
	b2 := testdb.Batch(t, f.db, p, "B2", 10, "2025-06-01", "2024-01-01")

	err := f.db.Transaction(func(tx *gorm.DB) error {
		_, err := f.alloc.Allocate(tx, "P1", 20)
		return err
	})

	var shortage *apperr.ShortageError
	if !errors.As(err, &shortage) {
		t.Fatalf("expected ShortageError, got %v", err)
	}
	s := shortage.Shortfalls[0]
	if s.ProductCode != "P1" || s.Requested != 20 || s.Available != 15 || s.Shortfall != 5 {
		t.Errorf("unexpected shortfall %+v", s)
	}
	if got := testdb.Reload(t, f.db, b1.ID).StockQuantity; got != 5 {
		t.Errorf("expected B1 untouched, got %d", got)
	}
	if got := testdb.Reload(t, f.db, b2.ID).StockQuantity; got != 10 {
		t.Errorf("expected B2 untouched, got %d", got)
	}
}

func TestAllocateRejectsBadInput(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	testdb.Product(t, f.db, "P1", 10000)

	for _, qty := range []int{0, -3} {
		if _, err := f.alloc.Allocate(f.db, "P1", qty); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("qty %d: expected validation error, got %v", qty, err)
		}
	}
	if _, err := f.alloc.Allocate(f.db, "NOPE", 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAllocateSkipsEmptyAndNoExpiryLast(t *testing.T) {
	f := newFixture(t, repository.RestoreAvailable)
	p := testdb.Product(t, f.db, "P1", 10000)
	testdb.Batch(t, f.db, p, "B-EMPTY", 0, "2024-06-01", "2024-01-01")
	noExp := testdb.Batch(t, f.db, p, "B-NOEXP", 4, "", "2023-01-01")
	dated := testdb.Batch(t, f.db, p, "B-DATED", 1, "2026-01-01", "2024-01-01")

	got, err := f.alloc.Allocate(f.db, "P1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].BatchID != dated.ID || got[0].Quantity != 1 || got[1].BatchID != noExp.ID || got[1].Quantity != 2 {
		t.Errorf("unexpected allocations %+v", got)
	}
}
