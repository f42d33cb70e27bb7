package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("quantity must be positive"), fiber.StatusBadRequest},
		{"shortage", Short("P1", 20, 15), fiber.StatusBadRequest},
		{"wrapped shortage", fmt.Errorf("line 2: %w", Short("P1", 20, 15)), fiber.StatusBadRequest},
		{"transition", fmt.Errorf("%w: received -> received", ErrInvalidTransition), fiber.StatusBadRequest},
		{"unauthorized", ErrUnauthorized, fiber.StatusUnauthorized},
		{"forbidden", ErrForbidden, fiber.StatusForbidden},
		{"not found", NotFound("order", 7), fiber.StatusNotFound},
		{"persistence", Persistence("save order", errors.New("deadlock")), fiber.StatusInternalServerError},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestShortageReport(t *testing.T) {
	err := Short("P1", 20, 15)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected shortage to unwrap to ErrInsufficientStock")
	}
	if err.Shortfalls[0].Shortfall != 5 {
		t.Errorf("expected shortfall 5, got %d", err.Shortfalls[0].Shortfall)
	}

	body := Body(fmt.Errorf("row 3: %w", err))
	if _, ok := body["shortfalls"]; !ok {
		t.Error("expected shortfalls in error body")
	}
}

func TestBodyHidesPersistenceDetail(t *testing.T) {
	body := Body(Persistence("insert sale", errors.New("connection reset")))
	if body["error"] != "Internal Server Error" {
		t.Errorf("expected generic message, got %v", body["error"])
	}
}
