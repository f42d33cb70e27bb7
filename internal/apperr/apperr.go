// Package apperr holds the error taxonomy shared by the repositories, the
// workflows and the HTTP layer. Workflows wrap one of the sentinel kinds with
// fmt.Errorf("%w: ...") and the handlers map the kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrPersistence       = errors.New("persistence error")
)

// Shortfall describes one product that cannot cover the requested quantity.
type Shortfall struct {
	ProductCode string `json:"product_code"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Shortfall   int    `json:"shortfall"`
}

// ShortageError reports every product that is short. It unwraps to
// ErrInsufficientStock.
type ShortageError struct {
	Shortfalls []Shortfall
}

func (e *ShortageError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s (requested %d, available %d, short %d)", s.ProductCode, s.Requested, s.Available, s.Shortfall)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// Short builds a ShortageError for a single product.
func Short(code string, requested, available int) *ShortageError {
	return &ShortageError{Shortfalls: []Shortfall{{
		ProductCode: code,
		Requested:   requested,
		Available:   available,
		Shortfall:   requested - available,
	}}}
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFound wraps ErrNotFound with the missing entity and key.
func NotFound(entity string, key any) error {
	return fmt.Errorf("%w: %s %v", ErrNotFound, entity, key)
}

// Persistence wraps an unexpected database failure.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrPersistence, op, err)
}

// Status maps an error to the HTTP status code the API answers with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInvalidTransition):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// Body renders the JSON error payload. Shortages carry the per-product report.
func Body(err error) fiber.Map {
	body := fiber.Map{"error": err.Error()}
	if Status(err) == fiber.StatusInternalServerError {
		body["error"] = "Internal Server Error"
	}
	var shortage *ShortageError
	if errors.As(err, &shortage) {
		body["shortfalls"] = shortage.Shortfalls
	}
	return body
}
