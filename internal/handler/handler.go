package handler

import (
	"log"
	"strings"

	"siops/internal/apperr"
	"siops/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Helpers to read the caller set by the auth middleware
func getUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// actorFrom builds the workflow caller. It returns nil when the request is
// unauthenticated so the workflow answers 401.
func actorFrom(c *fiber.Ctx) *service.Actor {
	id, err := uuid.Parse(getUserID(c))
	if err != nil {
		return nil
	}
	role, _ := c.Locals("user_role").(string)
	active, _ := c.Locals("user_active").(bool)
	return &service.Actor{ID: id, Role: role, Active: active}
}

// fail writes err with the status its kind maps to.
func fail(c *fiber.Ctx, err error) error {
	status := apperr.Status(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(apperr.Body(err))
}

func paramUUID(c *fiber.Ctx, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid %s ID", what)
	}
	return id, nil
}

func queryUUID(c *fiber.Ctx, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("invalid %s", name)
	}
	return &id, nil
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}
