package handler

import (
	"siops/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OpnameHandler struct {
	service service.OpnameService
}

func NewOpnameHandler(s service.OpnameService) *OpnameHandler {
	return &OpnameHandler{service: s}
}

// POST /api/v1/opnames
func (h *OpnameHandler) Create(c *fiber.Ctx) error {
	var req service.OpnameRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	opname, err := h.service.Reconcile(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Stock opname recorded", "data": opname})
}

// GET /api/v1/opnames?batch_id=
func (h *OpnameHandler) List(c *fiber.Ctx) error {
	batchID, err := queryUUID(c, "batch_id")
	if err != nil {
		return fail(c, err)
	}
	opnames, err := h.service.GetAll(batchID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(opnames)
}
