package handler

import (
	"siops/internal/model"
	"siops/internal/repository"
	"siops/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

type updateStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// POST /api/v1/orders
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var req service.CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	order, err := h.service.Create(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Order created", "data": order})
}

// GET /api/v1/orders?status=&user_id=
func (h *OrderHandler) List(c *fiber.Ctx) error {
	filter := repository.OrderFilter{Status: model.OrderStatus(c.Query("status"))}
	userID, err := queryUUID(c, "user_id")
	if err != nil {
		return fail(c, err)
	}
	filter.UserID = userID

	orders, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(orders)
}

// GET /api/v1/orders/:id
func (h *OrderHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return fail(c, err)
	}
	order, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(order)
}

// PATCH /api/v1/orders/:id/status
func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return fail(c, err)
	}
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	order, err := h.service.UpdateStatus(c.UserContext(), actorFrom(c), id, req.Status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order status updated", "data": order})
}

// PUT /api/v1/orders/:id/details/:detailId
func (h *OrderHandler) UpdateDetail(c *fiber.Ctx) error {
	orderID, err := paramUUID(c, "id", "order")
	if err != nil {
		return fail(c, err)
	}
	detailID, err := paramUUID(c, "detailId", "order detail")
	if err != nil {
		return fail(c, err)
	}
	var req service.UpdateDetailRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	order, err := h.service.UpdateDetail(c.UserContext(), actorFrom(c), orderID, detailID, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order line updated", "data": order})
}

// DELETE /api/v1/orders/:id
func (h *OrderHandler) Delete(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "order")
	if err != nil {
		return fail(c, err)
	}
	if err := h.service.Delete(c.UserContext(), actorFrom(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Order deleted"})
}
