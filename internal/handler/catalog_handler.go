package handler

import (
	"siops/internal/repository"
	"siops/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(s service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: s}
}

// GET /api/v1/categories
func (h *CatalogHandler) GetCategories(c *fiber.Ctx) error {
	categories, err := h.service.GetAllCategories()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(categories)
}

// POST /api/v1/categories
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req service.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	category, err := h.service.CreateCategory(actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Category created", "data": category})
}

// PUT /api/v1/categories/:id
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "category")
	if err != nil {
		return fail(c, err)
	}
	var req service.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	category, err := h.service.UpdateCategory(actorFrom(c), id, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category updated", "data": category})
}

// DELETE /api/v1/categories/:id
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "category")
	if err != nil {
		return fail(c, err)
	}
	if err := h.service.DeleteCategory(actorFrom(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Category deleted"})
}

// GET /api/v1/products
func (h *CatalogHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.GetAllProducts()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(products)
}

// GET /api/v1/products/low-stock
func (h *CatalogHandler) GetLowStock(c *fiber.Ctx) error {
	products, err := h.service.GetLowStock()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(products)
}

// GET /api/v1/products/:id
func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "product")
	if err != nil {
		return fail(c, err)
	}
	detail, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(detail)
}

// POST /api/v1/products
func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	product, err := h.service.CreateProduct(actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product})
}

// PUT /api/v1/products/:id
func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "product")
	if err != nil {
		return fail(c, err)
	}
	var req service.ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	product, err := h.service.UpdateProduct(actorFrom(c), id, &req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": product})
}

// DELETE /api/v1/products/:id
func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "product")
	if err != nil {
		return fail(c, err)
	}
	if err := h.service.DeleteProduct(actorFrom(c), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// POST /api/v1/batches
func (h *CatalogHandler) CreateBatch(c *fiber.Ctx) error {
	var req service.BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}
	batch, err := h.service.CreateBatch(c.UserContext(), actorFrom(c), &req)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Batch created", "data": batch})
}

// GET /api/v1/stock-movements?product_id=&batch_id=&reference=&limit=
func (h *CatalogHandler) GetMovements(c *fiber.Ctx) error {
	var filter repository.MovementFilter
	var err error
	if filter.ProductID, err = queryUUID(c, "product_id"); err != nil {
		return fail(c, err)
	}
	if filter.BatchID, err = queryUUID(c, "batch_id"); err != nil {
		return fail(c, err)
	}
	filter.Reference = c.Query("reference")
	filter.Limit = c.QueryInt("limit", 100)

	movements, err := h.service.GetMovements(filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(movements)
}
