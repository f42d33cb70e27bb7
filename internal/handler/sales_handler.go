package handler

import (
	"strings"
	"time"

	"siops/internal/apperr"
	"siops/internal/importer"
	"siops/internal/service"

	"github.com/gofiber/fiber/v2"
)

type SalesHandler struct {
	service service.SalesService
}

func NewSalesHandler(s service.SalesService) *SalesHandler {
	return &SalesHandler{service: s}
}

// POST /api/v1/sales
func (h *SalesHandler) Create(c *fiber.Ctx) error {
	var req service.CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	date := time.Now()
	if strings.TrimSpace(req.SalesDate) != "" {
		d, err := importer.ParseDate(req.SalesDate)
		if err != nil {
			return fail(c, apperr.Validation("invalid sales_date: %v", err))
		}
		date = d
	}
	for i := range req.Lines {
		req.Lines[i].Row = i + 1
	}

	sale, err := h.service.CreateSale(c.UserContext(), actorFrom(c), date, req.Lines)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sale recorded", "data": sale})
}

// POST /api/v1/sales/import (multipart, field "file")
func (h *SalesHandler) Import(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "CSV file is required in field 'file'"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot open uploaded file"})
	}
	defer f.Close()

	parsed, err := importer.Parse(f)
	if err != nil {
		return fail(c, apperr.Validation("%v", err))
	}

	report, err := h.service.ImportSales(c.UserContext(), actorFrom(c), parsed)
	if err != nil {
		if report != nil && apperr.Status(err) == fiber.StatusBadRequest {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "report": report})
		}
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Sales imported", "report": report})
}

// GET /api/v1/sales?from=&to=
func (h *SalesHandler) List(c *fiber.Ctx) error {
	from, err := queryDate(c, "from")
	if err != nil {
		return fail(c, err)
	}
	to, err := queryDate(c, "to")
	if err != nil {
		return fail(c, err)
	}
	sales, err := h.service.List(c.UserContext(), from, to)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sales)
}

// GET /api/v1/sales/:id
func (h *SalesHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id", "sale")
	if err != nil {
		return fail(c, err)
	}
	sale, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sale)
}

func queryDate(c *fiber.Ctx, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	d, err := importer.ParseDate(raw)
	if err != nil {
		return nil, apperr.Validation("invalid %s date", name)
	}
	return &d, nil
}
