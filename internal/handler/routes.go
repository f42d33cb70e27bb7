package handler

import (
	"siops/internal/middleware"
	"siops/internal/repository"
	"siops/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers bundles every HTTP handler the API mounts.
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Role      *RoleHandler
	Catalog   *CatalogHandler
	Order     *OrderHandler
	Sales     *SalesHandler
	Opname    *OpnameHandler
	Dashboard *DashboardHandler
}

// RegisterRoutes mounts the /api/v1 routes and, when hub is not nil, the
// /ws endpoint.
func RegisterRoutes(app *fiber.App, h Handlers, userRepo repository.UserRepository, loginLimiter *middleware.IPLimiter, hub *ws.Hub) {
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", middleware.RateLimit(loginLimiter), h.Auth.Login)
	auth.Post("/reset-password", middleware.RateLimit(loginLimiter), h.Auth.ResetPassword)
	auth.Post("/validate-token", h.Auth.ValidateToken)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Dashboard
	protected.Get("/dashboard/stats", middleware.RequirePrivilege("dashboard:view"), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", middleware.RequirePrivilege("dashboard:view"), h.Dashboard.GetStockMovement)

	// Catalog
	protected.Get("/categories", middleware.RequirePrivilege("product:view"), h.Catalog.GetCategories)
	protected.Post("/categories", middleware.RequirePrivilege("product:create"), h.Catalog.CreateCategory)
	protected.Put("/categories/:id", middleware.RequirePrivilege("product:update"), h.Catalog.UpdateCategory)
	protected.Delete("/categories/:id", middleware.RequirePrivilege("product:delete"), h.Catalog.DeleteCategory)

	protected.Get("/products", middleware.RequirePrivilege("product:view"), h.Catalog.GetProducts)
	protected.Get("/products/low-stock", middleware.RequirePrivilege("product:view"), h.Catalog.GetLowStock)
	protected.Get("/products/:id", middleware.RequirePrivilege("product:view"), h.Catalog.GetProduct)
	protected.Post("/products", middleware.RequirePrivilege("product:create"), h.Catalog.CreateProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege("product:update"), h.Catalog.UpdateProduct)
	protected.Delete("/products/:id", middleware.RequirePrivilege("product:delete"), h.Catalog.DeleteProduct)

	protected.Post("/batches", middleware.RequirePrivilege("product:create"), h.Catalog.CreateBatch)
	protected.Get("/stock-movements", middleware.RequireAnyPrivilege("product:view", "opname:view"), h.Catalog.GetMovements)

	// Orders
	protected.Get("/orders", middleware.RequirePrivilege("order:view"), h.Order.List)
	protected.Get("/orders/:id", middleware.RequirePrivilege("order:view"), h.Order.Get)
	protected.Post("/orders", middleware.RequirePrivilege("order:create"), h.Order.Create)
	protected.Patch("/orders/:id/status", middleware.RequirePrivilege("order:update"), h.Order.UpdateStatus)
	protected.Put("/orders/:id/details/:detailId", middleware.RequirePrivilege("order:update"), h.Order.UpdateDetail)
	protected.Delete("/orders/:id", middleware.RequirePrivilege("order:update"), h.Order.Delete)

	// Sales
	protected.Get("/sales", middleware.RequirePrivilege("sale:view"), h.Sales.List)
	protected.Get("/sales/:id", middleware.RequirePrivilege("sale:view"), h.Sales.Get)
	protected.Post("/sales", middleware.RequirePrivilege("sale:create"), h.Sales.Create)
	protected.Post("/sales/import", middleware.RequirePrivilege("sale:import"), h.Sales.Import)

	// Stock opname
	protected.Get("/opnames", middleware.RequirePrivilege("opname:view"), h.Opname.List)
	protected.Post("/opnames", middleware.RequirePrivilege("opname:create"), h.Opname.Create)

	// User management
	protected.Get("/users", middleware.RequirePrivilege("user:view"), h.User.GetUsers)
	protected.Get("/users/:id", middleware.RequirePrivilege("user:view"), h.User.GetUser)
	protected.Post("/users", middleware.RequirePrivilege("user:create"), h.User.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege("user:update"), h.User.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege("user:delete"), h.User.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege("user:update"), h.User.UpdateUserPrivileges)

	protected.Get("/roles", h.Role.GetRoles)
	protected.Get("/privileges", h.Role.GetPrivileges)

	if hub == nil {
		return
	}
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(hub.Serve))
}
