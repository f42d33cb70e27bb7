package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siops/internal/handler"
	"siops/internal/middleware"
	"siops/internal/model"
	"siops/internal/repository"
	"siops/internal/service"
	"siops/internal/ws"
	"siops/pkg/config"
	"siops/pkg/database"
	"siops/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

func main() {
	// 1. Load config
	cfg := config.Load()
	if cfg.App.JWTSecret != "" {
		jwt.SetSecretKey(cfg.App.JWTSecret)
	} else {
		log.Println("Warning: JWT_SECRET not set, using the built-in development key")
	}

	policy, err := repository.ParseRestorePolicy(cfg.App.RestorePolicy)
	if err != nil {
		log.Fatalf("Invalid RESTORE_POLICY: %v", err)
	}

	// 2. Setup Database
	db := database.ConnectDB(cfg.Database)
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// 3. Seed default privileges, roles, and admin user
	seedPrivilegesRolesAndAdmin(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	batchRepo := repository.NewBatchRepo()
	orderRepo := repository.NewOrderRepo()
	saleRepo := repository.NewSaleRepo()
	opnameRepo := repository.NewOpnameRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	allocator := service.NewAllocator(productRepo, batchRepo)
	catalogService := service.NewCatalogService(productRepo, categoryRepo, batchRepo, movementRepo, db, wsHub)
	orderService := service.NewOrderService(orderRepo, productRepo, batchRepo, movementRepo, policy, db, wsHub)
	salesService := service.NewSalesService(saleRepo, productRepo, batchRepo, movementRepo, allocator, db, wsHub)
	opnameService := service.NewOpnameService(opnameRepo, batchRepo, movementRepo, db, wsHub)
	dashService := service.NewDashboardService(movementRepo)
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		User:      handler.NewUserHandler(userService),
		Role:      handler.NewRoleHandler(roleRepo, privilegeRepo),
		Catalog:   handler.NewCatalogHandler(catalogService),
		Order:     handler.NewOrderHandler(orderService),
		Sales:     handler.NewSalesHandler(salesService),
		Opname:    handler.NewOpnameHandler(opnameService),
		Dashboard: handler.NewDashboardHandler(dashService),
	}

	loginLimiter := middleware.NewIPLimiter(cfg.App.LoginRatePerSec, cfg.App.LoginBurst)
	go loginLimiter.Cleanup(time.Minute, 10*time.Minute)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: 10 * 1024 * 1024, // sales CSV uploads
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.App.CORSOrigins}))

	// 7. Routes
	handler.RegisterRoutes(app, handlers, userRepo, loginLimiter, wsHub)

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedPrivilegesRolesAndAdmin creates default privileges, roles, and admin user if they don't exist
func seedPrivilegesRolesAndAdmin(db *gorm.DB) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed privileges: %v", err)
	}

	// 2. Seed roles with their privilege sets
	if err := roleRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed roles: %v", err)
	}

	// 3. Create default admin user with ADMIN role
	if _, err := userRepo.FindByEmail("admin@example.com"); err == nil {
		return
	}
	adminRole, err := roleRepo.FindByCode(model.RoleAdmin)
	if err != nil {
		log.Printf("Warning: ADMIN role missing, admin user not created: %v", err)
		return
	}

	admin := &model.User{
		Email:      "admin@example.com",
		FullName:   "Administrator",
		RoleID:     &adminRole.ID,
		IsActive:   true,
		Privileges: adminRole.Privileges,
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"

	if err := admin.SetPassword("admin123"); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}

	if err := userRepo.Create(admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
	} else {
		log.Println("✅ Admin user created: admin@example.com / admin123 (ADMIN)")
	}
}
