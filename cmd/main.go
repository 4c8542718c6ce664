package main

import (
	"projecthub/internal/audit"
	"projecthub/internal/handler"
	"projecthub/internal/identity"
	"projecthub/internal/middleware"
	"projecthub/internal/quota"
	"projecthub/internal/service"
	"projecthub/pkg/config"
	"projecthub/pkg/database"
	"projecthub/pkg/jwtutil"
	"projecthub/pkg/logger"
	"projecthub/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting projecthub...", cfg.LogFields()...)

	// Initialize database
	db, err := database.Open(&cfg.DB)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Core components
	jwt := jwtutil.New(&cfg.JWT)
	guard := quota.NewGuard(db)
	recorder := audit.NewRecorder(db, log, cfg.Audit.QueueSize)
	defer recorder.Close()
	resolver := identity.NewResolver(db, jwt)

	// Services
	authSvc := service.NewAuthService(db, jwt, recorder, log)
	tenantSvc := service.NewTenantService(db, recorder, log)
	userSvc := service.NewUserService(db, guard, recorder, log)
	projectSvc := service.NewProjectService(db, guard, recorder, log)
	taskSvc := service.NewTaskService(db, recorder, log)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	tenantHandler := handler.NewTenantHandler(tenantSvc)
	userHandler := handler.NewUserHandler(userSvc)
	projectHandler := handler.NewProjectHandler(projectSvc)
	taskHandler := handler.NewTaskHandler(taskSvc)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - these don't belong under /api since they're for getting access to the API
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", authHandler.Logout, middleware.Auth(resolver))
	auth.GET("/me", authHandler.Me, middleware.Auth(resolver))

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.Auth(resolver))

	// Tenant management
	api.GET("/tenants", tenantHandler.List)
	api.GET("/tenants/:tenantId", tenantHandler.Get)
	api.PATCH("/tenants/:tenantId", tenantHandler.Update)

	// Tenant user management
	api.GET("/tenants/:tenantId/users", userHandler.List)
	api.POST("/tenants/:tenantId/users", userHandler.Create)
	api.PATCH("/users/:userId", userHandler.Update)
	api.DELETE("/users/:userId", userHandler.Delete)

	// Project management
	api.GET("/tenants/:tenantId/projects", projectHandler.List)
	api.POST("/tenants/:tenantId/projects", projectHandler.Create)
	api.PATCH("/projects/:projectId", projectHandler.Update)
	api.DELETE("/projects/:projectId", projectHandler.Delete)

	// Task management
	api.GET("/projects/:projectId/tasks", taskHandler.List)
	api.POST("/projects/:projectId/tasks", taskHandler.Create)
	api.PATCH("/tasks/:taskId", taskHandler.Update)
	api.DELETE("/tasks/:taskId", taskHandler.Delete)

	// Start server
	log.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := e.Start(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
