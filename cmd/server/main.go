package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"

	"github.com/formbase/formbase/internal/config"
	"github.com/formbase/formbase/internal/database"
	"github.com/formbase/formbase/internal/handlers"
	"github.com/formbase/formbase/internal/middleware"
	"github.com/formbase/formbase/internal/services"
	"github.com/formbase/formbase/internal/types"
	"github.com/formbase/formbase/internal/utils"

	_ "github.com/formbase/formbase/docs/api" // Swagger docs
)

// @title Formbase API
// @version 1.0.0
// @description Form builder backend with sharing, submissions, webhooks, and audit logging
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/formbase/formbase

// @license.name MIT

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Service facade
	manager := services.GetManager(db, cfg)

	// Periodic audit retention cleanup
	stopRetention := manager.StartAuditRetention(time.Hour)
	defer stopRetention()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(cfg.MaxUploadBytes) + 1024*1024,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("formbase")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")

	// Version middleware
	api.Use(middleware.VersionMiddleware())

	auth := middleware.Auth(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)

	// Create handlers
	userHandler := &handlers.UserHandler{Manager: manager}
	formHandler := &handlers.FormHandler{Manager: manager}
	shareHandler := &handlers.ShareHandler{Manager: manager}
	submissionHandler := &handlers.SubmissionHandler{Manager: manager}
	webhookHandler := &handlers.WebhookHandler{Manager: manager}
	uploadHandler := &handlers.UploadHandler{Manager: manager}
	auditHandler := &handlers.AuditHandler{Manager: manager}
	dashboardHandler := &handlers.DashboardHandler{DB: db, Manager: manager}

	// Account routes
	users := api.Group("/users")
	users.Post("/register", userHandler.Register)
	users.Post("/login", userHandler.Login)
	users.Get("/me", auth, userHandler.Me)

	// Form routes
	forms := api.Group("/forms")
	forms.Post("/", auth, formHandler.Create)
	forms.Get("/", auth, formHandler.List)
	forms.Get("/:id", optionalAuth, formHandler.Get)
	forms.Put("/:id", auth, formHandler.Update)
	forms.Delete("/:id", auth, formHandler.Delete)
	forms.Post("/:id/publish", auth, formHandler.Publish)
	forms.Post("/:id/unpublish", auth, formHandler.Unpublish)
	forms.Post("/:id/clone", auth, formHandler.Clone)
	forms.Put("/:id/visibility", auth, formHandler.SetVisibility)

	// Share routes
	forms.Post("/:id/shares", auth, shareHandler.Create)
	forms.Get("/:id/shares", auth, shareHandler.List)
	forms.Delete("/:id/shares/:userId", auth, shareHandler.Delete)

	// Submission routes
	forms.Post("/:id/submissions", optionalAuth, submissionHandler.Create)
	forms.Get("/:id/submissions", auth, submissionHandler.List)
	forms.Get("/:id/submissions/export", auth, submissionHandler.Export)
	forms.Get("/:id/statistics", auth, submissionHandler.Statistics)
	api.Get("/submissions/:id", auth, submissionHandler.Get)
	api.Put("/submissions/:id", auth, submissionHandler.Update)
	api.Delete("/submissions/:id", auth, submissionHandler.Delete)

	// Webhook routes
	forms.Post("/:id/webhooks", auth, webhookHandler.Create)
	forms.Get("/:id/webhooks", auth, webhookHandler.List)
	api.Delete("/webhooks/:id", auth, webhookHandler.Delete)
	api.Get("/webhooks/:id/deliveries", auth, webhookHandler.Deliveries)

	// Upload routes
	forms.Post("/:id/uploads", optionalAuth, uploadHandler.Create)
	api.Get("/uploads/:id", auth, uploadHandler.Get)

	// Audit routes
	audit := api.Group("/audit")
	audit.Get("/forms/:id", auth, auditHandler.List)
	audit.Get("/forms/:id/export", auth, auditHandler.Export)
	audit.Get("/forms/:id/report", auth, auditHandler.Report)

	// Dashboard and health
	api.Get("/dashboard", auth, dashboardHandler.Summary)
	api.Get("/health", dashboardHandler.Health)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "Resource not found")
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := err.(*types.AppError); ok {
		return utils.ErrorResponse(c, appErr.Status, appErr.Code, appErr.Message)
	}

	code := fiber.StatusInternalServerError
	message := err.Error()

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return utils.ErrorResponse(c, code, "ERROR", message)
}
