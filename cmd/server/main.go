package main

import (
	"log"
	"time"

	"cart_quote_app_go/config"
	"cart_quote_app_go/db"
	"cart_quote_app_go/handlers"
	"cart_quote_app_go/middleware"
	"cart_quote_app_go/models"
	"cart_quote_app_go/services"
	"cart_quote_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := db.AutoMigrate(
		&models.Quote{},
		&models.QuoteLog{},
		&models.Option{},
		&models.Cart{},
		&models.CartItem{},
		&models.ProductTier{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	settings := services.NewSettings(db.DB)
	settings.SeedDefaults()

	services.InitializeStorage(cfg)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))

	// Make config available to handlers
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("config", cfg)
			return next(c)
		}
	})

	e.GET("/healthz", handlers.HealthHandler)

	// Public cart routes
	e.GET("/api/cart", handlers.GetCartHandler)
	e.DELETE("/api/cart", handlers.ClearCartHandler)
	e.POST("/api/cart/items", handlers.AddCartItemHandler)
	e.PUT("/api/cart/items/:product_id", handlers.UpdateCartItemHandler)
	e.DELETE("/api/cart/items/:product_id", handlers.RemoveCartItemHandler)

	// Public quote submission, rate limited per client IP
	submit := e.Group("/api/quotes")
	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			Requests:      cfg.RateLimitRequests,
			Window:        time.Duration(cfg.RateLimitWindow) * time.Second,
			BlockDuration: time.Duration(cfg.RateLimitBlock) * time.Second,
			Allow:         cfg.RateLimitAllow,
			Message:       "Too many quote submissions. Please try again later.",
		})
		submit.Use(limiter.Middleware())
	}
	submit.POST("", handlers.SubmitQuoteHandler)

	// The OAuth callback is hit by the admin's browser on redirect from
	// Google, which cannot attach the admin token header. The single-use
	// state nonce authenticates the request instead.
	e.GET("/api/admin/google/callback", handlers.GoogleCallbackHandler)

	// Admin API, guarded by the static admin token
	admin := e.Group("/api/admin")
	admin.Use(middleware.RequireAdmin(cfg))
	{
		admin.GET("/quotes", handlers.ListQuotesHandler)
		admin.GET("/quotes/:id", handlers.GetQuoteHandler)
		admin.PUT("/quotes/:id/status", handlers.UpdateQuoteStatusHandler)
		admin.PUT("/quotes/:id/notes", handlers.SaveQuoteNotesHandler)
		admin.PUT("/quotes/:id/meeting", handlers.UpdateQuoteMeetingHandler)
		admin.DELETE("/quotes/:id", handlers.DeleteQuoteHandler)
		admin.GET("/quotes/:id/logs", handlers.QuoteLogsHandler)
		admin.GET("/quotes/:id/pdf", handlers.QuotePDFHandler)
		admin.POST("/quotes/:id/event", handlers.CreateEventHandler)
		admin.POST("/quotes/:id/meet", handlers.CreateMeetHandler)
		admin.POST("/quotes/:id/resend-email", handlers.ResendEmailHandler)

		admin.GET("/stats", handlers.QuoteStatsHandler)
		admin.GET("/export", handlers.ExportQuotesHandler)
		admin.GET("/export/archive", handlers.GetExportArchiveHandler)
		admin.DELETE("/export/archive", handlers.DeleteExportArchiveHandler)

		admin.GET("/settings", handlers.GetSettingsHandler)
		admin.PUT("/settings", handlers.UpdateSettingsHandler)
		admin.GET("/products/:product_id/tiers", handlers.GetProductTiersHandler)
		admin.PUT("/products/:product_id/tiers", handlers.SaveProductTiersHandler)

		admin.GET("/google/status", handlers.GoogleStatusHandler)
		admin.GET("/google/auth-url", handlers.GoogleAuthURLHandler)
		admin.POST("/google/disconnect", handlers.GoogleDisconnectHandler)
	}

	// Background maintenance: daily cleanup and hourly token refresh
	calendar := services.NewGoogleCalendarService(cfg, settings,
		services.NewQuoteRepository(db.DB, settings))
	scheduler := jobs.StartScheduler(db.DB, settings, calendar)
	defer scheduler.Stop()

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
