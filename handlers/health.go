package handlers

import (
	"net/http"

	"cart_quote_app_go/config"
	"cart_quote_app_go/db"
	"cart_quote_app_go/services"

	"github.com/labstack/echo/v4"
)

// HealthHandler reports service health: database reachability plus the state
// of the email and Google integrations
func HealthHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)

	dbOK := false
	if sqlDB, err := db.DB.DB(); err == nil {
		dbOK = sqlDB.Ping() == nil
	}

	settings := settingsStore()
	calendar := services.NewGoogleCalendarService(cfg, settings, quoteRepo())

	status := http.StatusOK
	statusText := "ok"
	if !dbOK {
		status = http.StatusServiceUnavailable
		statusText = "degraded"
	}

	return c.JSON(status, map[string]interface{}{
		"status":   statusText,
		"database": dbOK,
		"email":    cfg.EmailTestMode || cfg.ResendAPIKey != "",
		"google": map[string]interface{}{
			"configured": calendar.IsConfigured(),
			"connected":  calendar.IsConnected(),
		},
	})
}
