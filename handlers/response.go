package handlers

import (
	"cart_quote_app_go/db"
	"cart_quote_app_go/services"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// apiResponse is the envelope every JSON endpoint returns
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func jsonSuccess(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, apiResponse{Success: true, Message: message, Data: data})
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, apiResponse{Success: false, Message: message})
}

// Per-request service constructors. Services are thin structs over the
// global database handle, so building them per request costs nothing.

func settingsStore() *services.Settings {
	return services.NewSettings(db.DB)
}

func quoteRepo() *services.QuoteRepository {
	return services.NewQuoteRepository(db.DB, settingsStore())
}

func cartService() *services.CartService {
	return services.NewCartService(db.DB, services.NewTierService(db.DB))
}

func dbHandle() *gorm.DB {
	return db.DB
}
