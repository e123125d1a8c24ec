package middleware

import (
	"crypto/subtle"
	"net/http"

	"cart_quote_app_go/config"

	"github.com/labstack/echo/v4"
)

// RequireAdmin guards the admin API with a static token carried in the
// X-Admin-Token header. The comparison is constant time.
func RequireAdmin(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get("X-Admin-Token")
			if cfg.AdminAPIToken == "" || token == "" ||
				subtle.ConstantTimeCompare([]byte(token), []byte(cfg.AdminAPIToken)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"message": "Unauthorized",
				})
			}
			return next(c)
		}
	}
}
