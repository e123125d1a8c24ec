package handlers

import (
	"net/http"

	"cart_quote_app_go/config"
	"cart_quote_app_go/services"

	"github.com/labstack/echo/v4"
)

// ResendEmailHandler resends the notification emails for an existing quote.
// recipient selects which side: admin, client, or both.
func ResendEmailHandler(c echo.Context) error {
	cfg := c.Get("config").(*config.Config)
	repo := quoteRepo()

	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	var req struct {
		Recipient string `json:"recipient"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Recipient == "" {
		req.Recipient = "both"
	}

	mailer := services.NewEmailService(cfg, settingsStore(), repo)

	var sent []string
	switch req.Recipient {
	case "admin":
		if err := mailer.SendAdminEmail(q); err != nil {
			return jsonError(c, http.StatusBadGateway, "Failed to send admin email")
		}
		sent = append(sent, "admin")
	case "client":
		if err := mailer.SendClientEmail(q); err != nil {
			return jsonError(c, http.StatusBadGateway, "Failed to send client email")
		}
		sent = append(sent, "client")
	case "both":
		if err := mailer.SendAdminEmail(q); err == nil {
			sent = append(sent, "admin")
		}
		if err := mailer.SendClientEmail(q); err == nil {
			sent = append(sent, "client")
		}
		if len(sent) == 0 {
			return jsonError(c, http.StatusBadGateway, "Failed to send emails")
		}
	default:
		return jsonError(c, http.StatusBadRequest, "recipient must be admin, client, or both")
	}

	return jsonSuccess(c, http.StatusOK, "Emails sent", map[string]interface{}{
		"sent": sent,
	})
}
