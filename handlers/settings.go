package handlers

import (
	"net/http"
	"strconv"

	"cart_quote_app_go/models"
	"cart_quote_app_go/services"

	"github.com/labstack/echo/v4"
)

// writableOptions maps the API's setting names to option keys. Google tokens
// and the OAuth state are deliberately absent: they are managed through the
// OAuth flow, never written directly.
var writableOptions = map[string]string{
	"quote_prefix":         services.OptQuotePrefix,
	"quote_start_number":   services.OptQuoteStartNumber,
	"admin_email":          services.OptAdminEmail,
	"send_to_admin":        services.OptSendToAdmin,
	"send_to_client":       services.OptSendToClient,
	"email_subject_admin":  services.OptEmailSubjectAdmin,
	"email_subject_client": services.OptEmailSubjectClient,
	"meeting_duration":     services.OptMeetingDuration,
	"time_slots":           services.OptTimeSlots,
	"auto_create_event":    services.OptAutoCreateEvent,
	"enable_pdf":           services.OptEnablePDF,
	"enable_google_meet":   services.OptEnableGoogleMeet,
	"default_status":       services.OptDefaultStatus,
	"log_retention_days":   services.OptLogRetentionDays,
	"delete_on_uninstall":  services.OptDeleteOnUninstall,
	"google_client_id":     services.OptGoogleClientID,
	"google_calendar_id":   services.OptGoogleCalendarID,
}

// GetSettingsHandler returns the runtime settings. The Google client secret
// is reported only as present or absent.
func GetSettingsHandler(c echo.Context) error {
	settings := settingsStore()

	out := map[string]interface{}{}
	for name, key := range writableOptions {
		out[name] = settings.Get(key, "")
	}
	out["google_client_secret_set"] = settings.GoogleClientSecret() != ""
	out["google_connected"] = settings.IsGoogleConnected()

	return jsonSuccess(c, http.StatusOK, "", out)
}

// UpdateSettingsHandler applies a partial settings update. Unrecognized keys
// are rejected so typos do not vanish silently.
func UpdateSettingsHandler(c echo.Context) error {
	var req map[string]string
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	settings := settingsStore()

	for name, value := range req {
		if name == "google_client_secret" {
			continue
		}
		key, ok := writableOptions[name]
		if !ok {
			return jsonError(c, http.StatusBadRequest, "Unknown setting: "+name)
		}
		if name == "default_status" && !models.IsValidQuoteStatus(value) {
			return jsonError(c, http.StatusBadRequest, "Invalid default status")
		}
		if !settings.Set(key, value) {
			return jsonError(c, http.StatusInternalServerError, "Failed to save settings")
		}
	}

	// Secret is write-only and encrypted at rest
	if secret, ok := req["google_client_secret"]; ok && secret != "" {
		if !settings.SetGoogleClientSecret(secret) {
			return jsonError(c, http.StatusInternalServerError, "Failed to save settings")
		}
	}

	return jsonSuccess(c, http.StatusOK, "Settings saved", nil)
}

// GetProductTiersHandler returns the quantity price breaks for a product
func GetProductTiersHandler(c echo.Context) error {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid product id")
	}

	tiers := services.NewTierService(dbHandle()).TiersByProduct(uint(productID))
	return jsonSuccess(c, http.StatusOK, "", map[string]interface{}{
		"tiers": tiers,
	})
}

// SaveProductTiersHandler replaces a product's tier set
func SaveProductTiersHandler(c echo.Context) error {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid product id")
	}

	var req struct {
		Tiers []models.ProductTier `json:"tiers"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request body")
	}

	svc := services.NewTierService(dbHandle())
	if err := svc.SaveTiers(uint(productID), req.Tiers); err != nil {
		return jsonError(c, http.StatusInternalServerError, "Failed to save tiers")
	}
	return jsonSuccess(c, http.StatusOK, "Tiers saved", map[string]interface{}{
		"tiers": svc.TiersByProduct(uint(productID)),
	})
}
