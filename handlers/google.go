package handlers

import (
	"log"
	"net/http"

	"cart_quote_app_go/config"
	"cart_quote_app_go/services"

	"github.com/labstack/echo/v4"
)

func calendarService(c echo.Context) *services.GoogleCalendarService {
	cfg := c.Get("config").(*config.Config)
	return services.NewGoogleCalendarService(cfg, settingsStore(), quoteRepo())
}

// GoogleAuthURLHandler starts the OAuth flow by returning the consent URL
func GoogleAuthURLHandler(c echo.Context) error {
	calendar := calendarService(c)

	url, err := calendar.AuthURL()
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "Google client credentials are not configured")
	}
	return jsonSuccess(c, http.StatusOK, "", map[string]interface{}{
		"auth_url": url,
	})
}

// GoogleCallbackHandler completes the OAuth flow. The state nonce must match
// the one issued by GoogleAuthURLHandler.
func GoogleCallbackHandler(c echo.Context) error {
	calendar := calendarService(c)

	if errParam := c.QueryParam("error"); errParam != "" {
		log.Printf("[GOOGLE] Authorization denied by provider: %s", errParam)
		return jsonError(c, http.StatusBadRequest, "Authorization was denied")
	}

	if err := calendar.VerifyState(c.QueryParam("state")); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid OAuth state")
	}

	code := c.QueryParam("code")
	if code == "" {
		return jsonError(c, http.StatusBadRequest, "Missing authorization code")
	}

	if err := calendar.ExchangeCode(c.Request().Context(), code); err != nil {
		return jsonError(c, http.StatusBadGateway, "Failed to exchange authorization code")
	}
	return jsonSuccess(c, http.StatusOK, "Google account connected", nil)
}

// GoogleDisconnectHandler drops the stored token set
func GoogleDisconnectHandler(c echo.Context) error {
	calendarService(c).Disconnect()
	return jsonSuccess(c, http.StatusOK, "Google account disconnected", nil)
}

// GoogleStatusHandler reports the integration state
func GoogleStatusHandler(c echo.Context) error {
	calendar := calendarService(c)
	return jsonSuccess(c, http.StatusOK, "", map[string]interface{}{
		"configured": calendar.IsConfigured(),
		"connected":  calendar.IsConnected(),
	})
}

// CreateEventHandler creates the calendar event for a quote's requested
// meeting. Already-synced quotes are not recreated.
func CreateEventHandler(c echo.Context) error {
	return createEventHandler(c, false)
}

// CreateMeetHandler creates the calendar event with a Google Meet conference.
// Gated by the enable_google_meet option.
func CreateMeetHandler(c echo.Context) error {
	if !settingsStore().IsGoogleMeetEnabled() {
		return jsonError(c, http.StatusForbidden, "Google Meet is disabled")
	}
	return createEventHandler(c, true)
}

func createEventHandler(c echo.Context, withMeet bool) error {
	repo := quoteRepo()
	q, errResp := findQuoteParam(c, repo)
	if q == nil {
		return errResp
	}

	if q.CalendarSynced {
		return jsonError(c, http.StatusConflict, "Quote already has a calendar event")
	}
	if !q.MeetingRequested {
		return jsonError(c, http.StatusBadRequest, "Quote has no meeting request")
	}

	calendar := calendarService(c)
	if !calendar.IsConnected() {
		return jsonError(c, http.StatusBadRequest, "Google account is not connected")
	}

	if withMeet {
		created, err := calendar.CreateEventWithMeet(c.Request().Context(), q)
		if err != nil {
			return jsonError(c, http.StatusBadGateway, "Failed to create calendar event")
		}
		return jsonSuccess(c, http.StatusCreated, "Meet event created", map[string]interface{}{
			"event_id":  created.Id,
			"meet_link": created.HangoutLink,
		})
	}

	created, err := calendar.CreateEvent(c.Request().Context(), q)
	if err != nil {
		return jsonError(c, http.StatusBadGateway, "Failed to create calendar event")
	}
	return jsonSuccess(c, http.StatusCreated, "Event created", map[string]interface{}{
		"event_id": created.Id,
	})
}
