package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cart_quote_app_go/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func doRequest(e *echo.Echo, handler echo.HandlerFunc, mw echo.MiddlewareFunc, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = mw(handler)(c)
	return rec
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(RateLimitConfig{Requests: 3, Window: time.Minute})
	mw := rl.Middleware()

	for i := 0; i < 3; i++ {
		rec := doRequest(e, okHandler, mw, "10.0.0.1")
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(e, okHandler, mw, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRateLimiterKeysPerIP(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: time.Minute})
	mw := rl.Middleware()

	assert.Equal(t, http.StatusOK, doRequest(e, okHandler, mw, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, okHandler, mw, "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, doRequest(e, okHandler, mw, "10.0.0.2").Code)
}

func TestRateLimiterWindowReset(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(RateLimitConfig{Requests: 1, Window: 30 * time.Millisecond})
	mw := rl.Middleware()

	assert.Equal(t, http.StatusOK, doRequest(e, okHandler, mw, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, okHandler, mw, "10.0.0.1").Code)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, http.StatusOK, doRequest(e, okHandler, mw, "10.0.0.1").Code)
}

func TestRateLimiterBlockOutlastsWindow(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(RateLimitConfig{
		Requests:      1,
		Window:        20 * time.Millisecond,
		BlockDuration: 200 * time.Millisecond,
	})
	mw := rl.Middleware()

	assert.Equal(t, http.StatusOK, doRequest(e, okHandler, mw, "10.0.0.1").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, okHandler, mw, "10.0.0.1").Code)

	// Window has lapsed but the block has not
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(e, okHandler, mw, "10.0.0.1").Code)
}

func TestRateLimiterAllowList(t *testing.T) {
	e := echo.New()
	rl := NewRateLimiter(RateLimitConfig{
		Requests: 1,
		Window:   time.Minute,
		Allow:    []string{"10.0.0.9"},
	})
	mw := rl.Middleware()

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(e, okHandler, mw, "10.0.0.9").Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	e := echo.New()
	cfg := &config.Config{AdminAPIToken: "secret-token"}
	mw := RequireAdmin(cfg)

	request := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("X-Admin-Token", token)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		_ = mw(okHandler)(c)
		return rec
	}

	assert.Equal(t, http.StatusOK, request("secret-token").Code)
	assert.Equal(t, http.StatusUnauthorized, request("wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, request("").Code)
}

func TestRequireAdminRejectsWhenUnset(t *testing.T) {
	e := echo.New()
	mw := RequireAdmin(&config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Admin-Token", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = mw(okHandler)(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
