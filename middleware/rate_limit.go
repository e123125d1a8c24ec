package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// BlockDuration is how long an offender stays blocked after exceeding
	// the limit. Zero means no extended block; the window alone applies.
	BlockDuration time.Duration
	// Allow lists client IPs exempt from limiting
	Allow []string
	// KeyFunc is a function that returns a unique key for rate limiting (defaults to IP)
	KeyFunc func(c echo.Context) string
	// Message is the error message returned when rate limit is exceeded
	Message string
}

// rateLimitEntry tracks request count, window expiration, and block state
type rateLimitEntry struct {
	count        int
	expiresAt    time.Time
	blockedUntil time.Time
}

// RateLimiter is a per-endpoint rate limiter
type RateLimiter struct {
	config  RateLimitConfig
	store   map[string]*rateLimitEntry
	allowed map[string]bool
	mu      sync.RWMutex
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.Message == "" {
		config.Message = "Too many requests. Please try again later."
	}

	allowed := make(map[string]bool, len(config.Allow))
	for _, ip := range config.Allow {
		allowed[ip] = true
	}

	rl := &RateLimiter{
		config:  config,
		store:   make(map[string]*rateLimitEntry),
		allowed: allowed,
	}

	go rl.cleanup()

	return rl
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rl.config.KeyFunc(c)
			if rl.allowed[key] {
				return next(c)
			}

			rl.mu.Lock()
			entry, exists := rl.store[key]
			now := time.Now()

			if exists && now.Before(entry.blockedUntil) {
				rl.mu.Unlock()
				return rl.reject(c)
			}

			if !exists || now.After(entry.expiresAt) {
				rl.store[key] = &rateLimitEntry{
					count:     1,
					expiresAt: now.Add(rl.config.Window),
				}
				rl.mu.Unlock()
				return next(c)
			}

			if entry.count >= rl.config.Requests {
				if rl.config.BlockDuration > 0 {
					entry.blockedUntil = now.Add(rl.config.BlockDuration)
				}
				rl.mu.Unlock()
				return rl.reject(c)
			}

			entry.count++
			rl.mu.Unlock()
			return next(c)
		}
	}
}

func (rl *RateLimiter) reject(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
		"success": false,
		"message": rl.config.Message,
	})
}

// cleanup removes expired entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, entry := range rl.store {
			if now.After(entry.expiresAt) && now.After(entry.blockedUntil) {
				delete(rl.store, key)
			}
		}
		rl.mu.Unlock()
	}
}
