package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	AppURL      string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	// Admin API
	AdminAPIToken string
	// Rate limiting for the public quote endpoint
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   int // seconds
	RateLimitBlock    int // seconds an offending IP stays blocked
	RateLimitAllow    []string
	// Turso (optional remote sqlite backend)
	TursoDatabaseURL string
	TursoAuthToken   string
	// Cloudflare R2 Storage (export archives)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
	// Other
	AllowedOrigins []string
	ExportDir      string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")
	adminToken := getEnv("ADMIN_API_TOKEN", "")
	if adminToken == "" && environment == "production" {
		log.Fatal("[CRITICAL] ADMIN_API_TOKEN must be set in production")
	}

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		DBPath:            getEnv("DB_PATH", "db/app.db"),
		Environment:       environment,
		AppURL:            getEnv("APP_URL", "http://localhost:8080"),
		ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
		EmailFrom:         getEnv("EMAIL_FROM", "noreply@cartquote.local"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Cart Quote"),
		EmailTestMode:     getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		AdminAPIToken:     adminToken,
		RateLimitEnabled:  getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 5),
		RateLimitWindow:   getEnvInt("RATE_LIMIT_WINDOW", 300),
		RateLimitBlock:    getEnvInt("RATE_LIMIT_BLOCK", 1800),
		RateLimitAllow:    splitNonEmpty(getEnv("RATE_LIMIT_ALLOW", "")),
		TursoDatabaseURL:  getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:    getEnv("TURSO_AUTH_TOKEN", ""),
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		ExportDir:         getEnv("EXPORT_DIR", "exports"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
