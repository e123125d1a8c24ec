package jobs

import (
	"log"
	"time"

	"cart_quote_app_go/models"
	"cart_quote_app_go/services"

	"gorm.io/gorm"
)

// staleCartAge is how long an untouched cart survives before the daily
// cleanup removes it
const staleCartAge = 7 * 24 * time.Hour

// RunDailyCleanup purges abandoned carts and expired quote log entries.
// Log retention is configurable; zero or negative retention keeps logs
// forever.
func RunDailyCleanup(database *gorm.DB, settings *services.Settings) {
	carts := services.NewCartService(database, services.NewTierService(database))
	if removed := carts.PurgeStale(staleCartAge); removed > 0 {
		log.Printf("[JOB] Removed %d stale carts", removed)
	}

	retention := settings.LogRetentionDays()
	if retention <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retention)
	res := database.Where("created_at < ?", cutoff).Delete(&models.QuoteLog{})
	if res.Error != nil {
		log.Printf("[JOB] Quote log purge failed: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("[JOB] Removed %d quote log entries older than %d days", res.RowsAffected, retention)
	}
}
