package jobs

import (
	"context"
	"log"

	"cart_quote_app_go/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// StartScheduler wires the recurring maintenance jobs: daily cleanup at
// midnight and an hourly Google token refresh
func StartScheduler(database *gorm.DB, settings *services.Settings, calendar *services.GoogleCalendarService) *cron.Cron {
	c := cron.New()

	if _, err := c.AddFunc("0 0 * * *", func() {
		log.Println("[CRON] Running daily cleanup...")
		RunDailyCleanup(database, settings)
	}); err != nil {
		log.Fatalf("[CRON] Failed to schedule daily cleanup: %v", err)
	}

	if _, err := c.AddFunc("0 * * * *", func() {
		calendar.RefreshTokenJob(context.Background())
	}); err != nil {
		log.Fatalf("[CRON] Failed to schedule token refresh: %v", err)
	}

	c.Start()
	log.Println("[CRON] Scheduler started")
	return c
}
