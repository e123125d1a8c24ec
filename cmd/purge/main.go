package main

import (
	"flag"
	"log"

	"cart_quote_app_go/config"
	"cart_quote_app_go/db"
	"cart_quote_app_go/models"
	"cart_quote_app_go/services"
)

// Removes every table and option the application owns. Honors the
// delete_on_uninstall setting unless --force is given.
func main() {
	force := flag.Bool("force", false, "purge even when delete_on_uninstall is off")
	flag.Parse()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := db.Initialize(cfg.DBPath, cfg.TursoDatabaseURL, cfg.TursoAuthToken, cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	settings := services.NewSettings(db.DB)
	if !settings.DeleteOnUninstall() && !*force {
		log.Println("delete_on_uninstall is off; nothing purged. Re-run with --force to override.")
		return
	}

	log.Println("Purging application data...")

	tables := []interface{}{
		&models.QuoteLog{},
		&models.Quote{},
		&models.CartItem{},
		&models.Cart{},
		&models.ProductTier{},
	}
	for _, table := range tables {
		if err := db.DB.Migrator().DropTable(table); err != nil {
			log.Printf("Failed to drop table for %T: %v", table, err)
		}
	}

	// Options go last so the uninstall flag stays readable above
	removed, err := settings.DeleteWithPrefix(services.OptionPrefix)
	if err != nil {
		log.Fatalf("Failed to remove options: %v", err)
	}
	if err := db.DB.Migrator().DropTable(&models.Option{}); err != nil {
		log.Printf("Failed to drop options table: %v", err)
	}

	log.Printf("Purge complete. Removed %d options.", removed)
}
