package db

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize sets up the database connection. A local SQLite file (WAL mode)
// is the default; when tursoURL is set the same schema runs against a remote
// libsql database instead.
func Initialize(dbPath, tursoURL, tursoToken, environment string) error {
	logLevel := logger.Info
	if environment == "production" {
		logLevel = logger.Warn
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	var err error
	if tursoURL != "" {
		dsn := tursoURL
		if tursoToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", tursoURL, tursoToken)
		}
		var conn *sql.DB
		conn, err = sql.Open("libsql", dsn)
		if err != nil {
			return fmt.Errorf("failed to open libsql connection: %w", err)
		}
		DB, err = gorm.Open(sqlite.Dialector{Conn: conn}, gormConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to turso database: %w", err)
		}
		log.Println("Database connection established (turso/libsql)")
		return nil
	}

	// Enable WAL mode for better concurrency support
	dsn := dbPath + "?_journal_mode=WAL"
	DB, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Database connection established (WAL mode enabled)")
	return nil
}

// AutoMigrate runs database migrations for the provided models
func AutoMigrate(models ...interface{}) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := DB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
