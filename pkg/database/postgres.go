package database

import (
	"log"
	"time"

	"github.com/tylerhoskins/ticketing-platform/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	return db
}

// Migrate creates the schema and the constraints gorm tags cannot express:
// the inventory check constraints and the partial unique index that enforces
// at most one active intent per (event, session).
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Event{}, &models.Ticket{}, &models.PurchaseIntent{}); err != nil {
		return err
	}

	db.Exec(`ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_inventory`)
	db.Exec(`
		ALTER TABLE events ADD CONSTRAINT chk_events_inventory
		CHECK (available_tickets >= 0 AND total_tickets >= 0 AND available_tickets <= total_tickets)
	`)
	db.Exec(`ALTER TABLE purchase_intents DROP CONSTRAINT IF EXISTS chk_intents_quantity`)
	db.Exec(`
		ALTER TABLE purchase_intents ADD CONSTRAINT chk_intents_quantity
		CHECK (quantity > 0 AND quantity <= 100)
	`)

	// Partial unique index: one non-terminal intent per (event, session)
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_intent_active
		ON purchase_intents (event_id, session_id)
		WHERE status IN ('waiting', 'processing')
	`)

	return nil
}
