package migrations

import (
	"log"
	"time"

	"milestoneamm/migration"

	"gorm.io/gorm"
)

func init() {
	if err := migration.Register("20261003_telemetry_events", Migration20261003TelemetryEvents); err != nil {
		log.Fatalf("Failed to register migration 20261003_telemetry_events: %v", err)
	}
}

// Event model for migration
type Event struct {
	ID        string `gorm:"primaryKey;size:36"`
	Kind      string `gorm:"not null;index;size:32"`
	Market    string `gorm:"not null;index;size:64"`
	Payload   string `gorm:"type:text"`
	CreatedAt time.Time
}

// Migration20261003TelemetryEvents creates the persisted telemetry table
func Migration20261003TelemetryEvents(db *gorm.DB) error {
	return db.AutoMigrate(&Event{})
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "events"
}
