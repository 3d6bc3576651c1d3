package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/outreach-backend/internal/domain"
)

// AutoMigrateAll creates or updates every outreach table and index.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	// Timeline reads scan one institution newest-first.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_outreach_event_timeline ON outreach_event (institution_id, occurred_at DESC, id DESC)`).Error; err != nil {
		return fmt.Errorf("timeline index: %w", err)
	}
	return nil
}
