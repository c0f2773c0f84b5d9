package db

import (
	"github.com/tracecmd/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.TaskRecord{},
		&domain.TimelineEvent{},
	)
	if err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Index for timeline events querying by resource
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_timeline_events_resource 
		ON timeline_events (resource_type, resource_id) 
		WHERE deleted_at IS NULL
	`).Error; err != nil {
		return err
	}

	// Listing recent tasks by status
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_task_records_status_created 
		ON task_records (status, created_at DESC)
	`).Error; err != nil {
		return err
	}

	return nil
}
