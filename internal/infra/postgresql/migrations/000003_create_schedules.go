package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/signalbay/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createSchedulesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_schedules",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ScheduleModel{}); err != nil {
				return err
			}
			// Partial index covering the due scan.
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_schedules_due ON schedules (trigger_at) WHERE status = 'SCHEDULED'`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ScheduleModel{})
		},
	}
}
