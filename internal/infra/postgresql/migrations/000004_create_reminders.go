package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/signalbay/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createRemindersTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_reminders",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ReminderModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_reminders_due ON reminders (trigger_at) WHERE status = 'SCHEDULED'`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ReminderModel{})
		},
	}
}
