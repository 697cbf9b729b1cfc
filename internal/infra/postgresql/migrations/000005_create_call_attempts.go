package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/signalbay/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createCallAttemptsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_call_attempts",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.CallAttemptModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_call_attempts_recipient_id ON call_attempts (recipient_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.CallAttemptModel{})
		},
	}
}
