package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/signalbay/outreach-engine/internal/repository"
	"gorm.io/gorm"
)

func createRecipientsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_recipients",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.RecipientModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_recipients_survey_id ON recipients (survey_id)`,
				`CREATE INDEX IF NOT EXISTS idx_recipients_batch_id ON recipients (batch_id)`,
				`CREATE INDEX IF NOT EXISTS idx_recipients_survey_status ON recipients (survey_id, status)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.RecipientModel{})
		},
	}
}
