package repository

import (
	"context"
	"errors"
	"time"

	"github.com/signalbay/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type RecipientRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Recipient, error)
	ListBySurvey(ctx context.Context, surveyID string) ([]domain.Recipient, error)
	MarkResponded(ctx context.Context, id string, respondedAt time.Time) (bool, error)
	MarkEscalated(ctx context.Context, id string, escalationRef *string) (bool, error)
	CountResponded(ctx context.Context, surveyID string, batchID *string) (int64, error)
}

type GormRecipientRepo struct {
	db *gorm.DB
}

func NewGormRecipientRepo(db *gorm.DB) *GormRecipientRepo {
	return &GormRecipientRepo{db: db}
}

func (r *GormRecipientRepo) GetByID(ctx context.Context, id string) (*domain.Recipient, error) {
	var model RecipientModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recipientModelToDomain(&model), nil
}

func (r *GormRecipientRepo) ListBySurvey(ctx context.Context, surveyID string) ([]domain.Recipient, error) {
	var models []RecipientModel
	err := r.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Order("sent_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(models))
	for i := range models {
		recipients = append(recipients, *recipientModelToDomain(&models[i]))
	}

	return recipients, nil
}

// MarkResponded is a guarded transition into RESPONDED. Returns false when
// the recipient is unknown or already responded; RESPONDED is never
// overwritten.
func (r *GormRecipientRepo) MarkResponded(ctx context.Context, id string, respondedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("id = ? AND status <> ?", id, domain.RecipientStatusResponded).
		Updates(map[string]any{
			"status":       domain.RecipientStatusResponded,
			"responded_at": respondedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkEscalated transitions SENT or NO_RESPONSE into ESCALATED. Returns
// false when the recipient is unknown or already terminal.
func (r *GormRecipientRepo) MarkEscalated(ctx context.Context, id string, escalationRef *string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("id = ? AND status IN ?", id, []domain.RecipientStatus{
			domain.RecipientStatusSent,
			domain.RecipientStatusNoResponse,
		}).
		Updates(map[string]any{
			"status":         domain.RecipientStatusEscalated,
			"escalation_ref": escalationRef,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormRecipientRepo) CountResponded(ctx context.Context, surveyID string, batchID *string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&RecipientModel{}).
		Where("survey_id = ? AND status = ?", surveyID, domain.RecipientStatusResponded)
	if batchID != nil {
		query = query.Where("batch_id = ?", *batchID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
