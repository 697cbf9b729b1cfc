package repository

import (
	"context"
	"errors"

	"github.com/signalbay/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type BatchRepository interface {
	CreateWithRecipients(ctx context.Context, b *domain.Batch, recipients []*domain.Recipient) error
	GetByID(ctx context.Context, id string) (*domain.Batch, error)
	LatestBySurvey(ctx context.Context, surveyID string) (*domain.Batch, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

// CreateWithRecipients persists the batch row and its recipient rows in a
// single transaction. A failed recipient insert rolls the batch back too;
// an empty batch must never become a survey's latest.
func (r *GormBatchRepo) CreateWithRecipients(ctx context.Context, b *domain.Batch, recipients []*domain.Recipient) error {
	batchModel := batchModelFromDomain(b)
	if batchModel == nil {
		return nil
	}

	models := make([]RecipientModel, 0, len(recipients))
	modelIndexes := make([]int, 0, len(recipients))
	for i, rec := range recipients {
		model := recipientModelFromDomain(rec)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(batchModel).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(&models, 100).Error
	})
	if err != nil {
		return err
	}

	if b != nil {
		*b = *batchModelToDomain(batchModel)
	}
	for i := range models {
		idx := modelIndexes[i]
		if idx < len(recipients) && recipients[idx] != nil {
			*recipients[idx] = *recipientModelToDomain(&models[i])
		}
	}
	return nil
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	var model BatchModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchModelToDomain(&model), nil
}

func (r *GormBatchRepo) LatestBySurvey(ctx context.Context, surveyID string) (*domain.Batch, error) {
	var model BatchModel
	err := r.db.WithContext(ctx).
		Where("survey_id = ?", surveyID).
		Order("created_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchModelToDomain(&model), nil
}
