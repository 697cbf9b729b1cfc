package repository

import (
	"context"
	"errors"
	"time"

	"github.com/signalbay/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

type ReminderRepository interface {
	Create(ctx context.Context, rem *domain.Reminder) error
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error)
	Claim(ctx context.Context, id string) (bool, error)
	Finalize(ctx context.Context, id string, status domain.ReminderStatus) error
}

type GormReminderRepo struct {
	db *gorm.DB
}

func NewGormReminderRepo(db *gorm.DB) *GormReminderRepo {
	return &GormReminderRepo{db: db}
}

func (r *GormReminderRepo) Create(ctx context.Context, rem *domain.Reminder) error {
	model := reminderModelFromDomain(rem)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if rem != nil {
		*rem = *reminderModelToDomain(model)
	}
	return nil
}

func (r *GormReminderRepo) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	var model ReminderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return reminderModelToDomain(&model), nil
}

func (r *GormReminderRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	var models []ReminderModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND trigger_at <= ?", domain.ReminderStatusScheduled, now).
		Order("trigger_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	reminders := make([]domain.Reminder, 0, len(models))
	for i := range models {
		reminders = append(reminders, *reminderModelToDomain(&models[i]))
	}

	return reminders, nil
}

// Claim is the guarded SCHEDULED -> SENDING transition; each reminder fires
// at most once.
func (r *GormReminderRepo) Claim(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ? AND status = ?", id, domain.ReminderStatusScheduled).
		Update("status", domain.ReminderStatusSending)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormReminderRepo) Finalize(ctx context.Context, id string, status domain.ReminderStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ReminderModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
