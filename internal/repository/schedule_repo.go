package repository

import (
	"context"
	"errors"
	"time"

	"github.com/signalbay/outreach-engine/internal/domain"
	"gorm.io/gorm"
)

// ScheduleEvaluation carries the aggregate fields persisted after every
// evaluation pass, regardless of which branch was taken.
type ScheduleEvaluation struct {
	Status        domain.ScheduleStatus
	LastCheckedAt time.Time
	ResponseCount int
	ResponseRate  float64
}

type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Claim(ctx context.Context, id string) (bool, error)
	Finalize(ctx context.Context, id string, eval ScheduleEvaluation) error
}

type GormScheduleRepo struct {
	db *gorm.DB
}

func NewGormScheduleRepo(db *gorm.DB) *GormScheduleRepo {
	return &GormScheduleRepo{db: db}
}

func (r *GormScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	model := scheduleModelFromDomain(s)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if s != nil {
		*s = *scheduleModelToDomain(model)
	}
	return nil
}

func (r *GormScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	var model ScheduleModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return scheduleModelToDomain(&model), nil
}

func (r *GormScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	var models []ScheduleModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND trigger_at <= ?", domain.ScheduleStatusScheduled, now).
		Order("trigger_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	schedules := make([]domain.Schedule, 0, len(models))
	for i := range models {
		schedules = append(schedules, *scheduleModelToDomain(&models[i]))
	}

	return schedules, nil
}

// Claim is the guarded SCHEDULED -> EVALUATING transition. A schedule is
// processed by at most one evaluation: the conditional update succeeds for
// exactly one caller.
func (r *GormScheduleRepo) Claim(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&ScheduleModel{}).
		Where("id = ? AND status = ?", id, domain.ScheduleStatusScheduled).
		Update("status", domain.ScheduleStatusEvaluating)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormScheduleRepo) Finalize(ctx context.Context, id string, eval ScheduleEvaluation) error {
	result := r.db.WithContext(ctx).
		Model(&ScheduleModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          eval.Status,
			"last_checked_at": eval.LastCheckedAt,
			"response_count":  eval.ResponseCount,
			"response_rate":   eval.ResponseRate,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
