package service

import (
	"context"
	"fmt"
	"time"

	"github.com/signalbay/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

// CampaignConfig carries the distribution-time campaign parameters.
type CampaignConfig struct {
	DurationMinutes          int
	ResponseThresholdPercent int
	EscalationTimingPercent  int
	EndTime                  *time.Time
	ScheduleReminder         bool
	TestMode                 bool
}

// Distribution is the set of records one send action creates.
type Distribution struct {
	Batch      *domain.Batch
	Recipients []domain.Recipient
	Schedule   *domain.Schedule
	Reminder   *domain.Reminder
}

// DistributionService orchestrates a send action: batch + recipients first,
// then the escalation schedule, then the optional deadline reminder.
type DistributionService struct {
	registry   *RegistryService
	thresholds *ThresholdScheduler
	reminders  *ReminderScheduler
	logger     *zap.Logger
}

func NewDistributionService(
	registry *RegistryService,
	thresholds *ThresholdScheduler,
	reminders *ReminderScheduler,
	logger *zap.Logger,
) (*DistributionService, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry service is required")
	}
	if thresholds == nil {
		return nil, fmt.Errorf("threshold scheduler is required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder scheduler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DistributionService{
		registry:   registry,
		thresholds: thresholds,
		reminders:  reminders,
		logger:     logger,
	}, nil
}

func (s *DistributionService) Distribute(
	ctx context.Context,
	surveyID string,
	pairs []domain.ContactPair,
	cfg CampaignConfig,
) (*Distribution, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ScheduleReminder && cfg.EndTime == nil {
		return nil, fmt.Errorf("%w: campaign end time is required to schedule a reminder", domain.ErrValidation)
	}

	batch, recipients, err := s.registry.CreateBatch(ctx, surveyID, pairs)
	if err != nil {
		return nil, err
	}

	schedule, err := s.thresholds.ScheduleEscalation(
		ctx,
		surveyID,
		&batch.ID,
		batch.TotalCount,
		cfg.DurationMinutes,
		cfg.ResponseThresholdPercent,
		cfg.EscalationTimingPercent,
	)
	if err != nil {
		return nil, err
	}

	distribution := &Distribution{
		Batch:      batch,
		Recipients: recipients,
		Schedule:   schedule,
	}

	if cfg.ScheduleReminder {
		refs := make([]string, 0, len(recipients))
		for i := range recipients {
			refs = append(refs, recipients[i].Email)
		}

		reminder, err := s.reminders.ScheduleReminder(ctx, surveyID, refs, cfg.EndTime.UTC(), cfg.TestMode)
		if err != nil {
			return nil, err
		}
		distribution.Reminder = reminder
	}

	return distribution, nil
}
