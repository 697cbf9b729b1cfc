package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signalbay/outreach-engine/internal/domain"
	"github.com/signalbay/outreach-engine/internal/observability"
	"github.com/signalbay/outreach-engine/internal/provider"
	"github.com/signalbay/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	reminderLeadTime     = 6 * time.Hour
	reminderTestLeadTime = 2 * time.Minute
	// Campaigns shorter than this rely on other notification paths; the
	// 6h lead reminder is excluded for them.
	minReminderCampaignWindow = 24 * time.Hour

	reminderSubject = "Your survey closes soon"
)

// ReminderScheduler persists a single deadline-relative trigger per campaign
// and fires it at most once through the bulk messenger.
type ReminderScheduler struct {
	reminders repository.ReminderRepository
	messenger provider.MessageProvider
	logger    *zap.Logger
	metrics   *observability.Metrics
	limit     int
	now       func() time.Time
}

func NewReminderScheduler(
	reminders repository.ReminderRepository,
	messenger provider.MessageProvider,
	logger *zap.Logger,
) (*ReminderScheduler, error) {
	if reminders == nil {
		return nil, fmt.Errorf("reminder repository is required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("message provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderScheduler{
		reminders: reminders,
		messenger: messenger,
		logger:    logger,
		limit:     defaultEvaluationScanLimit,
		now:       time.Now,
	}, nil
}

func (s *ReminderScheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// ScheduleReminder persists a deadline reminder. Returns (nil, nil) when
// the campaign is excluded by policy: shorter than the 24h window outside
// test mode, or with a lead-adjusted trigger already in the past.
func (s *ReminderScheduler) ScheduleReminder(
	ctx context.Context,
	surveyID string,
	recipientRefs []string,
	campaignEndTime time.Time,
	testMode bool,
) (*domain.Reminder, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, fmt.Errorf("%w: survey id is required", domain.ErrValidation)
	}
	if len(recipientRefs) == 0 {
		return nil, fmt.Errorf("%w: at least one recipient ref is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	leadTime := reminderLeadTime
	if testMode {
		leadTime = reminderTestLeadTime
	}

	if !testMode && campaignEndTime.Sub(now) < minReminderCampaignWindow {
		s.logger.Info("reminder excluded for short campaign",
			zap.String("surveyId", surveyID),
			zap.Time("campaignEndTime", campaignEndTime),
		)
		return nil, nil
	}

	triggerAt := campaignEndTime.Add(-leadTime)
	if !triggerAt.After(now) {
		s.logger.Info("reminder trigger already in the past, not scheduling",
			zap.String("surveyId", surveyID),
			zap.Time("triggerAt", triggerAt),
		)
		return nil, nil
	}

	reminder := &domain.Reminder{
		ID:              uuid.NewString(),
		SurveyID:        surveyID,
		RecipientRefs:   recipientRefs,
		CampaignEndTime: campaignEndTime,
		LeadTimeMinutes: int(leadTime / time.Minute),
		TriggerAt:       triggerAt,
		Status:          domain.ReminderStatusScheduled,
		TestMode:        testMode,
		CreatedAt:       now,
	}
	if err := reminder.Validate(); err != nil {
		return nil, err
	}

	if err := s.reminders.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}

	s.logger.Info("deadline reminder scheduled",
		zap.String("reminderId", reminder.ID),
		zap.String("surveyId", surveyID),
		zap.Time("triggerAt", triggerAt),
		zap.Bool("testMode", testMode),
	)

	return reminder, nil
}

// EvaluateDue fires every reminder whose trigger time has passed. A guarded
// claim precedes the send, so each reminder fires at most once even across
// overlapping passes.
func (s *ReminderScheduler) EvaluateDue(ctx context.Context, now time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := s.now()

	due, err := s.reminders.ListDue(ctx, now, s.limit)
	if err != nil {
		return fmt.Errorf("failed to list due reminders: %w", err)
	}

	for i := range due {
		reminder := due[i]
		if err := s.fireOne(ctx, &reminder); err != nil {
			s.logger.Error("reminder evaluation failed",
				zap.String("reminderId", reminder.ID),
				zap.String("surveyId", reminder.SurveyID),
				zap.Error(err),
			)
		}
	}

	s.metrics.ObserveEvaluationPass("reminder", s.now().Sub(start))
	return nil
}

func (s *ReminderScheduler) fireOne(ctx context.Context, reminder *domain.Reminder) error {
	claimed, err := s.reminders.Claim(ctx, reminder.ID)
	if err != nil {
		return fmt.Errorf("failed to claim reminder: %w", err)
	}
	if !claimed {
		return nil
	}

	body := fmt.Sprintf(
		"This is a reminder that your survey closes at %s. Please respond before the deadline.",
		reminder.CampaignEndTime.UTC().Format(time.RFC1123),
	)

	status := domain.ReminderStatusSent
	if err := s.messenger.SendBulkMessage(ctx, reminder.RecipientRefs, reminderSubject, body); err != nil {
		s.logger.Warn("reminder bulk send failed",
			zap.String("reminderId", reminder.ID),
			zap.String("surveyId", reminder.SurveyID),
			zap.Error(err),
		)
		status = domain.ReminderStatusFailed
	}

	if err := s.reminders.Finalize(ctx, reminder.ID, status); err != nil {
		return fmt.Errorf("failed to finalize reminder: %w", err)
	}

	s.metrics.IncReminder(strings.ToLower(status.String()))
	return nil
}
