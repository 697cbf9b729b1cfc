package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signalbay/outreach-engine/internal/domain"
	"github.com/signalbay/outreach-engine/internal/observability"
	"github.com/signalbay/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const defaultEvaluationScanLimit = 100

// EscalationDispatcher is the threshold scheduler's outbound port.
type EscalationDispatcher interface {
	EscalateNonResponders(
		ctx context.Context,
		surveyID string,
		batchID *string,
		scheduleID *string,
	) (*EscalationResult, error)
}

// ThresholdScheduler persists ratio/time trigger windows per distribution
// batch and re-evaluates due ones against live registry state.
type ThresholdScheduler struct {
	schedules  repository.ScheduleRepository
	recipients repository.RecipientRepository
	dispatcher EscalationDispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	limit      int
	now        func() time.Time
}

func NewThresholdScheduler(
	schedules repository.ScheduleRepository,
	recipients repository.RecipientRepository,
	dispatcher EscalationDispatcher,
	logger *zap.Logger,
) (*ThresholdScheduler, error) {
	if schedules == nil {
		return nil, fmt.Errorf("schedule repository is required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("escalation dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ThresholdScheduler{
		schedules:  schedules,
		recipients: recipients,
		dispatcher: dispatcher,
		logger:     logger,
		limit:      defaultEvaluationScanLimit,
		now:        time.Now,
	}, nil
}

func (s *ThresholdScheduler) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// ScheduleEscalation persists a threshold trigger for a distribution. The
// trigger time is a floor-computed fraction of the campaign duration, so a
// restarted process re-derives the same due comparison from the row alone.
func (s *ThresholdScheduler) ScheduleEscalation(
	ctx context.Context,
	surveyID string,
	batchID *string,
	totalParticipants int,
	campaignDurationMinutes int,
	responseThresholdPercent int,
	escalationTimingPercent int,
) (*domain.Schedule, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	now := s.now().UTC()
	schedule := &domain.Schedule{
		ID:                       uuid.NewString(),
		SurveyID:                 strings.TrimSpace(surveyID),
		BatchID:                  batchID,
		TotalParticipants:        totalParticipants,
		CampaignDurationMinutes:  campaignDurationMinutes,
		ResponseThresholdPercent: responseThresholdPercent,
		EscalationTimingPercent:  escalationTimingPercent,
		Status:                   domain.ScheduleStatusScheduled,
		CreatedAt:                now,
	}
	schedule.TriggerAt = now.Add(schedule.TriggerDelay())

	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.logger.Info("escalation schedule created",
		zap.String("scheduleId", schedule.ID),
		zap.String("surveyId", schedule.SurveyID),
		zap.Time("triggerAt", schedule.TriggerAt),
		zap.Int("thresholdCount", schedule.ThresholdCount()),
	)

	return schedule, nil
}

// EvaluateDue processes every schedule whose trigger time has passed. Each
// row is claimed with a guarded status transition before any side effect,
// so a schedule is evaluated at most once. Row-level failures are logged
// and skipped; a failed due-listing aborts the pass so the next tick can
// retry it wholesale.
func (s *ThresholdScheduler) EvaluateDue(ctx context.Context, now time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := s.now()

	due, err := s.schedules.ListDue(ctx, now, s.limit)
	if err != nil {
		return fmt.Errorf("failed to list due schedules: %w", err)
	}

	for i := range due {
		schedule := due[i]
		if err := s.evaluateOne(ctx, &schedule, now); err != nil {
			s.logger.Error("schedule evaluation failed",
				zap.String("scheduleId", schedule.ID),
				zap.String("surveyId", schedule.SurveyID),
				zap.Error(err),
			)
		}
	}

	s.metrics.ObserveEvaluationPass("threshold", s.now().Sub(start))
	return nil
}

func (s *ThresholdScheduler) evaluateOne(ctx context.Context, schedule *domain.Schedule, now time.Time) error {
	claimed, err := s.schedules.Claim(ctx, schedule.ID)
	if err != nil {
		return fmt.Errorf("failed to claim schedule: %w", err)
	}
	if !claimed {
		// Another evaluation already owns it.
		return nil
	}

	respondedCount, err := s.recipients.CountResponded(ctx, schedule.SurveyID, schedule.BatchID)
	if err != nil {
		return fmt.Errorf("failed to count responses: %w", err)
	}

	responseCount := int(respondedCount)
	responseRate := float64(responseCount) / float64(schedule.TotalParticipants) * 100
	thresholdCount := schedule.ThresholdCount()

	eval := repository.ScheduleEvaluation{
		LastCheckedAt: now,
		ResponseCount: responseCount,
		ResponseRate:  responseRate,
	}

	if responseCount >= thresholdCount {
		eval.Status = s.escalate(ctx, schedule)
	} else {
		// Under-responded campaigns are not escalated; calling the
		// unresponsive majority of a failed campaign is wasted spend.
		eval.Status = domain.ScheduleStatusSkipped
		s.logger.Info("schedule skipped below threshold",
			zap.String("scheduleId", schedule.ID),
			zap.Int("responseCount", responseCount),
			zap.Int("thresholdCount", thresholdCount),
		)
	}

	if err := s.schedules.Finalize(ctx, schedule.ID, eval); err != nil {
		return fmt.Errorf("failed to finalize schedule: %w", err)
	}

	s.metrics.IncScheduleEvaluated(eval.Status.String())
	return nil
}

func (s *ThresholdScheduler) escalate(ctx context.Context, schedule *domain.Schedule) domain.ScheduleStatus {
	// The response count and the escalation target the same batch.
	result, err := s.dispatcher.EscalateNonResponders(ctx, schedule.SurveyID, schedule.BatchID, &schedule.ID)
	if err != nil {
		s.logger.Error("escalation dispatch failed",
			zap.String("scheduleId", schedule.ID),
			zap.String("surveyId", schedule.SurveyID),
			zap.Error(err),
		)
		return domain.ScheduleStatusTriggered
	}

	if result.SuccessCount >= 1 {
		return domain.ScheduleStatusCompleted
	}
	return domain.ScheduleStatusTriggered
}
