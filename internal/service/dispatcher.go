package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/signalbay/outreach-engine/internal/domain"
	"github.com/signalbay/outreach-engine/internal/observability"
	"github.com/signalbay/outreach-engine/internal/provider"
	"github.com/signalbay/outreach-engine/internal/ratelimit"
	"github.com/signalbay/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const voiceChannel = "voice"

// EscalationOutcome is the per-recipient record of one escalation attempt.
type EscalationOutcome struct {
	RecipientID string
	Email       string
	Phone       string
	Success     bool
	CallRef     string
	Error       string
}

// EscalationResult aggregates one dispatcher invocation.
type EscalationResult struct {
	SuccessCount int
	FailedCount  int
	Outcomes     []EscalationOutcome
}

// Dispatcher places voice calls to deduplicated non-responders and records
// the outcome of every call. Per-recipient failures are isolated; only
// systemic failures (registry or store unreachable) abort the whole call.
type Dispatcher struct {
	registry *RegistryService
	attempts repository.AttemptRepository
	calls    provider.CallProvider
	limiter  ratelimit.RateLimiter
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewDispatcher(
	registry *RegistryService,
	attempts repository.AttemptRepository,
	calls provider.CallProvider,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry service is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if calls == nil {
		return nil, fmt.Errorf("call provider is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		registry: registry,
		attempts: attempts,
		calls:    calls,
		limiter:  limiter,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// EscalateNonResponders resolves the deduplicated non-responder set and
// places one voice call per entry, sequentially. A set batchID pins the
// candidates to that batch; nil escalates survey-wide. The scheduleID,
// when set, ties the call attempt audit rows back to the triggering
// schedule.
func (d *Dispatcher) EscalateNonResponders(
	ctx context.Context,
	surveyID string,
	batchID *string,
	scheduleID *string,
) (*EscalationResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var nonResponders []domain.Recipient
	var err error
	if batchID != nil {
		nonResponders, err = d.registry.NonRespondersForBatch(ctx, surveyID, *batchID)
	} else {
		nonResponders, err = d.registry.NonResponders(ctx, surveyID, domain.ScopeAllBatches)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve non-responders: %w", err)
	}

	result := &EscalationResult{
		Outcomes: make([]EscalationOutcome, 0, len(nonResponders)),
	}

	for i := range nonResponders {
		rec := nonResponders[i]

		if err := d.limiter.Wait(ctx, voiceChannel); err != nil {
			return result, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		callResult, callErr := d.calls.PlaceCall(ctx, surveyID, rec.Phone)

		if err := d.recordAttempt(ctx, rec.ID, surveyID, scheduleID, callResult, callErr); err != nil {
			d.logger.Error("failed to record call attempt",
				zap.String("recipientId", rec.ID),
				zap.Error(err),
			)
		}

		if callErr != nil {
			d.logger.Warn("escalation call failed",
				zap.String("surveyId", surveyID),
				zap.String("recipientId", rec.ID),
				zap.Error(callErr),
			)
			result.FailedCount++
			result.Outcomes = append(result.Outcomes, EscalationOutcome{
				RecipientID: rec.ID,
				Email:       rec.Email,
				Phone:       rec.Phone,
				Error:       callErr.Error(),
			})
			d.metrics.IncEscalationCall("failed")
			continue
		}

		var ref *string
		if callResult != nil && callResult.Ref != "" {
			ref = &callResult.Ref
		}
		updated, err := d.registry.MarkEscalated(ctx, rec.ID, ref)
		if err != nil {
			return result, fmt.Errorf("failed to mark recipient escalated: %w", err)
		}
		if !updated {
			// Response raced in between the dedup read and the call.
			d.logger.Info("recipient reached terminal state before escalation mark",
				zap.String("recipientId", rec.ID),
			)
		}

		result.SuccessCount++
		outcome := EscalationOutcome{
			RecipientID: rec.ID,
			Email:       rec.Email,
			Phone:       rec.Phone,
			Success:     true,
		}
		if ref != nil {
			outcome.CallRef = *ref
		}
		result.Outcomes = append(result.Outcomes, outcome)
		d.metrics.IncEscalationCall("placed")
	}

	d.logger.Info("escalation pass finished",
		zap.String("surveyId", surveyID),
		zap.Stringp("batchId", batchID),
		zap.Int("placed", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
	)

	return result, nil
}

func (d *Dispatcher) recordAttempt(
	ctx context.Context,
	recipientID string,
	surveyID string,
	scheduleID *string,
	callResult *provider.CallResult,
	callErr error,
) error {
	attempt := &domain.CallAttempt{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		SurveyID:    surveyID,
		ScheduleID:  scheduleID,
		CreatedAt:   d.now().UTC(),
	}

	if callResult != nil {
		statusCode := callResult.StatusCode
		attempt.StatusCode = &statusCode
		if callResult.Body != "" {
			body := callResult.Body
			attempt.ResponseBody = &body
		}
	}
	if callErr != nil {
		msg := callErr.Error()
		attempt.Error = &msg
	}

	return d.attempts.Create(ctx, attempt)
}
