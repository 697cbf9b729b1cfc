package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signalbay/outreach-engine/internal/domain"
	"github.com/signalbay/outreach-engine/internal/repository"
	"go.uber.org/zap"
)

const maxDistributionSize = 1000

// RegistryService owns recipient and batch records: batch creation,
// response/escalation transitions, and survey-wide contact deduplication.
type RegistryService struct {
	recipients repository.RecipientRepository
	batches    repository.BatchRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewRegistryService(
	recipients repository.RecipientRepository,
	batches repository.BatchRepository,
	logger *zap.Logger,
) (*RegistryService, error) {
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if batches == nil {
		return nil, fmt.Errorf("batch repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RegistryService{
		recipients: recipients,
		batches:    batches,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// CreateBatch validates the contact pairs and persists one immutable batch
// plus its recipients, all starting as SENT.
func (s *RegistryService) CreateBatch(
	ctx context.Context,
	surveyID string,
	pairs []domain.ContactPair,
) (*domain.Batch, []domain.Recipient, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, nil, fmt.Errorf("%w: survey id is required", domain.ErrValidation)
	}
	if len(pairs) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}
	if len(pairs) > maxDistributionSize {
		return nil, nil, fmt.Errorf("%w: distribution size exceeds %d", domain.ErrValidation, maxDistributionSize)
	}
	for i, pair := range pairs {
		if err := pair.Validate(); err != nil {
			return nil, nil, fmt.Errorf("recipient %d: %w", i, err)
		}
	}

	now := s.now().UTC()
	batch := &domain.Batch{
		ID:         uuid.NewString(),
		SurveyID:   surveyID,
		TotalCount: len(pairs),
		CreatedAt:  now,
	}

	recipients := make([]domain.Recipient, len(pairs))
	recipientPtrs := make([]*domain.Recipient, len(pairs))
	for i, pair := range pairs {
		recipients[i] = domain.Recipient{
			ID:       uuid.NewString(),
			SurveyID: surveyID,
			BatchID:  batch.ID,
			Email:    strings.TrimSpace(pair.Email),
			Phone:    strings.TrimSpace(pair.Phone),
			Status:   domain.RecipientStatusSent,
			SentAt:   now,
		}
		recipientPtrs[i] = &recipients[i]
	}

	// Batch and recipients commit together. A partially written
	// distribution would surface as an empty latest batch.
	if err := s.batches.CreateWithRecipients(ctx, batch, recipientPtrs); err != nil {
		return nil, nil, fmt.Errorf("failed to persist distribution: %w", err)
	}

	s.logger.Info("distribution batch created",
		zap.String("surveyId", surveyID),
		zap.String("batchId", batch.ID),
		zap.Int("recipients", len(recipients)),
	)

	return batch, recipients, nil
}

// MarkResponded transitions a recipient into RESPONDED. Idempotent: returns
// false when the recipient is unknown or already responded, and an existing
// RESPONDED record is never overwritten.
func (s *RegistryService) MarkResponded(ctx context.Context, recipientID string) (bool, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return false, fmt.Errorf("%w: recipient id is required", domain.ErrValidation)
	}

	updated, err := s.recipients.MarkResponded(ctx, recipientID, s.now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to mark recipient responded: %w", err)
	}
	return updated, nil
}

// MarkEscalated transitions SENT or NO_RESPONSE into ESCALATED, stamping the
// escalation ref. Returns false when the recipient is already terminal.
func (s *RegistryService) MarkEscalated(ctx context.Context, recipientID string, escalationRef *string) (bool, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		return false, fmt.Errorf("%w: recipient id is required", domain.ErrValidation)
	}

	updated, err := s.recipients.MarkEscalated(ctx, recipientID, escalationRef)
	if err != nil {
		return false, fmt.Errorf("failed to mark recipient escalated: %w", err)
	}
	return updated, nil
}

// NonResponders resolves the deduplicated non-responder set for a survey.
// A contact pair that responded in any batch of the survey is excluded
// entirely; otherwise the entry with the most recent sentAt wins. Only
// resolved SENT and NO_RESPONSE entries are returned.
func (s *RegistryService) NonResponders(
	ctx context.Context,
	surveyID string,
	scope domain.NonResponderScope,
) ([]domain.Recipient, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, fmt.Errorf("%w: survey id is required", domain.ErrValidation)
	}
	if !scope.IsValid() {
		return nil, fmt.Errorf("%w: invalid non-responder scope %q", domain.ErrValidation, scope)
	}

	var candidateBatch *string
	if scope == domain.ScopeLatestBatch {
		latest, err := s.batches.LatestBySurvey(ctx, surveyID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return []domain.Recipient{}, nil
			}
			return nil, fmt.Errorf("failed to resolve latest batch: %w", err)
		}
		candidateBatch = &latest.ID
	}

	return s.resolveNonResponders(ctx, surveyID, candidateBatch)
}

// NonRespondersForBatch pins the candidate set to one distribution batch.
// An escalation triggered by that batch's schedule must not drift onto a
// newer batch created in the meantime.
func (s *RegistryService) NonRespondersForBatch(
	ctx context.Context,
	surveyID string,
	batchID string,
) ([]domain.Recipient, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, fmt.Errorf("%w: survey id is required", domain.ErrValidation)
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	return s.resolveNonResponders(ctx, surveyID, &batchID)
}

func (s *RegistryService) resolveNonResponders(
	ctx context.Context,
	surveyID string,
	candidateBatch *string,
) ([]domain.Recipient, error) {
	all, err := s.recipients.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list survey recipients: %w", err)
	}
	if len(all) == 0 {
		return []domain.Recipient{}, nil
	}

	// Responded exclusion spans every batch of the survey; the candidate
	// batch only restricts which entries may be returned.
	respondedKeys := make(map[string]struct{})
	for i := range all {
		if all[i].Status == domain.RecipientStatusResponded {
			respondedKeys[all[i].ContactKey()] = struct{}{}
		}
	}

	resolved := make(map[string]domain.Recipient)
	for i := range all {
		rec := all[i]
		if candidateBatch != nil && rec.BatchID != *candidateBatch {
			continue
		}

		key := rec.ContactKey()
		if _, responded := respondedKeys[key]; responded {
			continue
		}

		current, ok := resolved[key]
		if !ok || rec.SentAt.After(current.SentAt) {
			resolved[key] = rec
		}
	}

	nonResponders := make([]domain.Recipient, 0, len(resolved))
	for _, rec := range resolved {
		if rec.Status == domain.RecipientStatusSent || rec.Status == domain.RecipientStatusNoResponse {
			nonResponders = append(nonResponders, rec)
		}
	}

	sort.Slice(nonResponders, func(i, j int) bool {
		if nonResponders[i].SentAt.Equal(nonResponders[j].SentAt) {
			return nonResponders[i].Email < nonResponders[j].Email
		}
		return nonResponders[i].SentAt.Before(nonResponders[j].SentAt)
	})

	return nonResponders, nil
}

// Participants returns the raw, non-deduplicated union of every recipient
// entry for a survey. Diagnostic use only.
func (s *RegistryService) Participants(ctx context.Context, surveyID string) ([]domain.Recipient, error) {
	surveyID = strings.TrimSpace(surveyID)
	if surveyID == "" {
		return nil, fmt.Errorf("%w: survey id is required", domain.ErrValidation)
	}
	return s.recipients.ListBySurvey(ctx, surveyID)
}

// CountResponded returns responded recipients scoped to one batch when
// batchID is set, survey-wide otherwise.
func (s *RegistryService) CountResponded(ctx context.Context, surveyID string, batchID *string) (int64, error) {
	return s.recipients.CountResponded(ctx, strings.TrimSpace(surveyID), batchID)
}
