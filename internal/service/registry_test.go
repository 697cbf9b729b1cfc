package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalbay/outreach-engine/internal/domain"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) (*RegistryService, *memRecipientRepo, *memBatchRepo) {
	t.Helper()

	recipients := newMemRecipientRepo()
	batches := newMemBatchRepo(recipients)
	registry, err := NewRegistryService(recipients, batches, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRegistryService() error = %v", err)
	}
	return registry, recipients, batches
}

func TestRegistryService_CreateBatch(t *testing.T) {
	t.Parallel()

	registry, recipients, _ := newTestRegistry(t)

	pairs := []domain.ContactPair{
		{Email: "alice@example.com", Phone: "+15550001111"},
		{Email: "bob@example.com", Phone: "+15550002222"},
	}

	batch, created, err := registry.CreateBatch(context.Background(), "survey-1", pairs)
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if batch.SurveyID != "survey-1" {
		t.Errorf("batch survey = %q, want survey-1", batch.SurveyID)
	}
	if batch.TotalCount != 2 {
		t.Errorf("batch total = %d, want 2", batch.TotalCount)
	}
	if len(created) != 2 {
		t.Fatalf("created %d recipients, want 2", len(created))
	}
	for _, rec := range created {
		if rec.Status != domain.RecipientStatusSent {
			t.Errorf("recipient %s status = %s, want SENT", rec.Email, rec.Status)
		}
		if rec.BatchID != batch.ID {
			t.Errorf("recipient %s batch = %q, want %q", rec.Email, rec.BatchID, batch.ID)
		}
		if got := recipients.get(rec.ID); got.ID == "" {
			t.Errorf("recipient %s not persisted", rec.Email)
		}
	}
	if created[0].ID == created[1].ID {
		t.Error("recipient ids are not unique")
	}
}

func TestRegistryService_CreateBatchValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		surveyID string
		pairs    []domain.ContactPair
	}{
		{
			name:     "empty survey id",
			surveyID: "  ",
			pairs:    []domain.ContactPair{{Email: "a@example.com", Phone: "+15550001111"}},
		},
		{
			name:     "no recipients",
			surveyID: "survey-1",
			pairs:    nil,
		},
		{
			name:     "invalid email",
			surveyID: "survey-1",
			pairs:    []domain.ContactPair{{Email: "not-an-email", Phone: "+15550001111"}},
		},
		{
			name:     "invalid phone",
			surveyID: "survey-1",
			pairs:    []domain.ContactPair{{Email: "a@example.com", Phone: "123"}},
		},
		{
			name:     "one bad pair rejects whole batch",
			surveyID: "survey-1",
			pairs: []domain.ContactPair{
				{Email: "a@example.com", Phone: "+15550001111"},
				{Email: "", Phone: "+15550002222"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			registry, recipients, _ := newTestRegistry(t)

			_, _, err := registry.CreateBatch(context.Background(), tt.surveyID, tt.pairs)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("CreateBatch() error = %v, want ErrValidation", err)
			}
			if len(recipients.recipients) != 0 {
				t.Error("rejected batch must not persist recipients")
			}
		})
	}
}

func TestRegistryService_CreateBatchFailureLeavesNoOrphanBatch(t *testing.T) {
	t.Parallel()

	registry, recipients, batches := newTestRegistry(t)
	batches.createErr = errors.New("insert failed")

	_, _, err := registry.CreateBatch(context.Background(), "survey-1", []domain.ContactPair{
		{Email: "alice@example.com", Phone: "+15550001111"},
	})
	if err == nil {
		t.Fatal("CreateBatch() error = nil, want persistence failure")
	}

	// A stranded batch would become the survey's latest and feed empty
	// candidate sets to latest-batch escalations.
	if _, err := batches.LatestBySurvey(context.Background(), "survey-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("LatestBySurvey() after failed create = %v, want ErrNotFound", err)
	}
	if len(recipients.recipients) != 0 {
		t.Error("failed distribution persisted recipients")
	}
}

func TestRegistryService_MarkRespondedIdempotent(t *testing.T) {
	t.Parallel()

	registry, _, _ := newTestRegistry(t)

	_, created, err := registry.CreateBatch(context.Background(), "survey-1", []domain.ContactPair{
		{Email: "alice@example.com", Phone: "+15550001111"},
	})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	id := created[0].ID

	updated, err := registry.MarkResponded(context.Background(), id)
	if err != nil {
		t.Fatalf("MarkResponded() error = %v", err)
	}
	if !updated {
		t.Fatal("first MarkResponded() = false, want true")
	}

	updated, err = registry.MarkResponded(context.Background(), id)
	if err != nil {
		t.Fatalf("second MarkResponded() error = %v", err)
	}
	if updated {
		t.Error("second MarkResponded() = true, want false")
	}

	updated, err = registry.MarkResponded(context.Background(), "unknown-id")
	if err != nil {
		t.Fatalf("MarkResponded(unknown) error = %v", err)
	}
	if updated {
		t.Error("MarkResponded(unknown) = true, want false")
	}
}

func TestRegistryService_RespondedIsSticky(t *testing.T) {
	t.Parallel()

	registry, recipients, _ := newTestRegistry(t)

	_, created, err := registry.CreateBatch(context.Background(), "survey-1", []domain.ContactPair{
		{Email: "alice@example.com", Phone: "+15550001111"},
	})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	id := created[0].ID

	if _, err := registry.MarkResponded(context.Background(), id); err != nil {
		t.Fatalf("MarkResponded() error = %v", err)
	}

	ref := "call-1"
	updated, err := registry.MarkEscalated(context.Background(), id, &ref)
	if err != nil {
		t.Fatalf("MarkEscalated() error = %v", err)
	}
	if updated {
		t.Error("MarkEscalated() on responded recipient = true, want false")
	}
	if got := recipients.get(id); got.Status != domain.RecipientStatusResponded {
		t.Errorf("status = %s, want RESPONDED", got.Status)
	}
}

func TestRegistryService_MarkEscalated(t *testing.T) {
	t.Parallel()

	registry, recipients, _ := newTestRegistry(t)

	_, created, err := registry.CreateBatch(context.Background(), "survey-1", []domain.ContactPair{
		{Email: "alice@example.com", Phone: "+15550001111"},
	})
	if err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	id := created[0].ID

	ref := "call-9"
	updated, err := registry.MarkEscalated(context.Background(), id, &ref)
	if err != nil {
		t.Fatalf("MarkEscalated() error = %v", err)
	}
	if !updated {
		t.Fatal("MarkEscalated() = false, want true")
	}
	got := recipients.get(id)
	if got.Status != domain.RecipientStatusEscalated {
		t.Errorf("status = %s, want ESCALATED", got.Status)
	}
	if got.EscalationRef == nil || *got.EscalationRef != "call-9" {
		t.Errorf("escalation ref = %v, want call-9", got.EscalationRef)
	}

	updated, err = registry.MarkEscalated(context.Background(), id, &ref)
	if err != nil {
		t.Fatalf("second MarkEscalated() error = %v", err)
	}
	if updated {
		t.Error("second MarkEscalated() = true, want false")
	}
}

func TestRegistryService_NonRespondersDedup(t *testing.T) {
	t.Parallel()

	registry, recipients, batches := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	batches.put(domain.Batch{ID: "batch-1", SurveyID: "survey-1", TotalCount: 2, CreatedAt: base})
	batches.put(domain.Batch{ID: "batch-2", SurveyID: "survey-1", TotalCount: 2, CreatedAt: base.Add(time.Hour)})

	respondedAt := base.Add(30 * time.Minute)
	// Alice responded in batch 1 and was re-sent in batch 2: the responded
	// state must exclude her everywhere.
	recipients.put(domain.Recipient{
		ID: "r1", SurveyID: "survey-1", BatchID: "batch-1",
		Email: "Alice@Example.com", Phone: "+1 (555) 000-1111",
		Status: domain.RecipientStatusResponded, SentAt: base, RespondedAt: &respondedAt,
	})
	recipients.put(domain.Recipient{
		ID: "r2", SurveyID: "survey-1", BatchID: "batch-2",
		Email: "alice@example.com", Phone: "15550001111",
		Status: domain.RecipientStatusSent, SentAt: base.Add(time.Hour),
	})
	// Bob appears in both batches without responding: only the latest entry
	// may be escalated.
	recipients.put(domain.Recipient{
		ID: "r3", SurveyID: "survey-1", BatchID: "batch-1",
		Email: "bob@example.com", Phone: "+15550002222",
		Status: domain.RecipientStatusSent, SentAt: base,
	})
	recipients.put(domain.Recipient{
		ID: "r4", SurveyID: "survey-1", BatchID: "batch-2",
		Email: "bob@example.com", Phone: "+15550002222",
		Status: domain.RecipientStatusSent, SentAt: base.Add(time.Hour),
	})

	got, err := registry.NonResponders(ctx, "survey-1", domain.ScopeAllBatches)
	if err != nil {
		t.Fatalf("NonResponders() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("NonResponders() returned %d entries, want 1", len(got))
	}
	if got[0].ID != "r4" {
		t.Errorf("resolved entry = %s, want r4 (most recent sentAt)", got[0].ID)
	}
}

func TestRegistryService_NonRespondersLatestBatchScope(t *testing.T) {
	t.Parallel()

	registry, recipients, batches := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	batches.put(domain.Batch{ID: "batch-1", SurveyID: "survey-1", TotalCount: 2, CreatedAt: base})
	batches.put(domain.Batch{ID: "batch-2", SurveyID: "survey-1", TotalCount: 1, CreatedAt: base.Add(time.Hour)})

	respondedAt := base.Add(90 * time.Minute)
	// Carol only exists in the old batch; latest-batch scope excludes her.
	recipients.put(domain.Recipient{
		ID: "r1", SurveyID: "survey-1", BatchID: "batch-1",
		Email: "carol@example.com", Phone: "+15550003333",
		Status: domain.RecipientStatusSent, SentAt: base,
	})
	// Dave responded in the OLD batch; even in latest-batch scope that
	// response excludes his latest entry.
	recipients.put(domain.Recipient{
		ID: "r2", SurveyID: "survey-1", BatchID: "batch-1",
		Email: "dave@example.com", Phone: "+15550004444",
		Status: domain.RecipientStatusResponded, SentAt: base, RespondedAt: &respondedAt,
	})
	recipients.put(domain.Recipient{
		ID: "r3", SurveyID: "survey-1", BatchID: "batch-2",
		Email: "dave@example.com", Phone: "+15550004444",
		Status: domain.RecipientStatusSent, SentAt: base.Add(time.Hour),
	})
	recipients.put(domain.Recipient{
		ID: "r4", SurveyID: "survey-1", BatchID: "batch-2",
		Email: "erin@example.com", Phone: "+15550005555",
		Status: domain.RecipientStatusSent, SentAt: base.Add(time.Hour),
	})

	got, err := registry.NonResponders(ctx, "survey-1", domain.ScopeLatestBatch)
	if err != nil {
		t.Fatalf("NonResponders() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("NonResponders() returned %d entries, want 1", len(got))
	}
	if got[0].ID != "r4" {
		t.Errorf("resolved entry = %s, want r4", got[0].ID)
	}
}

func TestRegistryService_NonRespondersForBatchPinsCandidates(t *testing.T) {
	t.Parallel()

	registry, recipients, batches := newTestRegistry(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	batches.put(domain.Batch{ID: "batch-1", SurveyID: "survey-1", TotalCount: 2, CreatedAt: base})
	batches.put(domain.Batch{ID: "batch-2", SurveyID: "survey-1", TotalCount: 1, CreatedAt: base.Add(time.Hour)})

	respondedAt := base.Add(90 * time.Minute)
	recipients.put(domain.Recipient{
		ID: "r1", SurveyID: "survey-1", BatchID: "batch-1",
		Email: "carol@example.com", Phone: "+15550003333",
		Status: domain.RecipientStatusSent, SentAt: base,
	})
	// Dave responded in a later batch; that response still shields his
	// batch-1 entry.
	recipients.put(domain.Recipient{
		ID: "r2", SurveyID: "survey-1", BatchID: "batch-1",
		Email: "dave@example.com", Phone: "+15550004444",
		Status: domain.RecipientStatusSent, SentAt: base,
	})
	recipients.put(domain.Recipient{
		ID: "r3", SurveyID: "survey-1", BatchID: "batch-2",
		Email: "dave@example.com", Phone: "+15550004444",
		Status: domain.RecipientStatusResponded, SentAt: base.Add(time.Hour), RespondedAt: &respondedAt,
	})
	recipients.put(domain.Recipient{
		ID: "r4", SurveyID: "survey-1", BatchID: "batch-2",
		Email: "erin@example.com", Phone: "+15550005555",
		Status: domain.RecipientStatusSent, SentAt: base.Add(time.Hour),
	})

	// The pinned batch wins even though batch-2 is newer.
	got, err := registry.NonRespondersForBatch(ctx, "survey-1", "batch-1")
	if err != nil {
		t.Fatalf("NonRespondersForBatch() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("NonRespondersForBatch() returned %d entries, want 1", len(got))
	}
	if got[0].ID != "r1" {
		t.Errorf("resolved entry = %s, want r1", got[0].ID)
	}

	if _, err := registry.NonRespondersForBatch(ctx, "survey-1", "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("NonRespondersForBatch(empty batch) error = %v, want ErrValidation", err)
	}
}

func TestRegistryService_NonRespondersEmptySurvey(t *testing.T) {
	t.Parallel()

	registry, _, _ := newTestRegistry(t)

	got, err := registry.NonResponders(context.Background(), "survey-none", domain.ScopeAllBatches)
	if err != nil {
		t.Fatalf("NonResponders() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("NonResponders() on empty survey returned %d entries", len(got))
	}
}

func TestRegistryService_NonRespondersInvalidScope(t *testing.T) {
	t.Parallel()

	registry, _, _ := newTestRegistry(t)

	_, err := registry.NonResponders(context.Background(), "survey-1", domain.NonResponderScope("SOMETHING"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("NonResponders() error = %v, want ErrValidation", err)
	}
}

func TestRegistryService_ParticipantsReturnsRawUnion(t *testing.T) {
	t.Parallel()

	registry, recipients, _ := newTestRegistry(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	recipients.put(domain.Recipient{
		ID: "r1", SurveyID: "survey-1", BatchID: "batch-1",
		Email: "alice@example.com", Phone: "+15550001111",
		Status: domain.RecipientStatusSent, SentAt: base,
	})
	recipients.put(domain.Recipient{
		ID: "r2", SurveyID: "survey-1", BatchID: "batch-2",
		Email: "alice@example.com", Phone: "+15550001111",
		Status: domain.RecipientStatusSent, SentAt: base.Add(time.Hour),
	})

	got, err := registry.Participants(context.Background(), "survey-1")
	if err != nil {
		t.Fatalf("Participants() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Participants() returned %d entries, want 2 (no dedup)", len(got))
	}
}
