package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/signalbay/outreach-engine/internal/domain"
	"github.com/signalbay/outreach-engine/internal/provider"
	"github.com/signalbay/outreach-engine/internal/repository"
)

// In-memory repository fakes with optional error injection. They implement
// the same guarded-transition semantics as the gorm repositories so service
// tests exercise real state machines.

type memRecipientRepo struct {
	mu         sync.Mutex
	recipients map[string]domain.Recipient
	listErr    error
	countErr   error
	markErr    error
}

func newMemRecipientRepo() *memRecipientRepo {
	return &memRecipientRepo{recipients: make(map[string]domain.Recipient)}
}

func (r *memRecipientRepo) GetByID(ctx context.Context, id string) (*domain.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.recipients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rec, nil
}

func (r *memRecipientRepo) ListBySurvey(ctx context.Context, surveyID string) ([]domain.Recipient, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Recipient, 0, len(r.recipients))
	for _, rec := range r.recipients {
		if rec.SurveyID == surveyID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

func (r *memRecipientRepo) MarkResponded(ctx context.Context, id string, respondedAt time.Time) (bool, error) {
	if r.markErr != nil {
		return false, r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recipients[id]
	if !ok || rec.Status == domain.RecipientStatusResponded {
		return false, nil
	}
	rec.Status = domain.RecipientStatusResponded
	rec.RespondedAt = &respondedAt
	r.recipients[id] = rec
	return true, nil
}

func (r *memRecipientRepo) MarkEscalated(ctx context.Context, id string, escalationRef *string) (bool, error) {
	if r.markErr != nil {
		return false, r.markErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recipients[id]
	if !ok {
		return false, nil
	}
	if rec.Status != domain.RecipientStatusSent && rec.Status != domain.RecipientStatusNoResponse {
		return false, nil
	}
	rec.Status = domain.RecipientStatusEscalated
	rec.EscalationRef = escalationRef
	r.recipients[id] = rec
	return true, nil
}

func (r *memRecipientRepo) CountResponded(ctx context.Context, surveyID string, batchID *string) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, rec := range r.recipients {
		if rec.SurveyID != surveyID || rec.Status != domain.RecipientStatusResponded {
			continue
		}
		if batchID != nil && rec.BatchID != *batchID {
			continue
		}
		count++
	}
	return count, nil
}

func (r *memRecipientRepo) put(rec domain.Recipient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipients[rec.ID] = rec
}

func (r *memRecipientRepo) get(id string) domain.Recipient {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recipients[id]
}

type memBatchRepo struct {
	mu         sync.Mutex
	batches    map[string]domain.Batch
	recipients *memRecipientRepo
	createErr  error
}

func newMemBatchRepo(recipients *memRecipientRepo) *memBatchRepo {
	return &memBatchRepo{
		batches:    make(map[string]domain.Batch),
		recipients: recipients,
	}
}

// CreateWithRecipients mirrors the transactional gorm write: on failure
// neither the batch nor any recipient is stored.
func (r *memBatchRepo) CreateWithRecipients(ctx context.Context, b *domain.Batch, recipients []*domain.Recipient) error {
	if r.createErr != nil {
		return r.createErr
	}

	r.mu.Lock()
	r.batches[b.ID] = *b
	r.mu.Unlock()

	for _, rec := range recipients {
		if rec != nil {
			r.recipients.put(*rec)
		}
	}
	return nil
}

func (r *memBatchRepo) GetByID(ctx context.Context, id string) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (r *memBatchRepo) LatestBySurvey(ctx context.Context, surveyID string) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *domain.Batch
	for _, b := range r.batches {
		if b.SurveyID != surveyID {
			continue
		}
		b := b
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			latest = &b
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return latest, nil
}

func (r *memBatchRepo) put(b domain.Batch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[b.ID] = b
}

type memScheduleRepo struct {
	mu        sync.Mutex
	schedules map[string]domain.Schedule
	listErr   error
	claimFn   func(ctx context.Context, id string) (bool, error)
}

func newMemScheduleRepo() *memScheduleRepo {
	return &memScheduleRepo{schedules: make(map[string]domain.Schedule)}
}

func (r *memScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schedules[s.ID] = *s
	return nil
}

func (r *memScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memScheduleRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Schedule, 0)
	for _, s := range r.schedules {
		if s.Status == domain.ScheduleStatusScheduled && !s.TriggerAt.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggerAt.Before(out[j].TriggerAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memScheduleRepo) Claim(ctx context.Context, id string) (bool, error) {
	if r.claimFn != nil {
		return r.claimFn(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedules[id]
	if !ok || s.Status != domain.ScheduleStatusScheduled {
		return false, nil
	}
	s.Status = domain.ScheduleStatusEvaluating
	r.schedules[id] = s
	return true, nil
}

func (r *memScheduleRepo) Finalize(ctx context.Context, id string, eval repository.ScheduleEvaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedules[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = eval.Status
	lastChecked := eval.LastCheckedAt
	responseCount := eval.ResponseCount
	responseRate := eval.ResponseRate
	s.LastCheckedAt = &lastChecked
	s.ResponseCount = &responseCount
	s.ResponseRate = &responseRate
	r.schedules[id] = s
	return nil
}

func (r *memScheduleRepo) get(id string) domain.Schedule {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.schedules[id]
}

type memReminderRepo struct {
	mu        sync.Mutex
	reminders map[string]domain.Reminder
	listErr   error
}

func newMemReminderRepo() *memReminderRepo {
	return &memReminderRepo{reminders: make(map[string]domain.Reminder)}
}

func (r *memReminderRepo) Create(ctx context.Context, rem *domain.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders[rem.ID] = *rem
	return nil
}

func (r *memReminderRepo) GetByID(ctx context.Context, id string) (*domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rem, ok := r.reminders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rem, nil
}

func (r *memReminderRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Reminder, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Reminder, 0)
	for _, rem := range r.reminders {
		if rem.Status == domain.ReminderStatusScheduled && !rem.TriggerAt.After(now) {
			out = append(out, rem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TriggerAt.Before(out[j].TriggerAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memReminderRepo) Claim(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok || rem.Status != domain.ReminderStatusScheduled {
		return false, nil
	}
	rem.Status = domain.ReminderStatusSending
	r.reminders[id] = rem
	return true, nil
}

func (r *memReminderRepo) Finalize(ctx context.Context, id string, status domain.ReminderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.reminders[id]
	if !ok {
		return domain.ErrNotFound
	}
	rem.Status = status
	r.reminders[id] = rem
	return nil
}

func (r *memReminderRepo) get(id string) domain.Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reminders[id]
}

type memAttemptRepo struct {
	mu       sync.Mutex
	attempts []domain.CallAttempt
}

func newMemAttemptRepo() *memAttemptRepo {
	return &memAttemptRepo{}
}

func (r *memAttemptRepo) Create(ctx context.Context, a *domain.CallAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *memAttemptRepo) GetByRecipientID(ctx context.Context, recipientID string) ([]domain.CallAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.CallAttempt, 0)
	for _, a := range r.attempts {
		if a.RecipientID == recipientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAttemptRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

type fakeCallProvider struct {
	mu          sync.Mutex
	calls       []string
	placeCallFn func(ctx context.Context, surveyID string, phone string) (*provider.CallResult, error)
}

func (f *fakeCallProvider) PlaceCall(ctx context.Context, surveyID string, phone string) (*provider.CallResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, phone)
	f.mu.Unlock()

	if f.placeCallFn != nil {
		return f.placeCallFn(ctx, surveyID, phone)
	}
	return &provider.CallResult{StatusCode: 202, Ref: "call-" + phone}, nil
}

func (f *fakeCallProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeMessenger struct {
	mu     sync.Mutex
	sends  [][]string
	sendFn func(ctx context.Context, recipients []string, subject string, body string) error
}

func (f *fakeMessenger) SendBulkMessage(ctx context.Context, recipients []string, subject string, body string) error {
	f.mu.Lock()
	f.sends = append(f.sends, recipients)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, recipients, subject, body)
	}
	return nil
}

func (f *fakeMessenger) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeRateLimiter struct {
	waitErr error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	return f.waitErr == nil, f.waitErr
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	return f.waitErr
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   int
	batchID *string
	result  *EscalationResult
	err     error
}

func (f *fakeDispatcher) EscalateNonResponders(
	ctx context.Context,
	surveyID string,
	batchID *string,
	scheduleID *string,
) (*EscalationResult, error) {
	f.mu.Lock()
	f.calls++
	f.batchID = batchID
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &EscalationResult{SuccessCount: 1}, nil
}

func (f *fakeDispatcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeDispatcher) lastBatchID() *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchID
}

type fakeEvaluator struct {
	mu    sync.Mutex
	calls int
	err   error
	onRun func()
}

func (f *fakeEvaluator) EvaluateDue(ctx context.Context, now time.Time) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.onRun != nil {
		f.onRun()
	}
	return f.err
}

func (f *fakeEvaluator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
