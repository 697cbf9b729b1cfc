package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/signalbay/outreach-engine/internal/domain"
	"github.com/signalbay/outreach-engine/internal/service"
)

// DistributionStarter launches one send action: batch, schedule, reminder.
type DistributionStarter interface {
	Distribute(
		ctx context.Context,
		surveyID string,
		pairs []domain.ContactPair,
		cfg service.CampaignConfig,
	) (*service.Distribution, error)
}

// RecipientRegistry covers the recipient-facing read and transition surface.
type RecipientRegistry interface {
	MarkResponded(ctx context.Context, recipientID string) (bool, error)
	NonResponders(ctx context.Context, surveyID string, scope domain.NonResponderScope) ([]domain.Recipient, error)
	Participants(ctx context.Context, surveyID string) ([]domain.Recipient, error)
}

// ScheduleStore and ReminderStore expose the read side of the persisted
// trigger rows for inspection endpoints.
type ScheduleStore interface {
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
}

type ReminderStore interface {
	GetByID(ctx context.Context, id string) (*domain.Reminder, error)
}

type DistributionHandler struct {
	distributions DistributionStarter
	registry      RecipientRegistry
	schedules     ScheduleStore
	reminders     ReminderStore
}

func NewDistributionHandler(
	distributions DistributionStarter,
	registry RecipientRegistry,
	schedules ScheduleStore,
	reminders ReminderStore,
) (*DistributionHandler, error) {
	if distributions == nil {
		return nil, fmt.Errorf("distribution service is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("registry service is required")
	}
	if schedules == nil {
		return nil, fmt.Errorf("schedule store is required")
	}
	if reminders == nil {
		return nil, fmt.Errorf("reminder store is required")
	}
	return &DistributionHandler{
		distributions: distributions,
		registry:      registry,
		schedules:     schedules,
		reminders:     reminders,
	}, nil
}

func RegisterDistributionRoutes(
	router fiber.Router,
	distributions DistributionStarter,
	registry RecipientRegistry,
	schedules ScheduleStore,
	reminders ReminderStore,
) error {
	h, err := NewDistributionHandler(distributions, registry, schedules, reminders)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/distributions", h.CreateDistribution)
	v1.Post("/recipients/:id/response", h.MarkResponded)
	v1.Get("/surveys/:surveyId/non-responders", h.ListNonResponders)
	v1.Get("/surveys/:surveyId/participants", h.ListParticipants)
	v1.Get("/schedules/:id", h.GetSchedule)
	v1.Get("/reminders/:id", h.GetReminder)

	return nil
}

type contactPairRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type createDistributionRequest struct {
	SurveyID                 string               `json:"surveyId"`
	Recipients               []contactPairRequest `json:"recipients"`
	CampaignDurationMinutes  int                  `json:"campaignDurationMinutes"`
	ResponseThresholdPercent int                  `json:"responseThresholdPercent"`
	EscalationTimingPercent  int                  `json:"escalationTimingPercent"`
	CampaignEndTime          *time.Time           `json:"campaignEndTime,omitempty"`
	ScheduleReminder         bool                 `json:"scheduleReminder"`
	TestMode                 bool                 `json:"testMode"`
}

type recipientResponse struct {
	ID            string     `json:"id"`
	SurveyID      string     `json:"surveyId"`
	BatchID       string     `json:"batchId"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Status        string     `json:"status"`
	SentAt        time.Time  `json:"sentAt"`
	RespondedAt   *time.Time `json:"respondedAt,omitempty"`
	EscalationRef *string    `json:"escalationRef,omitempty"`
}

type scheduleResponse struct {
	ID                       string     `json:"id"`
	SurveyID                 string     `json:"surveyId"`
	BatchID                  *string    `json:"batchId,omitempty"`
	TotalParticipants        int        `json:"totalParticipants"`
	CampaignDurationMinutes  int        `json:"campaignDurationMinutes"`
	ResponseThresholdPercent int        `json:"responseThresholdPercent"`
	EscalationTimingPercent  int        `json:"escalationTimingPercent"`
	ThresholdCount           int        `json:"thresholdCount"`
	Status                   string     `json:"status"`
	TriggerAt                time.Time  `json:"triggerAt"`
	LastCheckedAt            *time.Time `json:"lastCheckedAt,omitempty"`
	ResponseCount            *int       `json:"responseCount,omitempty"`
	ResponseRate             *float64   `json:"responseRate,omitempty"`
}

type reminderResponse struct {
	ID              string    `json:"id"`
	SurveyID        string    `json:"surveyId"`
	CampaignEndTime time.Time `json:"campaignEndTime"`
	LeadTimeMinutes int       `json:"leadTimeMinutes"`
	TriggerAt       time.Time `json:"triggerAt"`
	Status          string    `json:"status"`
	TestMode        bool      `json:"testMode"`
	RecipientCount  int       `json:"recipientCount"`
}

type createDistributionResponse struct {
	BatchID    string              `json:"batchId"`
	SurveyID   string              `json:"surveyId"`
	TotalCount int                 `json:"totalCount"`
	Schedule   *scheduleResponse   `json:"schedule,omitempty"`
	Reminder   *reminderResponse   `json:"reminder,omitempty"`
	Recipients []recipientResponse `json:"recipients"`
}

func (h *DistributionHandler) CreateDistribution(c *fiber.Ctx) error {
	var req createDistributionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	pairs := make([]domain.ContactPair, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		pairs = append(pairs, domain.ContactPair{Email: r.Email, Phone: r.Phone})
	}

	dist, err := h.distributions.Distribute(c.Context(), req.SurveyID, pairs, service.CampaignConfig{
		DurationMinutes:          req.CampaignDurationMinutes,
		ResponseThresholdPercent: req.ResponseThresholdPercent,
		EscalationTimingPercent:  req.EscalationTimingPercent,
		EndTime:                  req.CampaignEndTime,
		ScheduleReminder:         req.ScheduleReminder,
		TestMode:                 req.TestMode,
	})
	if err != nil {
		return toHTTPError(err)
	}

	resp := createDistributionResponse{
		BatchID:    dist.Batch.ID,
		SurveyID:   dist.Batch.SurveyID,
		TotalCount: dist.Batch.TotalCount,
		Recipients: toRecipientResponses(dist.Recipients),
	}
	if dist.Schedule != nil {
		s := toScheduleResponse(dist.Schedule)
		resp.Schedule = &s
	}
	if dist.Reminder != nil {
		r := toReminderResponse(dist.Reminder)
		resp.Reminder = &r
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *DistributionHandler) MarkResponded(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	updated, err := h.registry.MarkResponded(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"recipientId": id,
		"updated":     updated,
		"status":      domain.RecipientStatusResponded.String(),
	})
}

func (h *DistributionHandler) ListNonResponders(c *fiber.Ctx) error {
	surveyID := strings.TrimSpace(c.Params("surveyId"))

	scope := domain.ScopeAllBatches
	if raw := strings.TrimSpace(c.Query("scope")); raw != "" {
		parsed, err := domain.ParseNonResponderScopeFromString(raw)
		if err != nil {
			return toHTTPError(err)
		}
		scope = parsed
	}

	nonResponders, err := h.registry.NonResponders(c.Context(), surveyID, scope)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"surveyId": surveyID,
		"scope":    scope.String(),
		"count":    len(nonResponders),
		"data":     toRecipientResponses(nonResponders),
	})
}

func (h *DistributionHandler) ListParticipants(c *fiber.Ctx) error {
	surveyID := strings.TrimSpace(c.Params("surveyId"))

	participants, err := h.registry.Participants(c.Context(), surveyID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"surveyId": surveyID,
		"count":    len(participants),
		"data":     toRecipientResponses(participants),
	})
}

func (h *DistributionHandler) GetSchedule(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	schedule, err := h.schedules.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toScheduleResponse(schedule))
}

func (h *DistributionHandler) GetReminder(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	reminder, err := h.reminders.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toReminderResponse(reminder))
}

func toRecipientResponses(recipients []domain.Recipient) []recipientResponse {
	responses := make([]recipientResponse, 0, len(recipients))
	for i := range recipients {
		rec := recipients[i]
		responses = append(responses, recipientResponse{
			ID:            rec.ID,
			SurveyID:      rec.SurveyID,
			BatchID:       rec.BatchID,
			Email:         rec.Email,
			Phone:         rec.Phone,
			Status:        rec.Status.String(),
			SentAt:        rec.SentAt,
			RespondedAt:   rec.RespondedAt,
			EscalationRef: rec.EscalationRef,
		})
	}
	return responses
}

func toScheduleResponse(s *domain.Schedule) scheduleResponse {
	if s == nil {
		return scheduleResponse{}
	}

	return scheduleResponse{
		ID:                       s.ID,
		SurveyID:                 s.SurveyID,
		BatchID:                  s.BatchID,
		TotalParticipants:        s.TotalParticipants,
		CampaignDurationMinutes:  s.CampaignDurationMinutes,
		ResponseThresholdPercent: s.ResponseThresholdPercent,
		EscalationTimingPercent:  s.EscalationTimingPercent,
		ThresholdCount:           s.ThresholdCount(),
		Status:                   s.Status.String(),
		TriggerAt:                s.TriggerAt,
		LastCheckedAt:            s.LastCheckedAt,
		ResponseCount:            s.ResponseCount,
		ResponseRate:             s.ResponseRate,
	}
}

func toReminderResponse(r *domain.Reminder) reminderResponse {
	if r == nil {
		return reminderResponse{}
	}

	return reminderResponse{
		ID:              r.ID,
		SurveyID:        r.SurveyID,
		CampaignEndTime: r.CampaignEndTime,
		LeadTimeMinutes: r.LeadTimeMinutes,
		TriggerAt:       r.TriggerAt,
		Status:          r.Status.String(),
		TestMode:        r.TestMode,
		RecipientCount:  len(r.RecipientRefs),
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
