package repository

import (
	"time"

	"github.com/signalbay/outreach-engine/internal/domain"
)

// RecipientModel is the persistence model for the recipients table.
type RecipientModel struct {
	ID            string                 `gorm:"type:uuid;primaryKey"`
	SurveyID      string                 `gorm:"type:varchar(64);not null"`
	BatchID       string                 `gorm:"type:uuid;not null"`
	Email         string                 `gorm:"type:varchar(255);not null"`
	Phone         string                 `gorm:"type:varchar(32);not null"`
	Status        domain.RecipientStatus `gorm:"type:varchar(20);not null"`
	SentAt        time.Time              `gorm:"type:timestamptz;not null"`
	RespondedAt   *time.Time             `gorm:"type:timestamptz"`
	EscalationRef *string                `gorm:"type:varchar(255)"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (RecipientModel) TableName() string {
	return "recipients"
}

// BatchModel is the persistence model for batches.
type BatchModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	SurveyID   string `gorm:"type:varchar(64);not null"`
	TotalCount int    `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (BatchModel) TableName() string {
	return "batches"
}

// ScheduleModel is the persistence model for escalation schedules.
type ScheduleModel struct {
	ID                       string                `gorm:"type:uuid;primaryKey"`
	SurveyID                 string                `gorm:"type:varchar(64);not null"`
	BatchID                  *string               `gorm:"type:uuid"`
	TotalParticipants        int                   `gorm:"not null"`
	CampaignDurationMinutes  int                   `gorm:"not null"`
	ResponseThresholdPercent int                   `gorm:"not null"`
	EscalationTimingPercent  int                   `gorm:"not null"`
	Status                   domain.ScheduleStatus `gorm:"type:varchar(20);not null"`
	TriggerAt                time.Time             `gorm:"type:timestamptz;not null"`
	LastCheckedAt            *time.Time            `gorm:"type:timestamptz"`
	ResponseCount            *int                  `gorm:"type:int"`
	ResponseRate             *float64              `gorm:"type:double precision"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (ScheduleModel) TableName() string {
	return "schedules"
}

// ReminderModel is the persistence model for deadline reminders.
type ReminderModel struct {
	ID              string                `gorm:"type:uuid;primaryKey"`
	SurveyID        string                `gorm:"type:varchar(64);not null"`
	RecipientRefs   []string              `gorm:"serializer:json;type:jsonb;not null"`
	CampaignEndTime time.Time             `gorm:"type:timestamptz;not null"`
	LeadTimeMinutes int                   `gorm:"not null"`
	TriggerAt       time.Time             `gorm:"type:timestamptz;not null"`
	Status          domain.ReminderStatus `gorm:"type:varchar(20);not null"`
	TestMode        bool                  `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (ReminderModel) TableName() string {
	return "reminders"
}

// CallAttemptModel is the persistence model for call_attempts.
type CallAttemptModel struct {
	ID           string  `gorm:"type:uuid;primaryKey"`
	RecipientID  string  `gorm:"type:uuid;not null"`
	SurveyID     string  `gorm:"type:varchar(64);not null"`
	ScheduleID   *string `gorm:"type:uuid"`
	StatusCode   *int    `gorm:"type:int"`
	ResponseBody *string `gorm:"type:text"`
	Error        *string `gorm:"type:text"`
	CreatedAt    time.Time
}

func (CallAttemptModel) TableName() string {
	return "call_attempts"
}

func recipientModelFromDomain(r *domain.Recipient) *RecipientModel {
	if r == nil {
		return nil
	}

	return &RecipientModel{
		ID:            r.ID,
		SurveyID:      r.SurveyID,
		BatchID:       r.BatchID,
		Email:         r.Email,
		Phone:         r.Phone,
		Status:        r.Status,
		SentAt:        r.SentAt,
		RespondedAt:   r.RespondedAt,
		EscalationRef: r.EscalationRef,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func recipientModelToDomain(m *RecipientModel) *domain.Recipient {
	if m == nil {
		return nil
	}

	return &domain.Recipient{
		ID:            m.ID,
		SurveyID:      m.SurveyID,
		BatchID:       m.BatchID,
		Email:         m.Email,
		Phone:         m.Phone,
		Status:        m.Status,
		SentAt:        m.SentAt,
		RespondedAt:   m.RespondedAt,
		EscalationRef: m.EscalationRef,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func batchModelFromDomain(b *domain.Batch) *BatchModel {
	if b == nil {
		return nil
	}

	return &BatchModel{
		ID:         b.ID,
		SurveyID:   b.SurveyID,
		TotalCount: b.TotalCount,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func batchModelToDomain(m *BatchModel) *domain.Batch {
	if m == nil {
		return nil
	}

	return &domain.Batch{
		ID:         m.ID,
		SurveyID:   m.SurveyID,
		TotalCount: m.TotalCount,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func scheduleModelFromDomain(s *domain.Schedule) *ScheduleModel {
	if s == nil {
		return nil
	}

	return &ScheduleModel{
		ID:                       s.ID,
		SurveyID:                 s.SurveyID,
		BatchID:                  s.BatchID,
		TotalParticipants:        s.TotalParticipants,
		CampaignDurationMinutes:  s.CampaignDurationMinutes,
		ResponseThresholdPercent: s.ResponseThresholdPercent,
		EscalationTimingPercent:  s.EscalationTimingPercent,
		Status:                   s.Status,
		TriggerAt:                s.TriggerAt,
		LastCheckedAt:            s.LastCheckedAt,
		ResponseCount:            s.ResponseCount,
		ResponseRate:             s.ResponseRate,
		CreatedAt:                s.CreatedAt,
		UpdatedAt:                s.UpdatedAt,
	}
}

func scheduleModelToDomain(m *ScheduleModel) *domain.Schedule {
	if m == nil {
		return nil
	}

	return &domain.Schedule{
		ID:                       m.ID,
		SurveyID:                 m.SurveyID,
		BatchID:                  m.BatchID,
		TotalParticipants:        m.TotalParticipants,
		CampaignDurationMinutes:  m.CampaignDurationMinutes,
		ResponseThresholdPercent: m.ResponseThresholdPercent,
		EscalationTimingPercent:  m.EscalationTimingPercent,
		Status:                   m.Status,
		TriggerAt:                m.TriggerAt,
		LastCheckedAt:            m.LastCheckedAt,
		ResponseCount:            m.ResponseCount,
		ResponseRate:             m.ResponseRate,
		CreatedAt:                m.CreatedAt,
		UpdatedAt:                m.UpdatedAt,
	}
}

func reminderModelFromDomain(r *domain.Reminder) *ReminderModel {
	if r == nil {
		return nil
	}

	return &ReminderModel{
		ID:              r.ID,
		SurveyID:        r.SurveyID,
		RecipientRefs:   r.RecipientRefs,
		CampaignEndTime: r.CampaignEndTime,
		LeadTimeMinutes: r.LeadTimeMinutes,
		TriggerAt:       r.TriggerAt,
		Status:          r.Status,
		TestMode:        r.TestMode,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func reminderModelToDomain(m *ReminderModel) *domain.Reminder {
	if m == nil {
		return nil
	}

	return &domain.Reminder{
		ID:              m.ID,
		SurveyID:        m.SurveyID,
		RecipientRefs:   m.RecipientRefs,
		CampaignEndTime: m.CampaignEndTime,
		LeadTimeMinutes: m.LeadTimeMinutes,
		TriggerAt:       m.TriggerAt,
		Status:          m.Status,
		TestMode:        m.TestMode,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.CallAttempt) *CallAttemptModel {
	if a == nil {
		return nil
	}

	return &CallAttemptModel{
		ID:           a.ID,
		RecipientID:  a.RecipientID,
		SurveyID:     a.SurveyID,
		ScheduleID:   a.ScheduleID,
		StatusCode:   a.StatusCode,
		ResponseBody: a.ResponseBody,
		Error:        a.Error,
		CreatedAt:    a.CreatedAt,
	}
}

func attemptModelToDomain(m *CallAttemptModel) *domain.CallAttempt {
	if m == nil {
		return nil
	}

	return &domain.CallAttempt{
		ID:           m.ID,
		RecipientID:  m.RecipientID,
		SurveyID:     m.SurveyID,
		ScheduleID:   m.ScheduleID,
		StatusCode:   m.StatusCode,
		ResponseBody: m.ResponseBody,
		Error:        m.Error,
		CreatedAt:    m.CreatedAt,
	}
}
