package domain

import (
	"fmt"
	"strings"
	"time"
)

// ReminderStatus represents the lifecycle state of a deadline reminder.
type ReminderStatus string

const (
	ReminderStatusScheduled ReminderStatus = "SCHEDULED"
	// ReminderStatusSending marks a reminder claimed by an evaluation pass.
	ReminderStatusSending ReminderStatus = "SENDING"
	ReminderStatusSent    ReminderStatus = "SENT"
	ReminderStatusFailed  ReminderStatus = "FAILED"
)

func (s ReminderStatus) String() string { return string(s) }

func (s ReminderStatus) IsValid() bool {
	switch s {
	case ReminderStatusScheduled, ReminderStatusSending, ReminderStatusSent, ReminderStatusFailed:
		return true
	}
	return false
}

func (s ReminderStatus) IsTerminal() bool {
	return s == ReminderStatusSent || s == ReminderStatusFailed
}

func ParseReminderStatusFromString(s string) (ReminderStatus, error) {
	st := ReminderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid reminder status %q", ErrValidation, s)
	}
	return st, nil
}

// Reminder is a persisted single deadline-relative trigger for a bulk
// message send. It fires at most once.
type Reminder struct {
	ID              string
	SurveyID        string
	RecipientRefs   []string
	CampaignEndTime time.Time
	LeadTimeMinutes int
	TriggerAt       time.Time
	Status          ReminderStatus
	TestMode        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r *Reminder) Validate() error {
	if strings.TrimSpace(r.SurveyID) == "" {
		return fmt.Errorf("%w: survey id is required", ErrValidation)
	}
	if len(r.RecipientRefs) == 0 {
		return fmt.Errorf("%w: at least one recipient ref is required", ErrValidation)
	}
	if r.CampaignEndTime.IsZero() {
		return fmt.Errorf("%w: campaign end time is required", ErrValidation)
	}
	if r.LeadTimeMinutes <= 0 {
		return fmt.Errorf("%w: lead time must be positive", ErrValidation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid reminder status %q", ErrValidation, r.Status)
	}
	return nil
}

// LeadTime returns the configured lead offset as a duration.
func (r *Reminder) LeadTime() time.Duration {
	return time.Duration(r.LeadTimeMinutes) * time.Minute
}
