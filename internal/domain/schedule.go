package domain

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleStatus represents the lifecycle state of an escalation schedule.
type ScheduleStatus string

const (
	ScheduleStatusScheduled ScheduleStatus = "SCHEDULED"
	// ScheduleStatusEvaluating marks a schedule claimed by an evaluation
	// pass. A crash between claim and terminal write strands the schedule
	// here; the action is lost, never duplicated.
	ScheduleStatusEvaluating ScheduleStatus = "EVALUATING"
	ScheduleStatusTriggered  ScheduleStatus = "TRIGGERED"
	ScheduleStatusSkipped    ScheduleStatus = "SKIPPED"
	ScheduleStatusCompleted  ScheduleStatus = "COMPLETED"
)

func (s ScheduleStatus) String() string { return string(s) }

func (s ScheduleStatus) IsValid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusEvaluating, ScheduleStatusTriggered,
		ScheduleStatusSkipped, ScheduleStatusCompleted:
		return true
	}
	return false
}

func (s ScheduleStatus) IsTerminal() bool {
	switch s {
	case ScheduleStatusTriggered, ScheduleStatusSkipped, ScheduleStatusCompleted:
		return true
	}
	return false
}

func ParseScheduleStatusFromString(s string) (ScheduleStatus, error) {
	st := ScheduleStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid schedule status %q", ErrValidation, s)
	}
	return st, nil
}

// Schedule is a persisted threshold/time trigger governing when escalation
// is evaluated for a distribution batch.
type Schedule struct {
	ID                       string
	SurveyID                 string
	BatchID                  *string
	TotalParticipants        int
	CampaignDurationMinutes  int
	ResponseThresholdPercent int
	EscalationTimingPercent  int
	Status                   ScheduleStatus
	TriggerAt                time.Time
	LastCheckedAt            *time.Time
	ResponseCount            *int
	ResponseRate             *float64
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.SurveyID) == "" {
		return fmt.Errorf("%w: survey id is required", ErrValidation)
	}
	if s.TotalParticipants <= 0 {
		return fmt.Errorf("%w: total participants must be positive", ErrValidation)
	}
	if s.CampaignDurationMinutes <= 0 {
		return fmt.Errorf("%w: campaign duration must be positive", ErrValidation)
	}
	if s.ResponseThresholdPercent < 0 || s.ResponseThresholdPercent > 100 {
		return fmt.Errorf("%w: response threshold percent must be within [0,100]", ErrValidation)
	}
	if s.EscalationTimingPercent < 0 || s.EscalationTimingPercent > 100 {
		return fmt.Errorf("%w: escalation timing percent must be within [0,100]", ErrValidation)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("%w: invalid schedule status %q", ErrValidation, s.Status)
	}
	return nil
}

// ThresholdCount returns the responded-count bar the campaign must clear.
// Integer floor, so boundary values never depend on float rounding.
func (s *Schedule) ThresholdCount() int {
	return s.TotalParticipants * s.ResponseThresholdPercent / 100
}

// TriggerDelay returns the offset from creation to evaluation time.
func (s *Schedule) TriggerDelay() time.Duration {
	minutes := s.CampaignDurationMinutes * s.EscalationTimingPercent / 100
	return time.Duration(minutes) * time.Minute
}
