package domain

import "time"

// CallAttempt records a single outbound voice call placed for a recipient.
type CallAttempt struct {
	ID           string
	RecipientID  string
	SurveyID     string
	ScheduleID   *string
	StatusCode   *int
	ResponseBody *string
	Error        *string
	CreatedAt    time.Time
}
