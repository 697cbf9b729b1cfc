package domain

import "time"

// Batch groups the recipients of one distribution event for a survey.
// Membership is immutable after creation; only recipient status mutates.
type Batch struct {
	ID         string
	SurveyID   string
	TotalCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
