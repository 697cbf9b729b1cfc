package provider

import "context"

// CallProvider is the outbound voice escalation port.
type CallProvider interface {
	PlaceCall(ctx context.Context, surveyID string, phone string) (*CallResult, error)
}

// CallResult stores gateway call metadata for audit and persistence.
type CallResult struct {
	StatusCode int
	Body       string
	// Ref is the gateway call reference stamped onto the escalated recipient.
	Ref string
}

// MessageProvider is the outbound bulk reminder port.
type MessageProvider interface {
	SendBulkMessage(ctx context.Context, recipients []string, subject string, body string) error
}
