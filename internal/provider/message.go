package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultMessengerTimeout = 30 * time.Second

type bulkMessageRequest struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// BulkMessengerProvider sends deadline reminders through an HTTP bulk
// messaging gateway.
type BulkMessengerProvider struct {
	client   *resty.Client
	endpoint string
}

func NewBulkMessengerProvider(endpoint string) (*BulkMessengerProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultMessengerTimeout)
	client.SetRetryCount(0)

	return NewBulkMessengerProviderWithClient(endpoint, client)
}

func NewBulkMessengerProviderWithClient(endpoint string, client *resty.Client) (*BulkMessengerProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("messenger endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid messenger endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultMessengerTimeout)
	}
	client.SetRetryCount(0)

	return &BulkMessengerProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *BulkMessengerProvider) SendBulkMessage(ctx context.Context, recipients []string, subject string, body string) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("provider is not initialized")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}

	reqBody := bulkMessageRequest{
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return &ProviderError{
			Message:   "messenger request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return &ProviderError{
			Message:   "messenger returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &ProviderError{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage("messenger", statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}
