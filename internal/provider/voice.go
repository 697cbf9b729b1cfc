package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultVoiceTimeout = 15 * time.Second

type placeCallRequest struct {
	SurveyID string `json:"surveyId"`
	Phone    string `json:"phone"`
}

type placeCallResponse struct {
	CallRef string `json:"callRef"`
}

// VoiceGatewayProvider places automated outreach calls through an HTTP
// voice gateway.
type VoiceGatewayProvider struct {
	client   *resty.Client
	endpoint string
}

func NewVoiceGatewayProvider(endpoint string) (*VoiceGatewayProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultVoiceTimeout)
	client.SetRetryCount(0)

	return NewVoiceGatewayProviderWithClient(endpoint, client)
}

func NewVoiceGatewayProviderWithClient(endpoint string, client *resty.Client) (*VoiceGatewayProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("voice gateway endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid voice gateway endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultVoiceTimeout)
	}
	client.SetRetryCount(0)

	return &VoiceGatewayProvider{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (p *VoiceGatewayProvider) PlaceCall(ctx context.Context, surveyID string, phone string) (*CallResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(surveyID) == "" {
		return nil, fmt.Errorf("survey id is required")
	}
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("phone is required")
	}

	reqBody := placeCallRequest{
		SurveyID: strings.TrimSpace(surveyID),
		Phone:    strings.TrimSpace(phone),
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "voice gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "voice gateway returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &CallResult{
			StatusCode: statusCode,
			Body:       responseBody,
			Ref:        callRef(response, responseBody),
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage("voice gateway", statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(gateway string, statusCode int, body string) string {
	base := fmt.Sprintf("%s returned status %d", gateway, statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// callRef resolves the gateway call reference: JSON body first, tracing
// headers as a fallback.
func callRef(response *resty.Response, body string) string {
	if body != "" {
		var parsed placeCallResponse
		if err := json.Unmarshal([]byte(body), &parsed); err == nil {
			if ref := strings.TrimSpace(parsed.CallRef); ref != "" {
				return ref
			}
		}
	}

	if response == nil {
		return ""
	}
	for _, key := range []string{"X-Call-Ref", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
