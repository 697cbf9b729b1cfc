package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// RecipientStatus represents the lifecycle state of a survey recipient.
type RecipientStatus string

const (
	RecipientStatusSent       RecipientStatus = "SENT"
	RecipientStatusResponded  RecipientStatus = "RESPONDED"
	RecipientStatusEscalated  RecipientStatus = "ESCALATED"
	RecipientStatusNoResponse RecipientStatus = "NO_RESPONSE"
)

func (s RecipientStatus) String() string { return string(s) }

func (s RecipientStatus) IsValid() bool {
	switch s {
	case RecipientStatusSent, RecipientStatusResponded, RecipientStatusEscalated, RecipientStatusNoResponse:
		return true
	}
	return false
}

// IsTerminal reports whether no further escalation transition is allowed.
// RESPONDED is sticky: once set, nothing may move a recipient out of it.
func (s RecipientStatus) IsTerminal() bool {
	return s == RecipientStatusResponded || s == RecipientStatusEscalated
}

func ParseRecipientStatusFromString(s string) (RecipientStatus, error) {
	st := RecipientStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid recipient status %q", ErrValidation, s)
	}
	return st, nil
}

// ContactPair is the addressable identity of a recipient. Pairs are
// deduplicated survey-wide, across every batch of the survey.
type ContactPair struct {
	Email string
	Phone string
}

func (p ContactPair) Key() string {
	return strings.ToLower(strings.TrimSpace(p.Email)) + "|" + normalizePhone(p.Phone)
}

func (p ContactPair) Validate() error {
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrValidation, email)
	}
	if err := validatePhone(p.Phone); err != nil {
		return err
	}
	return nil
}

const minPhoneDigits = 7

func validatePhone(phone string) error {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}

	digits := 0
	for i, r := range trimmed {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == '-' || r == ' ' || r == '(' || r == ')':
		default:
			return fmt.Errorf("%w: invalid phone %q", ErrValidation, trimmed)
		}
	}
	if digits < minPhoneDigits {
		return fmt.Errorf("%w: phone %q has fewer than %d digits", ErrValidation, trimmed, minPhoneDigits)
	}
	return nil
}

// normalizePhone strips everything but digits so "+1 (555) 000-1111" and
// "15550001111" collapse to the same dedup key.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Recipient is one addressable target of a distribution batch.
type Recipient struct {
	ID            string
	SurveyID      string
	BatchID       string
	Email         string
	Phone         string
	Status        RecipientStatus
	SentAt        time.Time
	RespondedAt   *time.Time
	EscalationRef *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *Recipient) Validate() error {
	if strings.TrimSpace(r.SurveyID) == "" {
		return fmt.Errorf("%w: survey id is required", ErrValidation)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid recipient status %q", ErrValidation, r.Status)
	}
	return ContactPair{Email: r.Email, Phone: r.Phone}.Validate()
}

// ContactKey returns the survey-wide dedup key for this recipient.
func (r *Recipient) ContactKey() string {
	return ContactPair{Email: r.Email, Phone: r.Phone}.Key()
}
