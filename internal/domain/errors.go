package domain

import "errors"

// Sentinel errors for the outreach core. Callers classify failures with
// errors.Is; concrete messages are attached at the wrap site.
var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service error")
	ErrPersistence     = errors.New("persistence error")
)
