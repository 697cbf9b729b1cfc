package domain

import (
	"fmt"
	"strings"
)

// NonResponderScope selects which batches contribute candidate entries to a
// non-responder lookup. The scope is always an explicit parameter; responded
// exclusion is survey-wide under either value.
type NonResponderScope string

const (
	ScopeLatestBatch NonResponderScope = "LATEST_BATCH"
	ScopeAllBatches  NonResponderScope = "ALL_BATCHES"
)

func (s NonResponderScope) String() string { return string(s) }

func (s NonResponderScope) IsValid() bool {
	return s == ScopeLatestBatch || s == ScopeAllBatches
}

func ParseNonResponderScopeFromString(s string) (NonResponderScope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LATEST", "LATEST_BATCH":
		return ScopeLatestBatch, nil
	case "ALL", "ALL_BATCHES":
		return ScopeAllBatches, nil
	}
	return "", fmt.Errorf("%w: invalid non-responder scope %q", ErrValidation, s)
}
