// Package retention gatekeeps destructive-looking document operations.
//
// Every deletion and every supersession must carry a justification long
// enough to mean something to an examiner. There is no reason-less path.
package retention

import (
	"strings"

	dErrors "docvault/pkg/domain-errors"
)

// MinReasonLength is the policy threshold for deletion and supersession
// justifications.
const MinReasonLength = 10

// Guard validates the justifications required before a record may be retired
// or superseded.
type Guard struct {
	minReasonLength int
}

// NewGuard returns a guard enforcing the default policy threshold.
func NewGuard() *Guard {
	return &Guard{minReasonLength: MinReasonLength}
}

// ValidateDeletionReason rejects empty or too-short deletion justifications.
func (g *Guard) ValidateDeletionReason(reason string) error {
	return g.validateReason(reason, "deletion")
}

// ValidateSupersessionReason rejects empty or too-short amendment
// justifications.
func (g *Guard) ValidateSupersessionReason(reason string) error {
	return g.validateReason(reason, "supersession")
}

func (g *Guard) validateReason(reason, kind string) error {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return dErrors.New(dErrors.CodeValidation, kind+" reason is required")
	}
	if len(trimmed) < g.minReasonLength {
		return dErrors.New(dErrors.CodeValidation, kind+" reason is too short")
	}
	return nil
}
