package errors

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyNotFound = errors.New("reminder policy not found")

	ErrAlreadySent = errors.New("reminder already sent")

	ErrClaimLost = errors.New("reminder claim lost")
)

// TimezoneParseError reports a policy or tenant zone that could not be
// loaded. Scheduling falls back to the next candidate.
type TimezoneParseError struct {
	TenantID string
	Names    []string
	Using    string
}

func (e *TimezoneParseError) Error() string {
	return fmt.Sprintf("tenant %s: cannot load timezone %v, using %s", e.TenantID, e.Names, e.Using)
}
