package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrStatusChanged = errors.New("booking status changed concurrently")
)

// ConflictError reports a commit that lost the day lock or overlaps an
// existing scheduled booking.
type ConflictError struct {
	TenantID string
	Date     string
	Start    string
	End      string
	Reason   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflict for tenant %s on %s %s-%s: %s", e.TenantID, e.Date, e.Start, e.End, e.Reason)
}

const (
	ReasonOverlap    = "overlaps an existing booking"
	ReasonConcurrent = "another booking for this day was committed concurrently"
)
