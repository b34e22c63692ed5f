package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownChannel = errors.New("unknown credit channel")

	ErrInvalidAmount = errors.New("amount must be positive")
)

// InsufficientCreditError is returned when a debit would take a balance
// below zero or email usage above its quota.
type InsufficientCreditError struct {
	TenantID  string
	Channel   string
	Requested int64
	Available int64
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient %s credit for tenant %s: requested %d, available %d",
		e.Channel, e.TenantID, e.Requested, e.Available)
}
