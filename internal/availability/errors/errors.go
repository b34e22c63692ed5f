package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("availability window not found")

	ErrInvalidID = errors.New("invalid availability window ID format")
)

// InvalidWindowError rejects a window whose start is not before its end.
type InvalidWindowError struct {
	Weekday string
	Start   string
	End     string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid window on %s: start %s must be before end %s", e.Weekday, e.Start, e.End)
}
