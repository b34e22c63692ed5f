// Package slots computes bookable start times from weekly availability and
// the bookings already on the calendar.
package slots

import (
	"errors"
	"slices"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"slotbook/pkg/model"
)

var (
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidStep     = errors.New("step must be positive")
)

// Interval is a half-open [Start, End) span of one day.
type Interval struct {
	Start clock.TimeOfDay
	End   clock.TimeOfDay
}

func (i Interval) Overlaps(o Interval) bool {
	return clock.Overlaps(i.Start, i.End, o.Start, o.End)
}

// Busy returns the intervals held by scheduled bookings. Cancelled, completed
// and no-show bookings free their time.
func Busy(bookings []*model.Booking) []Interval {
	busy := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.Status != config.Scheduled {
			continue
		}
		start, err := clock.ParseTimeOfDay(b.Start)
		if err != nil {
			continue
		}
		busy = append(busy, Interval{Start: start, End: start.Add(b.TotalDurationMin)})
	}
	return busy
}

// CandidateSlots walks every window in step increments and keeps each start
// whose [start, start+duration) stays inside the window and clear of busy.
// Overlapping windows are unioned; the result is sorted and unique.
func CandidateSlots(windows []*model.AvailabilityWindow, busy []Interval, duration, step int) ([]clock.TimeOfDay, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if step <= 0 {
		return nil, ErrInvalidStep
	}

	seen := make(map[clock.TimeOfDay]struct{})
	for _, w := range windows {
		start, end, err := w.Bounds()
		if err != nil || start >= end {
			continue
		}
		for t := start; t.Add(duration) <= end; t = t.Add(step) {
			if free(Interval{Start: t, End: t.Add(duration)}, busy) {
				seen[t] = struct{}{}
			}
		}
	}

	starts := make([]clock.TimeOfDay, 0, len(seen))
	for t := range seen {
		starts = append(starts, t)
	}
	slices.Sort(starts)
	return starts, nil
}

// Fits reports whether [start, start+duration) lies inside a single window.
func Fits(windows []*model.AvailabilityWindow, start clock.TimeOfDay, duration int) bool {
	for _, w := range windows {
		ws, we, err := w.Bounds()
		if err != nil {
			continue
		}
		if start >= ws && start.Add(duration) <= we {
			return true
		}
	}
	return false
}

func free(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return false
		}
	}
	return true
}

func Format(starts []clock.TimeOfDay) []string {
	out := make([]string, len(starts))
	for i, t := range starts {
		out[i] = t.String()
	}
	return out
}
