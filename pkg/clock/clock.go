// Package clock holds wall-clock helpers shared by the planner, ledger and scheduler.
//
// A TimeOfDay is minutes after local midnight. Dates travel as "YYYY-MM-DD"
// strings and are only turned into instants together with a location.
package clock

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
	MinutesPerDay   = 24 * 60
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the real clock.
var System Clock = systemClock{}

// Fixed always returns the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

type TimeOfDay int

// ParseTimeOfDay accepts a zero padded 24h "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// Valid reports whether t lies within one day. End of day (24:00) is valid
// only as an exclusive bound and is not produced by ParseTimeOfDay.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t <= MinutesPerDay
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// At returns the instant of date at t in loc.
func At(date time.Time, t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), int(t)/60, int(t)%60, 0, 0, loc)
}

// Today returns the calendar date of now in loc, as midnight UTC.
func Today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Overlaps is the half-open interval test for [aStart,aEnd) and [bStart,bEnd).
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && bStart < aEnd
}
