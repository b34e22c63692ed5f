package scheduler

import (
	"fmt"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"slotbook/pkg/model"
	"time"
)

// FireTime is the instant a reminder slot becomes due for booking. The
// day-before slot fires at SendTime on (booking date - DaysBefore) in loc;
// the same-day slot fires MinutesBefore ahead of the start.
func FireTime(policy *model.ReminderPolicy, slot config.ReminderSlot, booking *model.Booking, loc *time.Location) (time.Time, error) {
	switch slot {
	case config.DayBefore:
		date, err := clock.ParseDate(booking.Date)
		if err != nil {
			return time.Time{}, err
		}
		at, err := clock.ParseTimeOfDay(policy.DayBefore.SendTime)
		if err != nil {
			return time.Time{}, err
		}
		return clock.At(date.AddDate(0, 0, -policy.DayBefore.DaysBefore), at, loc), nil
	case config.SameDay:
		return booking.StartsAt.Add(-time.Duration(policy.SameDay.MinutesBefore) * time.Minute), nil
	}
	return time.Time{}, fmt.Errorf("unknown reminder slot %q", slot)
}

// Due reports fire <= now < start.
func Due(fire, start, now time.Time) bool {
	return !now.Before(fire) && now.Before(start)
}

// Target is the address a channel delivers to, or "" when the booking has none.
func Target(channel config.Channel, booking *model.Booking) string {
	switch channel {
	case config.SMS, config.WhatsApp:
		return booking.CustomerPhone
	case config.Email:
		return booking.CustomerEmail
	}
	return ""
}
