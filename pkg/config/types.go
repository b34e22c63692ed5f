package config

import "time"

type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var weekdays = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

func WeekdayOf(t time.Time) Weekday {
	return weekdays[t.Weekday()]
}

func (w Weekday) Valid() bool {
	for _, d := range weekdays {
		if d == w {
			return true
		}
	}
	return false
}

type BookingStatus string

const (
	Scheduled BookingStatus = "scheduled"
	Completed BookingStatus = "completed"
	Cancelled BookingStatus = "cancelled"
	NoShow    BookingStatus = "no-show"
)

// CanTransition reports whether a booking may move from one status to another.
// Only scheduled bookings move, and only once.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	if s != Scheduled {
		return false
	}
	return to == Completed || to == Cancelled || to == NoShow
}

type Channel string

const (
	SMS      Channel = "sms"
	WhatsApp Channel = "whatsapp"
	Email    Channel = "email"
)

var Channels = []Channel{SMS, WhatsApp, Email}

func (c Channel) Valid() bool {
	return c == SMS || c == WhatsApp || c == Email
}

type ReminderSlot string

const (
	DayBefore ReminderSlot = "day_before"
	SameDay   ReminderSlot = "same_day"
)

type ReminderState string

const (
	NotDue            ReminderState = "not-due"
	Due               ReminderState = "due"
	DispatchAttempted ReminderState = "dispatch-attempted"
	Sent              ReminderState = "sent"
	SkippedNoCredit   ReminderState = "skipped-no-credit"
	SkippedDisabled   ReminderState = "skipped-disabled"
)
