package slots

import (
	"errors"
	"slices"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"slotbook/pkg/model"
	"testing"
)

func window(start, end string) *model.AvailabilityWindow {
	return &model.AvailabilityWindow{Weekday: config.Monday, Start: start, End: end}
}

func booking(start string, minutes int, status config.BookingStatus) *model.Booking {
	return &model.Booking{Start: start, TotalDurationMin: minutes, Status: status}
}

func TestCandidateSlots(t *testing.T) {
	tests := []struct {
		name     string
		windows  []*model.AvailabilityWindow
		bookings []*model.Booking
		duration int
		step     int
		want     []string
	}{
		{
			name:     "morning window with quarter hour step",
			windows:  []*model.AvailabilityWindow{window("09:00", "12:00")},
			duration: 30,
			step:     15,
			want: []string{
				"09:00", "09:15", "09:30", "09:45", "10:00", "10:15",
				"10:30", "10:45", "11:00", "11:15", "11:30",
			},
		},
		{
			name:     "no windows",
			duration: 30,
			step:     15,
			want:     []string{},
		},
		{
			name:     "duration longer than window",
			windows:  []*model.AvailabilityWindow{window("09:00", "09:20")},
			duration: 30,
			step:     15,
			want:     []string{},
		},
		{
			name:     "overlapping windows are unioned without duplicates",
			windows:  []*model.AvailabilityWindow{window("09:00", "10:00"), window("09:30", "10:30")},
			duration: 30,
			step:     30,
			want:     []string{"09:00", "09:30", "10:00"},
		},
		{
			name:     "scheduled booking blocks overlapping starts",
			windows:  []*model.AvailabilityWindow{window("09:00", "11:00")},
			bookings: []*model.Booking{booking("09:30", 30, config.Scheduled)},
			duration: 30,
			step:     15,
			want:     []string{"09:00", "10:00", "10:15", "10:30"},
		},
		{
			name:     "cancelled booking frees its time",
			windows:  []*model.AvailabilityWindow{window("09:00", "10:00")},
			bookings: []*model.Booking{booking("09:00", 60, config.Cancelled)},
			duration: 30,
			step:     30,
			want:     []string{"09:00", "09:30"},
		},
		{
			name:     "window running to midnight",
			windows:  []*model.AvailabilityWindow{window("23:00", "24:00")},
			duration: 30,
			step:     30,
			want:     []string{"23:00", "23:30"},
		},
		{
			name:     "malformed window is ignored",
			windows:  []*model.AvailabilityWindow{window("xx", "10:00"), window("10:00", "09:00")},
			duration: 30,
			step:     30,
			want:     []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CandidateSlots(tt.windows, Busy(tt.bookings), tt.duration, tt.step)
			if err != nil {
				t.Fatalf("CandidateSlots() error = %v", err)
			}
			if formatted := Format(got); !slices.Equal(formatted, tt.want) {
				t.Errorf("CandidateSlots() = %v, want %v", formatted, tt.want)
			}
		})
	}
}

func TestCandidateSlots_ExcludesEveryOverlappingMinute(t *testing.T) {
	windows := []*model.AvailabilityWindow{window("08:00", "18:00")}
	busy := Busy([]*model.Booking{booking("14:00", 45, config.Scheduled)})

	got, err := CandidateSlots(windows, busy, 30, 1)
	if err != nil {
		t.Fatalf("CandidateSlots() error = %v", err)
	}

	present := make(map[clock.TimeOfDay]bool, len(got))
	for _, s := range got {
		present[s] = true
	}

	for s := clock.MustTimeOfDay("13:31"); s <= clock.MustTimeOfDay("14:44"); s++ {
		if present[s] {
			t.Fatalf("start %s overlaps [14:00,14:45) but was offered", s)
		}
	}
	for _, s := range []string{"13:30", "14:45"} {
		if !present[clock.MustTimeOfDay(s)] {
			t.Errorf("start %s touches the booking without overlapping and should be offered", s)
		}
	}
}

func TestCandidateSlots_Deterministic(t *testing.T) {
	windows := []*model.AvailabilityWindow{window("13:00", "17:00"), window("09:00", "12:00")}
	busy := Busy([]*model.Booking{booking("10:00", 45, config.Scheduled)})

	first, _ := CandidateSlots(windows, busy, 30, 15)
	for range 5 {
		again, _ := CandidateSlots(windows, busy, 30, 15)
		if !slices.Equal(first, again) {
			t.Fatalf("results differ: %v vs %v", first, again)
		}
	}
	if !slices.IsSorted(first) {
		t.Errorf("slots not sorted: %v", Format(first))
	}
}

func TestCandidateSlots_RejectsNonPositiveInputs(t *testing.T) {
	windows := []*model.AvailabilityWindow{window("09:00", "12:00")}

	if _, err := CandidateSlots(windows, nil, 0, 15); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("duration 0: got %v", err)
	}
	if _, err := CandidateSlots(windows, nil, 30, -15); !errors.Is(err, ErrInvalidStep) {
		t.Errorf("step -15: got %v", err)
	}
}

func TestFits(t *testing.T) {
	windows := []*model.AvailabilityWindow{window("09:00", "12:00"), window("13:00", "17:00")}

	tests := []struct {
		start    string
		duration int
		want     bool
	}{
		{"09:00", 30, true},
		{"11:30", 30, true},
		{"11:45", 30, false},
		{"12:30", 30, false},
		{"13:10", 60, true},
		{"08:30", 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			if got := Fits(windows, clock.MustTimeOfDay(tt.start), tt.duration); got != tt.want {
				t.Errorf("Fits(%s, %d) = %v, want %v", tt.start, tt.duration, got, tt.want)
			}
		})
	}
}
