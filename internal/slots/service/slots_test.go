package service

import (
	"context"
	"errors"
	"slices"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"testing"
	"time"
)

type fakeWindows struct {
	windows map[config.Weekday][]*model.AvailabilityWindow
}

func (f *fakeWindows) FindByWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error) {
	return f.windows[weekday], nil
}

type fakeBookings struct {
	forDateFunc func(ctx context.Context, tenantID, date string) ([]*model.Booking, error)
}

func (f *fakeBookings) ForDate(ctx context.Context, tenantID, date string) ([]*model.Booking, error) {
	if f.forDateFunc != nil {
		return f.forDateFunc(ctx, tenantID, date)
	}
	return nil, nil
}

type fakeServices struct {
	offerings []*model.ServiceOffering
}

func (f *fakeServices) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]*model.ServiceOffering, error) {
	var out []*model.ServiceOffering
	for _, o := range f.offerings {
		if slices.Contains(ids, o.ID) {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeTenants struct {
	tenant *model.Tenant
}

func (f *fakeTenants) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	if f.tenant == nil {
		return nil, errors.New("not found")
	}
	return f.tenant, nil
}

func paidTenant() *model.Tenant {
	return &model.Tenant{ID: "t1", Paid: true, Active: true, Timezone: "Europe/Brussels"}
}

func newTestService(tenant *model.Tenant, bookings *fakeBookings, now time.Time) SlotService {
	windows := &fakeWindows{windows: map[config.Weekday][]*model.AvailabilityWindow{
		config.Monday: {{Weekday: config.Monday, Start: "09:00", End: "12:00"}},
	}}
	services := &fakeServices{offerings: []*model.ServiceOffering{
		{ID: "cut", DurationMin: 30, Active: true},
		{ID: "wash", DurationMin: 15, Active: true},
		{ID: "old", DurationMin: 20, Active: false},
	}}
	cfg := &config.Config{Log: logger.Discard(), DefaultSlotStepMin: 15, DefaultTimezone: "Europe/Brussels"}
	return NewSlotService(windows, bookings, services, &fakeTenants{tenant: tenant}, clock.Fixed(now), cfg)
}

func TestCandidates(t *testing.T) {
	brussels, _ := time.LoadLocation("Europe/Brussels")
	weekBefore := time.Date(2024, 6, 3, 8, 0, 0, 0, brussels)

	t.Run("default step and explicit duration", func(t *testing.T) {
		svc := newTestService(paidTenant(), &fakeBookings{}, weekBefore)

		got, err := svc.Candidates(context.Background(), "t1", Query{Date: "2024-06-10", DurationMin: 30})
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if got.StepMin != 15 || len(got.Slots) != 11 || got.Slots[0] != "09:00" || got.Slots[10] != "11:30" {
			t.Errorf("unexpected result %+v", got)
		}
	})

	t.Run("duration derived from services", func(t *testing.T) {
		svc := newTestService(paidTenant(), &fakeBookings{}, weekBefore)

		got, err := svc.Candidates(context.Background(), "t1", Query{Date: "2024-06-10", ServiceIDs: []string{"cut", "wash"}, StepMin: 45})
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		want := []string{"09:00", "09:45", "10:30", "11:15"}
		if got.DurationMin != 45 || !slices.Equal(got.Slots, want) {
			t.Errorf("got %+v, want slots %v", got, want)
		}
	})

	t.Run("inactive service rejected", func(t *testing.T) {
		svc := newTestService(paidTenant(), &fakeBookings{}, weekBefore)

		_, err := svc.Candidates(context.Background(), "t1", Query{Date: "2024-06-10", ServiceIDs: []string{"old"}})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("got %v, want validation error", err)
		}
	})

	t.Run("unpaid tenant", func(t *testing.T) {
		tenant := paidTenant()
		tenant.Paid = false
		svc := newTestService(tenant, &fakeBookings{}, weekBefore)

		_, err := svc.Candidates(context.Background(), "t1", Query{Date: "2024-06-10", DurationMin: 30})
		if !apperrors.HasCode(err, apperrors.CodePaymentRequired) {
			t.Errorf("got %v, want payment required", err)
		}
	})

	t.Run("past date is empty", func(t *testing.T) {
		bookings := &fakeBookings{forDateFunc: func(ctx context.Context, tenantID, date string) ([]*model.Booking, error) {
			t.Error("bookings must not be loaded for a past date")
			return nil, nil
		}}
		svc := newTestService(paidTenant(), bookings, time.Date(2024, 6, 11, 8, 0, 0, 0, brussels))

		got, err := svc.Candidates(context.Background(), "t1", Query{Date: "2024-06-10", DurationMin: 30})
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if len(got.Slots) != 0 {
			t.Errorf("past date offered %v", got.Slots)
		}
	})

	t.Run("today drops elapsed starts", func(t *testing.T) {
		svc := newTestService(paidTenant(), &fakeBookings{}, time.Date(2024, 6, 10, 10, 50, 0, 0, brussels))

		got, err := svc.Candidates(context.Background(), "t1", Query{Date: "2024-06-10", DurationMin: 30, StepMin: 30})
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if want := []string{"11:00", "11:30"}; !slices.Equal(got.Slots, want) {
			t.Errorf("got %v, want %v", got.Slots, want)
		}
	})

	t.Run("day without windows", func(t *testing.T) {
		svc := newTestService(paidTenant(), &fakeBookings{}, weekBefore)

		got, err := svc.Candidates(context.Background(), "t1", Query{Date: "2024-06-11", DurationMin: 30})
		if err != nil {
			t.Fatalf("Candidates() error = %v", err)
		}
		if got.Slots == nil || len(got.Slots) != 0 {
			t.Errorf("want empty non-nil slots, got %#v", got.Slots)
		}
	})

	t.Run("invalid date", func(t *testing.T) {
		svc := newTestService(paidTenant(), &fakeBookings{}, weekBefore)

		_, err := svc.Candidates(context.Background(), "t1", Query{Date: "10-06-2024", DurationMin: 30})
		if !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("got %v, want validation error", err)
		}
	})
}
