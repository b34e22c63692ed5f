package service

import (
	"context"
	"errors"
	"slotbook/internal/slots"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/locale"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
)

type WindowSource interface {
	FindByWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error)
}

type BookingSource interface {
	ForDate(ctx context.Context, tenantID, date string) ([]*model.Booking, error)
}

type ServiceSource interface {
	FindByIDs(ctx context.Context, tenantID string, ids []string) ([]*model.ServiceOffering, error)
}

type TenantSource interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
}

type Query struct {
	Date        string
	DurationMin int
	ServiceIDs  []string
	StepMin     int
}

type Result struct {
	TenantID    string   `json:"tenant_id"`
	Date        string   `json:"date"`
	DurationMin int      `json:"duration_min"`
	StepMin     int      `json:"step_min"`
	Slots       []string `json:"slots"`
}

type SlotService interface {
	Candidates(ctx context.Context, tenantID string, q Query) (*Result, error)
}

type slotService struct {
	windows  WindowSource
	bookings BookingSource
	services ServiceSource
	tenants  TenantSource
	clock    clock.Clock
	cfg      *config.Config
}

func NewSlotService(
	windows WindowSource,
	bookings BookingSource,
	services ServiceSource,
	tenants TenantSource,
	clk clock.Clock,
	cfg *config.Config,
) SlotService {
	return &slotService{
		windows:  windows,
		bookings: bookings,
		services: services,
		tenants:  tenants,
		clock:    clk,
		cfg:      cfg,
	}
}

// Candidates lists free start times on q.Date. Past dates and already elapsed
// starts today yield nothing; a day without windows is empty, not an error.
func (s *slotService) Candidates(ctx context.Context, tenantID string, q Query) (*Result, error) {
	date, err := clock.ParseDate(q.Date)
	if err != nil {
		return nil, apperrors.Validation("Invalid date", map[string]any{"date": err.Error()})
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Warn("Slot lookup for unknown tenant", "tenant_id", tenantID, "error", err)
		return nil, apperrors.NotFoundWithID("Tenant", tenantID)
	}
	if !tenant.IsPaid() {
		return nil, apperrors.PaymentRequired("Tenant is not accepting bookings")
	}

	duration := q.DurationMin
	if ids := sanitizer.NormalizeIDs(q.ServiceIDs); len(ids) > 0 {
		duration, err = s.bundleDuration(ctx, tenantID, ids)
		if err != nil {
			return nil, err
		}
	}
	step := q.StepMin
	if step == 0 {
		step = s.cfg.DefaultSlotStepMin
	}

	result := &Result{
		TenantID:    tenantID,
		Date:        q.Date,
		DurationMin: duration,
		StepMin:     step,
		Slots:       []string{},
	}

	loc, failed := locale.LoadLocation(tenant.Timezone, s.cfg.DefaultTimezone)
	if len(failed) > 0 {
		s.cfg.Log.Warn("Falling back to default timezone", "tenant_id", tenantID, "invalid", failed)
	}
	now := s.clock.Now()
	today := clock.Today(now, loc)
	if date.Before(today) {
		return result, nil
	}

	windows, err := s.windows.FindByWeekday(ctx, tenantID, config.WeekdayOf(date))
	if err != nil {
		s.cfg.Log.Error("Failed to load availability", "tenant_id", tenantID, "date", q.Date, "error", err)
		return nil, apperrors.Internal("Failed to load availability", err)
	}
	if len(windows) == 0 {
		return result, nil
	}

	booked, err := s.bookings.ForDate(ctx, tenantID, q.Date)
	if err != nil {
		s.cfg.Log.Error("Failed to load bookings", "tenant_id", tenantID, "date", q.Date, "error", err)
		return nil, apperrors.Internal("Failed to load bookings", err)
	}

	starts, err := slots.CandidateSlots(windows, slots.Busy(booked), duration, step)
	if err != nil {
		if errors.Is(err, slots.ErrInvalidDuration) {
			return nil, apperrors.Validation("Invalid duration", map[string]any{"duration": err.Error()})
		}
		return nil, apperrors.Validation("Invalid step", map[string]any{"step": err.Error()})
	}

	if date.Equal(today) {
		local := now.In(loc)
		elapsed := clock.TimeOfDay(local.Hour()*60 + local.Minute())
		kept := starts[:0]
		for _, t := range starts {
			if t > elapsed {
				kept = append(kept, t)
			}
		}
		starts = kept
	}

	result.Slots = slots.Format(starts)
	return result, nil
}

func (s *slotService) bundleDuration(ctx context.Context, tenantID string, ids []string) (int, error) {
	offerings, err := s.services.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return 0, apperrors.Internal("Failed to load services", err)
	}

	byID := make(map[string]*model.ServiceOffering, len(offerings))
	for _, o := range offerings {
		byID[o.ID] = o
	}

	total := 0
	for _, id := range ids {
		o, ok := byID[id]
		if !ok || !o.Active {
			return 0, apperrors.Validation("Unknown or inactive service", map[string]any{"service_id": id})
		}
		total += o.DurationMin
	}
	return total, nil
}
