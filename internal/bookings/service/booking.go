package service

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/internal/bookings/repository"
	"slotbook/internal/slots"
	"slotbook/pkg/auth"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/kafka"
	"slotbook/pkg/locale"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
	"slotbook/pkg/sealer"
	"slotbook/pkg/validation"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type TenantSource interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
}

type ServiceSource interface {
	FindByIDs(ctx context.Context, tenantID string, ids []string) ([]*model.ServiceOffering, error)
}

type WindowSource interface {
	FindByWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error)
}

type BookingService interface {
	Commit(ctx context.Context, tenantID string, req *model.BookingRequest) (*model.BookingReceipt, error)
	GetByID(ctx context.Context, tenantID, id string) (*model.Booking, error)
	List(ctx context.Context, tenantID string, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	ChangeStatus(ctx context.Context, tenantID, id string, to config.BookingStatus) (*model.Booking, error)
	CancelByToken(ctx context.Context, token string) (*model.Booking, error)
	DailyOverview(ctx context.Context, tenantID, date string) (*model.DailyOverview, error)
}

type bookingService struct {
	repo     repository.BookingRepository
	tenants  TenantSource
	services ServiceSource
	windows  WindowSource
	sealer   *sealer.Sealer
	events   kafka.EventPublisher
	clock    clock.Clock
	validate *validator.Validate
	cfg      *config.Config
}

func NewBookingService(
	repo repository.BookingRepository,
	tenants TenantSource,
	services ServiceSource,
	windows WindowSource,
	sealer *sealer.Sealer,
	events kafka.EventPublisher,
	clk clock.Clock,
	validate *validator.Validate,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:     repo,
		tenants:  tenants,
		services: services,
		windows:  windows,
		sealer:   sealer,
		events:   events,
		clock:    clk,
		validate: validate,
		cfg:      cfg,
	}
}

// Commit books the requested services back to back from req.Start. The day
// lock, overlap check and insert run in one transaction that is attempted once.
func (s *bookingService) Commit(ctx context.Context, tenantID string, req *model.BookingRequest) (*model.BookingReceipt, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Warn("Booking for unknown tenant", "tenant_id", tenantID, "error", err)
		return nil, apperrors.NotFoundWithID("Tenant", tenantID)
	}
	if !tenant.IsPaid() {
		return nil, apperrors.PaymentRequired("Tenant is not accepting bookings")
	}

	s.sanitize(req, tenant.Country)
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, validation.ToAppError(err)
	}

	loc := s.location(tenant)
	date, start, err := s.checkWhen(req, loc)
	if err != nil {
		return nil, err
	}

	items, err := s.snapshot(ctx, tenantID, req.ServiceIDs)
	if err != nil {
		return nil, err
	}
	booking := newBooking(tenantID, req, items, date, start, loc)
	if booking.TotalDurationMin <= 0 || !start.Add(booking.TotalDurationMin).Valid() {
		return nil, apperrors.Validation("Booking does not fit in the day", map[string]any{"start": req.Start})
	}

	windows, err := s.windows.FindByWeekday(ctx, tenantID, config.WeekdayOf(date))
	if err != nil {
		return nil, apperrors.Internal("Failed to load availability", err)
	}
	if !slots.Fits(windows, start, booking.TotalDurationMin) {
		return nil, apperrors.Validation("Requested time is outside opening hours", map[string]any{
			"start": booking.Start,
			"end":   booking.End,
		})
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.BumpDayLock(txCtx, tenantID, booking.Date); err != nil {
			return err
		}
		overlapping, err := s.repo.FindOverlapping(txCtx, tenantID, booking.Date, booking.Start, booking.End)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return &bookingserrors.ConflictError{
				TenantID: tenantID,
				Date:     booking.Date,
				Start:    booking.Start,
				End:      booking.End,
				Reason:   bookingserrors.ReasonOverlap,
			}
		}
		return s.repo.Create(txCtx, booking)
	})
	if err != nil {
		return nil, s.commitError(booking, err)
	}

	token, err := s.sealer.Seal(tenantID, booking.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to seal manage token", "tenant_id", tenantID, "booking_id", booking.ID, "error", err)
	}

	s.publish(ctx, booking.ID, model.EventBookingCommitted, model.BookingCommittedEvent{
		BookingID:  booking.ID,
		TenantID:   tenantID,
		Date:       booking.Date,
		Start:      booking.Start,
		End:        booking.End,
		StartsAt:   booking.StartsAt,
		TotalPrice: booking.TotalPrice.StringFixed(2),
	})

	s.cfg.Log.Info("Booking committed",
		"tenant_id", tenantID,
		"booking_id", booking.ID,
		"date", booking.Date,
		"start", booking.Start,
		"end", booking.End,
		"items", len(booking.Items),
	)
	return &model.BookingReceipt{Booking: booking, ManageToken: token}, nil
}

func (s *bookingService) commitError(booking *model.Booking, err error) error {
	var conflict *bookingserrors.ConflictError
	if !errors.As(err, &conflict) && mongotx.IsWriteConflict(err) {
		conflict = &bookingserrors.ConflictError{Reason: bookingserrors.ReasonConcurrent}
	}
	if conflict != nil {
		conflict.TenantID = booking.TenantID
		conflict.Date = booking.Date
		conflict.Start = booking.Start
		conflict.End = booking.End
		s.cfg.Log.Warn("Booking conflict",
			"tenant_id", booking.TenantID,
			"date", booking.Date,
			"start", booking.Start,
			"reason", conflict.Reason,
		)
		return apperrors.Conflict("The requested time is no longer available").
			WithDetails(map[string]any{"reason": conflict.Reason}).
			WithCause(conflict)
	}
	s.cfg.Log.Error("Failed to commit booking", "tenant_id", booking.TenantID, "date", booking.Date, "error", err)
	return apperrors.Internal("Failed to commit booking", err)
}

func (s *bookingService) GetByID(ctx context.Context, tenantID, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	booking, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) List(ctx context.Context, tenantID string, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, 0, err
	}
	if err := checkFilter(filter); err != nil {
		return nil, 0, err
	}

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, tenantID, filter)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count bookings", "tenant_id", tenantID, "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.List(ctx, tenantID, filter, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list bookings", "tenant_id", tenantID, "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return bookings, count, nil
}

// ChangeStatus applies a manual, one way transition out of scheduled.
func (s *bookingService) ChangeStatus(ctx context.Context, tenantID, id string, to config.BookingStatus) (*model.Booking, error) {
	if err := validation.Struct(s.validate, &model.StatusChange{Status: to}); err != nil {
		return nil, validation.ToAppError(err)
	}

	booking, err := s.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, booking, to)
}

// CancelByToken lets a customer cancel their own upcoming booking with the
// token handed out at commit.
func (s *bookingService) CancelByToken(ctx context.Context, token string) (*model.Booking, error) {
	fields, err := s.sealer.Open(token, 2)
	if err != nil {
		return nil, apperrors.NotFound("Booking")
	}
	tenantID, id := fields[0], fields[1]

	booking, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve booking")
	}
	if !booking.StartsAt.After(s.clock.Now()) {
		return nil, apperrors.Conflict("Booking has already started")
	}
	return s.transition(ctx, booking, config.Cancelled)
}

func (s *bookingService) transition(ctx context.Context, booking *model.Booking, to config.BookingStatus) (*model.Booking, error) {
	from := booking.Status
	if !from.CanTransition(to) {
		return nil, apperrors.Conflict(fmt.Sprintf("Cannot change booking status from %s to %s", from, to))
	}

	if err := s.repo.UpdateStatus(ctx, booking.TenantID, booking.ID, from, to); err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.Conflict("Booking status was changed by another request")
		}
		return nil, mapRepoError(err, booking.ID, "Failed to update booking status")
	}
	booking.Status = to

	s.publish(ctx, booking.ID, model.EventBookingStatusChanged, model.BookingStatusChangedEvent{
		BookingID: booking.ID,
		TenantID:  booking.TenantID,
		From:      from,
		To:        to,
	})

	s.cfg.Log.Info("Booking status changed",
		"tenant_id", booking.TenantID,
		"booking_id", booking.ID,
		"from", from,
		"to", to,
	)
	return booking, nil
}

// DailyOverview counts the bookings of one day per status. Revenue sums every
// booking that was not cancelled.
func (s *bookingService) DailyOverview(ctx context.Context, tenantID, date string) (*model.DailyOverview, error) {
	if _, err := clock.ParseDate(date); err != nil {
		return nil, apperrors.Validation("Invalid date", map[string]any{"date": err.Error()})
	}

	bookings, _, err := s.List(ctx, tenantID, model.BookingFilter{From: date, To: date}, 0, 0)
	if err != nil {
		return nil, err
	}
	return Overview(tenantID, date, bookings), nil
}

func Overview(tenantID, date string, bookings []*model.Booking) *model.DailyOverview {
	overview := &model.DailyOverview{
		TenantID: tenantID,
		Date:     date,
		Total:    len(bookings),
		ByStatus: map[config.BookingStatus]int{
			config.Scheduled: 0,
			config.Completed: 0,
			config.Cancelled: 0,
			config.NoShow:    0,
		},
		Revenue: decimal.Zero,
	}
	for _, b := range bookings {
		overview.ByStatus[b.Status]++
		if b.Status != config.Cancelled {
			overview.Revenue = overview.Revenue.Add(b.TotalPrice)
		}
	}
	return overview
}

// --- Helpers ---

func (s *bookingService) sanitize(req *model.BookingRequest, country string) {
	req.CustomerName = sanitizer.NormalizeName(req.CustomerName)
	req.CustomerEmail = sanitizer.NormalizeEmail(req.CustomerEmail)
	req.Date = strings.TrimSpace(req.Date)
	req.Start = strings.TrimSpace(req.Start)
	req.Note = sanitizer.TrimAndNormalize(req.Note)
	req.ServiceIDs = sanitizer.NormalizeIDs(req.ServiceIDs)
	if phone := sanitizer.NormalizePhone(req.CustomerPhone, country); phone != "" {
		req.CustomerPhone = phone
	}
}

func (s *bookingService) location(tenant *model.Tenant) *time.Location {
	loc, failed := locale.LoadLocation(tenant.Timezone, s.cfg.DefaultTimezone)
	if len(failed) > 0 {
		s.cfg.Log.Warn("Falling back to default timezone", "tenant_id", tenant.ID, "invalid", failed)
	}
	return loc
}

// checkWhen rejects starts that already passed in the tenant's zone and
// dates beyond the booking horizon.
func (s *bookingService) checkWhen(req *model.BookingRequest, loc *time.Location) (time.Time, clock.TimeOfDay, error) {
	date, err := clock.ParseDate(req.Date)
	if err != nil {
		return time.Time{}, 0, apperrors.Validation("Invalid date", map[string]any{"date": err.Error()})
	}
	start, err := clock.ParseTimeOfDay(req.Start)
	if err != nil {
		return time.Time{}, 0, apperrors.Validation("Invalid start", map[string]any{"start": err.Error()})
	}

	now := s.clock.Now()
	if !clock.At(date, start, loc).After(now) {
		return time.Time{}, 0, apperrors.Validation("Booking must be in the future", map[string]any{"date": req.Date, "start": req.Start})
	}
	if s.cfg.MaxBookingDaysAhead > 0 {
		horizon := clock.Today(now, loc).AddDate(0, 0, s.cfg.MaxBookingDaysAhead)
		if date.After(horizon) {
			return time.Time{}, 0, apperrors.Validation("Booking is too far ahead", map[string]any{
				"date":           req.Date,
				"max_days_ahead": s.cfg.MaxBookingDaysAhead,
			})
		}
	}
	return date, start, nil
}

// snapshot copies the requested services in request order. Every id must be
// an active service of the tenant.
func (s *bookingService) snapshot(ctx context.Context, tenantID string, ids []string) ([]model.BookingItem, error) {
	offerings, err := s.services.FindByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to load services", err)
	}

	byID := make(map[string]*model.ServiceOffering, len(offerings))
	for _, o := range offerings {
		byID[o.ID] = o
	}

	items := make([]model.BookingItem, 0, len(ids))
	for _, id := range ids {
		o, ok := byID[id]
		if !ok || !o.Active {
			return nil, apperrors.Validation("Unknown or inactive service", map[string]any{"service_id": id})
		}
		items = append(items, model.BookingItem{
			ServiceID:   o.ID,
			Name:        o.Name,
			Price:       o.Price,
			DurationMin: o.DurationMin,
		})
	}
	return items, nil
}

func newBooking(tenantID string, req *model.BookingRequest, items []model.BookingItem, date time.Time, start clock.TimeOfDay, loc *time.Location) *model.Booking {
	total := decimal.Zero
	duration := 0
	for _, item := range items {
		total = total.Add(item.Price)
		duration += item.DurationMin
	}

	startsAt := clock.At(date, start, loc)
	return &model.Booking{
		TenantID:         tenantID,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		CustomerEmail:    req.CustomerEmail,
		Date:             req.Date,
		Start:            start.String(),
		End:              start.Add(duration).String(),
		StartsAt:         startsAt.UTC(),
		EndsAt:           startsAt.Add(time.Duration(duration) * time.Minute).UTC(),
		Items:            items,
		TotalPrice:       total,
		TotalDurationMin: duration,
		Status:           config.Scheduled,
		Note:             req.Note,
	}
}

func checkFilter(filter model.BookingFilter) error {
	for field, value := range map[string]string{"from": filter.From, "to": filter.To} {
		if value == "" {
			continue
		}
		if _, err := clock.ParseDate(value); err != nil {
			return apperrors.Validation("Invalid date filter", map[string]any{field: err.Error()})
		}
	}
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		return apperrors.Validation("Invalid date range", map[string]any{"from": "from must not be after to"})
	}
	switch filter.Status {
	case "", config.Scheduled, config.Completed, config.Cancelled, config.NoShow:
		return nil
	default:
		return apperrors.Validation("Invalid status filter", map[string]any{"status": string(filter.Status)})
	}
}

func (s *bookingService) publish(ctx context.Context, key, eventType string, payload any) {
	if err := s.events.PublishEvent(context.WithoutCancel(ctx), key, eventType, payload); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "event_type", eventType, "booking_id", key, "error", err)
	}
}

func mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal(message, err)
	}
}
