package service

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "slotbook/internal/bookings/errors"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	mongotx "slotbook/pkg/db/mongo"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"slotbook/pkg/sealer"
	"slotbook/pkg/validation"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const testKey = "MDEyMzQ1Njc4OTAxMjM0NTY3ODkwMTIzNDU2Nzg5MDE="

type txKey struct{}

// fakeStore stages inserts per transaction and hands the day lock to the
// first transaction that bumps it, like a write conflict on the lock document.
type fakeStore struct {
	mu       sync.Mutex
	bookings []*model.Booking
	staged   map[int][]*model.Booking
	locks    map[string]int
	nextTx   int
	nextID   int

	// onCreate runs inside the transaction before the insert is staged.
	onCreate func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{staged: map[int][]*model.Booking{}, locks: map[string]int{}}
}

func (f *fakeStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	f.mu.Lock()
	f.nextTx++
	tx := f.nextTx
	f.mu.Unlock()

	err := fn(context.WithValue(ctx, txKey{}, tx))

	f.mu.Lock()
	defer f.mu.Unlock()
	for day, owner := range f.locks {
		if owner == tx {
			delete(f.locks, day)
		}
	}
	if err == nil {
		f.bookings = append(f.bookings, f.staged[tx]...)
	}
	delete(f.staged, tx)
	return err
}

func (f *fakeStore) BumpDayLock(ctx context.Context, tenantID, date string) error {
	tx, _ := ctx.Value(txKey{}).(int)
	f.mu.Lock()
	defer f.mu.Unlock()

	id := model.DayLockID(tenantID, date)
	if owner, held := f.locks[id]; held && owner != tx {
		return &bookingserrors.ConflictError{TenantID: tenantID, Date: date, Reason: bookingserrors.ReasonConcurrent}
	}
	f.locks[id] = tx
	return nil
}

func (f *fakeStore) Create(ctx context.Context, booking *model.Booking) error {
	if f.onCreate != nil {
		f.onCreate()
	}
	tx, _ := ctx.Value(txKey{}).(int)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	booking.ID = fmt.Sprintf("665f1c2e8b3f4a00000000%02d", f.nextID)
	f.staged[tx] = append(f.staged[tx], booking)
	return nil
}

func (f *fakeStore) FindByID(ctx context.Context, tenantID, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == id && b.TenantID == tenantID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
}

func (f *fakeStore) ForDate(ctx context.Context, tenantID, date string) ([]*model.Booking, error) {
	return f.FindOverlapping(ctx, tenantID, date, "00:00", "24:00")
}

func (f *fakeStore) FindOverlapping(ctx context.Context, tenantID, date, start, end string) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.TenantID == tenantID && b.Date == date && b.Status == config.Scheduled && b.Start < end && start < b.End {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) List(ctx context.Context, tenantID string, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.bookings {
		if b.TenantID != tenantID || (filter.From != "" && b.Date < filter.From) || (filter.To != "" && b.Date > filter.To) {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) Count(ctx context.Context, tenantID string, filter model.BookingFilter) (int64, error) {
	list, _ := f.List(ctx, tenantID, filter, 0, 0)
	return int64(len(list)), nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, tenantID, id string, from, to config.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == id && b.TenantID == tenantID {
			if b.Status != from {
				return bookingserrors.ErrStatusChanged
			}
			b.Status = to
			return nil
		}
	}
	return bookingserrors.ErrNotFound
}

func (f *fakeStore) Upcoming(ctx context.Context, from, to time.Time, afterID string, limit int) ([]*model.Booking, error) {
	return nil, nil
}

type fakeTenants struct{ tenant *model.Tenant }

func (f *fakeTenants) FindByID(ctx context.Context, id string) (*model.Tenant, error) {
	if f.tenant == nil || f.tenant.ID != id {
		return nil, errors.New("tenant not found")
	}
	return f.tenant, nil
}

type fakeServices struct{ offerings []*model.ServiceOffering }

func (f *fakeServices) FindByIDs(ctx context.Context, tenantID string, ids []string) ([]*model.ServiceOffering, error) {
	var out []*model.ServiceOffering
	for _, o := range f.offerings {
		for _, id := range ids {
			if o.ID == id {
				out = append(out, o)
			}
		}
	}
	return out, nil
}

type fakeWindows struct{}

func (fakeWindows) FindByWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error) {
	if weekday != config.Monday {
		return nil, nil
	}
	return []*model.AvailabilityWindow{{Weekday: config.Monday, Start: "09:00", End: "17:00"}}, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeEvents) PublishEvent(ctx context.Context, key, eventType string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return nil
}

func (f *fakeEvents) Close() error { return nil }

type fixture struct {
	store   *fakeStore
	tenant  *model.Tenant
	events  *fakeEvents
	sealer  *sealer.Sealer
	service BookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	brussels, err := time.LoadLocation("Europe/Brussels")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	seal, err := sealer.New(testKey)
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}

	f := &fixture{
		store:  newFakeStore(),
		tenant: &model.Tenant{ID: "t1", Paid: true, Active: true, Timezone: "Europe/Brussels", Country: "BE"},
		events: &fakeEvents{},
		sealer: seal,
	}
	services := &fakeServices{offerings: []*model.ServiceOffering{
		{ID: "cut", Name: "Cut", Price: decimal.RequireFromString("25.00"), DurationMin: 30, Active: true},
		{ID: "beard", Name: "Beard", Price: decimal.RequireFromString("12.50"), DurationMin: 15, Active: true},
		{ID: "perm", Name: "Perm", Price: decimal.RequireFromString("80"), DurationMin: 90, Active: false},
	}}

	log := logger.Discard()
	cfg := &config.Config{Log: log, DefaultTimezone: "Europe/Brussels", MaxBookingDaysAhead: 60}
	now := clock.Fixed(time.Date(2024, 6, 3, 8, 0, 0, 0, brussels))
	f.service = NewBookingService(f.store, &fakeTenants{tenant: f.tenant}, services, fakeWindows{}, seal, f.events, now, validation.New(log), cfg)
	return f
}

func request(start string, services ...string) *model.BookingRequest {
	return &model.BookingRequest{
		CustomerName:  "Jan Peeters",
		CustomerPhone: "0470 12 34 56",
		Date:          "2024-06-10",
		Start:         start,
		ServiceIDs:    services,
	}
}

func TestCommit_SnapshotsServices(t *testing.T) {
	f := newFixture(t)

	receipt, err := f.service.Commit(context.Background(), "t1", request("09:00", "cut", "beard"))
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	b := receipt.Booking
	if b.End != "09:45" || b.TotalDurationMin != 45 {
		t.Errorf("end = %s, duration = %d", b.End, b.TotalDurationMin)
	}
	if !b.TotalPrice.Equal(decimal.RequireFromString("37.50")) {
		t.Errorf("total = %s, want 37.50", b.TotalPrice)
	}
	if len(b.Items) != 2 || b.Items[0].Name != "Cut" || b.Items[1].DurationMin != 15 {
		t.Errorf("items = %+v", b.Items)
	}
	if want := time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC); !b.StartsAt.Equal(want) {
		t.Errorf("starts_at = %s, want %s", b.StartsAt, want)
	}
	if b.CustomerPhone != "+32470123456" {
		t.Errorf("phone = %s", b.CustomerPhone)
	}
	if b.Status != config.Scheduled {
		t.Errorf("status = %s", b.Status)
	}

	fields, err := f.sealer.Open(receipt.ManageToken, 2)
	if err != nil || fields[0] != "t1" || fields[1] != b.ID {
		t.Errorf("manage token opens to %v, %v", fields, err)
	}
	if len(f.events.events) != 1 || f.events.events[0] != model.EventBookingCommitted {
		t.Errorf("events = %v", f.events.events)
	}
}

func TestCommit_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)

	inside := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.store.onCreate = func() {
		once.Do(func() {
			close(inside)
			<-release
		})
	}

	errs := make(chan error, 2)
	go func() {
		_, err := f.service.Commit(context.Background(), "t1", request("09:00", "cut"))
		errs <- err
	}()

	<-inside
	_, second := f.service.Commit(context.Background(), "t1", request("09:00", "cut"))
	close(release)
	first := <-errs

	if first != nil {
		t.Fatalf("first commit error = %v", first)
	}
	var conflict *bookingserrors.ConflictError
	if !errors.As(second, &conflict) || !apperrors.HasCode(second, apperrors.CodeConflict) {
		t.Fatalf("second commit: want ConflictError, got %v", second)
	}
	if conflict.Reason != bookingserrors.ReasonConcurrent {
		t.Errorf("reason = %q", conflict.Reason)
	}
	if got, _ := f.store.ForDate(context.Background(), "t1", "2024-06-10"); len(got) != 1 {
		t.Errorf("stored %d bookings, want 1", len(got))
	}
}

func TestCommit_ManyConcurrentCommitsOneWinner(t *testing.T) {
	f := newFixture(t)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Commit(context.Background(), "t1", request("10:00", "cut"))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		var conflict *bookingserrors.ConflictError
		if !errors.As(err, &conflict) {
			t.Errorf("unexpected error %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("%d commits succeeded, want exactly 1", wins)
	}
}

func TestCommit_OverlapWithExisting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.service.Commit(ctx, "t1", request("14:00", "cut", "beard")); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}

	tests := []struct {
		start    string
		conflict bool
	}{
		{"13:30", false},
		{"13:31", true},
		{"14:30", true},
		{"14:45", false},
	}
	for _, tt := range tests {
		t.Run(tt.start, func(t *testing.T) {
			_, err := f.service.Commit(ctx, "t1", request(tt.start, "cut"))
			var conflict *bookingserrors.ConflictError
			if got := errors.As(err, &conflict); got != tt.conflict {
				t.Fatalf("conflict = %v, want %v (err %v)", got, tt.conflict, err)
			}
			if tt.conflict && conflict.Reason != bookingserrors.ReasonOverlap {
				t.Errorf("reason = %q", conflict.Reason)
			}
		})
	}
}

func TestCommit_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(f *fixture, req *model.BookingRequest)
		wantCode string
	}{
		{
			name:     "unpaid tenant",
			mutate:   func(f *fixture, req *model.BookingRequest) { f.tenant.Paid = false },
			wantCode: apperrors.CodePaymentRequired,
		},
		{
			name:     "deactivated tenant",
			mutate:   func(f *fixture, req *model.BookingRequest) { f.tenant.Active = false },
			wantCode: apperrors.CodePaymentRequired,
		},
		{
			name:     "inactive service",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.ServiceIDs = []string{"perm"} },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "unknown service",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.ServiceIDs = []string{"cut", "nails"} },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "no services",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.ServiceIDs = nil },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "date in the past",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.Date = "2024-05-27" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "too far ahead",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.Date = "2024-12-02" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "outside opening hours",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.Start = "16:45" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "closed weekday",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.Date = "2024-06-11" },
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "invalid phone",
			mutate:   func(f *fixture, req *model.BookingRequest) { req.CustomerPhone = "12" },
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := request("09:00", "cut")
			tt.mutate(f, req)

			_, err := f.service.Commit(context.Background(), "t1", req)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("got %v, want code %s", err, tt.wantCode)
			}
			if got, _ := f.store.List(context.Background(), "t1", model.BookingFilter{}, 0, 0); len(got) != 0 {
				t.Errorf("rejected commit stored %d bookings", len(got))
			}
		})
	}
}

func TestChangeStatus(t *testing.T) {
	tests := []struct {
		name     string
		first    config.BookingStatus
		second   config.BookingStatus
		wantCode string
	}{
		{name: "complete", first: config.Completed},
		{name: "no-show", first: config.NoShow},
		{name: "cancel then complete", first: config.Cancelled, second: config.Completed, wantCode: apperrors.CodeConflict},
		{name: "complete twice", first: config.Completed, second: config.Completed, wantCode: apperrors.CodeConflict},
		{name: "back to scheduled", first: config.Scheduled, wantCode: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			receipt, err := f.service.Commit(ctx, "t1", request("09:00", "cut"))
			if err != nil {
				t.Fatalf("Commit() error = %v", err)
			}
			id := receipt.Booking.ID

			updated, err := f.service.ChangeStatus(ctx, "t1", id, tt.first)
			if tt.second == "" {
				if tt.wantCode != "" {
					if !apperrors.HasCode(err, tt.wantCode) {
						t.Fatalf("got %v, want code %s", err, tt.wantCode)
					}
					return
				}
				if err != nil || updated.Status != tt.first {
					t.Fatalf("ChangeStatus() = %+v, %v", updated, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("first ChangeStatus() error = %v", err)
			}
			_, err = f.service.ChangeStatus(ctx, "t1", id, tt.second)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Fatalf("got %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestCancelByToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	receipt, err := f.service.Commit(ctx, "t1", request("09:00", "cut"))
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	cancelled, err := f.service.CancelByToken(ctx, receipt.ManageToken)
	if err != nil {
		t.Fatalf("CancelByToken() error = %v", err)
	}
	if cancelled.Status != config.Cancelled {
		t.Errorf("status = %s", cancelled.Status)
	}

	if _, err := f.service.CancelByToken(ctx, receipt.ManageToken); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Errorf("second cancel: got %v, want conflict", err)
	}
	if _, err := f.service.CancelByToken(ctx, "not-a-token"); !apperrors.HasCode(err, apperrors.CodeNotFound) {
		t.Errorf("bad token: got %v, want not found", err)
	}

	if _, err := f.service.Commit(ctx, "t1", request("09:00", "cut")); err != nil {
		t.Errorf("cancelled slot should be bookable again: %v", err)
	}
}

func TestDailyOverview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, start := range []string{"09:00", "10:00", "11:00"} {
		receipt, err := f.service.Commit(ctx, "t1", request(start, "cut", "beard"))
		if err != nil {
			t.Fatalf("Commit(%s) error = %v", start, err)
		}
		ids = append(ids, receipt.Booking.ID)
	}
	if _, err := f.service.ChangeStatus(ctx, "t1", ids[0], config.Cancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := f.service.ChangeStatus(ctx, "t1", ids[1], config.Completed); err != nil {
		t.Fatalf("complete: %v", err)
	}

	overview, err := f.service.DailyOverview(ctx, "t1", "2024-06-10")
	if err != nil {
		t.Fatalf("DailyOverview() error = %v", err)
	}
	if overview.Total != 3 || overview.ByStatus[config.Cancelled] != 1 || overview.ByStatus[config.Scheduled] != 1 {
		t.Errorf("counts = %+v", overview)
	}
	if !overview.Revenue.Equal(decimal.RequireFromString("75.00")) {
		t.Errorf("revenue = %s, want 75.00", overview.Revenue)
	}
}

func TestList_RejectsBadFilter(t *testing.T) {
	f := newFixture(t)

	tests := []model.BookingFilter{
		{From: "2024-13-01"},
		{From: "2024-06-10", To: "2024-06-01"},
		{Status: "pending"},
	}
	for _, filter := range tests {
		if _, _, err := f.service.List(context.Background(), "t1", filter, 10, 0); !apperrors.HasCode(err, apperrors.CodeValidation) {
			t.Errorf("filter %+v: got %v", filter, err)
		}
	}
}
