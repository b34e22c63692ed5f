package scheduler

import (
	"context"
	"errors"
	creditserrors "slotbook/internal/credits/errors"
	"slotbook/internal/notifications"
	remindererrors "slotbook/internal/reminders/errors"
	"slotbook/internal/reminders/repository"
	"slotbook/internal/reminders/service"
	"slotbook/internal/reminders/templates"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"slotbook/pkg/kafka"
	"slotbook/pkg/locale"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// StateDuplicate covers keys already sent or held by another scan.
	StateDuplicate config.ReminderState = "duplicate"
	// StateError covers store failures; the key is retried next scan.
	StateError config.ReminderState = "error"
)

type BookingSource interface {
	Upcoming(ctx context.Context, from, to time.Time, afterID string, limit int) ([]*model.Booking, error)
}

type TenantSource interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
}

type CreditDebiter interface {
	TryDebit(ctx context.Context, tenantID string, channel config.Channel, count int64) (bool, error)
}

// Result counts the outcome of every due (booking, slot, channel) in a scan.
type Result struct {
	Bookings int                          `json:"bookings"`
	Due      int                          `json:"due"`
	Outcomes map[config.ReminderState]int `json:"outcomes"`
}

type attempt struct {
	key      model.DispatchKey
	booking  *model.Booking
	tenant   *model.Tenant
	template model.ChannelTemplate
	target   string
}

type Scheduler struct {
	bookings   BookingSource
	tenants    TenantSource
	policies   repository.PolicyRepository
	dispatches repository.DispatchStore
	credits    CreditDebiter
	dispatcher notifications.Dispatcher
	events     kafka.EventPublisher
	catalog    *templates.Catalog
	metrics    *Metrics
	clock      clock.Clock
	owner      string
	cfg        *config.Config
}

func New(
	bookings BookingSource,
	tenants TenantSource,
	policies repository.PolicyRepository,
	dispatches repository.DispatchStore,
	credits CreditDebiter,
	dispatcher notifications.Dispatcher,
	events kafka.EventPublisher,
	catalog *templates.Catalog,
	metrics *Metrics,
	clk clock.Clock,
	cfg *config.Config,
) *Scheduler {
	return &Scheduler{
		bookings:   bookings,
		tenants:    tenants,
		policies:   policies,
		dispatches: dispatches,
		credits:    credits,
		dispatcher: dispatcher,
		events:     events,
		catalog:    catalog,
		metrics:    metrics,
		clock:      clk,
		owner:      uuid.NewString(),
		cfg:        cfg,
	}
}

// Scan dispatches every reminder due now. Bookings in the lookahead window are
// read in pages of ReminderBatchSize until the window is exhausted. Cancelling
// ctx stops new attempts; attempts already started finish on a detached context.
func (s *Scheduler) Scan(ctx context.Context) (*Result, error) {
	started := time.Now()
	now := s.clock.Now()
	result := &Result{Outcomes: map[config.ReminderState]int{}}

	var mu sync.Mutex
	record := func(a attempt, state config.ReminderState) {
		mu.Lock()
		result.Outcomes[state]++
		mu.Unlock()
		s.metrics.outcome(a, string(state))
	}

	from, afterID, until := now, "", now.Add(s.cfg.ReminderLookahead)
	for ctx.Err() == nil {
		page, err := s.bookings.Upcoming(ctx, from, until, afterID, s.cfg.ReminderBatchSize)
		if err != nil {
			return nil, err
		}
		result.Bookings += len(page)

		if err := s.scanPage(ctx, page, now, result, record); err != nil {
			return nil, err
		}

		if s.cfg.ReminderBatchSize <= 0 || len(page) < s.cfg.ReminderBatchSize {
			break
		}
		last := page[len(page)-1]
		from, afterID = last.StartsAt, last.ID
	}

	s.metrics.scanned(started)
	s.cfg.Log.Info("Reminder scan finished",
		"bookings", result.Bookings,
		"due", result.Due,
		"sent", result.Outcomes[config.Sent],
		"skipped_no_credit", result.Outcomes[config.SkippedNoCredit],
		"failed", result.Outcomes[config.DispatchAttempted],
		"duration", time.Since(started),
	)
	return result, ctx.Err()
}

func (s *Scheduler) scanPage(ctx context.Context, bookings []*model.Booking, now time.Time, result *Result, record func(attempt, config.ReminderState)) error {
	if len(bookings) == 0 {
		return nil
	}
	attempts, skipped, err := s.plan(ctx, bookings, now)
	if err != nil {
		return err
	}
	for _, a := range skipped {
		record(a, config.SkippedDisabled)
	}
	result.Due += len(attempts) + len(skipped)

	detached := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	g.SetLimit(max(1, s.cfg.ReminderDispatchWorkers))
	for _, a := range attempts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			record(a, s.dispatch(detached, a))
			return nil
		})
	}
	return g.Wait()
}

// plan expands bookings into due attempts and due-but-disabled keys.
func (s *Scheduler) plan(ctx context.Context, bookings []*model.Booking, now time.Time) ([]attempt, []attempt, error) {
	tenantIDs := make([]string, 0)
	seen := map[string]bool{}
	for _, b := range bookings {
		if !seen[b.TenantID] {
			seen[b.TenantID] = true
			tenantIDs = append(tenantIDs, b.TenantID)
		}
	}

	stored, err := s.policies.FindMany(ctx, tenantIDs)
	if err != nil {
		return nil, nil, err
	}

	type tenantPlan struct {
		tenant *model.Tenant
		policy *model.ReminderPolicy
		loc    *time.Location
	}
	plans := make(map[string]*tenantPlan, len(tenantIDs))
	for _, id := range tenantIDs {
		tenant, err := s.tenants.FindByID(ctx, id)
		if err != nil {
			s.cfg.Log.Warn("Skipping reminders of unknown tenant", "tenant_id", id, "error", err)
			continue
		}
		if !tenant.IsPaid() {
			continue
		}
		policy := service.Resolve(stored[id], tenant, s.catalog, s.cfg.ReminderTemplateLocale)
		plans[id] = &tenantPlan{tenant: tenant, policy: policy, loc: s.location(policy, tenant)}
	}

	var due, disabled []attempt
	for _, b := range bookings {
		p, ok := plans[b.TenantID]
		if !ok || b.Status != config.Scheduled {
			continue
		}
		for _, slot := range []config.ReminderSlot{config.DayBefore, config.SameDay} {
			fire, err := FireTime(p.policy, slot, b, p.loc)
			if err != nil {
				s.cfg.Log.Warn("Cannot compute reminder time", "booking_id", b.ID, "slot", slot, "error", err)
				continue
			}
			if !Due(fire, b.StartsAt, now) {
				continue
			}
			channels := p.policy.Channels(slot)
			for _, channel := range config.Channels {
				a := attempt{
					key:     model.DispatchKey{BookingID: b.ID, Slot: slot, Channel: channel},
					booking: b,
					tenant:  p.tenant,
					target:  Target(channel, b),
				}
				tmpl := channels.For(channel)
				if !p.policy.SlotEnabled(slot) || tmpl == nil || !tmpl.Enabled || a.target == "" {
					disabled = append(disabled, a)
					continue
				}
				a.template = *tmpl
				due = append(due, a)
			}
		}
	}
	return due, disabled, nil
}

// location resolves the policy zone, then the tenant zone, then the platform
// default. A fallback is logged as a TimezoneParseError.
func (s *Scheduler) location(policy *model.ReminderPolicy, tenant *model.Tenant) *time.Location {
	loc, failed := locale.LoadLocation(policy.Timezone, tenant.Timezone, s.cfg.DefaultTimezone)
	if len(failed) > 0 {
		tzErr := &remindererrors.TimezoneParseError{TenantID: tenant.ID, Names: failed, Using: loc.String()}
		s.cfg.Log.Warn("Reminder timezone fallback", "tenant_id", tenant.ID, "error", tzErr)
	}
	return loc
}

// dispatch runs one attempt. The dispatch record is written only after the
// provider accepted the message; the credit is not refunded when it did not.
func (s *Scheduler) dispatch(ctx context.Context, a attempt) config.ReminderState {
	log := s.cfg.Log.ForTenant(a.tenant.ID).With("booking_id", a.key.BookingID, "slot", a.key.Slot, "channel", a.key.Channel)

	if sent, err := s.dispatches.Sent(ctx, a.key); err != nil {
		log.Error("Failed to check reminder dispatch", "error", err)
		return StateError
	} else if sent {
		return StateDuplicate
	}

	claimed, err := s.dispatches.Claim(ctx, a.key, a.tenant.ID, s.owner, s.cfg.ReminderClaimTTL)
	if err != nil {
		log.Error("Failed to claim reminder", "error", err)
		return StateError
	}
	if !claimed {
		return StateDuplicate
	}

	// another scan may have recorded the key and released its claim in between
	if sent, err := s.dispatches.Sent(ctx, a.key); err != nil || sent {
		s.release(ctx, a, log)
		if err != nil {
			log.Error("Failed to check reminder dispatch", "error", err)
			return StateError
		}
		return StateDuplicate
	}

	ok, err := s.credits.TryDebit(ctx, a.tenant.ID, a.key.Channel, 1)
	if err != nil {
		log.Error("Failed to debit reminder credit", "error", err)
		s.release(ctx, a, log)
		return StateError
	}
	if !ok {
		insufficient := &creditserrors.InsufficientCreditError{TenantID: a.tenant.ID, Channel: string(a.key.Channel), Requested: 1}
		log.Warn("Reminder skipped", "error", insufficient)
		if err := s.dispatches.MarkSkipped(ctx, a.key, s.owner); err != nil {
			log.Error("Failed to mark reminder skipped", "error", err)
		}
		return config.SkippedNoCredit
	}

	subject, body := templates.Render(a.template, templates.Vars{
		Customer: a.booking.CustomerName,
		Date:     a.booking.Date,
		Time:     a.booking.Start,
		Tenant:   a.tenant.Name,
	})

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.ReminderDispatchTimeout)
	sendStart := time.Now()
	sent, ref, err := s.dispatcher.Send(sendCtx, a.key.Channel, a.target, notifications.Message{Subject: subject, Body: body})
	cancel()
	s.metrics.sent(string(a.key.Channel), sendStart)
	if err != nil || !sent {
		var sendErr *notifications.ProviderSendError
		if err == nil || !errors.As(err, &sendErr) {
			sendErr = &notifications.ProviderSendError{Channel: a.key.Channel, Target: a.target, Err: err}
		}
		log.Warn("Reminder send failed", "error", sendErr)
		s.release(ctx, a, log)
		return config.DispatchAttempted
	}

	sentAt := s.clock.Now().UTC().Truncate(time.Millisecond)
	err = s.dispatches.Record(ctx, &model.ReminderDispatchRecord{
		DispatchKey: a.key,
		TenantID:    a.tenant.ID,
		Target:      a.target,
		ProviderRef: ref,
		SentAt:      sentAt,
	})
	switch {
	case err == nil || errors.Is(err, remindererrors.ErrAlreadySent):
		s.release(ctx, a, log)
	default:
		// the message went out, so the claim stays to block a second delivery
		log.Error("Failed to record reminder dispatch", "provider_ref", ref, "error", err)
		if err := s.dispatches.MarkSent(ctx, a.key, s.owner, ref); err != nil {
			log.Error("Failed to pin reminder claim", "provider_ref", ref, "error", err)
		}
	}

	if err := s.events.PublishEvent(ctx, a.tenant.ID, model.EventReminderSent, model.ReminderSentEvent{
		TenantID:    a.tenant.ID,
		BookingID:   a.key.BookingID,
		Slot:        a.key.Slot,
		Channel:     a.key.Channel,
		ProviderRef: ref,
		SentAt:      sentAt,
	}); err != nil {
		log.Warn("Failed to publish reminder event", "error", err)
	}

	log.Info("Reminder sent", "provider_ref", ref)
	return config.Sent
}

func (s *Scheduler) release(ctx context.Context, a attempt, log *logger.Logger) {
	if err := s.dispatches.Release(ctx, a.key, s.owner); err != nil {
		log.Error("Failed to release reminder claim", "error", err)
	}
}
