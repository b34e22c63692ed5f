package service

import (
	"context"
	"errors"
	creditserrors "slotbook/internal/credits/errors"
	"slotbook/pkg/auth"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"slotbook/pkg/validation"
	"sync"
	"testing"
)

type memoryStore struct {
	mu       sync.Mutex
	balances map[string]*model.CreditBalance
	refs     map[string]bool
	failWith error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{balances: map[string]*model.CreditBalance{}, refs: map[string]bool{}}
}

func (m *memoryStore) balance(tenantID string) *model.CreditBalance {
	b, ok := m.balances[tenantID]
	if !ok {
		b = &model.CreditBalance{TenantID: tenantID}
		m.balances[tenantID] = b
	}
	return b
}

func (m *memoryStore) Balance(ctx context.Context, tenantID string) (*model.CreditBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *m.balance(tenantID)
	return &copied, nil
}

func (m *memoryStore) TryDebit(ctx context.Context, tenantID string, channel config.Channel, count int64) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balance(tenantID)
	if b.Available(channel) < count {
		return false, nil
	}
	switch channel {
	case config.SMS:
		b.SMSCredits -= count
	case config.WhatsApp:
		b.WhatsAppCredits -= count
	case config.Email:
		b.EmailUsed += count
	}
	return true, nil
}

func (m *memoryStore) TopUp(ctx context.Context, tenantID string, channel config.Channel, amount int64, paymentRef string) (bool, error) {
	if m.failWith != nil {
		return false, m.failWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refs[paymentRef] {
		return false, nil
	}
	m.refs[paymentRef] = true
	b := m.balance(tenantID)
	switch channel {
	case config.SMS:
		b.SMSCredits += amount
	case config.WhatsApp:
		b.WhatsAppCredits += amount
	case config.Email:
		b.EmailQuota += amount
	}
	return true, nil
}

func (m *memoryStore) Movements(ctx context.Context, tenantID string, limit int) ([]*model.CreditMovement, error) {
	return nil, nil
}

type fakeTenants struct {
	paid map[string]bool
	err  error
}

func (f *fakeTenants) SetPaid(ctx context.Context, id string, paid bool) error {
	if f.err != nil {
		return f.err
	}
	f.paid[id] = paid
	return nil
}

func newTestService(store *memoryStore, tenants *fakeTenants) CreditService {
	log := logger.Discard()
	if tenants == nil {
		tenants = &fakeTenants{paid: map[string]bool{}}
	}
	return NewCreditService(store, tenants, validation.New(log), &config.Config{Log: log})
}

func TestTopUp_IsIdempotentPerPaymentRef(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	first, err := svc.TopUp(ctx, "t1", &model.TopUpRequest{Channel: "WhatsApp", Amount: 100, PaymentRef: "pay_1"})
	if err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	if !first.Applied || first.Balance.WhatsAppCredits != 100 {
		t.Fatalf("first top up = %+v, want applied with 100 credits", first)
	}

	again, err := svc.TopUp(ctx, "t1", &model.TopUpRequest{Channel: "whatsapp", Amount: 100, PaymentRef: " pay_1 "})
	if err != nil {
		t.Fatalf("TopUp replay: %v", err)
	}
	if again.Applied {
		t.Error("replayed payment reported as applied")
	}
	if again.Balance.WhatsAppCredits != 100 {
		t.Errorf("balance after replay = %d, want 100", again.Balance.WhatsAppCredits)
	}
}

func TestTopUp_Rejections(t *testing.T) {
	owner := auth.WithPrincipal(auth.WithEnforcement(context.Background()), &auth.Claims{TenantID: "t1", Role: auth.RoleOwner})

	tests := []struct {
		name     string
		ctx      context.Context
		req      model.TopUpRequest
		wantCode string
	}{
		{name: "owner may not top up", ctx: owner, req: model.TopUpRequest{Channel: "sms", Amount: 10, PaymentRef: "p"}, wantCode: apperrors.CodeForbidden},
		{name: "zero amount", ctx: context.Background(), req: model.TopUpRequest{Channel: "sms", Amount: 0, PaymentRef: "p"}, wantCode: apperrors.CodeValidation},
		{name: "unknown channel", ctx: context.Background(), req: model.TopUpRequest{Channel: "fax", Amount: 10, PaymentRef: "p"}, wantCode: apperrors.CodeValidation},
		{name: "missing reference", ctx: context.Background(), req: model.TopUpRequest{Channel: "sms", Amount: 10}, wantCode: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(newMemoryStore(), nil)
			req := tt.req
			_, err := svc.TopUp(tt.ctx, "t1", &req)
			if !apperrors.HasCode(err, tt.wantCode) {
				t.Errorf("TopUp() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestDebit(t *testing.T) {
	tests := []struct {
		name      string
		channel   config.Channel
		count     int64
		wantErr   bool
		wantAfter int64
	}{
		{name: "within balance", channel: config.SMS, count: 3, wantAfter: 2},
		{name: "exact balance", channel: config.SMS, count: 5, wantAfter: 0},
		{name: "over balance", channel: config.SMS, count: 6, wantErr: true, wantAfter: 5},
		{name: "email within quota", channel: config.Email, count: 2, wantAfter: 2},
		{name: "email over quota", channel: config.Email, count: 3, wantErr: true, wantAfter: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			store.balances["t1"] = &model.CreditBalance{TenantID: "t1", SMSCredits: 5, EmailQuota: 2}
			svc := newTestService(store, nil)

			_, err := svc.Debit(context.Background(), "t1", &model.DebitRequest{Channel: tt.channel, Count: tt.count})
			if tt.wantErr {
				if !apperrors.HasCode(err, apperrors.CodeInsufficientCredit) {
					t.Fatalf("Debit() error = %v, want INSUFFICIENT_CREDIT", err)
				}
				var insufficient *creditserrors.InsufficientCreditError
				if !errors.As(err, &insufficient) {
					t.Fatalf("error %v does not carry InsufficientCreditError", err)
				}
				if insufficient.Requested != tt.count {
					t.Errorf("Requested = %d, want %d", insufficient.Requested, tt.count)
				}
			} else if err != nil {
				t.Fatalf("Debit() error = %v", err)
			}

			b := store.balances["t1"]
			got := b.SMSCredits
			if tt.channel == config.Email {
				got = b.EmailUsed
			}
			if got != tt.wantAfter {
				t.Errorf("counter after debit = %d, want %d", got, tt.wantAfter)
			}
		})
	}
}

func TestDebit_NeverGoesNegativeUnderConcurrency(t *testing.T) {
	store := newMemoryStore()
	store.balances["t1"] = &model.CreditBalance{TenantID: "t1", WhatsAppCredits: 10}
	svc := newTestService(store, nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.TryDebit(context.Background(), "t1", config.WhatsApp, 1)
			if err != nil {
				t.Errorf("TryDebit: %v", err)
				return
			}
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 10 {
		t.Errorf("successful debits = %d, want 10", successes)
	}
	if got := store.balances["t1"].WhatsAppCredits; got != 0 {
		t.Errorf("balance = %d, want 0", got)
	}
}

func TestTryDebit_RejectsNonPositiveCount(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)
	if _, err := svc.TryDebit(context.Background(), "t1", config.SMS, 0); !errors.Is(err, creditserrors.ErrInvalidAmount) {
		t.Errorf("TryDebit(0) error = %v, want ErrInvalidAmount", err)
	}
}

func TestApplyPayment(t *testing.T) {
	tests := []struct {
		name     string
		event    model.PaymentEvent
		wantPaid *bool
		wantSMS  int64
		wantCode string
	}{
		{
			name:     "subscription activated",
			event:    model.PaymentEvent{Type: model.EventSubscriptionActivated, TenantID: "t1", PaymentRef: "sub_1"},
			wantPaid: ptr(true),
		},
		{
			name:     "subscription cancelled",
			event:    model.PaymentEvent{Type: model.EventSubscriptionCancelled, TenantID: "t1", PaymentRef: "sub_2"},
			wantPaid: ptr(false),
		},
		{
			name:    "credits purchased",
			event:   model.PaymentEvent{Type: model.EventCreditsPurchased, TenantID: "t1", PaymentRef: "pay_9", Channel: "SMS", Amount: 50},
			wantSMS: 50,
		},
		{
			name:     "purchase without amount",
			event:    model.PaymentEvent{Type: model.EventCreditsPurchased, TenantID: "t1", PaymentRef: "pay_9", Channel: "sms"},
			wantCode: apperrors.CodeValidation,
		},
		{
			name:     "unknown type",
			event:    model.PaymentEvent{Type: "refund.issued", TenantID: "t1", PaymentRef: "r"},
			wantCode: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			tenants := &fakeTenants{paid: map[string]bool{}}
			svc := newTestService(store, tenants)

			event := tt.event
			err := svc.ApplyPayment(context.Background(), &event)
			if tt.wantCode != "" {
				if !apperrors.HasCode(err, tt.wantCode) {
					t.Fatalf("ApplyPayment() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyPayment() error = %v", err)
			}
			if tt.wantPaid != nil {
				if paid, ok := tenants.paid["t1"]; !ok || paid != *tt.wantPaid {
					t.Errorf("paid = %v (set %v), want %v", paid, ok, *tt.wantPaid)
				}
			}
			if got := store.balance("t1").SMSCredits; got != tt.wantSMS {
				t.Errorf("sms credits = %d, want %d", got, tt.wantSMS)
			}
		})
	}
}

func TestBalance_ZeroForUnknownTenant(t *testing.T) {
	svc := newTestService(newMemoryStore(), nil)
	b, err := svc.Balance(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.WhatsAppCredits != 0 || b.SMSCredits != 0 || b.Available(config.Email) != 0 {
		t.Errorf("balance = %+v, want zero", b)
	}
}

func ptr[T any](v T) *T { return &v }
