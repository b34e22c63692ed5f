package service

import (
	"context"
	"errors"
	creditserrors "slotbook/internal/credits/errors"
	"slotbook/internal/credits/repository"
	"slotbook/pkg/auth"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/model"
	"slotbook/pkg/validation"
	"strings"

	"github.com/go-playground/validator/v10"
)

// TenantActivator flips the paid flag when a subscription starts or ends.
type TenantActivator interface {
	SetPaid(ctx context.Context, id string, paid bool) error
}

type CreditService interface {
	Balance(ctx context.Context, tenantID string) (*model.CreditBalance, error)
	Movements(ctx context.Context, tenantID string, limit int) ([]*model.CreditMovement, error)
	TopUp(ctx context.Context, tenantID string, req *model.TopUpRequest) (*model.TopUpResult, error)
	Debit(ctx context.Context, tenantID string, req *model.DebitRequest) (*model.CreditBalance, error)
	TryDebit(ctx context.Context, tenantID string, channel config.Channel, count int64) (bool, error)
	ApplyPayment(ctx context.Context, event *model.PaymentEvent) error
}

type creditService struct {
	store    repository.CreditStore
	tenants  TenantActivator
	validate *validator.Validate
	cfg      *config.Config
}

func NewCreditService(store repository.CreditStore, tenants TenantActivator, validate *validator.Validate, cfg *config.Config) CreditService {
	return &creditService{
		store:    store,
		tenants:  tenants,
		validate: validate,
		cfg:      cfg,
	}
}

// Balance reports a zero balance for tenants that never bought credits.
func (s *creditService) Balance(ctx context.Context, tenantID string) (*model.CreditBalance, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	balance, err := s.store.Balance(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Error("Failed to read credit balance", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve credit balance", err)
	}
	return balance, nil
}

func (s *creditService) Movements(ctx context.Context, tenantID string, limit int) ([]*model.CreditMovement, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	movements, err := s.store.Movements(ctx, tenantID, config.NormalizePaginationLimit(limit))
	if err != nil {
		s.cfg.Log.Error("Failed to list credit movements", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve credit movements", err)
	}
	return movements, nil
}

// TopUp adds purchased credits. Replaying a payment reference leaves the
// balance unchanged and reports Applied=false.
func (s *creditService) TopUp(ctx context.Context, tenantID string, req *model.TopUpRequest) (*model.TopUpResult, error) {
	if err := auth.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	req.Channel = config.Channel(strings.ToLower(strings.TrimSpace(string(req.Channel))))
	req.PaymentRef = strings.TrimSpace(req.PaymentRef)
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, validation.ToAppError(err)
	}

	applied, err := s.store.TopUp(ctx, tenantID, req.Channel, req.Amount, req.PaymentRef)
	if err != nil {
		s.cfg.Log.Error("Failed to top up credits",
			"tenant_id", tenantID,
			"channel", req.Channel,
			"payment_ref", req.PaymentRef,
			"error", err,
		)
		return nil, mapStoreError(err, "Failed to top up credits")
	}
	if applied {
		s.cfg.Log.Info("Credits topped up",
			"tenant_id", tenantID,
			"channel", req.Channel,
			"amount", req.Amount,
			"payment_ref", req.PaymentRef,
		)
	} else {
		s.cfg.Log.Info("Duplicate credit top up ignored", "tenant_id", tenantID, "payment_ref", req.PaymentRef)
	}

	balance, err := s.store.Balance(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve credit balance", err)
	}
	return &model.TopUpResult{Balance: balance, Applied: applied}, nil
}

// Debit consumes count units or fails with 402 without touching the balance.
func (s *creditService) Debit(ctx context.Context, tenantID string, req *model.DebitRequest) (*model.CreditBalance, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	req.Channel = config.Channel(strings.ToLower(strings.TrimSpace(string(req.Channel))))
	if err := validation.Struct(s.validate, req); err != nil {
		return nil, validation.ToAppError(err)
	}

	ok, err := s.store.TryDebit(ctx, tenantID, req.Channel, req.Count)
	if err != nil {
		s.cfg.Log.Error("Failed to debit credits", "tenant_id", tenantID, "channel", req.Channel, "error", err)
		return nil, mapStoreError(err, "Failed to debit credits")
	}

	balance, err := s.store.Balance(ctx, tenantID)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve credit balance", err)
	}
	if !ok {
		insufficient := &creditserrors.InsufficientCreditError{
			TenantID:  tenantID,
			Channel:   string(req.Channel),
			Requested: req.Count,
			Available: max(0, balance.Available(req.Channel)),
		}
		s.cfg.Log.Warn("Insufficient credits", "tenant_id", tenantID, "channel", req.Channel, "requested", req.Count)
		return nil, apperrors.InsufficientCredit(insufficient.Error()).
			WithDetails(map[string]any{
				"channel":   insufficient.Channel,
				"requested": insufficient.Requested,
				"available": insufficient.Available,
			}).
			WithCause(insufficient)
	}
	return balance, nil
}

// TryDebit is the scheduler's entry point: no authorization, no error for an
// empty balance.
func (s *creditService) TryDebit(ctx context.Context, tenantID string, channel config.Channel, count int64) (bool, error) {
	if count <= 0 {
		return false, creditserrors.ErrInvalidAmount
	}
	return s.store.TryDebit(ctx, tenantID, channel, count)
}

// ApplyPayment handles a provider event. Subscription events toggle the
// tenant's paid flag; purchases top up credits keyed by the payment reference.
func (s *creditService) ApplyPayment(ctx context.Context, event *model.PaymentEvent) error {
	event.Type = strings.TrimSpace(event.Type)
	event.TenantID = strings.TrimSpace(event.TenantID)
	event.Channel = config.Channel(strings.ToLower(strings.TrimSpace(string(event.Channel))))
	if err := validation.Struct(s.validate, event); err != nil {
		return validation.ToAppError(err)
	}

	switch event.Type {
	case model.EventSubscriptionActivated, model.EventSubscriptionCancelled:
		paid := event.Type == model.EventSubscriptionActivated
		if err := s.tenants.SetPaid(ctx, event.TenantID, paid); err != nil {
			return err
		}
		s.cfg.Log.Info("Subscription payment applied",
			"tenant_id", event.TenantID,
			"type", event.Type,
			"payment_ref", event.PaymentRef,
		)
		return nil
	default:
		_, err := s.TopUp(ctx, event.TenantID, &model.TopUpRequest{
			Channel:    event.Channel,
			Amount:     event.Amount,
			PaymentRef: event.PaymentRef,
		})
		return err
	}
}

func mapStoreError(err error, message string) error {
	if errors.Is(err, creditserrors.ErrUnknownChannel) {
		return apperrors.InvalidInput(err.Error())
	}
	return apperrors.Internal(message, err)
}
