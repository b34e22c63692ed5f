package repository

import (
	"context"
	"fmt"
	creditserrors "slotbook/internal/credits/errors"
	"slotbook/pkg/config"
	"slotbook/pkg/model"
)

// CreditStore keeps per tenant message balances. TryDebit is a single
// conditional update; TopUp applies each payment reference at most once.
type CreditStore interface {
	Balance(ctx context.Context, tenantID string) (*model.CreditBalance, error)
	TryDebit(ctx context.Context, tenantID string, channel config.Channel, count int64) (bool, error)
	TopUp(ctx context.Context, tenantID string, channel config.Channel, amount int64, paymentRef string) (bool, error)
	Movements(ctx context.Context, tenantID string, limit int) ([]*model.CreditMovement, error)
}

// NewCreditStore picks the backend named by CreditsStore.
func NewCreditStore(cfg *config.Config) CreditStore {
	if cfg.CreditsStore == config.CreditsStorePostgres {
		return NewPostgresCreditStore(cfg)
	}
	return NewMongoCreditStore(cfg)
}

// balanceField is the counter a debit moves for each channel. Email debits
// grow email_used; top ups grow email_quota.
func balanceField(channel config.Channel) (string, error) {
	switch channel {
	case config.SMS:
		return "sms_credits", nil
	case config.WhatsApp:
		return "whatsapp_credits", nil
	case config.Email:
		return "email_used", nil
	}
	return "", fmt.Errorf("%w: %s", creditserrors.ErrUnknownChannel, channel)
}

func topUpField(channel config.Channel) (string, error) {
	if channel == config.Email {
		return "email_quota", nil
	}
	return balanceField(channel)
}
