package repository

import (
	"context"
	"errors"
	"fmt"
	"slotbook/pkg/config"
	"slotbook/pkg/db/postgres"
	"slotbook/pkg/model"
	"time"

	"github.com/jackc/pgx/v5"
)

type postgresCreditStore struct {
	cfg *config.Config
	db  postgres.PgxIface
}

func NewPostgresCreditStore(cfg *config.Config) CreditStore {
	return &postgresCreditStore{cfg: cfg, db: cfg.Client.Postgres}
}

func (s *postgresCreditStore) Balance(ctx context.Context, tenantID string) (*model.CreditBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	balance := model.CreditBalance{TenantID: tenantID}
	err := s.db.QueryRow(ctx, `
		SELECT whatsapp_credits, sms_credits, email_quota, email_used, updated_at
		FROM credit_balances
		WHERE tenant_id = $1`, tenantID,
	).Scan(&balance.WhatsAppCredits, &balance.SMSCredits, &balance.EmailQuota, &balance.EmailUsed, &balance.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &balance, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit balance: %w", err)
	}
	return &balance, nil
}

func (s *postgresCreditStore) TryDebit(ctx context.Context, tenantID string, channel config.Channel, count int64) (bool, error) {
	field, err := balanceField(channel)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	// field comes from a closed set, never from input
	query := fmt.Sprintf(`
		UPDATE credit_balances
		SET %[1]s = %[1]s - $2, updated_at = now()
		WHERE tenant_id = $1 AND %[1]s >= $2`, field)
	if channel == config.Email {
		query = `
		UPDATE credit_balances
		SET email_used = email_used + $2, updated_at = now()
		WHERE tenant_id = $1 AND email_used + $2 <= email_quota`
	}

	tag, err := s.db.Exec(ctx, query, tenantID, count)
	if err != nil {
		return false, fmt.Errorf("failed to debit %s credits: %w", channel, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *postgresCreditStore) TopUp(ctx context.Context, tenantID string, channel config.Channel, amount int64, paymentRef string) (bool, error) {
	field, err := topUpField(channel)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	applied := false
	err = postgres.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO credit_movements (tenant_id, channel, amount, kind, payment_ref, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (payment_ref) DO NOTHING`,
			tenantID, string(channel), amount, string(model.MovementTopUp), paymentRef, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to record credit movement: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		query := fmt.Sprintf(`
			INSERT INTO credit_balances (tenant_id, %[1]s, updated_at)
			VALUES ($1, $2, now())
			ON CONFLICT (tenant_id) DO UPDATE
			SET %[1]s = credit_balances.%[1]s + EXCLUDED.%[1]s, updated_at = now()`, field)
		if _, err := tx.Exec(ctx, query, tenantID, amount); err != nil {
			return fmt.Errorf("failed to top up %s credits: %w", channel, err)
		}
		applied = true
		return nil
	})
	if postgres.IsUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *postgresCreditStore) Movements(ctx context.Context, tenantID string, limit int) ([]*model.CreditMovement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, `
		SELECT id::text, tenant_id, channel, amount, kind, payment_ref, created_at
		FROM credit_movements
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find credit movements: %w", err)
	}
	defer rows.Close()

	var movements []*model.CreditMovement
	for rows.Next() {
		var m model.CreditMovement
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Channel, &m.Amount, &m.Kind, &m.PaymentRef, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credit movement: %w", err)
		}
		movements = append(movements, &m)
	}
	return movements, rows.Err()
}
