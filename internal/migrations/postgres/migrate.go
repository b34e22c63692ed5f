package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"slotbook/pkg/db/postgres"
	"slotbook/pkg/logger"

	"github.com/jackc/pgx/v5"
)

//go:embed sql/*.sql
var scripts embed.FS

const historyTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// Scripts returns the embedded migration file names in apply order.
func Scripts() ([]string, error) {
	names, err := fs.Glob(scripts, "sql/*.sql")
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// Run applies every script not yet recorded in schema_migrations, each in its
// own transaction.
func Run(ctx context.Context, db postgres.PgxIface, log *logger.Logger) error {
	if _, err := db.Exec(ctx, historyTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := Scripts()
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	applied := 0
	for _, name := range names {
		body, err := scripts.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		ran := false
		err = postgres.WithTx(ctx, db, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			if _, err := tx.Exec(ctx, string(body)); err != nil {
				return err
			}
			ran = true
			return nil
		})
		if err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if ran {
			applied++
			log.Info("Applied Postgres migration", "name", name)
		}
	}

	log.Info("Postgres migrations up to date", "applied", applied, "total", len(names))
	return nil
}
