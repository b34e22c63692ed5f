package migrations

import (
	"context"
	"fmt"
	mongomigration "slotbook/internal/migrations/mongo"
	postgresmigration "slotbook/internal/migrations/postgres"
	"slotbook/pkg/config"
)

// Run migrates the Mongo database and, when credits live there, Postgres.
// The matching clients must already be connected on cfg.
func Run(ctx context.Context, cfg *config.Config) error {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	if err := mongomigration.RunMigration(ctx, db, cfg.Log); err != nil {
		return fmt.Errorf("mongo migration: %w", err)
	}

	if cfg.CreditsStore != config.CreditsStorePostgres {
		return nil
	}
	if err := postgresmigration.Run(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
		return fmt.Errorf("postgres migration: %w", err)
	}
	return nil
}
