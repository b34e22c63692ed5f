package main

import (
	"context"
	"slotbook/internal/migrations"
	"slotbook/pkg/config"
	"time"
)

const JobName = "migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	if cfg.CreditsStore == config.CreditsStorePostgres {
		cfg.SetPostgres()
	}

	cfg.Log.Info("Starting migration job", "database", cfg.MongoDatabaseName, "credits_store", cfg.CreditsStore)
	err := migrations.Run(ctx, cfg)
	cfg.GracefulShutdown()
	if err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}
	cfg.Log.Info("Migration completed successfully")
}
