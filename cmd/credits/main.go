package main

import (
	"slotbook/internal/credits/consumer"
	"slotbook/internal/credits/handler"
	"slotbook/internal/credits/repository"
	"slotbook/internal/credits/service"
	tenantrepo "slotbook/internal/tenants/repository"
	"slotbook/pkg/app"
	"slotbook/pkg/config"
	"slotbook/pkg/validation"
)

const ServiceName = "credits"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.CreditsStore == config.CreditsStorePostgres {
		cfg.SetPostgres()
	}

	cfg.Log.Info("Starting Credits service", "store", cfg.CreditsStore)
	serverApp := app.NewApplication(cfg)

	creditService := service.NewCreditService(
		repository.NewCreditStore(cfg),
		tenantrepo.NewMongoTenantRepository(cfg),
		validation.New(cfg.Log),
		cfg,
	)

	if cfg.EventsEnabled {
		payments := consumer.PaymentsHandler(creditService, cfg.Log)
		if err := serverApp.AddConsumer(cfg.Kafka.TopicPaymentEvents, cfg.Kafka.CreditsGroupID, payments); err != nil {
			cfg.Log.Fatal("Failed to create payments consumer", "error", err)
		}
	}

	serverApp.SetApp(handler.NewCreditHandler(creditService, cfg.PaymentWebhookSecret, cfg.Log))
	serverApp.Run()
}
