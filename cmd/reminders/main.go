package main

import (
	"context"
	bookingrepo "slotbook/internal/bookings/repository"
	creditrepo "slotbook/internal/credits/repository"
	creditservice "slotbook/internal/credits/service"
	"slotbook/internal/notifications"
	"slotbook/internal/reminders/handler"
	"slotbook/internal/reminders/repository"
	"slotbook/internal/reminders/scheduler"
	"slotbook/internal/reminders/service"
	"slotbook/internal/reminders/templates"
	tenantrepo "slotbook/internal/tenants/repository"
	"slotbook/pkg/app"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"slotbook/pkg/validation"
)

const ServiceName = "reminders"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	if cfg.CreditsStore == config.CreditsStorePostgres {
		cfg.SetPostgres()
	}

	cfg.Log.Info("Starting Reminders service", "driver", cfg.NotificationDriver)
	serverApp := app.NewApplication(cfg)

	catalog, err := templates.Load(cfg.ReminderTemplateLocale)
	if err != nil {
		cfg.Log.Fatal("Failed to load reminder templates", "error", err)
	}

	dispatcher, err := notifications.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification dispatcher", "error", err)
	}
	serverApp.OnShutdown(dispatcher.Close)

	events, err := serverApp.EventPublisher(cfg.Kafka.TopicReminderEvents)
	if err != nil {
		cfg.Log.Fatal("Failed to create reminder event publisher", "error", err)
	}

	tenants := tenantrepo.NewMongoTenantRepository(cfg)
	policies := repository.NewMongoPolicyRepository(cfg)
	dispatches := repository.NewMongoDispatchStore(cfg)
	validate := validation.New(cfg.Log)
	credits := creditservice.NewCreditService(creditrepo.NewCreditStore(cfg), tenants, validate, cfg)

	reminderScheduler := scheduler.New(
		bookingrepo.NewMongoBookingRepository(cfg),
		tenants,
		policies,
		dispatches,
		credits,
		dispatcher,
		events,
		catalog,
		scheduler.NewMetrics(serverApp.Registry()),
		clock.System,
		cfg,
	)
	serverApp.AddRunner("reminder-scheduler", func(ctx context.Context) error {
		reminderScheduler.Run(ctx, cfg.ReminderScanInterval)
		return nil
	})

	policyService := service.NewPolicyService(policies, dispatches, tenants, catalog, validate, cfg)
	cfg.Log.Info("Reminder services initialized", "locales", catalog.Locales(), "workers", cfg.ReminderDispatchWorkers)

	serverApp.SetApp(handler.NewReminderHandler(policyService, cfg.Log))
	serverApp.Run()
}
