package main

import (
	availabilityrepo "slotbook/internal/availability/repository"
	"slotbook/internal/bookings/handler"
	"slotbook/internal/bookings/repository"
	"slotbook/internal/bookings/service"
	catalogrepo "slotbook/internal/catalog/repository"
	slothandler "slotbook/internal/slots/handler"
	slotservice "slotbook/internal/slots/service"
	tenantrepo "slotbook/internal/tenants/repository"
	"slotbook/pkg/app"
	"slotbook/pkg/clock"
	"slotbook/pkg/config"
	"slotbook/pkg/middleware"
	"slotbook/pkg/sealer"
	"slotbook/pkg/validation"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	tenants := tenantrepo.NewMongoTenantRepository(cfg)
	services := catalogrepo.NewMongoServiceOfferingRepository(cfg)
	windows := availabilityrepo.NewMongoWindowRepository(cfg)
	bookingRepo := repository.NewMongoBookingRepository(cfg)

	tokenSealer, err := sealer.New(cfg.ManageTokenKey)
	if err != nil {
		cfg.Log.Fatal("Invalid manage token key", "error", err)
	}

	events, err := serverApp.EventPublisher(cfg.Kafka.TopicBookingEvents)
	if err != nil {
		cfg.Log.Fatal("Failed to create booking event publisher", "error", err)
	}

	bookingService := service.NewBookingService(
		bookingRepo,
		tenants,
		services,
		windows,
		tokenSealer,
		events,
		clock.System,
		validation.New(cfg.Log),
		cfg,
	)
	slotService := slotservice.NewSlotService(windows, bookingRepo, services, tenants, clock.System, cfg)
	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName, "events_enabled", cfg.EventsEnabled)

	phoneLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, nil, cfg.Log)
	serverApp.OnShutdown(func() error {
		phoneLimiter.Stop()
		return nil
	})

	serverApp.SetApp(
		handler.NewBookingHandler(bookingService, phoneLimiter, cfg.Log),
		slothandler.NewSlotHandler(slotService, cfg.Log),
	)
	serverApp.Run()
}
