package main

import (
	availabilityhandler "slotbook/internal/availability/handler"
	availabilityrepo "slotbook/internal/availability/repository"
	availabilityservice "slotbook/internal/availability/service"
	cataloghandler "slotbook/internal/catalog/handler"
	catalogrepo "slotbook/internal/catalog/repository"
	catalogservice "slotbook/internal/catalog/service"
	tenanthandler "slotbook/internal/tenants/handler"
	tenantrepo "slotbook/internal/tenants/repository"
	tenantservice "slotbook/internal/tenants/service"
	"slotbook/pkg/app"
	"slotbook/pkg/config"
	"slotbook/pkg/validation"
)

const ServiceName = "catalog"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Catalog service")
	validate := validation.New(cfg.Log)

	tenants := tenantservice.NewTenantService(tenantrepo.NewMongoTenantRepository(cfg), validate, cfg)
	catalog := catalogservice.NewCatalogService(
		catalogrepo.NewMongoCategoryRepository(cfg),
		catalogrepo.NewMongoServiceOfferingRepository(cfg),
		validate,
		cfg,
	)
	availability := availabilityservice.NewAvailabilityService(availabilityrepo.NewMongoWindowRepository(cfg), validate, cfg)
	cfg.Log.Info("Catalog services initialized", "database", cfg.MongoDatabaseName)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		tenanthandler.NewTenantHandler(tenants, cfg.Log),
		cataloghandler.NewCatalogHandler(catalog, cfg.Log),
		availabilityhandler.NewAvailabilityHandler(availability, cfg.Log),
	)
	serverApp.Run()
}
