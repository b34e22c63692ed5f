package service

import (
	"context"
	"errors"
	catalogerrors "slotbook/internal/catalog/errors"
	"slotbook/internal/catalog/repository"
	"slotbook/pkg/auth"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
	"slotbook/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type CatalogService interface {
	CreateCategory(ctx context.Context, tenantID string, category *model.Category) error
	ListCategories(ctx context.Context, tenantID string) ([]*model.Category, error)
	DeleteCategory(ctx context.Context, tenantID, id string) error

	CreateService(ctx context.Context, tenantID string, service *model.ServiceOffering) error
	GetService(ctx context.Context, tenantID, id string) (*model.ServiceOffering, error)
	ListServices(ctx context.Context, tenantID string, activeOnly bool) ([]*model.ServiceOffering, error)
	UpdateService(ctx context.Context, tenantID, id string, updates *model.ServiceOfferingUpdate) (*model.ServiceOffering, error)
	DeleteService(ctx context.Context, tenantID, id string) error

	Catalog(ctx context.Context, tenantID string) ([]model.CatalogGroup, error)
}

type catalogService struct {
	categories repository.CategoryRepository
	services   repository.ServiceOfferingRepository
	validate   *validator.Validate
	cfg        *config.Config
}

func NewCatalogService(
	categories repository.CategoryRepository,
	services repository.ServiceOfferingRepository,
	validate *validator.Validate,
	cfg *config.Config,
) CatalogService {
	return &catalogService{
		categories: categories,
		services:   services,
		validate:   validate,
		cfg:        cfg,
	}
}

func (s *catalogService) CreateCategory(ctx context.Context, tenantID string, category *model.Category) error {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return err
	}

	category.ID = ""
	category.TenantID = tenantID
	category.Name = sanitizer.NormalizeName(category.Name)
	category.Description = sanitizer.TrimAndNormalize(category.Description)
	if err := validation.Struct(s.validate, category); err != nil {
		return validation.ToAppError(err)
	}

	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, catalogerrors.ErrDuplicateCategory) {
			return apperrors.Conflict("A category with this name already exists")
		}
		s.cfg.Log.Error("Failed to create category", "tenant_id", tenantID, "error", err)
		return apperrors.Internal("Failed to create category", err)
	}

	s.cfg.Log.Info("Category created", "tenant_id", tenantID, "id", category.ID, "name", category.Name)
	return nil
}

func (s *catalogService) ListCategories(ctx context.Context, tenantID string) ([]*model.Category, error) {
	categories, err := s.categories.FindByTenant(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Error("Failed to list categories", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve categories", err)
	}
	return categories, nil
}

// DeleteCategory refuses while services still reference the category by name.
func (s *catalogService) DeleteCategory(ctx context.Context, tenantID, id string) error {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return err
	}

	category, err := s.categories.FindByID(ctx, tenantID, id)
	if err != nil {
		return mapRepoError(err, "Category", id)
	}

	inUse, err := s.services.CountByCategory(ctx, tenantID, category.Name)
	if err != nil {
		return apperrors.Internal("Failed to check category usage", err)
	}
	if inUse > 0 {
		return apperrors.Conflict("Category is still used by services").
			WithDetails(map[string]any{"services": inUse})
	}

	if err := s.categories.Delete(ctx, tenantID, id); err != nil {
		return mapRepoError(err, "Category", id)
	}

	s.cfg.Log.Info("Category deleted", "tenant_id", tenantID, "id", id)
	return nil
}

func (s *catalogService) CreateService(ctx context.Context, tenantID string, service *model.ServiceOffering) error {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return err
	}

	service.ID = ""
	service.TenantID = tenantID
	s.sanitize(service)
	if err := s.validateService(ctx, service); err != nil {
		return err
	}

	if err := s.services.Create(ctx, service); err != nil {
		s.cfg.Log.Error("Failed to create service", "tenant_id", tenantID, "error", err)
		return apperrors.Internal("Failed to create service", err)
	}

	s.cfg.Log.Info("Service created",
		"tenant_id", tenantID,
		"id", service.ID,
		"name", service.Name,
		"duration_min", service.DurationMin,
		"price", service.Price.StringFixed(2),
	)
	return nil
}

func (s *catalogService) GetService(ctx context.Context, tenantID, id string) (*model.ServiceOffering, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Service ID cannot be empty")
	}

	service, err := s.services.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapRepoError(err, "Service", id)
	}
	return service, nil
}

func (s *catalogService) ListServices(ctx context.Context, tenantID string, activeOnly bool) ([]*model.ServiceOffering, error) {
	services, err := s.services.FindByTenant(ctx, tenantID, activeOnly)
	if err != nil {
		s.cfg.Log.Error("Failed to list services", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve services", err)
	}
	return services, nil
}

// UpdateService edits the offering. Bookings already made keep their snapshot.
func (s *catalogService) UpdateService(ctx context.Context, tenantID, id string, updates *model.ServiceOfferingUpdate) (*model.ServiceOffering, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	if err := validation.Struct(s.validate, updates); err != nil {
		return nil, validation.ToAppError(err)
	}

	existing, err := s.GetService(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	merged := mergeServiceUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validateService(ctx, merged); err != nil {
		return nil, err
	}

	if err := s.services.Update(ctx, tenantID, id, merged); err != nil {
		return nil, mapRepoError(err, "Service", id)
	}

	s.cfg.Log.Info("Service updated", "tenant_id", tenantID, "id", id, "active", merged.Active)
	return merged, nil
}

func (s *catalogService) DeleteService(ctx context.Context, tenantID, id string) error {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return err
	}
	if err := s.services.Delete(ctx, tenantID, id); err != nil {
		return mapRepoError(err, "Service", id)
	}
	s.cfg.Log.Info("Service deleted", "tenant_id", tenantID, "id", id)
	return nil
}

// Catalog groups active services by category in category name order.
// Services without a known category are collected in a trailing group.
func (s *catalogService) Catalog(ctx context.Context, tenantID string) ([]model.CatalogGroup, error) {
	categories, err := s.ListCategories(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	services, err := s.ListServices(ctx, tenantID, true)
	if err != nil {
		return nil, err
	}
	return groupByCategory(categories, services), nil
}

func groupByCategory(categories []*model.Category, services []*model.ServiceOffering) []model.CatalogGroup {
	byName := make(map[string][]*model.ServiceOffering)
	for _, svc := range services {
		byName[svc.Category] = append(byName[svc.Category], svc)
	}

	groups := make([]model.CatalogGroup, 0, len(categories)+1)
	for _, category := range categories {
		members := byName[category.Name]
		delete(byName, category.Name)
		if len(members) == 0 {
			continue
		}
		groups = append(groups, model.CatalogGroup{
			Category:    category.Name,
			Description: category.Description,
			Services:    members,
		})
	}

	var rest []*model.ServiceOffering
	for _, svc := range services {
		if _, ok := byName[svc.Category]; ok {
			rest = append(rest, svc)
		}
	}
	if len(rest) > 0 {
		groups = append(groups, model.CatalogGroup{Services: rest})
	}
	return groups
}

func (s *catalogService) sanitize(service *model.ServiceOffering) {
	service.Name = sanitizer.NormalizeName(service.Name)
	service.Description = sanitizer.TrimAndNormalize(service.Description)
	service.Category = sanitizer.NormalizeName(service.Category)
	service.Price = service.Price.Round(2)
}

func (s *catalogService) validateService(ctx context.Context, service *model.ServiceOffering) error {
	if err := validation.Struct(s.validate, service); err != nil {
		s.cfg.Log.Warn("Service validation failed", "tenant_id", service.TenantID, "name", service.Name, "error", err)
		return validation.ToAppError(err)
	}
	if service.Category == "" {
		return nil
	}

	exists, err := s.categories.ExistsByName(ctx, service.TenantID, service.Category)
	if err != nil {
		return apperrors.Internal("Failed to check category", err)
	}
	if !exists {
		return apperrors.Validation("Unknown category", map[string]any{"category": service.Category})
	}
	return nil
}

func mergeServiceUpdates(existing *model.ServiceOffering, updates *model.ServiceOfferingUpdate) *model.ServiceOffering {
	merged := *existing
	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.Price != nil {
		merged.Price = *updates.Price
	}
	if updates.DurationMin != nil {
		merged.DurationMin = *updates.DurationMin
	}
	if updates.Category != nil {
		merged.Category = *updates.Category
	}
	if updates.Active != nil {
		merged.Active = *updates.Active
	}
	return &merged
}

func mapRepoError(err error, resource, id string) error {
	switch {
	case errors.Is(err, catalogerrors.ErrCategoryNotFound), errors.Is(err, catalogerrors.ErrServiceNotFound):
		return apperrors.NotFoundWithID(resource, id)
	case errors.Is(err, catalogerrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid " + resource + " ID format")
	default:
		return apperrors.Internal("Failed to access "+resource, err)
	}
}
