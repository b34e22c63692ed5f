package service

import (
	"context"
	"errors"
	tenantserrors "slotbook/internal/tenants/errors"
	"slotbook/internal/tenants/repository"
	"slotbook/pkg/auth"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/locale"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
	"slotbook/pkg/validation"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type TenantService interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	GetByID(ctx context.Context, id string) (*model.Tenant, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Tenant, int64, error)
	Update(ctx context.Context, id string, updates *model.TenantUpdate) (*model.Tenant, error)
	SetPaid(ctx context.Context, id string, paid bool) error
	SetActive(ctx context.Context, id string, active bool) error
}

type tenantService struct {
	repo     repository.TenantRepository
	validate *validator.Validate
	cfg      *config.Config
}

func NewTenantService(repo repository.TenantRepository, validate *validator.Validate, cfg *config.Config) TenantService {
	return &tenantService{
		repo:     repo,
		validate: validate,
		cfg:      cfg,
	}
}

// Create registers a tenant. New tenants are active but unpaid until a
// payment signal arrives.
func (s *tenantService) Create(ctx context.Context, tenant *model.Tenant) error {
	if err := auth.RequireAdmin(ctx); err != nil {
		return err
	}

	tenant.ID = ""
	tenant.Paid = false
	tenant.Active = true
	s.applyDefaults(tenant)
	s.sanitize(tenant)
	if err := s.validateTenant(tenant); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, tenant); err != nil {
		s.cfg.Log.Error("Failed to create tenant", "name", tenant.Name, "error", err)
		return apperrors.Internal("Failed to create tenant", err)
	}

	s.cfg.Log.Info("Tenant created successfully",
		"id", tenant.ID,
		"name", tenant.Name,
		"timezone", tenant.Timezone,
	)
	return nil
}

func (s *tenantService) GetByID(ctx context.Context, id string) (*model.Tenant, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Tenant ID cannot be empty")
	}
	if err := auth.Authorize(ctx, id); err != nil {
		return nil, err
	}

	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve tenant")
	}
	return tenant, nil
}

func (s *tenantService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Tenant, int64, error) {
	if err := auth.RequireAdmin(ctx); err != nil {
		return nil, 0, err
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var tenants []*model.Tenant
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count tenants", "error", errCount)
			errCount = apperrors.Internal("Failed to count tenants", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		tenants, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list tenants", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve tenants", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	return tenants, count, nil
}

func (s *tenantService) Update(ctx context.Context, id string, updates *model.TenantUpdate) (*model.Tenant, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validation.Struct(s.validate, updates); err != nil {
		return nil, validation.ToAppError(err)
	}

	merged := mergeTenantUpdates(existing, updates)
	s.sanitize(merged)
	if err := s.validateTenant(merged); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		return nil, mapRepoError(err, id, "Failed to update tenant")
	}

	s.cfg.Log.Info("Tenant updated successfully", "id", id)
	return merged, nil
}

func (s *tenantService) SetPaid(ctx context.Context, id string, paid bool) error {
	if err := auth.RequireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.SetPaid(ctx, id, paid); err != nil {
		return mapRepoError(err, id, "Failed to update tenant payment state")
	}
	s.cfg.Log.Info("Tenant payment state changed", "id", id, "paid", paid)
	return nil
}

// SetActive lets an owner deactivate their own tenant. Reactivation is admin only.
func (s *tenantService) SetActive(ctx context.Context, id string, active bool) error {
	check := auth.Authorize(ctx, id)
	if active {
		check = auth.RequireAdmin(ctx)
	}
	if check != nil {
		return check
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return mapRepoError(err, id, "Failed to update tenant state")
	}
	s.cfg.Log.Info("Tenant active state changed", "id", id, "active", active)
	return nil
}

// applyDefaults fills the country from an international contact number when
// possible, then derives timezone and template locale from the country.
func (s *tenantService) applyDefaults(tenant *model.Tenant) {
	if tenant.Country == "" {
		tenant.Country = s.cfg.DefaultCountry
		if region := sanitizer.PhoneRegion(strings.TrimSpace(tenant.ContactPhone)); region != "" && region != "ZZ" {
			tenant.Country = region
		}
	}
	if tenant.Timezone == "" {
		tenant.Timezone = locale.TimezoneFor(tenant.Country, s.cfg.DefaultTimezone)
	}
	if tenant.Locale == "" {
		tenant.Locale = locale.LanguageFor(tenant.Country, s.cfg.ReminderTemplateLocale)
	}
}

func (s *tenantService) sanitize(tenant *model.Tenant) {
	tenant.Name = sanitizer.NormalizeName(tenant.Name)
	tenant.Country = strings.ToUpper(strings.TrimSpace(tenant.Country))
	tenant.Timezone = strings.TrimSpace(tenant.Timezone)
	tenant.ContactEmail = sanitizer.NormalizeEmail(tenant.ContactEmail)
	if phone := sanitizer.NormalizePhone(tenant.ContactPhone, tenant.Country); phone != "" {
		tenant.ContactPhone = phone
	}
}

func (s *tenantService) validateTenant(tenant *model.Tenant) error {
	if err := validation.Struct(s.validate, tenant); err != nil {
		s.cfg.Log.Warn("Tenant validation failed", "name", tenant.Name, "error", err)
		return validation.ToAppError(err)
	}
	return nil
}

func mergeTenantUpdates(existing *model.Tenant, updates *model.TenantUpdate) *model.Tenant {
	merged := *existing
	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.Timezone != "" {
		merged.Timezone = updates.Timezone
	}
	if updates.Country != "" {
		merged.Country = updates.Country
	}
	if updates.Locale != "" {
		merged.Locale = updates.Locale
	}
	if updates.ContactEmail != "" {
		merged.ContactEmail = updates.ContactEmail
	}
	if updates.ContactPhone != "" {
		merged.ContactPhone = updates.ContactPhone
	}
	return &merged
}

func mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, tenantserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Tenant", id)
	case errors.Is(err, tenantserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid tenant ID format")
	default:
		return apperrors.Internal(message, err)
	}
}
