package service

import (
	"context"
	"errors"
	remindererrors "slotbook/internal/reminders/errors"
	"slotbook/internal/reminders/repository"
	"slotbook/internal/reminders/templates"
	"slotbook/pkg/auth"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/locale"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"
	"slotbook/pkg/validation"
	"strings"

	"github.com/go-playground/validator/v10"
)

type TenantSource interface {
	FindByID(ctx context.Context, id string) (*model.Tenant, error)
}

type PolicyService interface {
	Get(ctx context.Context, tenantID string) (*model.ReminderPolicy, error)
	Put(ctx context.Context, tenantID string, policy *model.ReminderPolicy) (*model.ReminderPolicy, error)
	Dispatches(ctx context.Context, tenantID, bookingID string, limit int) ([]*model.ReminderDispatchRecord, error)
}

type policyService struct {
	repo       repository.PolicyRepository
	dispatches repository.DispatchStore
	tenants    TenantSource
	catalog    *templates.Catalog
	validate   *validator.Validate
	cfg        *config.Config
}

func NewPolicyService(
	repo repository.PolicyRepository,
	dispatches repository.DispatchStore,
	tenants TenantSource,
	catalog *templates.Catalog,
	validate *validator.Validate,
	cfg *config.Config,
) PolicyService {
	return &policyService{
		repo:       repo,
		dispatches: dispatches,
		tenants:    tenants,
		catalog:    catalog,
		validate:   validate,
		cfg:        cfg,
	}
}

// DefaultPolicy is the policy of a tenant that never saved one: an SMS the
// day before at 09:00, same-day reminders off.
func DefaultPolicy(tenantID string) *model.ReminderPolicy {
	return &model.ReminderPolicy{
		TenantID: tenantID,
		Enabled:  true,
		DayBefore: model.DayBeforeReminder{
			Enabled:    true,
			DaysBefore: config.DefaultReminderDaysBefore,
			SendTime:   config.DefaultReminderSendTime,
			Channels: model.ChannelTemplates{
				SMS: &model.ChannelTemplate{Enabled: true},
			},
		},
		SameDay: model.SameDayReminder{
			MinutesBefore: config.DefaultReminderSameDayMinBefore,
		},
	}
}

// TemplateLocale picks the template language of a tenant.
func TemplateLocale(tenant *model.Tenant, fallback string) string {
	if tenant.Locale != "" {
		return tenant.Locale
	}
	return locale.LanguageFor(tenant.Country, fallback)
}

// Resolve returns the effective policy of tenant: the stored one, or the
// default with the built-in texts of the tenant's language.
func Resolve(stored *model.ReminderPolicy, tenant *model.Tenant, catalog *templates.Catalog, fallbackLocale string) *model.ReminderPolicy {
	policy := stored
	if policy == nil {
		policy = DefaultPolicy(tenant.ID)
	}
	lang := TemplateLocale(tenant, fallbackLocale)
	resolved := *policy
	resolved.DayBefore.Channels = catalog.Fill(lang, config.DayBefore, policy.DayBefore.Channels)
	resolved.SameDay.Channels = catalog.Fill(lang, config.SameDay, policy.SameDay.Channels)
	return &resolved
}

func (s *policyService) Get(ctx context.Context, tenantID string) (*model.ReminderPolicy, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Tenant", tenantID)
	}

	stored, err := s.repo.Find(ctx, tenantID)
	if err != nil && !errors.Is(err, remindererrors.ErrPolicyNotFound) {
		s.cfg.Log.Error("Failed to load reminder policy", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reminder policy", err)
	}
	return Resolve(stored, tenant, s.catalog, s.cfg.ReminderTemplateLocale), nil
}

// Put replaces the tenant's policy. Enabled channels left without a body get
// the built-in text before validation.
func (s *policyService) Put(ctx context.Context, tenantID string, policy *model.ReminderPolicy) (*model.ReminderPolicy, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, apperrors.NotFoundWithID("Tenant", tenantID)
	}

	policy.TenantID = tenantID
	policy.Timezone = strings.TrimSpace(policy.Timezone)
	policy.DayBefore.SendTime = strings.TrimSpace(policy.DayBefore.SendTime)
	if policy.DayBefore.DaysBefore == 0 {
		policy.DayBefore.DaysBefore = config.DefaultReminderDaysBefore
	}
	if policy.DayBefore.SendTime == "" {
		policy.DayBefore.SendTime = config.DefaultReminderSendTime
	}
	if policy.SameDay.MinutesBefore == 0 {
		policy.SameDay.MinutesBefore = config.DefaultReminderSameDayMinBefore
	}
	trimTemplates(policy.DayBefore.Channels)
	trimTemplates(policy.SameDay.Channels)
	policy = Resolve(policy, tenant, s.catalog, s.cfg.ReminderTemplateLocale)

	if err := validation.Struct(s.validate, policy); err != nil {
		return nil, validation.ToAppError(err)
	}

	if err := s.repo.Upsert(ctx, policy); err != nil {
		s.cfg.Log.Error("Failed to save reminder policy", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to save reminder policy", err)
	}

	s.cfg.Log.Info("Reminder policy saved",
		"tenant_id", tenantID,
		"enabled", policy.Enabled,
		"day_before", policy.DayBefore.Enabled,
		"same_day", policy.SameDay.Enabled,
	)
	return policy, nil
}

func (s *policyService) Dispatches(ctx context.Context, tenantID, bookingID string, limit int) ([]*model.ReminderDispatchRecord, error) {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return nil, err
	}

	records, err := s.dispatches.List(ctx, tenantID, strings.TrimSpace(bookingID), config.NormalizePaginationLimit(limit))
	if err != nil {
		s.cfg.Log.Error("Failed to list reminder dispatches", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve reminder dispatches", err)
	}
	return records, nil
}

func trimTemplates(channels model.ChannelTemplates) {
	for _, channel := range config.Channels {
		if t := channels.For(channel); t != nil {
			t.Subject = sanitizer.NormalizeTemplate(t.Subject)
			t.Body = sanitizer.NormalizeTemplate(t.Body)
		}
	}
}
