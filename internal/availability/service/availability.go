package service

import (
	"context"
	"errors"
	"net/http"
	availabilityerrors "slotbook/internal/availability/errors"
	"slotbook/internal/availability/repository"
	"slotbook/pkg/auth"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/model"
	"slotbook/pkg/validation"
	"strings"

	"github.com/go-playground/validator/v10"
)

type AvailabilityService interface {
	Add(ctx context.Context, tenantID string, window *model.AvailabilityWindow) error
	List(ctx context.Context, tenantID string) ([]*model.AvailabilityWindow, error)
	Delete(ctx context.Context, tenantID, id string) error
	ForWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error)
}

type availabilityService struct {
	repo     repository.WindowRepository
	validate *validator.Validate
	cfg      *config.Config
}

func NewAvailabilityService(repo repository.WindowRepository, validate *validator.Validate, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		repo:     repo,
		validate: validate,
		cfg:      cfg,
	}
}

// Add stores an opening window. Windows on the same weekday may overlap.
func (s *availabilityService) Add(ctx context.Context, tenantID string, window *model.AvailabilityWindow) error {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return err
	}

	window.ID = ""
	window.TenantID = tenantID
	window.Weekday = normalizeWeekday(window.Weekday)
	window.Start = strings.TrimSpace(window.Start)
	window.End = strings.TrimSpace(window.End)

	if err := validation.Struct(s.validate, window); err != nil {
		return validation.ToAppError(err)
	}
	if err := CheckWindow(window); err != nil {
		s.cfg.Log.Warn("Rejected availability window",
			"tenant_id", tenantID,
			"weekday", window.Weekday,
			"start", window.Start,
			"end", window.End,
		)
		return invalidWindow(err)
	}

	if err := s.repo.Create(ctx, window); err != nil {
		s.cfg.Log.Error("Failed to create availability window", "tenant_id", tenantID, "error", err)
		return apperrors.Internal("Failed to create availability window", err)
	}

	s.cfg.Log.Info("Availability window added",
		"tenant_id", tenantID,
		"id", window.ID,
		"weekday", window.Weekday,
		"start", window.Start,
		"end", window.End,
	)
	return nil
}

func (s *availabilityService) List(ctx context.Context, tenantID string) ([]*model.AvailabilityWindow, error) {
	windows, err := s.repo.FindByTenant(ctx, tenantID)
	if err != nil {
		s.cfg.Log.Error("Failed to list availability windows", "tenant_id", tenantID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}
	return windows, nil
}

func (s *availabilityService) Delete(ctx context.Context, tenantID, id string) error {
	if err := auth.Authorize(ctx, tenantID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		switch {
		case errors.Is(err, availabilityerrors.ErrNotFound):
			return apperrors.NotFoundWithID("Availability window", id)
		case errors.Is(err, availabilityerrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid availability window ID format")
		default:
			s.cfg.Log.Error("Failed to delete availability window", "tenant_id", tenantID, "id", id, "error", err)
			return apperrors.Internal("Failed to delete availability window", err)
		}
	}

	s.cfg.Log.Info("Availability window deleted", "tenant_id", tenantID, "id", id)
	return nil
}

func (s *availabilityService) ForWeekday(ctx context.Context, tenantID string, weekday config.Weekday) ([]*model.AvailabilityWindow, error) {
	windows, err := s.repo.FindByWeekday(ctx, tenantID, weekday)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}
	return windows, nil
}

// CheckWindow returns an InvalidWindowError unless start is strictly before end.
func CheckWindow(window *model.AvailabilityWindow) error {
	start, end, err := window.Bounds()
	if err != nil || start >= end {
		return &availabilityerrors.InvalidWindowError{
			Weekday: string(window.Weekday),
			Start:   window.Start,
			End:     window.End,
		}
	}
	return nil
}

func invalidWindow(err error) error {
	return apperrors.New(apperrors.CodeValidation, err.Error(), http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"end": "end must be after start"}).
		WithCause(err)
}

// normalizeWeekday accepts any casing, "monday" becomes "Monday".
func normalizeWeekday(w config.Weekday) config.Weekday {
	s := strings.ToLower(strings.TrimSpace(string(w)))
	if s == "" {
		return ""
	}
	return config.Weekday(strings.ToUpper(s[:1]) + s[1:])
}
