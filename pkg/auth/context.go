package auth

import (
	"context"
	apperrors "slotbook/pkg/errors"
)

type ctxKey int

const (
	principalKey ctxKey = iota
	enforcedKey
)

func WithPrincipal(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, principalKey, c)
}

func PrincipalFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(principalKey).(*Claims)
	return c, ok && c != nil
}

// WithEnforcement marks ctx as coming through an authenticated surface.
func WithEnforcement(ctx context.Context) context.Context {
	return context.WithValue(ctx, enforcedKey, true)
}

func enforced(ctx context.Context) bool {
	v, _ := ctx.Value(enforcedKey).(bool)
	return v
}

// Authorize checks that the caller may act on tenantID. Internal callers such
// as the scheduler carry no principal and no enforcement marker and pass.
func Authorize(ctx context.Context, tenantID string) error {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		if enforced(ctx) {
			return apperrors.Unauthorized("authentication required")
		}
		return nil
	}
	if principal.Role == RoleAdmin || principal.TenantID == tenantID {
		return nil
	}
	return apperrors.Forbidden("not allowed to access this tenant")
}

// RequireAdmin allows only admins when enforcement is on.
func RequireAdmin(ctx context.Context) error {
	principal, ok := PrincipalFrom(ctx)
	if !ok {
		if enforced(ctx) {
			return apperrors.Unauthorized("authentication required")
		}
		return nil
	}
	if principal.Role != RoleAdmin {
		return apperrors.Forbidden("admin role required")
	}
	return nil
}
