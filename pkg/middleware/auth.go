package middleware

import (
	"net/http"
	"slotbook/pkg/auth"
	apperrors "slotbook/pkg/errors"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"strings"
)

// Authentication validates bearer tokens. When the manager has no secret every
// request passes without a principal. Paths matching a public prefix skip the check.
func Authentication(manager *auth.Manager, log *logger.Logger, publicPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !manager.Enabled() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range publicPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := auth.WithEnforcement(r.Context())

			token := httputil.BearerToken(r)
			if token == "" {
				reject(w, apperrors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := manager.Parse(token)
			if err != nil {
				log.Warn("Rejected access token",
					"request_id", RequestID(ctx),
					"path", r.URL.Path,
					"error", err,
				)
				reject(w, apperrors.Unauthorized("invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(ctx, claims)))
		})
	}
}
