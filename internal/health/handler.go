package health

import (
	"context"
	"net/http"
	"maps"
	"slices"
	"time"

	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

const readyTimeout = 2 * time.Second

// Check pings one dependency.
type Check func(ctx context.Context) error

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

type HealthHandler struct {
	checks map[string]Check
	log    *logger.Logger
}

func NewHealthHandler(log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		checks: make(map[string]Check),
		log:    log,
	}
}

func (h *HealthHandler) AddCheck(name string, check Check) {
	h.checks[name] = check
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status, code := "ready", http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		if err := h.checks[name](ctx); err != nil {
			h.log.Error("Dependency health check failed", "dependency", name, "error", err, "path", r.URL.Path)
			deps[name] = "error"
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	if err := httputil.WriteJSON(w, code, HealthResponse{Status: status, Dependencies: deps}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
