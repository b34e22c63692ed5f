package handler

import (
	"net/http"
	"strconv"

	"slotbook/internal/slots/service"
	apperrors "slotbook/pkg/errors"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

// Candidates serves ?date=YYYY-MM-DD with either duration=<minutes> or
// service_ids=a,b and an optional step=<minutes>.
func (h *SlotHandler) Candidates(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	query := r.URL.Query()

	q := service.Query{
		Date:       query.Get("date"),
		ServiceIDs: httputil.QueryList(r, "service_ids"),
	}
	if q.Date == "" {
		h.writeError(w, apperrors.InvalidInput("date is required"))
		return
	}
	if len(q.ServiceIDs) == 0 && query.Get("duration") == "" {
		h.writeError(w, apperrors.InvalidInput("duration or service_ids is required"))
		return
	}

	var err error
	if q.DurationMin, err = intParam(query.Get("duration")); err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid duration parameter"))
		return
	}
	if q.StepMin, err = intParam(query.Get("step")); err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid step parameter"))
		return
	}

	result, err := h.service.Candidates(r.Context(), ps.ByName("tenant_id"), q)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Candidates", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SlotHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Candidates", "operation", "WriteError", "error", writeErr)
	}
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/tenants/:tenant_id/slots", h.Candidates)
	router.GET("/api/v1/public/tenants/:tenant_id/slots", h.Candidates)
}
