package handler

import (
	"net/http"
	"strconv"

	"slotbook/internal/reminders/service"
	apperrors "slotbook/pkg/errors"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReminderHandler struct {
	service service.PolicyService
	log     *logger.Logger
}

func NewReminderHandler(service service.PolicyService, log *logger.Logger) *ReminderHandler {
	return &ReminderHandler{
		service: service,
		log:     log,
	}
}

func (h *ReminderHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *ReminderHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReminderHandler) GetPolicy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	policy, err := h.service.Get(r.Context(), ps.ByName("tenant_id"))
	if err != nil {
		h.writeError(w, "GetPolicy", err)
		return
	}
	h.writeSuccess(w, "GetPolicy", policy)
}

func (h *ReminderHandler) PutPolicy(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var policy model.ReminderPolicy
	if err := httputil.DecodeJSON(r, &policy); err != nil {
		h.writeError(w, "PutPolicy", err)
		return
	}

	saved, err := h.service.Put(r.Context(), ps.ByName("tenant_id"), &policy)
	if err != nil {
		h.writeError(w, "PutPolicy", err)
		return
	}
	h.writeSuccess(w, "PutPolicy", saved)
}

func (h *ReminderHandler) Dispatches(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, "Dispatches", apperrors.InvalidInput("limit must be a number"))
			return
		}
		limit = parsed
	}

	records, err := h.service.Dispatches(r.Context(), ps.ByName("tenant_id"), r.URL.Query().Get("booking_id"), limit)
	if err != nil {
		h.writeError(w, "Dispatches", err)
		return
	}
	h.writeSuccess(w, "Dispatches", records)
}

func (h *ReminderHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/tenants/:tenant_id/reminder-policy", h.GetPolicy)
	router.PUT("/api/v1/tenants/:tenant_id/reminder-policy", h.PutPolicy)
	router.GET("/api/v1/tenants/:tenant_id/reminder-dispatches", h.Dispatches)
}
