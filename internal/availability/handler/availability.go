package handler

import (
	"net/http"

	"slotbook/internal/availability/service"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type AvailabilityHandler struct {
	service service.AvailabilityService
	log     *logger.Logger
}

func NewAvailabilityHandler(service service.AvailabilityService, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AvailabilityHandler) Add(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var window model.AvailabilityWindow
	if err := httputil.DecodeJSON(r, &window); err != nil {
		h.writeError(w, "Add", err)
		return
	}

	if err := h.service.Add(r.Context(), ps.ByName("tenant_id"), &window); err != nil {
		h.writeError(w, "Add", err)
		return
	}

	if err := httputil.WriteCreated(w, window); err != nil {
		h.log.Error("failed to write created response", "handler", "Add", "operation", "WriteCreated", "error", err)
	}
}

func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	windows, err := h.service.List(r.Context(), ps.ByName("tenant_id"))
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WriteSuccess(w, windows); err != nil {
		h.log.Error("failed to write success response", "handler", "List", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("tenant_id"), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/tenants/:tenant_id/availability", h.List)
	router.POST("/api/v1/tenants/:tenant_id/availability", h.Add)
	router.DELETE("/api/v1/tenants/:tenant_id/availability/:id", h.Delete)
}
