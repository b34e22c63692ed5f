package handler

import (
	"net/http"

	"slotbook/internal/tenants/service"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TenantHandler struct {
	service service.TenantService
	log     *logger.Logger
}

func NewTenantHandler(service service.TenantService, log *logger.Logger) *TenantHandler {
	return &TenantHandler{
		service: service,
		log:     log,
	}
}

func (h *TenantHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var tenant model.Tenant
	if err := httputil.DecodeJSON(r, &tenant); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &tenant); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, tenant); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TenantHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tenant, err := h.service.GetByID(r.Context(), ps.ByName("tenant_id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, tenant); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TenantHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	tenants, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, tenants, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *TenantHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.TenantUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	tenant, err := h.service.Update(r.Context(), ps.ByName("tenant_id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, tenant); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TenantHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setActive(w, r, ps.ByName("tenant_id"), false)
}

func (h *TenantHandler) Activate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.setActive(w, r, ps.ByName("tenant_id"), true)
}

func (h *TenantHandler) setActive(w http.ResponseWriter, r *http.Request, id string, active bool) {
	if err := h.service.SetActive(r.Context(), id, active); err != nil {
		h.writeError(w, "SetActive", err)
		return
	}

	if err := httputil.WriteNoContent(w); err != nil {
		h.log.Error("failed to write no content response", "handler", "SetActive", "operation", "WriteNoContent", "error", err)
	}
}

func (h *TenantHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/tenants", h.Create)
	router.GET("/api/v1/tenants", h.GetAll)
	router.GET("/api/v1/tenants/:tenant_id", h.GetByID)
	router.PATCH("/api/v1/tenants/:tenant_id", h.Update)
	router.POST("/api/v1/tenants/:tenant_id/deactivate", h.Deactivate)
	router.POST("/api/v1/tenants/:tenant_id/activate", h.Activate)
}
