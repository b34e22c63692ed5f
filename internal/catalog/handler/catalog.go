package handler

import (
	"net/http"
	"strconv"

	"slotbook/internal/catalog/service"
	apperrors "slotbook/pkg/errors"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type CatalogHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewCatalogHandler(service service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log,
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CatalogHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var category model.Category
	if err := httputil.DecodeJSON(r, &category); err != nil {
		h.writeError(w, "CreateCategory", err)
		return
	}

	if err := h.service.CreateCategory(r.Context(), ps.ByName("tenant_id"), &category); err != nil {
		h.writeError(w, "CreateCategory", err)
		return
	}

	if err := httputil.WriteCreated(w, category); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateCategory", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	categories, err := h.service.ListCategories(r.Context(), ps.ByName("tenant_id"))
	if err != nil {
		h.writeError(w, "ListCategories", err)
		return
	}
	h.writeSuccess(w, "ListCategories", categories)
}

func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteCategory(r.Context(), ps.ByName("tenant_id"), ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteCategory", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var offering model.ServiceOffering
	if err := httputil.DecodeJSON(r, &offering); err != nil {
		h.writeError(w, "CreateService", err)
		return
	}

	if err := h.service.CreateService(r.Context(), ps.ByName("tenant_id"), &offering); err != nil {
		h.writeError(w, "CreateService", err)
		return
	}

	if err := httputil.WriteCreated(w, offering); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateService", "operation", "WriteCreated", "error", err)
	}
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	offering, err := h.service.GetService(r.Context(), ps.ByName("tenant_id"), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetService", err)
		return
	}
	h.writeSuccess(w, "GetService", offering)
}

// ListServices returns every service; ?active=true limits to bookable ones.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, "ListServices", apperrors.InvalidInput("invalid active parameter: "+raw))
			return
		}
		activeOnly = v
	}

	services, err := h.service.ListServices(r.Context(), ps.ByName("tenant_id"), activeOnly)
	if err != nil {
		h.writeError(w, "ListServices", err)
		return
	}
	h.writeSuccess(w, "ListServices", services)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.ServiceOfferingUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "UpdateService", err)
		return
	}

	offering, err := h.service.UpdateService(r.Context(), ps.ByName("tenant_id"), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "UpdateService", err)
		return
	}
	h.writeSuccess(w, "UpdateService", offering)
}

func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.DeleteService(r.Context(), ps.ByName("tenant_id"), ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteService", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) Catalog(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	groups, err := h.service.Catalog(r.Context(), ps.ByName("tenant_id"))
	if err != nil {
		h.writeError(w, "Catalog", err)
		return
	}
	h.writeSuccess(w, "Catalog", groups)
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/tenants/:tenant_id/categories", h.ListCategories)
	router.POST("/api/v1/tenants/:tenant_id/categories", h.CreateCategory)
	router.DELETE("/api/v1/tenants/:tenant_id/categories/:id", h.DeleteCategory)

	router.GET("/api/v1/tenants/:tenant_id/services", h.ListServices)
	router.POST("/api/v1/tenants/:tenant_id/services", h.CreateService)
	router.GET("/api/v1/tenants/:tenant_id/services/:id", h.GetService)
	router.PATCH("/api/v1/tenants/:tenant_id/services/:id", h.UpdateService)
	router.DELETE("/api/v1/tenants/:tenant_id/services/:id", h.DeleteService)

	router.GET("/api/v1/tenants/:tenant_id/catalog", h.Catalog)
	router.GET("/api/v1/public/tenants/:tenant_id/catalog", h.Catalog)
}
