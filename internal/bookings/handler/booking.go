package handler

import (
	"net/http"
	"strings"

	"slotbook/internal/bookings/service"
	"slotbook/pkg/config"
	apperrors "slotbook/pkg/errors"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/middleware"
	"slotbook/pkg/model"
	"slotbook/pkg/sanitizer"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	limiter *middleware.RateLimiter
	log     *logger.Logger
}

// NewBookingHandler wires the booking routes. A non-nil limiter caps commits
// per customer phone number.
func NewBookingHandler(service service.BookingService, limiter *middleware.RateLimiter, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		limiter: limiter,
		log:     log,
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Commit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Commit", err)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(phoneKey(req.CustomerPhone)) {
		h.log.Warn("Booking rate limit exceeded", "tenant_id", ps.ByName("tenant_id"), "request_id", middleware.RequestID(r.Context()))
		h.writeError(w, "Commit", apperrors.New("RATE_LIMITED", "Too many bookings for this phone number", http.StatusTooManyRequests))
		return
	}

	receipt, err := h.service.Commit(r.Context(), ps.ByName("tenant_id"), &req)
	if err != nil {
		h.writeError(w, "Commit", err)
		return
	}

	if err := httputil.WriteCreated(w, receipt); err != nil {
		h.log.Error("failed to write created response", "handler", "Commit", "operation", "WriteCreated", "error", err)
	}
}

// phoneKey counts every spelling of one number against the same bucket.
func phoneKey(phone string) string {
	if normalized := sanitizer.NormalizePhone(phone, ""); normalized != "" {
		return "phone:" + normalized
	}
	return "phone:" + strings.TrimSpace(phone)
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("tenant_id"), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}
	h.writeSuccess(w, "GetByID", booking)
}

// List serves ?from=&to=&status= with limit/offset paging, ordered by date and start.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	query := r.URL.Query()
	filter := model.BookingFilter{
		From:   query.Get("from"),
		To:     query.Get("to"),
		Status: config.BookingStatus(query.Get("status")),
	}

	bookings, total, err := h.service.List(r.Context(), ps.ByName("tenant_id"), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) ChangeStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var change model.StatusChange
	if err := httputil.DecodeJSON(r, &change); err != nil {
		h.writeError(w, "ChangeStatus", err)
		return
	}

	booking, err := h.service.ChangeStatus(r.Context(), ps.ByName("tenant_id"), ps.ByName("id"), change.Status)
	if err != nil {
		h.writeError(w, "ChangeStatus", err)
		return
	}
	h.writeSuccess(w, "ChangeStatus", booking)
}

func (h *BookingHandler) CancelByToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.CancelByToken(r.Context(), ps.ByName("token"))
	if err != nil {
		h.writeError(w, "CancelByToken", err)
		return
	}
	h.writeSuccess(w, "CancelByToken", booking)
}

func (h *BookingHandler) DailyOverview(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	date := r.URL.Query().Get("date")
	if date == "" {
		h.writeError(w, "DailyOverview", apperrors.InvalidInput("date is required"))
		return
	}

	overview, err := h.service.DailyOverview(r.Context(), ps.ByName("tenant_id"), date)
	if err != nil {
		h.writeError(w, "DailyOverview", err)
		return
	}
	h.writeSuccess(w, "DailyOverview", overview)
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/tenants/:tenant_id/bookings", h.Commit)
	router.GET("/api/v1/tenants/:tenant_id/bookings", h.List)
	router.GET("/api/v1/tenants/:tenant_id/bookings/:id", h.GetByID)
	router.POST("/api/v1/tenants/:tenant_id/bookings/:id/status", h.ChangeStatus)
	router.GET("/api/v1/tenants/:tenant_id/overview", h.DailyOverview)

	router.POST("/api/v1/public/tenants/:tenant_id/bookings", h.Commit)
	router.POST("/api/v1/public/bookings/:token/cancel", h.CancelByToken)
}
