package handler

import (
	"net/http"
	"strconv"

	"slotbook/internal/credits/service"
	apperrors "slotbook/pkg/errors"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/middleware"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const PaymentsWebhookPath = "/api/v1/webhooks/payments"

type CreditHandler struct {
	service       service.CreditService
	webhookSecret string
	log           *logger.Logger
}

func NewCreditHandler(service service.CreditService, webhookSecret string, log *logger.Logger) *CreditHandler {
	return &CreditHandler{
		service:       service,
		webhookSecret: webhookSecret,
		log:           log,
	}
}

func (h *CreditHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *CreditHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *CreditHandler) Balance(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	balance, err := h.service.Balance(r.Context(), ps.ByName("tenant_id"))
	if err != nil {
		h.writeError(w, "Balance", err)
		return
	}
	h.writeSuccess(w, "Balance", balance)
}

func (h *CreditHandler) Movements(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, "Movements", apperrors.InvalidInput("limit must be a number"))
			return
		}
		limit = parsed
	}

	movements, err := h.service.Movements(r.Context(), ps.ByName("tenant_id"), limit)
	if err != nil {
		h.writeError(w, "Movements", err)
		return
	}
	h.writeSuccess(w, "Movements", movements)
}

func (h *CreditHandler) TopUp(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.TopUpRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "TopUp", err)
		return
	}

	result, err := h.service.TopUp(r.Context(), ps.ByName("tenant_id"), &req)
	if err != nil {
		h.writeError(w, "TopUp", err)
		return
	}
	h.writeSuccess(w, "TopUp", result)
}

func (h *CreditHandler) Debit(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.DebitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Debit", err)
		return
	}

	balance, err := h.service.Debit(r.Context(), ps.ByName("tenant_id"), &req)
	if err != nil {
		h.writeError(w, "Debit", err)
		return
	}
	h.writeSuccess(w, "Debit", balance)
}

// PaymentWebhook receives provider events. The signature middleware in front
// of it has already checked the body.
func (h *CreditHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var event model.PaymentEvent
	if err := httputil.DecodeJSON(r, &event); err != nil {
		h.writeError(w, "PaymentWebhook", err)
		return
	}

	if err := h.service.ApplyPayment(r.Context(), &event); err != nil {
		h.writeError(w, "PaymentWebhook", err)
		return
	}

	h.log.Info("Payment webhook applied",
		"request_id", middleware.RequestID(r.Context()),
		"type", event.Type,
		"tenant_id", event.TenantID,
		"payment_ref", event.PaymentRef,
	)
	h.writeSuccess(w, "PaymentWebhook", map[string]string{"status": "accepted"})
}

func (h *CreditHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/tenants/:tenant_id/credits", h.Balance)
	router.GET("/api/v1/tenants/:tenant_id/credits/movements", h.Movements)
	router.POST("/api/v1/tenants/:tenant_id/credits/topup", h.TopUp)
	router.POST("/api/v1/tenants/:tenant_id/credits/debit", h.Debit)

	verify := middleware.PaymentSignatureVerification(h.webhookSecret, h.log)
	router.Handler(http.MethodPost, PaymentsWebhookPath, verify(http.HandlerFunc(h.PaymentWebhook)))
}
