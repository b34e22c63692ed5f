package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slotbook/internal/reminders/service"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type fakePolicyService struct {
	service.PolicyService
	putErr    error
	bookingID string
	limit     int
}

func (f *fakePolicyService) Put(ctx context.Context, tenantID string, p *model.ReminderPolicy) (*model.ReminderPolicy, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	p.TenantID = tenantID
	return p, nil
}

func (f *fakePolicyService) Dispatches(ctx context.Context, tenantID, bookingID string, limit int) ([]*model.ReminderDispatchRecord, error) {
	f.bookingID = bookingID
	f.limit = limit
	return []*model.ReminderDispatchRecord{}, nil
}

func serve(svc *fakePolicyService, method, target, body string) *httptest.ResponseRecorder {
	router := httprouter.New()
	NewReminderHandler(svc, logger.Discard()).RegisterRoutes(router)
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestPutPolicy(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		putErr     error
		wantStatus int
	}{
		{name: "saved", body: `{"enabled":true,"day_before":{"enabled":true,"days_before":1,"send_time":"09:00"}}`, wantStatus: http.StatusOK},
		{name: "unknown field", body: `{"enabled":true,"reminders":[]}`, wantStatus: http.StatusBadRequest},
		{name: "invalid policy", body: `{"timezone":"x"}`, putErr: apperrors.Validation("bad", nil), wantStatus: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&fakePolicyService{putErr: tt.putErr}, http.MethodPut, "/api/v1/tenants/t1/reminder-policy", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Data model.ReminderPolicy `json:"data"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Data.TenantID != "t1" {
				t.Errorf("tenant_id = %q", resp.Data.TenantID)
			}
		})
	}
}

func TestDispatches_QueryParams(t *testing.T) {
	svc := &fakePolicyService{}
	rec := serve(svc, http.MethodGet, "/api/v1/tenants/t1/reminder-dispatches?booking_id=b7&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.bookingID != "b7" || svc.limit != 5 {
		t.Errorf("booking_id = %q, limit = %d", svc.bookingID, svc.limit)
	}

	if rec := serve(svc, http.MethodGet, "/api/v1/tenants/t1/reminder-dispatches?limit=many", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}
