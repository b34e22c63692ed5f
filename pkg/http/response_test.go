package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	apperrors "slotbook/pkg/errors"
	"strings"
	"testing"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: apperrors.NotFound("Booking"), wantStatus: http.StatusNotFound, wantCode: apperrors.CodeNotFound},
		{name: "conflict", err: apperrors.Conflict("slot taken"), wantStatus: http.StatusConflict, wantCode: apperrors.CodeConflict},
		{name: "insufficient credit", err: apperrors.InsufficientCredit("no sms credits"), wantStatus: http.StatusPaymentRequired, wantCode: apperrors.CodeInsufficientCredit},
		{name: "plain error", err: errors.New("db exploded"), wantStatus: http.StatusInternalServerError, wantCode: apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			if err := WriteError(rec, tt.err); err != nil {
				t.Fatalf("WriteError: %v", err)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body apperrors.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Code, tt.wantCode)
			}
			if strings.Contains(rec.Body.String(), "db exploded") {
				t.Error("internal error text leaked to client")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"name":"cut"}`},
		{name: "empty", body: ``, wantErr: true},
		{name: "unknown field", body: `{"name":"cut","x":1}`, wantErr: true},
		{name: "trailing object", body: `{"name":"a"}{"name":"b"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(req, &p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
				t.Errorf("error code = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestExtractLimitOffset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5000&offset=-3", nil)
	limit, offset, err := ExtractLimitOffset(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != 100 || offset != 0 {
		t.Errorf("got limit=%d offset=%d, want 100 0", limit, offset)
	}

	req = httptest.NewRequest(http.MethodGet, "/?limit=abc", nil)
	if _, _, err := ExtractLimitOffset(req); err == nil {
		t.Error("expected error for non numeric limit")
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	if got := BearerToken(req); got != "abc.def" {
		t.Errorf("BearerToken() = %q", got)
	}
	req.Header.Set("Authorization", "Basic xyz")
	if got := BearerToken(req); got != "" {
		t.Errorf("BearerToken() = %q, want empty", got)
	}
}
