package middleware

import (
	"net/http"
	"net/http/httptest"
	"slotbook/pkg/auth"
	"slotbook/pkg/logger"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIdempotencyReplaysSuccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"b1"}`))
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/t1/bookings", nil)
		req.Header.Set(IdempotencyHeader, "key-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
		if rec.Body.String() != `{"id":"b1"}` {
			t.Fatalf("attempt %d: body = %s", i, rec.Body.String())
		}
	}
	if calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", calls.Load())
	}
}

func TestIdempotencyReleasesOnFailure(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	var calls atomic.Int32
	handler := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.Header.Set(IdempotencyHeader, "key-2")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 2 {
		t.Errorf("handler called %d times, want 2", calls.Load())
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Minute)
	defer store.Stop()

	if _, ok := store.Begin("POST /x k"); !ok {
		t.Fatal("first Begin should succeed")
	}
	if _, ok := store.Begin("POST /x k"); ok {
		t.Fatal("second Begin should report the key as busy")
	}
	store.Release("POST /x k")
	if _, ok := store.Begin("POST /x k"); !ok {
		t.Fatal("Begin after Release should succeed")
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute, nil, logger.Discard())
	defer limiter.Stop()

	handler := RateLimit(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/x", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET should not be limited, got %d", rec.Code)
	}
}

func TestPaymentSignatureVerification(t *testing.T) {
	const secret = "whsec"
	body := `{"type":"credits.purchased"}`

	handler := PaymentSignatureVerification(secret, logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "sha256=" + Sign([]byte(body), secret), want: http.StatusAccepted},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong", header: "sha256=" + Sign([]byte(body), "other"), want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
			if tt.header != "" {
				req.Header.Set(SignatureHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthentication(t *testing.T) {
	manager := auth.NewManager("secret", time.Hour)
	token, err := manager.Issue("u1", "tenant-a", auth.RoleOwner)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	handler := Authentication(manager, logger.Discard(), "/api/v1/public/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.Authorize(r.Context(), "tenant-a"); err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		path   string
		bearer string
		want   int
	}{
		{name: "valid token", path: "/api/v1/tenants/tenant-a", bearer: token, want: http.StatusOK},
		{name: "no token", path: "/api/v1/tenants/tenant-a", want: http.StatusUnauthorized},
		{name: "bad token", path: "/api/v1/tenants/tenant-a", bearer: "junk", want: http.StatusUnauthorized},
		{name: "public path", path: "/api/v1/public/bookings/x", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAuthenticationDisabled(t *testing.T) {
	handler := Authentication(auth.NewManager("", time.Hour), logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFrom(r.Context()); ok {
			t.Error("no principal expected when auth is disabled")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestContentTypeValidation(t *testing.T) {
	handler := ContentTypeValidation(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name        string
		body        string
		contentType string
		want        int
	}{
		{name: "json", body: `{}`, contentType: "application/json; charset=utf-8", want: http.StatusOK},
		{name: "text", body: `{}`, contentType: "text/plain", want: http.StatusUnsupportedMediaType},
		{name: "empty body", body: ``, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	handler := RequestTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRequestLoggingPropagatesRequestID(t *testing.T) {
	var seen string
	handler := RequestLogging(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "req-42" || rec.Header().Get(RequestIDHeader) != "req-42" {
		t.Errorf("request id = %q / %q, want req-42", seen, rec.Header().Get(RequestIDHeader))
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "bookings")

	handler := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil))

	if got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "409")); got != 1 {
		t.Errorf("requests_total{POST,409} = %v, want 1", got)
	}
}
