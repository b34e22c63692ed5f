package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slotbook/internal/catalog/service"
	apperrors "slotbook/pkg/errors"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
)

type fakeCatalogService struct {
	service.CatalogService
	listServicesFunc   func(ctx context.Context, tenantID string, activeOnly bool) ([]*model.ServiceOffering, error)
	createCategoryFunc func(ctx context.Context, tenantID string, category *model.Category) error
	catalogFunc        func(ctx context.Context, tenantID string) ([]model.CatalogGroup, error)
}

func (f *fakeCatalogService) ListServices(ctx context.Context, tenantID string, activeOnly bool) ([]*model.ServiceOffering, error) {
	return f.listServicesFunc(ctx, tenantID, activeOnly)
}

func (f *fakeCatalogService) CreateCategory(ctx context.Context, tenantID string, category *model.Category) error {
	return f.createCategoryFunc(ctx, tenantID, category)
}

func (f *fakeCatalogService) Catalog(ctx context.Context, tenantID string) ([]model.CatalogGroup, error) {
	return f.catalogFunc(ctx, tenantID)
}

func newRouter(svc service.CatalogService) *httprouter.Router {
	router := httprouter.New()
	NewCatalogHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestListServices_ActiveParameter(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantActive bool
	}{
		{name: "default lists all", query: "", wantStatus: http.StatusOK},
		{name: "active only", query: "?active=true", wantStatus: http.StatusOK, wantActive: true},
		{name: "invalid flag", query: "?active=maybe", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotActive bool
			svc := &fakeCatalogService{
				listServicesFunc: func(ctx context.Context, tenantID string, activeOnly bool) ([]*model.ServiceOffering, error) {
					if tenantID != "t1" {
						t.Errorf("tenantID = %q", tenantID)
					}
					gotActive = activeOnly
					return []*model.ServiceOffering{}, nil
				},
			}

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants/t1/services"+tt.query, nil)
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotActive != tt.wantActive {
				t.Errorf("activeOnly = %v, want %v", gotActive, tt.wantActive)
			}
		})
	}
}

func TestCreateCategory_Conflict(t *testing.T) {
	svc := &fakeCatalogService{
		createCategoryFunc: func(ctx context.Context, tenantID string, category *model.Category) error {
			if category.Name != "Hair" {
				t.Errorf("decoded name = %q", category.Name)
			}
			return apperrors.Conflict("A category with this name already exists")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants/t1/categories", strings.NewReader(`{"name":"Hair"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var body apperrors.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != apperrors.CodeConflict {
		t.Errorf("code = %s", body.Code)
	}
}

func TestPublicCatalog(t *testing.T) {
	svc := &fakeCatalogService{
		catalogFunc: func(ctx context.Context, tenantID string) ([]model.CatalogGroup, error) {
			return []model.CatalogGroup{{Category: "Hair", Services: []*model.ServiceOffering{{Name: "Cut"}}}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/tenants/t1/catalog", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Data []model.CatalogGroup `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data) != 1 || body.Data[0].Services[0].Name != "Cut" {
		t.Errorf("unexpected catalog %+v", body.Data)
	}
}
