package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/kitchenpos/internal/config"
	"github.com/mamadbah2/kitchenpos/internal/repository/memory"
	"github.com/mamadbah2/kitchenpos/internal/server/handlers"
	"github.com/mamadbah2/kitchenpos/internal/service/catalog"
	"github.com/mamadbah2/kitchenpos/internal/service/checkout"
	"github.com/mamadbah2/kitchenpos/internal/service/inventory"
	"github.com/mamadbah2/kitchenpos/internal/service/sales"
	"github.com/mamadbah2/kitchenpos/internal/service/whatsapp"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	store := memory.New()
	engine := checkout.NewEngine(store, store, nil, checkout.Options{}, nil)
	t.Cleanup(engine.Wait)

	return New(Handlers{
		Checkout:  handlers.NewCheckoutHandler(engine, nil),
		Inventory: handlers.NewInventoryHandler(inventory.NewService(store, nil), nil),
		Products:  handlers.NewProductHandler(catalog.NewService(store, nil), nil),
		Sales:     handlers.NewSalesHandler(sales.NewService(store), nil),
		Webhook:   handlers.NewWebhookHandler(whatsapp.NewMetaWhatsAppService(config.WhatsAppConfig{VerifyToken: "tok"}, nil, nil, nil), nil),
	}, nil)
}

func TestRoutes(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/inventory", http.StatusOK},
		{http.MethodGet, "/api/inventory/shortages", http.StatusOK},
		{http.MethodGet, "/api/products", http.StatusOK},
		{http.MethodGet, "/api/sales", http.StatusOK},
		{http.MethodGet, "/api/sales/unknown", http.StatusNotFound},
		{http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=tok&hub.challenge=42", http.StatusOK},
		{http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=bad&hub.challenge=42", http.StatusForbidden},
		{http.MethodGet, "/metrics", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, tt.path)
	}
}

func TestMetricsExposeRequestCounter(t *testing.T) {
	r := newRouter(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `kitchenpos_http_requests_total{method="GET",path="healthz",status="200"}`)
}
