package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/services"
)

func TestNewRouter_DefaultMounts(t *testing.T) {
	now := time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC)
	healthHandlers := NewHealthHandlers(
		WithHealthSystemService(&stubSystemService{
			report: services.SystemHealthReport{
				Status:      domain.HealthStatusOK,
				Uptime:      5 * time.Second,
				GeneratedAt: now,
				Checks: map[string]domain.SystemHealthCheck{
					"firestore": {Status: domain.HealthStatusOK},
				},
			},
		}),
		WithHealthClock(func() time.Time { return now }),
	)

	router := NewRouter(WithHealthHandlers(healthHandlers))

	t.Run("healthz", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Fatalf("expected content-type application/json, got %s", ct)
		}
	})

	t.Run("readyz", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("default not implemented group", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/public/products", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotImplemented {
			t.Fatalf("expected status 501, got %d", rr.Code)
		}
	})

	t.Run("route not found envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rr.Code)
		}
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if payload.Error != errorNotFoundCode {
			t.Fatalf("unexpected error code: %q", payload.Error)
		}
	})
}

func TestNewRouter_MountsRegistrars(t *testing.T) {
	catalog := NewPublicCatalogHandlers(&stubCatalogService{})
	cart := NewCartHandlers(nil, &stubCartService{})
	orders := NewOrderHandlers(nil, &stubOrderService{})

	router := NewRouter(
		WithPublicRoutes(catalog.Routes),
		WithCartRoutes(cart.Routes),
		WithOrderRoutes(orders.Routes),
	)

	t.Run("public products", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/public/products", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
		}
	})

	t.Run("cart requires identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected status 401, got %d", rr.Code)
		}
	})
}

func TestNewRouter_WebhookGroupMiddleware(t *testing.T) {
	var mwCalled bool
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mwCalled = true
			next.ServeHTTP(w, r)
		})
	}

	webhooks := NewWebhookHandlers(&stubInventoryService{})
	router := NewRouter(
		WithWebhookRoutes(func(r chi.Router) { webhooks.Routes(r) }),
		WithWebhookMiddlewares(mw),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/inventory", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if !mwCalled {
		t.Fatal("webhook group middleware was not applied")
	}
}
