package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fitline/api/internal/services"
)

func newWebhookRouter(inventory services.InventoryService) chi.Router {
	r := chi.NewRouter()
	NewWebhookHandlers(inventory).Routes(r)
	return r
}

func TestWebhookHandlersInventoryUpdated(t *testing.T) {
	inventory := &stubInventoryService{refresh: services.InventoryRefreshResult{Fetched: 1240, Accepted: 1198}}
	router := newWebhookRouter(inventory)

	body := `{"event":"inventory.snapshot.updated","bucket":"catalog","object":"inventory/items.json"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["applied"] != true || payload["accepted"] != float64(1198) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestWebhookHandlersIgnoresUnknownEvent(t *testing.T) {
	inventory := &stubInventoryService{refreshErr: errors.New("must not be called")}
	router := newWebhookRouter(inventory)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(`{"event":"inventory.export.started"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("unknown events must be acknowledged, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["applied"] != false {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestWebhookHandlersRefreshFailure(t *testing.T) {
	inventory := &stubInventoryService{refreshErr: errors.New("bucket unreachable")}
	router := newWebhookRouter(inventory)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory", strings.NewReader(`{"event":"inventory.snapshot.updated"}`)))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestInternalHandlersRefresh(t *testing.T) {
	inventory := &stubInventoryService{refresh: services.InventoryRefreshResult{Fetched: 10, Accepted: 10}}
	r := chi.NewRouter()
	NewInternalHandlers(inventory).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/inventory/refresh", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestInternalHandlersSnapshotInfo(t *testing.T) {
	inventory := &stubInventoryService{info: services.InventorySnapshotInfo{Count: 1198, SourceRef: "gs://catalog/inventory/items.json"}}
	r := chi.NewRouter()
	NewInternalHandlers(inventory).Routes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/inventory/snapshot", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["count"] != float64(1198) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
