package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fitline/api/internal/platform/httpx"
	"github.com/fitline/api/internal/services"
)

const maxWebhookBodyBytes = 256 * 1024

// eventInventorySnapshotUpdated is emitted by the warehouse export job after
// it rewrites the inventory object.
const eventInventorySnapshotUpdated = "inventory.snapshot.updated"

// WebhookHandlers receives signed notifications from upstream systems.
type WebhookHandlers struct {
	inventory services.InventoryService
	logger    func(ctx context.Context, msg string, fields map[string]any)
}

// WebhookOption customises handler construction.
type WebhookOption func(*WebhookHandlers)

// WithWebhookLogger attaches a structured logger.
func WithWebhookLogger(logger func(ctx context.Context, msg string, fields map[string]any)) WebhookOption {
	return func(h *WebhookHandlers) {
		h.logger = logger
	}
}

// NewWebhookHandlers constructs the webhook endpoints.
func NewWebhookHandlers(inventory services.InventoryService, opts ...WebhookOption) *WebhookHandlers {
	h := &WebhookHandlers{
		inventory: inventory,
		logger:    func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the webhook endpoints onto the provided router. Signature
// verification runs as group middleware on the mount.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/inventory", h.inventoryUpdated)
}

type inventoryWebhookEvent struct {
	Event  string `json:"event"`
	Bucket string `json:"bucket"`
	Object string `json:"object"`
}

func (h *WebhookHandlers) inventoryUpdated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxWebhookBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var event inventoryWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	if !strings.EqualFold(event.Event, eventInventorySnapshotUpdated) {
		// Unknown events are acknowledged so the sender stops retrying.
		h.logger(ctx, "ignoring unknown webhook event", map[string]any{"event": event.Event})
		writeJSONResponse(w, http.StatusOK, map[string]any{"received": true, "applied": false})
		return
	}

	result, err := h.inventory.Refresh(ctx)
	if err != nil {
		h.logger(ctx, "webhook-triggered refresh failed", map[string]any{"error": err.Error()})
		httpx.WriteError(ctx, w, httpx.NewError("inventory_refresh_failed", "failed to refresh inventory", http.StatusBadGateway))
		return
	}

	h.logger(ctx, "inventory refreshed via webhook", map[string]any{
		"fetched":  result.Fetched,
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
	})
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"received": true,
		"applied":  true,
		"fetched":  result.Fetched,
		"accepted": result.Accepted,
		"skipped":  result.Skipped,
	})
}
