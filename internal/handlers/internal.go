package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fitline/api/internal/platform/httpx"
	"github.com/fitline/api/internal/services"
)

// InternalHandlers serves the service-to-service surface mounted under
// /internal. Callers authenticate at the mount with OIDC middleware.
type InternalHandlers struct {
	inventory services.InventoryService
}

// NewInternalHandlers constructs the internal endpoints.
func NewInternalHandlers(inventory services.InventoryService) *InternalHandlers {
	return &InternalHandlers{inventory: inventory}
}

// Routes wires the internal endpoints onto the provided router.
func (h *InternalHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/inventory/refresh", h.refreshInventory)
	r.Get("/inventory/snapshot", h.snapshotInfo)
}

func (h *InternalHandlers) refreshInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service is unavailable", http.StatusServiceUnavailable))
		return
	}

	result, err := h.inventory.Refresh(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_refresh_failed", "failed to refresh inventory", http.StatusBadGateway))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"fetched":   result.Fetched,
		"accepted":  result.Accepted,
		"skipped":   result.Skipped,
		"fetchedAt": formatTime(result.FetchedAt),
	})
}

func (h *InternalHandlers) snapshotInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service is unavailable", http.StatusServiceUnavailable))
		return
	}

	info := h.inventory.SnapshotInfo()
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"count":     info.Count,
		"loadedAt":  formatTime(info.LoadedAt),
		"stale":     info.Stale,
		"sourceRef": info.SourceRef,
	})
}
