package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/platform/httpx"
	"github.com/fitline/api/internal/services"
)

const (
	defaultCatalogRateWindow = time.Minute
)

// PublicCatalogHandlers exposes unauthenticated storefront search endpoints.
type PublicCatalogHandlers struct {
	catalog services.CatalogService
	limiter rateLimiter
}

// PublicCatalogOption customises handler construction.
type PublicCatalogOption func(*PublicCatalogHandlers)

// WithCatalogRateLimit throttles anonymous searches per client IP.
func WithCatalogRateLimit(perMinute int, clock func() time.Time) PublicCatalogOption {
	return func(h *PublicCatalogHandlers) {
		h.limiter = newSimpleRateLimiter(perMinute, defaultCatalogRateWindow, clock)
	}
}

// NewPublicCatalogHandlers constructs the public product search handlers.
func NewPublicCatalogHandlers(catalog services.CatalogService, opts ...PublicCatalogOption) *PublicCatalogHandlers {
	h := &PublicCatalogHandlers{catalog: catalog}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /public endpoints onto the provided router.
func (h *PublicCatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.searchProducts)
	r.Get("/products/sizes", h.availableSizes)
}

func (h *PublicCatalogHandlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many requests; slow down", http.StatusTooManyRequests))
		return
	}

	query := r.URL.Query()
	criteria := criteriaFromQuery(query)

	cmd := services.CatalogSearchCommand{Criteria: criteria}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "limit must be a non-negative integer", http.StatusBadRequest))
			return
		}
		cmd.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "offset must be a non-negative integer", http.StatusBadRequest))
			return
		}
		cmd.Offset = offset
	}

	result, err := h.catalog.Search(ctx, cmd)
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}

	products := make([]productPayload, 0, len(result.Products))
	for _, product := range result.Products {
		products = append(products, buildProductPayload(product))
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"products":  products,
		"total":     result.Total,
		"truncated": result.Truncated,
	})
}

func (h *PublicCatalogHandlers) availableSizes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if h.limiter != nil && !h.limiter.Allow(clientKey(r)) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many requests; slow down", http.StatusTooManyRequests))
		return
	}

	criteria := criteriaFromQuery(r.URL.Query())
	sizes, err := h.catalog.AvailableSizes(ctx, services.CatalogSizesCommand{Criteria: criteria})
	if err != nil {
		h.writeCatalogError(w, r, err)
		return
	}
	if sizes == nil {
		sizes = []string{}
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{"sizes": sizes})
}

func (h *PublicCatalogHandlers) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput), errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "product catalog is temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to search products", http.StatusInternalServerError))
	}
}

func criteriaFromQuery(query map[string][]string) domain.FilterCriteria {
	get := func(key string) string {
		values := query[key]
		if len(values) == 0 {
			return ""
		}
		return strings.TrimSpace(values[0])
	}
	return domain.FilterCriteria{
		CategoryKeywords: parseFilterValues(query["category"]),
		SubNames:         parseFilterValues(query["subName"]),
		Query:            get("q"),
		Thicknesses:      parseFilterValues(query["thickness"]),
		Materials:        parseFilterValues(query["material"]),
		Sizes:            parseFilterValues(query["size"]),
		SizeQuery:        get("sizeQuery"),
		Locations:        parseFilterValues(query["location"]),
	}
}

type productPayload struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Thickness      string         `json:"thickness,omitempty"`
	Size           string         `json:"size,omitempty"`
	Material       string         `json:"material,omitempty"`
	UnitPrice      int64          `json:"unitPrice"`
	CurrentStock   int            `json:"currentStock"`
	LocationStock  map[string]int `json:"locationStock,omitempty"`
	StockStatus    string         `json:"stockStatus,omitempty"`
	Location       string         `json:"location,omitempty"`
	Maker          string         `json:"maker,omitempty"`
	MarkingWaitQty int            `json:"markingWaitQty,omitempty"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:             product.ID,
		Name:           product.Name,
		Thickness:      product.Thickness,
		Size:           product.Size,
		Material:       product.Material,
		UnitPrice:      product.UnitPrice,
		CurrentStock:   product.CurrentStock,
		LocationStock:  product.LocationStock,
		StockStatus:    string(product.StockStatus),
		Location:       product.Location,
		Maker:          product.Maker,
		MarkingWaitQty: product.MarkingWaitQty,
	}
}

func clientKey(r *http.Request) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(r.RemoteAddr)
}
