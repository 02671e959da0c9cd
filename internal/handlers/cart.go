package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/platform/auth"
	"github.com/fitline/api/internal/platform/httpx"
	"github.com/fitline/api/internal/services"
)

const maxCartBodyBytes = 64 * 1024

// CartHandlers serves the authenticated member cart.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs the cart endpoints.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{authn: authn, carts: carts}
}

// Routes wires the cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Patch("/", h.updateMemo)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemID}", h.updateItem)
	r.Delete("/items/{itemID}", h.removeItem)
	r.Post("/load", h.loadItems)
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateCart(ctx, identity.UID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Thickness string `json:"thickness"`
	Size      string `json:"size"`
	Material  string `json:"material"`
	Maker     string `json:"maker"`
	Location  string `json:"location"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req addCartItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.AddItem(ctx, services.AddCartItemCommand{
		UserID:    identity.UID,
		ProductID: strings.TrimSpace(req.ProductID),
		Name:      strings.TrimSpace(req.Name),
		Thickness: strings.TrimSpace(req.Thickness),
		Size:      strings.TrimSpace(req.Size),
		Material:  strings.TrimSpace(req.Material),
		Maker:     strings.TrimSpace(req.Maker),
		Location:  strings.TrimSpace(req.Location),
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildCartPayload(cart))
}

type updateCartItemRequest struct {
	Name      *string `json:"name"`
	Thickness *string `json:"thickness"`
	Size      *string `json:"size"`
	Material  *string `json:"material"`
	Maker     *string `json:"maker"`
	Location  *string `json:"location"`
	UnitPrice *int64  `json:"unitPrice"`
	Quantity  *int    `json:"quantity"`
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}
	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "item id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxCartBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateCartItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateItem(ctx, services.UpdateCartItemCommand{
		UserID:    identity.UID,
		ItemID:    itemID,
		Name:      req.Name,
		Thickness: req.Thickness,
		Size:      req.Size,
		Material:  req.Material,
		Maker:     req.Maker,
		Location:  req.Location,
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}
	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "item id is required", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.RemoveItem(ctx, services.RemoveCartItemCommand{UserID: identity.UID, ItemID: itemID})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.ClearCart(ctx, identity.UID)
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

type updateCartMemoRequest struct {
	Memo string `json:"memo"`
}

func (h *CartHandlers) updateMemo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateCartMemoRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	cart, err := h.carts.UpdateMemo(ctx, services.UpdateCartMemoCommand{UserID: identity.UID, Memo: req.Memo})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

type loadCartItemsRequest struct {
	Memo  string                `json:"memo"`
	Items []loadCartItemPayload `json:"items"`
}

type loadCartItemPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Thickness string `json:"thickness"`
	Size      string `json:"size"`
	Material  string `json:"material"`
	Maker     string `json:"maker"`
	Location  string `json:"location"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandlers) loadItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireCart(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req loadCartItemsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	items := make([]services.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.LineItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      strings.TrimSpace(item.Name),
			Thickness: strings.TrimSpace(item.Thickness),
			Size:      strings.TrimSpace(item.Size),
			Material:  strings.TrimSpace(item.Material),
			Maker:     strings.TrimSpace(item.Maker),
			Location:  strings.TrimSpace(item.Location),
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
		})
	}

	cart, err := h.carts.LoadItems(ctx, services.LoadCartItemsCommand{UserID: identity.UID, Memo: req.Memo, Items: items})
	if err != nil {
		h.writeCartError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartPayload(cart))
}

func (h *CartHandlers) requireCart(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *CartHandlers) writeCartError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_item_not_found", "cart item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart was modified concurrently; retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart storage is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}

type lineItemPayload struct {
	ID             string `json:"id"`
	ProductID      string `json:"productId"`
	Name           string `json:"name"`
	Thickness      string `json:"thickness,omitempty"`
	Size           string `json:"size,omitempty"`
	Material       string `json:"material,omitempty"`
	Maker          string `json:"maker,omitempty"`
	Location       string `json:"location,omitempty"`
	UnitPrice      int64  `json:"unitPrice"`
	Quantity       int    `json:"quantity"`
	Amount         int64  `json:"amount"`
	SKUKey         string `json:"skuKey,omitempty"`
	CurrentStock   int    `json:"currentStock"`
	MarkingWaitQty int    `json:"markingWaitQty,omitempty"`
	StockStatus    string `json:"stockStatus,omitempty"`
	StockShortage  string `json:"stockShortage,omitempty"`
	Verified       bool   `json:"verified"`
	AddedAt        string `json:"addedAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

type cartPayload struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Memo        string            `json:"memo,omitempty"`
	Items       []lineItemPayload `json:"items"`
	TotalAmount int64             `json:"totalAmount"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
}

func buildLineItemPayload(item domain.LineItem) lineItemPayload {
	// Shortage is computed at render time against the verified stock
	// figures. Unverified lines have no figures to assess.
	shortage := ""
	if item.Verified {
		shortage = string(domain.AssessStockShortage(item.Quantity, item.CurrentStock, item.MarkingWaitQty))
	}
	return lineItemPayload{
		ID:             item.ID,
		ProductID:      item.ProductID,
		Name:           item.Name,
		Thickness:      item.Thickness,
		Size:           item.Size,
		Material:       item.Material,
		Maker:          item.Maker,
		Location:       item.Location,
		UnitPrice:      item.UnitPrice,
		Quantity:       item.Quantity,
		Amount:         item.Amount,
		SKUKey:         item.SKUKey,
		CurrentStock:   item.CurrentStock,
		MarkingWaitQty: item.MarkingWaitQty,
		StockStatus:    string(item.StockStatus),
		StockShortage:  shortage,
		Verified:       item.Verified,
		AddedAt:        formatTime(item.AddedAt),
		UpdatedAt:      formatTimePtr(item.UpdatedAt),
	}
}

func buildCartPayload(cart domain.Cart) cartPayload {
	items := make([]lineItemPayload, 0, len(cart.Items))
	var total int64
	for _, item := range cart.Items {
		items = append(items, buildLineItemPayload(item))
		total += item.Amount
	}
	return cartPayload{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Memo:        cart.Memo,
		Items:       items,
		TotalAmount: total,
		CreatedAt:   formatTime(cart.CreatedAt),
		UpdatedAt:   formatTime(cart.UpdatedAt),
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("request_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	}
}
