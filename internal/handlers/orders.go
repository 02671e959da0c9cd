package handlers

import (
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

const maxOrderBodyBytes = 128 * 1024

// OrderHandlers serves the authenticated member order endpoints.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
	idem   func(http.Handler) http.Handler
}

// OrderOption customises handler construction.
type OrderOption func(*OrderHandlers)

// WithOrderIdempotency guards order submission with the replay middleware.
func WithOrderIdempotency(mw func(http.Handler) http.Handler) OrderOption {
	return func(h *OrderHandlers) {
		h.idem = mw
	}
}

// NewOrderHandlers constructs the order endpoints.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderOption) *OrderHandlers {
	h := &OrderHandlers{authn: authn, orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the order endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	if h.idem != nil {
		r.With(h.idem).Post("/", h.submitOrder)
	} else {
		r.Post("/", h.submitOrder)
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/cancel", h.cancelOrder)
	r.Delete("/{orderID}", h.deleteOrder)
}

type deliveryPayload struct {
	Location      string `json:"location"`
	Address       string `json:"address"`
	Contact       string `json:"contact"`
	RequestedDate string `json:"requestedDate,omitempty"`
	Note          string `json:"note,omitempty"`
}

type submitOrderRequest struct {
	Items     []loadCartItemPayload `json:"items"`
	Memo      string                `json:"memo"`
	Delivery  deliveryPayload       `json:"delivery"`
	ClearCart *bool                 `json:"clearCart"`
}

func (h *OrderHandlers) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxOrderBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req submitOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	delivery := domain.DeliveryInfo{
		Location: strings.TrimSpace(req.Delivery.Location),
		Address:  strings.TrimSpace(req.Delivery.Address),
		Contact:  strings.TrimSpace(req.Delivery.Contact),
		Note:     strings.TrimSpace(req.Delivery.Note),
	}
	if raw := strings.TrimSpace(req.Delivery.RequestedDate); raw != "" {
		requested, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "delivery.requestedDate must be RFC 3339", http.StatusBadRequest))
			return
		}
		delivery.RequestedDate = &requested
	}

	clearCart := true
	if req.ClearCart != nil {
		clearCart = *req.ClearCart
	}

	order, err := h.orders.Submit(ctx, services.SubmitOrderCommand{
		UserID:         identity.UID,
		Items:          lineItemsFromPayload(req.Items),
		Memo:           req.Memo,
		Delivery:       delivery,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		ClearCart:      clearCart,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildOrderPayload(order))
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}

	filter, err := orderListFilterFromQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.UserID = identity.UID

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListPayload(page))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(ctx, services.OrderReadCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}

	var reason string
	if body, err := readLimitedBody(r, maxOrderBodyBytes); err == nil {
		var req cancelOrderRequest
		if err := json.Unmarshal(body, &req); err == nil {
			reason = strings.TrimSpace(req.Reason)
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
		Reason:  reason,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireOrders(w, r)
	if !ok {
		return
	}

	err := h.orders.Delete(ctx, services.DeleteOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandlers) requireOrders(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *OrderHandlers) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	writeOrderServiceError(w, r, err)
}

func writeOrderServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("order_forbidden", "order does not belong to the caller", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently; retry", http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order storage is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

func lineItemsFromPayload(payloads []loadCartItemPayload) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(payloads))
	for _, item := range payloads {
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
	return items
}

func orderListFilterFromQuery(r *http.Request) (services.OrderListFilter, error) {
	query := r.URL.Query()
	filter := services.OrderListFilter{}
	for _, raw := range parseFilterValues(query["status"]) {
		filter.Status = append(filter.Status, domain.OrderStatus(strings.ToUpper(raw)))
	}
	dateRange, err := dateRangeFromQuery(query.Get("from"), query.Get("to"))
	if err != nil {
		return services.OrderListFilter{}, err
	}
	filter.DateRange = dateRange
	filter.Pagination = paginationFromQuery(query.Get("pageSize"), query.Get("pageToken"))
	return filter, nil
}

type orderPayload struct {
	ID          string            `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	UserID      string            `json:"userId"`
	Status      string            `json:"status"`
	Items       []lineItemPayload `json:"items"`
	Memo        string            `json:"memo,omitempty"`
	Delivery    deliveryPayload   `json:"delivery"`
	TotalAmount int64             `json:"totalAmount"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
	SubmittedAt string            `json:"submittedAt,omitempty"`
	CanceledAt  string            `json:"canceledAt,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]lineItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, buildLineItemPayload(item))
	}
	return orderPayload{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Items:       items,
		Memo:        order.Memo,
		Delivery: deliveryPayload{
			Location:      order.Delivery.Location,
			Address:       order.Delivery.Address,
			Contact:       order.Delivery.Contact,
			RequestedDate: formatTimePtr(order.Delivery.RequestedDate),
			Note:          order.Delivery.Note,
		},
		TotalAmount: order.TotalAmount,
		CreatedAt:   formatTime(order.CreatedAt),
		UpdatedAt:   formatTime(order.UpdatedAt),
		SubmittedAt: formatTimePtr(order.SubmittedAt),
		CanceledAt:  formatTimePtr(order.CanceledAt),
	}
}

func buildOrderListPayload(page domain.CursorPage[domain.Order]) map[string]any {
	orders := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		orders = append(orders, buildOrderPayload(order))
	}
	return map[string]any{
		"orders":        orders,
		"nextPageToken": page.NextPageToken,
	}
}
