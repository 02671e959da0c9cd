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

// QuotationHandlers serves the authenticated quotation request endpoints.
type QuotationHandlers struct {
	authn  *auth.Authenticator
	quotes services.QuotationService
	idem   func(http.Handler) http.Handler
}

// QuotationOption customises handler construction.
type QuotationOption func(*QuotationHandlers)

// WithQuotationIdempotency guards quotation submission with the replay middleware.
func WithQuotationIdempotency(mw func(http.Handler) http.Handler) QuotationOption {
	return func(h *QuotationHandlers) {
		h.idem = mw
	}
}

// NewQuotationHandlers constructs the quotation endpoints.
func NewQuotationHandlers(authn *auth.Authenticator, quotes services.QuotationService, opts ...QuotationOption) *QuotationHandlers {
	h := &QuotationHandlers{authn: authn, quotes: quotes}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the quotation endpoints onto the provided router.
func (h *QuotationHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	if h.idem != nil {
		r.With(h.idem).Post("/", h.submitQuotation)
	} else {
		r.Post("/", h.submitQuotation)
	}
	r.Get("/", h.listQuotations)
	r.Get("/{quotationID}", h.getQuotation)
	r.Post("/{quotationID}/cancel", h.cancelQuotation)
	r.Delete("/{quotationID}", h.deleteQuotation)
}

type submitQuotationRequest struct {
	Items     []loadCartItemPayload `json:"items"`
	Memo      string                `json:"memo"`
	ClearCart *bool                 `json:"clearCart"`
}

func (h *QuotationHandlers) submitQuotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireQuotes(w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxOrderBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req submitQuotationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	clearCart := false
	if req.ClearCart != nil {
		clearCart = *req.ClearCart
	}

	quote, err := h.quotes.Submit(ctx, services.SubmitQuotationCommand{
		UserID:         identity.UID,
		Items:          lineItemsFromPayload(req.Items),
		Memo:           req.Memo,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		ClearCart:      clearCart,
	})
	if err != nil {
		h.writeQuotationError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildQuotationPayload(quote))
}

func (h *QuotationHandlers) listQuotations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireQuotes(w, r)
	if !ok {
		return
	}

	filter, err := quotationListFilterFromQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.UserID = identity.UID

	page, err := h.quotes.ListQuotations(ctx, filter)
	if err != nil {
		h.writeQuotationError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuotationListPayload(page))
}

func (h *QuotationHandlers) getQuotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireQuotes(w, r)
	if !ok {
		return
	}

	quote, err := h.quotes.GetQuotation(ctx, services.QuotationReadCommand{
		QuotationID: chi.URLParam(r, "quotationID"),
		UserID:      identity.UID,
	})
	if err != nil {
		h.writeQuotationError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuotationPayload(quote))
}

func (h *QuotationHandlers) cancelQuotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireQuotes(w, r)
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

	quote, err := h.quotes.Cancel(ctx, services.CancelQuotationCommand{
		QuotationID: chi.URLParam(r, "quotationID"),
		UserID:      identity.UID,
		Reason:      reason,
	})
	if err != nil {
		h.writeQuotationError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuotationPayload(quote))
}

func (h *QuotationHandlers) deleteQuotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireQuotes(w, r)
	if !ok {
		return
	}

	err := h.quotes.Delete(ctx, services.DeleteQuotationCommand{
		QuotationID: chi.URLParam(r, "quotationID"),
		UserID:      identity.UID,
	})
	if err != nil {
		h.writeQuotationError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *QuotationHandlers) requireQuotes(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quotation_service_unavailable", "quotation service is unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *QuotationHandlers) writeQuotationError(w http.ResponseWriter, r *http.Request, err error) {
	writeQuotationServiceError(w, r, err)
}

func writeQuotationServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrQuotationInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrQuotationForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("quotation_forbidden", "quotation does not belong to the caller", http.StatusForbidden))
	case errors.Is(err, services.ErrQuotationNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("quotation_not_found", "quotation not found", http.StatusNotFound))
	case errors.Is(err, services.ErrQuotationInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("quotation_invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrQuotationConflict):
		httpx.WriteError(ctx, w, httpx.NewError("quotation_conflict", "quotation was modified concurrently; retry", http.StatusConflict))
	case errors.Is(err, services.ErrQuotationUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("quotation_service_unavailable", "quotation storage is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("quotation_error", "failed to process quotation request", http.StatusInternalServerError))
	}
}

func quotationListFilterFromQuery(r *http.Request) (services.QuotationListFilter, error) {
	query := r.URL.Query()
	filter := services.QuotationListFilter{}
	for _, raw := range parseFilterValues(query["status"]) {
		filter.Status = append(filter.Status, domain.QuotationStatus(strings.ToUpper(raw)))
	}
	dateRange, err := dateRangeFromQuery(query.Get("from"), query.Get("to"))
	if err != nil {
		return services.QuotationListFilter{}, err
	}
	filter.DateRange = dateRange
	filter.Pagination = paginationFromQuery(query.Get("pageSize"), query.Get("pageToken"))
	return filter, nil
}

type quotationPayload struct {
	ID          string            `json:"id"`
	UserID      string            `json:"userId"`
	Status      string            `json:"status"`
	Items       []lineItemPayload `json:"items"`
	Memo        string            `json:"memo,omitempty"`
	TotalAmount int64             `json:"totalAmount"`
	CreatedAt   string            `json:"createdAt,omitempty"`
	UpdatedAt   string            `json:"updatedAt,omitempty"`
	SubmittedAt string            `json:"submittedAt,omitempty"`
	CanceledAt  string            `json:"canceledAt,omitempty"`
}

func buildQuotationPayload(quote domain.Quotation) quotationPayload {
	items := make([]lineItemPayload, 0, len(quote.Items))
	for _, item := range quote.Items {
		items = append(items, buildLineItemPayload(item))
	}
	return quotationPayload{
		ID:          quote.ID,
		UserID:      quote.UserID,
		Status:      string(quote.Status),
		Items:       items,
		Memo:        quote.Memo,
		TotalAmount: quote.TotalAmount,
		CreatedAt:   formatTime(quote.CreatedAt),
		UpdatedAt:   formatTime(quote.UpdatedAt),
		SubmittedAt: formatTimePtr(quote.SubmittedAt),
		CanceledAt:  formatTimePtr(quote.CanceledAt),
	}
}

func buildQuotationListPayload(page domain.CursorPage[domain.Quotation]) map[string]any {
	quotes := make([]quotationPayload, 0, len(page.Items))
	for _, quote := range page.Items {
		quotes = append(quotes, buildQuotationPayload(quote))
	}
	return map[string]any{
		"quotations":    quotes,
		"nextPageToken": page.NextPageToken,
	}
}
