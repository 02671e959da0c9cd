package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/services"
)

type stubOrderService struct {
	order          domain.Order
	page           domain.CursorPage[domain.Order]
	err            error
	lastSubmit     services.SubmitOrderCommand
	lastRead       services.OrderReadCommand
	lastList       services.OrderListFilter
	lastTransition services.OrderStatusCommand
	lastCancel     services.CancelOrderCommand
	lastDelete     services.DeleteOrderCommand
}

func (s *stubOrderService) Submit(_ context.Context, cmd services.SubmitOrderCommand) (domain.Order, error) {
	s.lastSubmit = cmd
	return s.order, s.err
}

func (s *stubOrderService) GetOrder(_ context.Context, cmd services.OrderReadCommand) (domain.Order, error) {
	s.lastRead = cmd
	return s.order, s.err
}

func (s *stubOrderService) ListOrders(_ context.Context, filter services.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	s.lastList = filter
	return s.page, s.err
}

func (s *stubOrderService) TransitionStatus(_ context.Context, cmd services.OrderStatusCommand) (domain.Order, error) {
	s.lastTransition = cmd
	return s.order, s.err
}

func (s *stubOrderService) Cancel(_ context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	s.lastCancel = cmd
	return s.order, s.err
}

func (s *stubOrderService) Delete(_ context.Context, cmd services.DeleteOrderCommand) error {
	s.lastDelete = cmd
	return s.err
}

func newOrderRouter(svc services.OrderService, opts ...OrderOption) chi.Router {
	r := chi.NewRouter()
	NewOrderHandlers(nil, svc, opts...).Routes(r)
	return r
}

func TestOrderHandlersSubmit(t *testing.T) {
	now := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	svc := &stubOrderService{order: domain.Order{
		ID:          "ord-1",
		OrderNumber: "ORD-20250506-ABCDEF",
		UserID:      "user-1",
		Status:      domain.OrderStatusSubmitted,
		TotalAmount: 2560,
		CreatedAt:   now,
	}}
	router := newOrderRouter(svc)

	body := `{"items":[{"productId":"p-1","name":"90E(L)","unitPrice":1280,"quantity":2}],"memo":"urgent","delivery":{"location":"osaka","address":"1-2-3 Chuo-ku","contact":"06-0000-0000","requestedDate":"2025-05-10T00:00:00Z"}}`
	req := authedRequest(http.MethodPost, "/", body, "user-1")
	req.Header.Set("Idempotency-Key", "idem-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	cmd := svc.lastSubmit
	if cmd.UserID != "user-1" || cmd.IdempotencyKey != "idem-123" || !cmd.ClearCart {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if len(cmd.Items) != 1 || cmd.Items[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", cmd.Items)
	}
	if cmd.Delivery.Location != "osaka" || cmd.Delivery.RequestedDate == nil {
		t.Fatalf("unexpected delivery: %+v", cmd.Delivery)
	}

	var payload orderPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.OrderNumber != "ORD-20250506-ABCDEF" || payload.Status != "SUBMITTED" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestOrderHandlersSubmitBadDate(t *testing.T) {
	router := newOrderRouter(&stubOrderService{})

	body := `{"items":[],"delivery":{"location":"osaka","requestedDate":"yesterday"}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/", body, "user-1"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestOrderHandlersList(t *testing.T) {
	svc := &stubOrderService{page: domain.CursorPage[domain.Order]{
		Items:         []domain.Order{{ID: "ord-1", Status: domain.OrderStatusSubmitted}},
		NextPageToken: "tok-2",
	}}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/?status=submitted,processing&pageSize=25&from=2025-05-01T00:00:00Z", "", "user-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	filter := svc.lastList
	if filter.UserID != "user-1" {
		t.Fatalf("filter must be scoped to the caller: %+v", filter)
	}
	if len(filter.Status) != 2 || filter.Status[0] != domain.OrderStatusSubmitted {
		t.Fatalf("unexpected statuses: %v", filter.Status)
	}
	if filter.Pagination.PageSize != 25 || filter.DateRange.From == nil {
		t.Fatalf("unexpected filter: %+v", filter)
	}

	var payload struct {
		Orders        []orderPayload `json:"orders"`
		NextPageToken string         `json:"nextPageToken"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Orders) != 1 || payload.NextPageToken != "tok-2" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestOrderHandlersGetForbidden(t *testing.T) {
	svc := &stubOrderService{err: services.ErrOrderForbidden}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/ord-9", "", "user-1"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if svc.lastRead.OrderID != "ord-9" || svc.lastRead.AsStaff {
		t.Fatalf("unexpected read command: %+v", svc.lastRead)
	}
}

func TestOrderHandlersCancel(t *testing.T) {
	svc := &stubOrderService{order: domain.Order{ID: "ord-1", Status: domain.OrderStatusCanceled}}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/ord-1/cancel", `{"reason":"wrong size"}`, "user-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.lastCancel.OrderID != "ord-1" || svc.lastCancel.Reason != "wrong size" {
		t.Fatalf("unexpected cancel command: %+v", svc.lastCancel)
	}
}

func TestOrderHandlersCancelInvalidTransition(t *testing.T) {
	svc := &stubOrderService{err: services.ErrOrderInvalidTransition}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/ord-1/cancel", "", "user-1"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestOrderHandlersDelete(t *testing.T) {
	svc := &stubOrderService{}
	router := newOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/ord-1", "", "user-1"))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if svc.lastDelete.OrderID != "ord-1" || svc.lastDelete.UserID != "user-1" {
		t.Fatalf("unexpected delete command: %+v", svc.lastDelete)
	}
}

func TestOrderHandlersIdempotencyMiddlewareApplied(t *testing.T) {
	var sawHeader string
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawHeader = r.Header.Get("Idempotency-Key")
			next.ServeHTTP(w, r)
		})
	}
	router := newOrderRouter(&stubOrderService{}, WithOrderIdempotency(mw))

	body := `{"items":[],"delivery":{"location":"osaka"}}`
	req := authedRequest(http.MethodPost, "/", body, "user-1")
	req.Header.Set("Idempotency-Key", "idem-77")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if sawHeader != "idem-77" {
		t.Fatalf("middleware not applied, saw %q", sawHeader)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}
