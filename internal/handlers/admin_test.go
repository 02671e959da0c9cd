package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/platform/auth"
	"github.com/fitline/api/internal/platform/storage"
	"github.com/fitline/api/internal/services"
)

type stubInventoryService struct {
	products   []domain.Product
	refresh    services.InventoryRefreshResult
	refreshErr error
	info       services.InventorySnapshotInfo
}

func (s *stubInventoryService) Products(context.Context) ([]domain.Product, error) {
	return s.products, nil
}

func (s *stubInventoryService) Refresh(context.Context) (services.InventoryRefreshResult, error) {
	return s.refresh, s.refreshErr
}

func (s *stubInventoryService) SnapshotInfo() services.InventorySnapshotInfo {
	return s.info
}

func (s *stubInventoryService) FindByID(_ context.Context, productID string) (domain.Product, error) {
	for _, product := range s.products {
		if product.ID == productID {
			return product, nil
		}
	}
	return domain.Product{}, services.ErrInventoryNotFound
}

type stubArchiver struct {
	dest string
	err  error
}

func (s *stubArchiver) Archive(context.Context) (string, error) {
	return s.dest, s.err
}

type stubSnapshotSigner struct {
	result   storage.SignedURLResult
	err      error
	lastOpts storage.DownloadOptions
}

func (s *stubSnapshotSigner) SignedDownloadURL(_ context.Context, _, _ string, opts storage.DownloadOptions) (storage.SignedURLResult, error) {
	s.lastOpts = opts
	return s.result, s.err
}

func newAdminRouter(h *AdminHandlers) chi.Router {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func staffRequest(method, target, body string) *http.Request {
	return authedRequest(method, target, body, "staff-1", auth.RoleStaff)
}

func TestAdminHandlersRejectNonStaff(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/members", "", "user-1"))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestAdminHandlersListMembers(t *testing.T) {
	members := &stubMemberService{page: domain.CursorPage[domain.Member]{
		Items:         []domain.Member{{ID: "m-1", Status: domain.MemberStatusPending}},
		NextPageToken: "tok",
	}}
	router := newAdminRouter(NewAdminHandlers(nil, members, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodGet, "/members?status=pending&pageSize=20", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if len(members.lastList.Status) != 1 || members.lastList.Status[0] != domain.MemberStatusPending {
		t.Fatalf("unexpected filter: %+v", members.lastList)
	}
	if members.lastList.Pagination.PageSize != 20 {
		t.Fatalf("unexpected page size: %d", members.lastList.Pagination.PageSize)
	}
}

func TestAdminHandlersApproveMember(t *testing.T) {
	members := &stubMemberService{member: domain.Member{ID: "m-1", Status: domain.MemberStatusApproved}}
	router := newAdminRouter(NewAdminHandlers(nil, members, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodPost, "/members/m-1/approve", `{"reason":"trade reference checked"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if members.lastApprove.MemberID != "m-1" || members.lastApprove.ActorID != "staff-1" {
		t.Fatalf("unexpected command: %+v", members.lastApprove)
	}
	if members.lastApprove.Reason != "trade reference checked" {
		t.Fatalf("unexpected reason: %q", members.lastApprove.Reason)
	}
}

func TestAdminHandlersSuspendMemberInvalidState(t *testing.T) {
	members := &stubMemberService{err: services.ErrMemberInvalidState}
	router := newAdminRouter(NewAdminHandlers(nil, members, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodPost, "/members/m-1/suspend", ""))

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestAdminHandlersListOrdersUnscoped(t *testing.T) {
	orders := &stubOrderService{page: domain.CursorPage[domain.Order]{}}
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, orders, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodGet, "/orders?status=submitted&userId=user-7", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if orders.lastList.UserID != "user-7" {
		t.Fatalf("unexpected user scope: %q", orders.lastList.UserID)
	}
}

func TestAdminHandlersTransitionOrder(t *testing.T) {
	orders := &stubOrderService{order: domain.Order{ID: "ord-1", Status: domain.OrderStatusProcessing}}
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, orders, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodPatch, "/orders/ord-1/status", `{"status":"processing","reason":"picked up by warehouse"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	cmd := orders.lastTransition
	if cmd.OrderID != "ord-1" || cmd.TargetStatus != domain.OrderStatusProcessing || cmd.ActorID != "staff-1" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestAdminHandlersTransitionOrderRejected(t *testing.T) {
	orders := &stubOrderService{err: services.ErrOrderInvalidTransition}
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, orders, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodPatch, "/orders/ord-1/status", `{"status":"completed"}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestAdminHandlersListAuditLogs(t *testing.T) {
	system := &stubSystemService{auditPage: domain.CursorPage[domain.AuditLogEntry]{
		Items: []domain.AuditLogEntry{{
			ID:        "log-1",
			Actor:     "staff-1",
			Action:    "order.status_changed",
			TargetRef: "orders/ord-1",
			CreatedAt: time.Date(2025, 5, 6, 9, 0, 0, 0, time.UTC),
		}},
	}}
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, &stubOrderService{}, &stubQuotationService{}, system, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodGet, "/audit-logs?targetRef=orders/ord-1&actorType=staff", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if system.lastAuditFilter.TargetRef != "orders/ord-1" || system.lastAuditFilter.ActorType != "staff" {
		t.Fatalf("unexpected filter: %+v", system.lastAuditFilter)
	}

	var payload struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Entries) != 1 || payload.Entries[0]["action"] != "order.status_changed" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAdminHandlersRefreshCatalogArchives(t *testing.T) {
	inventory := &stubInventoryService{refresh: services.InventoryRefreshResult{
		Fetched:   1240,
		Accepted:  1198,
		FetchedAt: time.Date(2025, 5, 6, 9, 30, 0, 0, time.UTC),
	}}
	archiver := &stubArchiver{dest: "archive/inventory/2025/05/06/093000-items.json"}
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, inventory,
		WithAdminSnapshotArchiver(archiver)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodPost, "/catalog/refresh", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["fetched"] != float64(1240) || payload["archivedTo"] != archiver.dest {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAdminHandlersRefreshCatalogArchiveFailureIgnored(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{},
		WithAdminSnapshotArchiver(&stubArchiver{err: errors.New("copy failed")})))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodPost, "/catalog/refresh", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("archive failure must not fail refresh, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := payload["archivedTo"]; ok {
		t.Fatal("archivedTo must be omitted on archive failure")
	}
}

func TestAdminHandlersSnapshotURL(t *testing.T) {
	signer := &stubSnapshotSigner{result: storage.SignedURLResult{
		URL:       "https://storage.googleapis.com/catalog/inventory/items.json?X-Goog-Signature=abc",
		Method:    http.MethodGet,
		ExpiresAt: time.Date(2025, 5, 6, 9, 35, 0, 0, time.UTC),
	}}
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{},
		WithAdminSnapshotSigner(signer, "catalog", "inventory/items.json")))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodGet, "/catalog/snapshot-url?expiresIn=10m", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if signer.lastOpts.ExpiresIn != 10*time.Minute {
		t.Fatalf("unexpected expiry: %v", signer.lastOpts.ExpiresIn)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["method"] != http.MethodGet {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAdminHandlersSnapshotURLNotConfigured(t *testing.T) {
	router := newAdminRouter(NewAdminHandlers(nil, &stubMemberService{}, &stubOrderService{}, &stubQuotationService{}, &stubSystemService{}, &stubInventoryService{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, staffRequest(http.MethodGet, "/catalog/snapshot-url", ""))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
