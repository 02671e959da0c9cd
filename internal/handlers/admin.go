package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/platform/auth"
	"github.com/fitline/api/internal/platform/httpx"
	"github.com/fitline/api/internal/platform/pagination"
	"github.com/fitline/api/internal/platform/storage"
	"github.com/fitline/api/internal/services"
)

const maxAdminBodyBytes = 32 * 1024

// SnapshotArchiver copies the live inventory object into the archive prefix.
type SnapshotArchiver interface {
	Archive(ctx context.Context) (string, error)
}

// SnapshotURLSigner issues signed download URLs for the inventory object.
type SnapshotURLSigner interface {
	SignedDownloadURL(ctx context.Context, bucket, object string, opts storage.DownloadOptions) (storage.SignedURLResult, error)
}

// AdminHandlers serves the staff back-office endpoints.
type AdminHandlers struct {
	authn     *auth.Authenticator
	members   services.MemberService
	orders    services.OrderService
	quotes    services.QuotationService
	system    services.SystemService
	inventory services.InventoryService
	archiver  SnapshotArchiver
	signer    SnapshotURLSigner
	bucket    string
	object    string
	pageOpts  pagination.Options
	logger    func(ctx context.Context, msg string, fields map[string]any)
}

// AdminOption customises handler construction.
type AdminOption func(*AdminHandlers)

// WithAdminSnapshotArchiver enables archival on forced catalog refresh.
func WithAdminSnapshotArchiver(archiver SnapshotArchiver) AdminOption {
	return func(h *AdminHandlers) {
		h.archiver = archiver
	}
}

// WithAdminSnapshotSigner enables signed snapshot download URLs.
func WithAdminSnapshotSigner(signer SnapshotURLSigner, bucket, object string) AdminOption {
	return func(h *AdminHandlers) {
		h.signer = signer
		h.bucket = bucket
		h.object = object
	}
}

// WithAdminPageOptions overrides the list page-size bounds.
func WithAdminPageOptions(opts pagination.Options) AdminOption {
	return func(h *AdminHandlers) {
		h.pageOpts = opts
	}
}

// WithAdminLogger attaches a structured logger.
func WithAdminLogger(logger func(ctx context.Context, msg string, fields map[string]any)) AdminOption {
	return func(h *AdminHandlers) {
		h.logger = logger
	}
}

// NewAdminHandlers constructs the back-office endpoints.
func NewAdminHandlers(
	authn *auth.Authenticator,
	members services.MemberService,
	orders services.OrderService,
	quotes services.QuotationService,
	system services.SystemService,
	inventory services.InventoryService,
	opts ...AdminOption,
) *AdminHandlers {
	h := &AdminHandlers{
		authn:     authn,
		members:   members,
		orders:    orders,
		quotes:    quotes,
		system:    system,
		inventory: inventory,
		pageOpts: pagination.Options{
			DefaultPageSize: 50,
			MaxPageSize:     200,
		},
		logger: func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the back-office endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleStaff, auth.RoleAdmin))
	}

	r.Get("/members", h.listMembers)
	r.Get("/members/{memberID}", h.getMember)
	r.Post("/members/{memberID}/approve", h.approveMember)
	r.Post("/members/{memberID}/suspend", h.suspendMember)

	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Patch("/orders/{orderID}/status", h.transitionOrder)
	r.Delete("/orders/{orderID}", h.deleteOrder)

	r.Get("/quotations", h.listQuotations)
	r.Get("/quotations/{quotationID}", h.getQuotation)
	r.Patch("/quotations/{quotationID}/status", h.transitionQuotation)
	r.Delete("/quotations/{quotationID}", h.deleteQuotation)

	r.Get("/audit-logs", h.listAuditLogs)

	r.Post("/catalog/refresh", h.refreshCatalog)
	r.Get("/catalog/snapshot", h.snapshotInfo)
	r.Get("/catalog/snapshot-url", h.snapshotURL)
}

func (h *AdminHandlers) requireStaff(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	if !identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "staff role required", http.StatusForbidden))
		return nil, false
	}
	return identity, true
}

// Members ---------------------------------------------------------------

func (h *AdminHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	if h.members == nil {
		httpx.WriteError(ctx, w, httpx.NewError("member_service_unavailable", "member service is unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, h.pageOpts)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.MemberListFilter{
		Pagination: domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	}
	for _, raw := range parseFilterValues(r.URL.Query()["status"]) {
		filter.Status = append(filter.Status, domain.MemberStatus(strings.ToUpper(raw)))
	}

	page, err := h.members.ListMembers(ctx, filter)
	if err != nil {
		writeMemberServiceError(w, r, err)
		return
	}

	members := make([]memberPayload, 0, len(page.Items))
	for _, member := range page.Items {
		members = append(members, buildMemberPayload(member))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"members":       members,
		"nextPageToken": page.NextPageToken,
	})
}

func (h *AdminHandlers) getMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	if h.members == nil {
		httpx.WriteError(ctx, w, httpx.NewError("member_service_unavailable", "member service is unavailable", http.StatusServiceUnavailable))
		return
	}

	member, err := h.members.GetMember(ctx, chi.URLParam(r, "memberID"))
	if err != nil {
		writeMemberServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildMemberPayload(member))
}

type moderationRequest struct {
	Reason string `json:"reason"`
}

func (h *AdminHandlers) approveMember(w http.ResponseWriter, r *http.Request) {
	h.moderateMember(w, r, true)
}

func (h *AdminHandlers) suspendMember(w http.ResponseWriter, r *http.Request) {
	h.moderateMember(w, r, false)
}

func (h *AdminHandlers) moderateMember(w http.ResponseWriter, r *http.Request, approve bool) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.members == nil {
		httpx.WriteError(ctx, w, httpx.NewError("member_service_unavailable", "member service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var reason string
	if body, err := readLimitedBody(r, maxAdminBodyBytes); err == nil {
		var req moderationRequest
		if err := json.Unmarshal(body, &req); err == nil {
			reason = strings.TrimSpace(req.Reason)
		}
	}

	cmd := services.MemberModerationCommand{
		MemberID: chi.URLParam(r, "memberID"),
		ActorID:  identity.UID,
		Reason:   reason,
	}

	var member domain.Member
	var err error
	if approve {
		member, err = h.members.Approve(ctx, cmd)
	} else {
		member, err = h.members.Suspend(ctx, cmd)
	}
	if err != nil {
		writeMemberServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildMemberPayload(member))
}

// Orders ----------------------------------------------------------------

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter, err := orderListFilterFromQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	// Staff may scope by an explicit member; omitting it lists everyone.
	filter.UserID = strings.TrimSpace(r.URL.Query().Get("userId"))

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListPayload(page))
}

func (h *AdminHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.orders.GetOrder(ctx, services.OrderReadCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
		AsStaff: true,
	})
	if err != nil {
		writeOrderServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

type statusTransitionRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (h *AdminHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req statusTransitionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	target := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if target == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.TransitionStatus(ctx, services.OrderStatusCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		TargetStatus: target,
		ActorID:      identity.UID,
		Reason:       strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderPayload(order))
}

func (h *AdminHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	err := h.orders.Delete(ctx, services.DeleteOrderCommand{
		OrderID: chi.URLParam(r, "orderID"),
		UserID:  identity.UID,
		AsStaff: true,
	})
	if err != nil {
		writeOrderServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Quotations ------------------------------------------------------------

func (h *AdminHandlers) listQuotations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quotation_service_unavailable", "quotation service is unavailable", http.StatusServiceUnavailable))
		return
	}

	filter, err := quotationListFilterFromQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.UserID = strings.TrimSpace(r.URL.Query().Get("userId"))

	page, err := h.quotes.ListQuotations(ctx, filter)
	if err != nil {
		writeQuotationServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuotationListPayload(page))
}

func (h *AdminHandlers) getQuotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quotation_service_unavailable", "quotation service is unavailable", http.StatusServiceUnavailable))
		return
	}

	quote, err := h.quotes.GetQuotation(ctx, services.QuotationReadCommand{
		QuotationID: chi.URLParam(r, "quotationID"),
		UserID:      identity.UID,
		AsStaff:     true,
	})
	if err != nil {
		writeQuotationServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuotationPayload(quote))
}

func (h *AdminHandlers) transitionQuotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quotation_service_unavailable", "quotation service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodyBytes)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req statusTransitionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	target := domain.QuotationStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if target == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status is required", http.StatusBadRequest))
		return
	}

	quote, err := h.quotes.TransitionStatus(ctx, services.QuotationStatusCommand{
		QuotationID:  chi.URLParam(r, "quotationID"),
		TargetStatus: target,
		ActorID:      identity.UID,
		Reason:       strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeQuotationServiceError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildQuotationPayload(quote))
}

func (h *AdminHandlers) deleteQuotation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.quotes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("quotation_service_unavailable", "quotation service is unavailable", http.StatusServiceUnavailable))
		return
	}

	err := h.quotes.Delete(ctx, services.DeleteQuotationCommand{
		QuotationID: chi.URLParam(r, "quotationID"),
		UserID:      identity.UID,
		AsStaff:     true,
	})
	if err != nil {
		writeQuotationServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audit logs ------------------------------------------------------------

func (h *AdminHandlers) listAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	if h.system == nil {
		httpx.WriteError(ctx, w, httpx.NewError("system_service_unavailable", "system service is unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, h.pageOpts)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	query := r.URL.Query()
	dateRange, err := dateRangeFromQuery(query.Get("from"), query.Get("to"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.system.ListAuditLogs(ctx, services.AuditLogFilter{
		TargetRef:  strings.TrimSpace(query.Get("targetRef")),
		Actor:      strings.TrimSpace(query.Get("actor")),
		ActorType:  strings.TrimSpace(query.Get("actorType")),
		Action:     strings.TrimSpace(query.Get("action")),
		DateRange:  dateRange,
		Pagination: domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken},
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("audit_log_error", "failed to list audit logs", http.StatusInternalServerError))
		return
	}

	entries := make([]map[string]any, 0, len(page.Items))
	for _, entry := range page.Items {
		entries = append(entries, buildAuditLogPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"entries":       entries,
		"nextPageToken": page.NextPageToken,
	})
}

func buildAuditLogPayload(entry domain.AuditLogEntry) map[string]any {
	payload := map[string]any{
		"id":        entry.ID,
		"actor":     entry.Actor,
		"actorType": entry.ActorType,
		"action":    entry.Action,
		"targetRef": entry.TargetRef,
		"severity":  entry.Severity,
		"createdAt": formatTime(entry.CreatedAt),
	}
	if len(entry.Metadata) > 0 {
		payload["metadata"] = entry.Metadata
	}
	if len(entry.Diff) > 0 {
		payload["diff"] = entry.Diff
	}
	if entry.RequestID != "" {
		payload["requestId"] = entry.RequestID
	}
	return payload
}

// Catalog ---------------------------------------------------------------

func (h *AdminHandlers) refreshCatalog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service is unavailable", http.StatusServiceUnavailable))
		return
	}

	result, err := h.inventory.Refresh(ctx)
	if err != nil {
		if errors.Is(err, services.ErrInventoryUnavailable) {
			httpx.WriteError(ctx, w, httpx.NewError("inventory_unavailable", "inventory source is unavailable", http.StatusServiceUnavailable))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("inventory_error", "failed to refresh inventory", http.StatusInternalServerError))
		return
	}

	payload := map[string]any{
		"fetched":   result.Fetched,
		"accepted":  result.Accepted,
		"skipped":   result.Skipped,
		"fetchedAt": formatTime(result.FetchedAt),
	}

	if h.archiver != nil {
		// Archival failure must not fail the refresh itself.
		if dest, err := h.archiver.Archive(ctx); err != nil {
			h.logger(ctx, "snapshot archive failed", map[string]any{"error": err.Error()})
		} else {
			payload["archivedTo"] = dest
		}
	}

	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminHandlers) snapshotInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireStaff(w, r); !ok {
		return
	}
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

func (h *AdminHandlers) snapshotURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireStaff(w, r)
	if !ok {
		return
	}
	if h.signer == nil || h.bucket == "" || h.object == "" {
		httpx.WriteError(ctx, w, httpx.NewError("snapshot_url_unavailable", "snapshot downloads are not configured", http.StatusServiceUnavailable))
		return
	}
	if err := storage.AuthorizeSnapshotAccess(identity); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "staff role required", http.StatusForbidden))
		return
	}

	opts := storage.DownloadOptions{ResponseType: "application/json"}
	if raw := strings.TrimSpace(r.URL.Query().Get("expiresIn")); raw != "" {
		expires, err := time.ParseDuration(raw)
		if err != nil || expires <= 0 {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expiresIn must be a positive duration", http.StatusBadRequest))
			return
		}
		opts.ExpiresIn = expires
	}

	result, err := h.signer.SignedDownloadURL(ctx, h.bucket, h.object, opts)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("snapshot_url_error", "failed to sign snapshot URL", http.StatusInternalServerError))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"url":       result.URL,
		"method":    result.Method,
		"expiresAt": formatTime(result.ExpiresAt),
	})
}
