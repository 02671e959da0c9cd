package services

import (
	"context"
	"time"

	domain "github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination         = domain.Pagination
	SortOrder          = domain.SortOrder
	Product            = domain.Product
	RawInventoryRecord = domain.RawInventoryRecord
	FilterCriteria     = domain.FilterCriteria
	StockStatus        = domain.StockStatus
	Cart               = domain.Cart
	LineItem           = domain.LineItem
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	DeliveryInfo       = domain.DeliveryInfo
	Quotation          = domain.Quotation
	QuotationStatus    = domain.QuotationStatus
	Member             = domain.Member
	MemberStatus       = domain.MemberStatus
	MemberRole         = domain.MemberRole
	SystemHealthReport = domain.SystemHealthReport
	AuditLogEntry      = domain.AuditLogEntry
)

// InventoryService owns the in-memory product snapshot loaded from object
// storage and refreshed on a freshness window.
type InventoryService interface {
	// Products returns the current snapshot, triggering a refresh when the
	// snapshot is stale. Readers always get the last known good data.
	Products(ctx context.Context) ([]Product, error)
	// Refresh forces a fetch regardless of freshness. An empty fetch result
	// never replaces a non-empty snapshot.
	Refresh(ctx context.Context) (InventoryRefreshResult, error)
	// SnapshotInfo reports the size and age of the held snapshot.
	SnapshotInfo() InventorySnapshotInfo
	// FindByID looks a product up in the current snapshot.
	FindByID(ctx context.Context, productID string) (Product, error)
}

// CatalogService answers storefront search and facet queries against the
// inventory snapshot.
type CatalogService interface {
	Search(ctx context.Context, cmd CatalogSearchCommand) (CatalogSearchResult, error)
	AvailableSizes(ctx context.Context, cmd CatalogSizesCommand) ([]string, error)
}

// CartService manages the single per-user cart document.
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateItem(ctx context.Context, cmd UpdateCartItemCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	ClearCart(ctx context.Context, userID string) (Cart, error)
	UpdateMemo(ctx context.Context, cmd UpdateCartMemoCommand) (Cart, error)
	LoadItems(ctx context.Context, cmd LoadCartItemsCommand) (Cart, error)
}

// OrderService encapsulates order submission, lookup, and status flows.
type OrderService interface {
	Submit(ctx context.Context, cmd SubmitOrderCommand) (Order, error)
	GetOrder(ctx context.Context, cmd OrderReadCommand) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	TransitionStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	Delete(ctx context.Context, cmd DeleteOrderCommand) error
}

// QuotationService covers quotation request submission and follow-up.
type QuotationService interface {
	Submit(ctx context.Context, cmd SubmitQuotationCommand) (Quotation, error)
	GetQuotation(ctx context.Context, cmd QuotationReadCommand) (Quotation, error)
	ListQuotations(ctx context.Context, filter QuotationListFilter) (domain.CursorPage[Quotation], error)
	TransitionStatus(ctx context.Context, cmd QuotationStatusCommand) (Quotation, error)
	Cancel(ctx context.Context, cmd CancelQuotationCommand) (Quotation, error)
	Delete(ctx context.Context, cmd DeleteQuotationCommand) error
}

// MemberService manages buyer accounts and staff-side approval.
type MemberService interface {
	GetMember(ctx context.Context, memberID string) (Member, error)
	UpdateProfile(ctx context.Context, cmd UpdateMemberProfileCommand) (Member, error)
	ListMembers(ctx context.Context, filter MemberListFilter) (domain.CursorPage[Member], error)
	Approve(ctx context.Context, cmd MemberModerationCommand) (Member, error)
	Suspend(ctx context.Context, cmd MemberModerationCommand) (Member, error)
}

// DocumentService renders printable HTML documents for orders and quotations.
type DocumentService interface {
	RenderOrderSheet(ctx context.Context, cmd RenderDocumentCommand) (RenderedDocument, error)
	RenderQuotationSheet(ctx context.Context, cmd RenderDocumentCommand) (RenderedDocument, error)
	RenderReceipt(ctx context.Context, cmd RenderDocumentCommand) (RenderedDocument, error)
}

// OrderEventPublisher accepts order lifecycle notifications for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// SystemService aggregates utility endpoints (health checks, audit logs).
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
	ListAuditLogs(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error)
}

// AuditLogService centralizes immutable audit log persistence and retrieval.
type AuditLogService interface {
	Record(ctx context.Context, record AuditLogRecord)
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error)
}

// ErrorTranslator converts repository or platform errors into domain-aware sentinel errors.
type ErrorTranslator interface {
	Translate(err error) error
}

// DomainError represents a structured error with stable codes for transport across layers.
type DomainError interface {
	error
	Code() string
	SafeMessage() string
}

// Command and DTO definitions ------------------------------------------------

// InventoryRefreshResult reports the outcome of a snapshot fetch.
type InventoryRefreshResult struct {
	Fetched   int
	Accepted  int
	Skipped   bool
	FetchedAt time.Time
}

// InventorySnapshotInfo describes the snapshot currently being served.
type InventorySnapshotInfo struct {
	Count     int
	LoadedAt  time.Time
	Stale     bool
	SourceRef string
}

type CatalogSearchCommand struct {
	Criteria FilterCriteria
	Limit    int
	Offset   int
}

// CatalogSearchResult returns the visible window plus the total match count
// so clients can render result counters without fetching every page.
type CatalogSearchResult struct {
	Products  []Product
	Total     int
	Truncated bool
}

type CatalogSizesCommand struct {
	Criteria FilterCriteria
}

type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Name      string
	Thickness string
	Size      string
	Material  string
	Maker     string
	Location  string
	UnitPrice int64
	Quantity  int
}

type UpdateCartItemCommand struct {
	UserID    string
	ItemID    string
	Name      *string
	Thickness *string
	Size      *string
	Material  *string
	Maker     *string
	Location  *string
	UnitPrice *int64
	Quantity  *int
}

type RemoveCartItemCommand struct {
	UserID string
	ItemID string
}

type UpdateCartMemoCommand struct {
	UserID string
	Memo   string
}

// LoadCartItemsCommand replaces the cart contents with a historical item set,
// re-linking each line against the live snapshot.
type LoadCartItemsCommand struct {
	UserID string
	Memo   string
	Items  []LineItem
}

type OrderListFilter = repositories.OrderListFilter

type QuotationListFilter = repositories.QuotationListFilter

type MemberListFilter = repositories.MemberListFilter

type SubmitOrderCommand struct {
	UserID         string
	Items          []LineItem
	Memo           string
	Delivery       DeliveryInfo
	IdempotencyKey string
	ClearCart      bool
}

type OrderReadCommand struct {
	OrderID string
	UserID  string
	AsStaff bool
}

type OrderStatusCommand struct {
	OrderID      string
	TargetStatus OrderStatus
	ActorID      string
	Reason       string
}

type CancelOrderCommand struct {
	OrderID string
	UserID  string
	AsStaff bool
	Reason  string
}

type DeleteOrderCommand struct {
	OrderID string
	UserID  string
	AsStaff bool
}

type SubmitQuotationCommand struct {
	UserID         string
	Items          []LineItem
	Memo           string
	IdempotencyKey string
	ClearCart      bool
}

type QuotationReadCommand struct {
	QuotationID string
	UserID      string
	AsStaff     bool
}

type QuotationStatusCommand struct {
	QuotationID  string
	TargetStatus QuotationStatus
	ActorID      string
	Reason       string
}

type CancelQuotationCommand struct {
	QuotationID string
	UserID      string
	AsStaff     bool
	Reason      string
}

type DeleteQuotationCommand struct {
	QuotationID string
	UserID      string
	AsStaff     bool
}

type UpdateMemberProfileCommand struct {
	MemberID                string
	ActorID                 string
	CompanyName             *string
	ContactName             *string
	Phone                   *string
	DefaultDeliveryLocation *string
}

type MemberModerationCommand struct {
	MemberID string
	ActorID  string
	Reason   string
}

type RenderDocumentCommand struct {
	DocumentID string
	UserID     string
	AsStaff    bool
}

// RenderedDocument carries sanitized HTML ready to serve.
type RenderedDocument struct {
	Title       string
	HTML        string
	GeneratedAt time.Time
}

// OrderEvent notifies downstream consumers of order and quotation lifecycle changes.
type OrderEvent struct {
	ID         string
	Kind       string
	TargetRef  string
	UserID     string
	Status     string
	OccurredAt time.Time
	Metadata   map[string]string
}

// AuditLogRecord defines the payload accepted by the audit writer service.
type AuditLogRecord struct {
	Actor                 string
	ActorType             string
	Action                string
	TargetRef             string
	Severity              string
	RequestID             string
	OccurredAt            time.Time
	Metadata              map[string]any
	Diff                  map[string]AuditLogDiff
	SensitiveMetadataKeys []string
	SensitiveDiffKeys     []string
	IPAddress             string
	UserAgent             string
}

// AuditLogDiff captures before/after values for tracked fields.
type AuditLogDiff struct {
	Before any
	After  any
}

type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	ActorType  string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination Pagination
}
