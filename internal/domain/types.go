package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// StockStatus classifies the availability of a catalog product.
type StockStatus string

const (
	// StockStatusAvailable indicates stock is on hand and orderable.
	StockStatusAvailable StockStatus = "AVAILABLE"
	// StockStatusOutOfStock indicates no stock is on hand.
	StockStatusOutOfStock StockStatus = "OUT_OF_STOCK"
	// StockStatusCheckLeadTime indicates partial availability requiring a
	// delivery-date confirmation before fulfillment. Never derived by the
	// normalizer; it is either supplied upstream or computed at cart time.
	StockStatusCheckLeadTime StockStatus = "CHECK_LEAD_TIME"
)

// Product is the canonical, post-normalization catalog record.
// CurrentStock equals the sum of LocationStock values whenever LocationStock
// is non-empty. ID uniqueness within one snapshot is a data-quality
// assumption on the upstream feed, not enforced here.
type Product struct {
	ID             string
	Name           string
	Thickness      string
	Size           string
	Material       string
	UnitPrice      int64
	CurrentStock   int
	LocationStock  map[string]int
	StockStatus    StockStatus
	Location       string
	Maker          string
	MarkingWaitQty int
}

// LineItem is a cart entry: a snapshot of a product's descriptive fields at
// time of add plus quantity and the computed line amount. It never references
// a live Product, since prices and stock change after a quotation is drafted.
type LineItem struct {
	ID             string
	ProductID      string
	Name           string
	Thickness      string
	Size           string
	Material       string
	Maker          string
	Location       string
	UnitPrice      int64
	Quantity       int
	Amount         int64
	SKUKey         string
	CurrentStock   int
	MarkingWaitQty int
	StockStatus    StockStatus
	Verified       bool
	AddedAt        time.Time
	UpdatedAt      *time.Time
}

// Cart aggregates the ordered line items and free-text memo for one user.
type Cart struct {
	ID        string
	UserID    string
	Memo      string
	Items     []LineItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatus enumerates valid lifecycle states for orders.
type OrderStatus string

const (
	// OrderStatusDraft indicates the order has not been submitted yet.
	OrderStatusDraft OrderStatus = "DRAFT"
	// OrderStatusSubmitted indicates the order has been handed to back-office staff.
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	// OrderStatusProcessing indicates staff are preparing the order.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusProcessed indicates the order has been picked and priced.
	OrderStatusProcessed OrderStatus = "PROCESSED"
	// OrderStatusCompleted indicates the order has shipped and settled.
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCanceled indicates the order was canceled before processing.
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// DeliveryInfo carries the requested delivery destination for an order.
type DeliveryInfo struct {
	Location      string
	Address       string
	Contact       string
	RequestedDate *time.Time
	Note          string
}

// Order is a submitted cart snapshot with a delivery commitment, persisted
// for back-office processing.
type Order struct {
	ID          string
	OrderNumber string
	UserID      string
	Status      OrderStatus
	Items       []LineItem
	Memo        string
	Delivery    DeliveryInfo
	TotalAmount int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
	CanceledAt  *time.Time
}

// QuotationStatus enumerates valid lifecycle states for quotations.
type QuotationStatus string

const (
	// QuotationStatusDraft indicates the quotation has not been submitted yet.
	QuotationStatusDraft QuotationStatus = "DRAFT"
	// QuotationStatusSubmitted indicates the quotation awaits staff pricing.
	QuotationStatusSubmitted QuotationStatus = "SUBMITTED"
	// QuotationStatusProcessed indicates staff have priced and returned the quotation.
	QuotationStatusProcessed QuotationStatus = "PROCESSED"
	// QuotationStatusCanceled indicates the quotation was withdrawn.
	QuotationStatusCanceled QuotationStatus = "CANCELED"
)

// Quotation is a submitted cart snapshot without a delivery commitment.
type Quotation struct {
	ID          string
	UserID      string
	Status      QuotationStatus
	Items       []LineItem
	Memo        string
	TotalAmount int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
	CanceledAt  *time.Time
}

// MemberStatus enumerates approval states for trading-partner accounts.
type MemberStatus string

const (
	// MemberStatusPending indicates the account awaits staff approval.
	MemberStatusPending MemberStatus = "PENDING"
	// MemberStatusApproved indicates the account may place orders.
	MemberStatusApproved MemberStatus = "APPROVED"
	// MemberStatusSuspended indicates the account has been suspended by staff.
	MemberStatusSuspended MemberStatus = "SUSPENDED"
)

// MemberRole distinguishes ordinary buyers from back-office staff.
type MemberRole string

const (
	// MemberRoleBuyer is a trading-partner account placing orders.
	MemberRoleBuyer MemberRole = "BUYER"
	// MemberRoleStaff is a back-office operator with admin access.
	MemberRoleStaff MemberRole = "STAFF"
)

// Member is a trading-partner account managed through the back office.
type Member struct {
	ID                      string
	Email                   string
	CompanyName             string
	ContactName             string
	Phone                   string
	Role                    MemberRole
	Status                  MemberStatus
	DefaultDeliveryLocation string
	CreatedAt               time.Time
	UpdatedAt               time.Time
	ApprovedAt              *time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// AuditLogEntry stores normalized audit information for admin use.
type AuditLogEntry struct {
	ID        string
	Actor     string
	ActorType string
	Action    string
	TargetRef string
	Metadata  map[string]any
	Diff      map[string]any
	IPHash    string
	UserAgent string
	Severity  string
	RequestID string
	CreatedAt time.Time
}
