package repositories

import (
	"context"
	"time"

	domain "github.com/fitline/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Orders() OrderRepository
	Quotations() QuotationRepository
	Members() MemberRepository
	AuditLogs() AuditLogRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InventorySource fetches the raw inventory snapshot from the upstream blob.
type InventorySource interface {
	FetchSnapshot(ctx context.Context) ([]domain.RawInventoryRecord, error)
}

// CartRepository persists one cart document per user with optimistic locking.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	SaveCart(ctx context.Context, cart domain.Cart, expectedUpdate *time.Time) (domain.Cart, error)
	DeleteCart(ctx context.Context, userID string) error
}

// OrderRepository persists order documents and query helpers for users and admins.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	Delete(ctx context.Context, orderID string) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// QuotationRepository persists quotation documents.
type QuotationRepository interface {
	Insert(ctx context.Context, quotation domain.Quotation) error
	Update(ctx context.Context, quotation domain.Quotation) error
	Delete(ctx context.Context, quotationID string) error
	FindByID(ctx context.Context, quotationID string) (domain.Quotation, error)
	List(ctx context.Context, filter QuotationListFilter) (domain.CursorPage[domain.Quotation], error)
}

// MemberRepository stores trading-partner accounts managed through the back office.
type MemberRepository interface {
	FindByID(ctx context.Context, memberID string) (domain.Member, error)
	Upsert(ctx context.Context, member domain.Member) (domain.Member, error)
	List(ctx context.Context, filter MemberListFilter) (domain.CursorPage[domain.Member], error)
}

// AuditLogRepository persists immutable audit trail entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}

// Filter DTOs shared across repositories ------------------------------------

type OrderListFilter struct {
	UserID     string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

type QuotationListFilter struct {
	UserID     string
	Status     []domain.QuotationStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

type MemberListFilter struct {
	Status     []domain.MemberStatus
	Pagination domain.Pagination
}

type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	ActorType  string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
