package di

import (
	"context"
	"testing"
	"time"

	"github.com/fitline/api/internal/domain"
	"github.com/fitline/api/internal/platform/config"
	"github.com/fitline/api/internal/repositories"
)

type stubRegistry struct {
	repositories.Registry

	carts      repositories.CartRepository
	orders     repositories.OrderRepository
	quotations repositories.QuotationRepository
	members    repositories.MemberRepository
	audit      repositories.AuditLogRepository
	health     repositories.HealthRepository

	closed bool
}

func (r *stubRegistry) Close(context.Context) error {
	r.closed = true
	return nil
}

func (r *stubRegistry) Carts() repositories.CartRepository           { return r.carts }
func (r *stubRegistry) Orders() repositories.OrderRepository         { return r.orders }
func (r *stubRegistry) Quotations() repositories.QuotationRepository { return r.quotations }
func (r *stubRegistry) Members() repositories.MemberRepository       { return r.members }
func (r *stubRegistry) AuditLogs() repositories.AuditLogRepository   { return r.audit }
func (r *stubRegistry) Health() repositories.HealthRepository        { return r.health }

type stubCartRepo struct{ repositories.CartRepository }

type stubOrderRepo struct{ repositories.OrderRepository }

type stubQuotationRepo struct {
	repositories.QuotationRepository
}

type stubMemberRepo struct{ repositories.MemberRepository }

type stubAuditRepo struct {
	repositories.AuditLogRepository
}

type stubHealthRepo struct{ repositories.HealthRepository }

type stubInventorySource struct{}

func (stubInventorySource) FetchSnapshot(context.Context) ([]domain.RawInventoryRecord, error) {
	return nil, nil
}

func fullRegistry() *stubRegistry {
	return &stubRegistry{
		carts:      stubCartRepo{},
		orders:     stubOrderRepo{},
		quotations: stubQuotationRepo{},
		members:    stubMemberRepo{},
		audit:      stubAuditRepo{},
		health:     stubHealthRepo{},
	}
}

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Catalog.Bucket = "fitline-inventory"
	cfg.Catalog.Object = "snapshots/products.json"
	cfg.Catalog.RefreshTTL = time.Minute
	return cfg
}

func TestNewContainerBuildsAllServices(t *testing.T) {
	reg := fullRegistry()

	container, err := NewContainer(context.Background(), testConfig(), reg, Dependencies{
		InventorySource: stubInventorySource{},
	})
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	svc := container.Services
	if svc.Inventory == nil {
		t.Error("expected inventory service")
	}
	if svc.Catalog == nil {
		t.Error("expected catalog service")
	}
	if svc.Cart == nil {
		t.Error("expected cart service")
	}
	if svc.Orders == nil {
		t.Error("expected order service")
	}
	if svc.Quotations == nil {
		t.Error("expected quotation service")
	}
	if svc.Members == nil {
		t.Error("expected member service")
	}
	if svc.Documents == nil {
		t.Error("expected document service")
	}
	if svc.System == nil {
		t.Error("expected system service")
	}
	if svc.Audit == nil {
		t.Error("expected audit log service")
	}
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), testConfig(), nil, Dependencies{}); err == nil {
		t.Fatal("expected error for nil registry")
	}
}

func TestNewContainerSkipsServicesWithoutDependencies(t *testing.T) {
	reg := fullRegistry()
	reg.carts = nil

	container, err := NewContainer(context.Background(), testConfig(), reg, Dependencies{})
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}

	svc := container.Services
	if svc.Inventory != nil {
		t.Error("inventory service should be skipped without a source")
	}
	if svc.Catalog != nil {
		t.Error("catalog service should be skipped without inventory")
	}
	if svc.Cart != nil {
		t.Error("cart service should be skipped without its repository")
	}
	if svc.Orders == nil {
		t.Error("order service should still be built")
	}
	if svc.Members == nil {
		t.Error("member service should still be built")
	}
}

func TestContainerCloseDelegatesToRegistry(t *testing.T) {
	reg := fullRegistry()

	container, err := NewContainer(context.Background(), testConfig(), reg, Dependencies{})
	if err != nil {
		t.Fatalf("NewContainer returned error: %v", err)
	}
	if err := container.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !reg.closed {
		t.Error("expected registry Close to be invoked")
	}
}
