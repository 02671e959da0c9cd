package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fitline/api/internal/platform/config"
	"github.com/fitline/api/internal/repositories"
	"github.com/fitline/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Inventory  services.InventoryService
	Catalog    services.CatalogService
	Cart       services.CartService
	Orders     services.OrderService
	Quotations services.QuotationService
	Members    services.MemberService
	Documents  services.DocumentService
	System     services.SystemService
	Audit      services.AuditLogService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Dependencies carries collaborators that live outside the repository registry.
type Dependencies struct {
	InventorySource repositories.InventorySource
	Events          services.OrderEventPublisher
	Build           services.BuildInfo
	Clock           func() time.Time
	Logger          func(ctx context.Context, msg string, fields map[string]any)
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Dependencies) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients, background workers, or caches.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, deps Dependencies) (Services, error) {
	var svc Services

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := func() string { return ulid.Make().String() }

	if auditRepo := reg.AuditLogs(); auditRepo != nil {
		auditSvc, err := services.NewAuditLogService(services.AuditLogServiceDeps{
			Repository: auditRepo,
			Clock:      clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build audit log service: %w", err)
		}
		svc.Audit = auditSvc
	}

	if deps.InventorySource != nil {
		inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
			Source:     deps.InventorySource,
			RefreshTTL: cfg.Catalog.RefreshTTL,
			SourceRef:  fmt.Sprintf("gs://%s/%s", cfg.Catalog.Bucket, cfg.Catalog.Object),
			Clock:      clock,
			Logger:     deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build inventory service: %w", err)
		}
		svc.Inventory = inventorySvc

		catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
			Inventory:    inventorySvc,
			DefaultLimit: cfg.Catalog.DefaultPageSize,
			MaxLimit:     cfg.Catalog.MaxPageSize,
			Logger:       deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build catalog service: %w", err)
		}
		svc.Catalog = catalogSvc
	}

	cartRepo := reg.Carts()
	if cartRepo != nil && svc.Inventory != nil {
		cartSvc, err := services.NewCartService(services.CartServiceDeps{
			Carts:       cartRepo,
			Inventory:   svc.Inventory,
			Clock:       clock,
			IDGenerator: newID,
			Logger:      deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build cart service: %w", err)
		}
		svc.Cart = cartSvc
	}

	ordersRepo := reg.Orders()
	if ordersRepo != nil {
		orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
			Orders:      ordersRepo,
			Carts:       cartRepo,
			Events:      deps.Events,
			Clock:       clock,
			IDGenerator: newID,
			Logger:      deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build order service: %w", err)
		}
		svc.Orders = orderSvc
	}

	quotationsRepo := reg.Quotations()
	if quotationsRepo != nil {
		quotationSvc, err := services.NewQuotationService(services.QuotationServiceDeps{
			Quotations:  quotationsRepo,
			Carts:       cartRepo,
			Events:      deps.Events,
			Clock:       clock,
			IDGenerator: newID,
			Logger:      deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build quotation service: %w", err)
		}
		svc.Quotations = quotationSvc
	}

	if membersRepo := reg.Members(); membersRepo != nil {
		memberSvc, err := services.NewMemberService(services.MemberServiceDeps{
			Members: membersRepo,
			Audit:   svc.Audit,
			Clock:   clock,
			Logger:  deps.Logger,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build member service: %w", err)
		}
		svc.Members = memberSvc
	}

	if ordersRepo != nil && quotationsRepo != nil {
		documentSvc, err := services.NewDocumentService(services.DocumentServiceDeps{
			Orders:     ordersRepo,
			Quotations: quotationsRepo,
			Clock:      clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build document service: %w", err)
		}
		svc.Documents = documentSvc
	}

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: healthRepo,
			Inventory:        svc.Inventory,
			Clock:            clock,
			Build:            deps.Build,
			Audit:            svc.Audit,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
