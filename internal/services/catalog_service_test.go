package services

import (
	"context"
	"reflect"
	"testing"

	domain "github.com/fitline/api/internal/domain"
)

type staticInventory struct {
	products []domain.Product
	err      error
}

func (s *staticInventory) Products(context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *staticInventory) Refresh(context.Context) (InventoryRefreshResult, error) {
	return InventoryRefreshResult{Accepted: len(s.products)}, s.err
}

func (s *staticInventory) SnapshotInfo() InventorySnapshotInfo {
	return InventorySnapshotInfo{Count: len(s.products)}
}

func (s *staticInventory) FindByID(_ context.Context, id string) (domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, ErrInventoryNotFound
}

func catalogFixture() []domain.Product {
	return []domain.Product{
		{ID: "A1", Name: "90E(L)", Thickness: "S40S", Size: "15A", Material: "STS304-W", CurrentStock: 8, StockStatus: domain.StockStatusAvailable},
		{ID: "A2", Name: "90E(L)", Thickness: "S40S", Size: "25A", Material: "STS304-W", CurrentStock: 0, StockStatus: domain.StockStatusOutOfStock},
		{ID: "B1", Name: "TEE", Thickness: "S20S", Size: "50A", Material: "STS316-W", CurrentStock: 3, StockStatus: domain.StockStatusAvailable},
		{ID: "C1", Name: "CAP", Thickness: "S40S", Size: "125A", Material: "STS304-W", CurrentStock: 2, StockStatus: domain.StockStatusAvailable},
	}
}

func newTestCatalogService(t *testing.T, inv InventoryService) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{Inventory: inv})
	if err != nil {
		t.Fatalf("NewCatalogService: %v", err)
	}
	return svc
}

func TestCatalogServiceSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(t, &staticInventory{products: catalogFixture()})

	t.Run("criteria narrow the snapshot", func(t *testing.T) {
		result, err := svc.Search(ctx, CatalogSearchCommand{Criteria: FilterCriteria{
			Thicknesses: []string{"S40S"},
			Materials:   []string{"STS304-W"},
			Sizes:       []string{"15A"},
		}})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if result.Total != 1 || len(result.Products) != 1 || result.Products[0].ID != "A1" {
			t.Fatalf("unexpected result: %+v", result)
		}
	})

	t.Run("windowing reports the full total", func(t *testing.T) {
		result, err := svc.Search(ctx, CatalogSearchCommand{Limit: 2})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		// The zero-stock A2 row is cut before windowing, so three rows remain.
		if result.Total != 3 || len(result.Products) != 2 || !result.Truncated {
			t.Fatalf("unexpected window: total=%d len=%d truncated=%v", result.Total, len(result.Products), result.Truncated)
		}

		rest, err := svc.Search(ctx, CatalogSearchCommand{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(rest.Products) != 1 || rest.Truncated {
			t.Fatalf("unexpected second window: %+v", rest)
		}
	})

	t.Run("offset past the end yields empty window", func(t *testing.T) {
		result, err := svc.Search(ctx, CatalogSearchCommand{Offset: 99})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(result.Products) != 0 || result.Total != 3 {
			t.Fatalf("unexpected result: %+v", result)
		}
	})
}

func TestCatalogServiceAvailableSizes(t *testing.T) {
	ctx := context.Background()
	svc := newTestCatalogService(t, &staticInventory{products: catalogFixture()})

	sizes, err := svc.AvailableSizes(ctx, CatalogSizesCommand{Criteria: FilterCriteria{
		Thicknesses: []string{"S40S"},
		Materials:   []string{"STS304-W"},
	}})
	if err != nil {
		t.Fatalf("AvailableSizes: %v", err)
	}
	// A2 has no stock, so only the in-stock sizes appear, in natural order.
	if want := []string{"15A", "125A"}; !reflect.DeepEqual(sizes, want) {
		t.Fatalf("expected %v, got %v", want, sizes)
	}

	sizes, err = svc.AvailableSizes(ctx, CatalogSizesCommand{Criteria: FilterCriteria{
		Thicknesses: []string{"S40S"},
	}})
	if err != nil {
		t.Fatalf("AvailableSizes: %v", err)
	}
	if sizes != nil {
		t.Fatalf("expected no sizes until both facets are chosen, got %v", sizes)
	}
}
