package domain

import (
	"reflect"
	"testing"
)

func fixtureProducts() []Product {
	return []Product{
		{
			ID: "A1", Name: "90E(L)", Thickness: "S40S", Size: "15A", Material: "STS304-W",
			CurrentStock: 8, LocationStock: map[string]int{"양산": 5, "시화": 3},
			StockStatus: StockStatusAvailable, Maker: "성광",
		},
		{
			ID: "A2", Name: "90E(L)", Thickness: "S40S", Size: "25A", Material: "STS304-W",
			CurrentStock: 0, LocationStock: map[string]int{},
			StockStatus: StockStatusOutOfStock,
		},
		{
			ID: "B1", Name: "TEE", Thickness: "S20S", Size: "15A", Material: "STS316-W",
			CurrentStock: 4, LocationStock: map[string]int{"시화": 4},
			StockStatus: StockStatusAvailable,
		},
		{
			ID: "C1", Name: "CAP", Thickness: "S40S", Size: "50A", Material: "STS304-W",
			CurrentStock: 2, Location: "양산",
			StockStatus: StockStatusAvailable,
		},
	}
}

func productIDs(products []Product) []string {
	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestFilterProducts(t *testing.T) {
	products := fixtureProducts()

	t.Run("category keyword with thickness and material narrows to one", func(t *testing.T) {
		criteria := FilterCriteria{
			CategoryKeywords: []string{"E(L)"},
			Thicknesses:      []string{"S40S"},
			Materials:        []string{"STS304-W"},
		}
		result := FilterProducts(products, criteria)
		if len(result) != 1 || result[0].ID != "A1" {
			t.Fatalf("expected exactly A1, got %v", productIDs(result))
		}
	})

	t.Run("sub-names require an exact name match", func(t *testing.T) {
		criteria := FilterCriteria{SubNames: []string{"TEE"}}
		result := FilterProducts(products, criteria)
		if len(result) != 1 || result[0].ID != "B1" {
			t.Fatalf("expected exactly B1, got %v", productIDs(result))
		}
	})

	t.Run("free-text query matches name size material and maker", func(t *testing.T) {
		result := FilterProducts(products, FilterCriteria{Query: "성광"})
		if len(result) != 1 || result[0].ID != "A1" {
			t.Fatalf("expected maker match on A1, got %v", productIDs(result))
		}
		result = FilterProducts(products, FilterCriteria{Query: "sts316"})
		if len(result) != 1 || result[0].ID != "B1" {
			t.Fatalf("expected case-insensitive material match on B1, got %v", productIDs(result))
		}
	})

	t.Run("zero-stock products are hidden unless a size search is active", func(t *testing.T) {
		base := FilterCriteria{CategoryKeywords: []string{"90E"}}
		hidden := FilterProducts(products, base)
		if !reflect.DeepEqual(productIDs(hidden), []string{"A1"}) {
			t.Fatalf("expected zero-stock A2 hidden, got %v", productIDs(hidden))
		}

		withSearch := base
		withSearch.SizeQuery = "25"
		visible := FilterProducts(products, withSearch)
		if len(visible) < len(hidden) {
			t.Fatalf("size search must never decrease the result count")
		}
		if !reflect.DeepEqual(productIDs(visible), []string{"A1", "A2"}) {
			t.Fatalf("expected zero-stock A2 visible, got %v", productIDs(visible))
		}
	})

	t.Run("location stage checks per-location stock with substring fallback", func(t *testing.T) {
		criteria := FilterCriteria{
			Locations:    []string{"양산"},
			AllLocations: []string{"양산", "시화"},
		}
		result := FilterProducts(products, criteria)
		// A1 has mapped stock in 양산; C1 has no map but a matching plain location.
		if !reflect.DeepEqual(productIDs(result), []string{"A1", "C1"}) {
			t.Fatalf("expected A1 and C1, got %v", productIDs(result))
		}
	})

	t.Run("selecting every location disables the stage", func(t *testing.T) {
		criteria := FilterCriteria{
			Locations:    []string{"양산", "시화"},
			AllLocations: []string{"시화", "양산"},
		}
		result := FilterProducts(products, criteria)
		if !reflect.DeepEqual(productIDs(result), []string{"A1", "B1", "C1"}) {
			t.Fatalf("expected only the stock cut to apply, got %v", productIDs(result))
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		criteria := FilterCriteria{
			CategoryKeywords: []string{"E(L)"},
			Thicknesses:      []string{"S40S"},
		}
		once := FilterProducts(products, criteria)
		twice := FilterProducts(once, criteria)
		if !reflect.DeepEqual(productIDs(once), productIDs(twice)) {
			t.Fatalf("expected idempotent pipeline: %v vs %v", productIDs(once), productIDs(twice))
		}
	})

	t.Run("monotonic narrowing", func(t *testing.T) {
		loose := FilterCriteria{CategoryKeywords: []string{"E(L)"}, SizeQuery: "a"}
		tight := loose
		tight.Materials = []string{"STS304-W"}
		tight.Sizes = []string{"15A"}

		looseIDs := productIDs(FilterProducts(products, loose))
		tightIDs := productIDs(FilterProducts(products, tight))

		looseSet := map[string]struct{}{}
		for _, id := range looseIDs {
			looseSet[id] = struct{}{}
		}
		for _, id := range tightIDs {
			if _, ok := looseSet[id]; !ok {
				t.Fatalf("tighter criteria produced %s outside the looser result %v", id, looseIDs)
			}
		}
	})

	t.Run("preserves input order", func(t *testing.T) {
		result := FilterProducts(products, FilterCriteria{})
		if !reflect.DeepEqual(productIDs(result), []string{"A1", "B1", "C1"}) {
			t.Fatalf("expected input order preserved, got %v", productIDs(result))
		}
	})

	t.Run("empty input propagates to an empty result", func(t *testing.T) {
		if len(FilterProducts(nil, FilterCriteria{Query: "x"})) != 0 {
			t.Fatalf("expected empty result")
		}
	})
}

func TestAvailableSizes(t *testing.T) {
	products := fixtureProducts()

	t.Run("empty until thickness and material are both selected", func(t *testing.T) {
		if sizes := AvailableSizes(products, FilterCriteria{}); sizes != nil {
			t.Fatalf("expected empty facet got %v", sizes)
		}
		if sizes := AvailableSizes(products, FilterCriteria{Thicknesses: []string{"S40S"}}); sizes != nil {
			t.Fatalf("expected empty facet without material got %v", sizes)
		}
	})

	t.Run("distinct in-stock sizes sorted naturally", func(t *testing.T) {
		extra := append([]Product{}, products...)
		extra = append(extra, Product{
			ID: "D1", Name: "90E(L)", Thickness: "S40S", Size: "125A", Material: "STS304-W",
			CurrentStock: 1, StockStatus: StockStatusAvailable,
		})
		criteria := FilterCriteria{
			Thicknesses: []string{"S40S"},
			Materials:   []string{"STS304-W"},
		}
		sizes := AvailableSizes(extra, criteria)
		expected := []string{"15A", "50A", "125A"}
		if !reflect.DeepEqual(sizes, expected) {
			t.Fatalf("expected %v got %v", expected, sizes)
		}
	})

	t.Run("zero-stock sizes are excluded from the facet", func(t *testing.T) {
		criteria := FilterCriteria{
			Thicknesses: []string{"S40S"},
			Materials:   []string{"STS304-W"},
		}
		for _, size := range AvailableSizes(products, criteria) {
			if size == "25A" {
				t.Fatalf("expected zero-stock size 25A excluded")
			}
		}
	})

	t.Run("size free-text box filters the facet", func(t *testing.T) {
		criteria := FilterCriteria{
			Thicknesses: []string{"S40S"},
			Materials:   []string{"STS304-W"},
			SizeQuery:   "15",
		}
		sizes := AvailableSizes(products, criteria)
		if !reflect.DeepEqual(sizes, []string{"15A"}) {
			t.Fatalf("expected [15A] got %v", sizes)
		}
	})
}
