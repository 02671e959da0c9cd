package domain

import (
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestNormalizeProduct(t *testing.T) {
	t.Run("builds location stock from legacy field pairs", func(t *testing.T) {
		raw := RawInventoryRecord{
			SKUKey:            "A1",
			Item:              "90E(L)",
			Thickness:         "S40S",
			Size:              "15A",
			Material:          "STS304-W",
			PrimaryQty:        intPtr(5),
			SecondaryQty:      intPtr(3),
			Location:          "양산",
			SecondaryLocation: "시화",
		}

		product := NormalizeProduct(raw)

		if product.ID != "A1" {
			t.Fatalf("expected id A1 got %q", product.ID)
		}
		if product.Name != "90E(L)" {
			t.Fatalf("expected name 90E(L) got %q", product.Name)
		}
		if product.CurrentStock != 8 {
			t.Fatalf("expected currentStock 8 got %d", product.CurrentStock)
		}
		expected := map[string]int{"양산": 5, "시화": 3}
		if !reflect.DeepEqual(product.LocationStock, expected) {
			t.Fatalf("expected %v got %v", expected, product.LocationStock)
		}
		if product.StockStatus != StockStatusAvailable {
			t.Fatalf("expected AVAILABLE got %q", product.StockStatus)
		}
	})

	t.Run("sums quantities when both pairs name the same location", func(t *testing.T) {
		raw := RawInventoryRecord{
			ID:                "B2",
			Name:              "TEE",
			Location:          "양산",
			SecondaryLocation: "양산",
			PrimaryQty:        intPtr(4),
			SecondaryQty:      intPtr(6),
		}

		product := NormalizeProduct(raw)

		if product.LocationStock["양산"] != 10 {
			t.Fatalf("expected summed quantity 10 got %d", product.LocationStock["양산"])
		}
		if product.CurrentStock != 10 {
			t.Fatalf("expected currentStock 10 got %d", product.CurrentStock)
		}
	})

	t.Run("copies a supplied location stock map verbatim including zeros", func(t *testing.T) {
		raw := RawInventoryRecord{
			ID:            "C3",
			LocationStock: map[string]int{"양산": 0, "시화": 7},
		}

		product := NormalizeProduct(raw)

		if _, ok := product.LocationStock["양산"]; !ok {
			t.Fatalf("expected zero-quantity key to survive a verbatim copy")
		}
		if product.CurrentStock != 7 {
			t.Fatalf("expected currentStock 7 got %d", product.CurrentStock)
		}
	})

	t.Run("drops zero quantities only when constructing from pairs", func(t *testing.T) {
		raw := RawInventoryRecord{
			ID:                "D4",
			Location:          "양산",
			PrimaryQty:        intPtr(0),
			SecondaryLocation: "시화",
			SecondaryQty:      intPtr(2),
		}

		product := NormalizeProduct(raw)

		if _, ok := product.LocationStock["양산"]; ok {
			t.Fatalf("expected zero-quantity pair to be suppressed")
		}
		if product.CurrentStock != 2 {
			t.Fatalf("expected currentStock 2 got %d", product.CurrentStock)
		}
	})

	t.Run("falls back to the legacy quantity field", func(t *testing.T) {
		raw := RawInventoryRecord{ID: "E5", LegacyQty: intPtr(12)}

		product := NormalizeProduct(raw)

		if product.CurrentStock != 12 {
			t.Fatalf("expected currentStock 12 got %d", product.CurrentStock)
		}
		if len(product.LocationStock) != 0 {
			t.Fatalf("expected empty location stock got %v", product.LocationStock)
		}
	})

	t.Run("current stock equals the sum of location stock values", func(t *testing.T) {
		records := []RawInventoryRecord{
			{ID: "1", LocationStock: map[string]int{"a": 1, "b": 2, "c": 3}},
			{ID: "2", Location: "x", PrimaryQty: intPtr(9), SecondaryLocation: "y", SecondaryQty: intPtr(1)},
			{ID: "3", LocationStock: map[string]int{"only": 0}},
		}
		for _, raw := range records {
			product := NormalizeProduct(raw)
			if len(product.LocationStock) == 0 {
				continue
			}
			total := 0
			for _, qty := range product.LocationStock {
				total += qty
			}
			if product.CurrentStock != total {
				t.Fatalf("record %s: currentStock %d != sum %d", raw.ID, product.CurrentStock, total)
			}
		}
	})

	t.Run("derives stock status when upstream omits it", func(t *testing.T) {
		inStock := NormalizeProduct(RawInventoryRecord{ID: "1", LegacyQty: intPtr(1)})
		if inStock.StockStatus != StockStatusAvailable {
			t.Fatalf("expected AVAILABLE got %q", inStock.StockStatus)
		}
		empty := NormalizeProduct(RawInventoryRecord{ID: "2"})
		if empty.StockStatus != StockStatusOutOfStock {
			t.Fatalf("expected OUT_OF_STOCK got %q", empty.StockStatus)
		}
	})

	t.Run("passes through an upstream stock status", func(t *testing.T) {
		product := NormalizeProduct(RawInventoryRecord{ID: "1", StockStatus: "CHECK_LEAD_TIME"})
		if product.StockStatus != StockStatusCheckLeadTime {
			t.Fatalf("expected passthrough status got %q", product.StockStatus)
		}
	})

	t.Run("resolves price preferring the vendor final price", func(t *testing.T) {
		product := NormalizeProduct(RawInventoryRecord{ID: "1", FinalPrice: floatPtr(1500), UnitPrice: floatPtr(900)})
		if product.UnitPrice != 1500 {
			t.Fatalf("expected final price 1500 got %d", product.UnitPrice)
		}
		fallback := NormalizeProduct(RawInventoryRecord{ID: "2", UnitPrice: floatPtr(900)})
		if fallback.UnitPrice != 900 {
			t.Fatalf("expected unit price 900 got %d", fallback.UnitPrice)
		}
		missing := NormalizeProduct(RawInventoryRecord{ID: "3"})
		if missing.UnitPrice != 0 {
			t.Fatalf("expected zero price got %d", missing.UnitPrice)
		}
		negative := NormalizeProduct(RawInventoryRecord{ID: "4", FinalPrice: floatPtr(-10)})
		if negative.UnitPrice != 0 {
			t.Fatalf("expected negative price clamped to zero got %d", negative.UnitPrice)
		}
	})
}

func TestRawInventoryRecordUnmarshalJSON(t *testing.T) {
	t.Run("accepts mixed conventions and numeric strings", func(t *testing.T) {
		payload := []byte(`{
			"sku_key": "A1",
			"item": "90E(L)",
			"thickness": "S40S",
			"size": "15A",
			"material": "STS304-W",
			"ready_qty": "5",
			"shQty": 3,
			"location": "양산",
			"location1": "시화",
			"final_price": "1200"
		}`)

		var raw RawInventoryRecord
		if err := raw.UnmarshalJSON(payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		product := NormalizeProduct(raw)
		if product.ID != "A1" || product.Name != "90E(L)" {
			t.Fatalf("unexpected identity fields: %+v", product)
		}
		if product.CurrentStock != 8 {
			t.Fatalf("expected currentStock 8 got %d", product.CurrentStock)
		}
		if product.UnitPrice != 1200 {
			t.Fatalf("expected price 1200 got %d", product.UnitPrice)
		}
	})

	t.Run("ignores malformed values", func(t *testing.T) {
		payload := []byte(`{"id": 42, "ready_qty": "many", "location": "양산"}`)

		var raw RawInventoryRecord
		if err := raw.UnmarshalJSON(payload); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if raw.ID != "42" {
			t.Fatalf("expected numeric id coerced to string got %q", raw.ID)
		}
		if raw.PrimaryQty != nil {
			t.Fatalf("expected unparseable quantity to stay unset")
		}
		product := NormalizeProduct(raw)
		if product.CurrentStock != 0 {
			t.Fatalf("expected zero stock got %d", product.CurrentStock)
		}
	})
}

func TestDecodeInventorySnapshot(t *testing.T) {
	t.Run("accepts a bare array", func(t *testing.T) {
		records, err := DecodeInventorySnapshot([]byte(`[{"id":"1"},{"id":"2"}]`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records got %d", len(records))
		}
	})

	t.Run("accepts an items wrapper", func(t *testing.T) {
		records, err := DecodeInventorySnapshot([]byte(`{"items":[{"id":"1"}]}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || records[0].ID != "1" {
			t.Fatalf("unexpected records: %+v", records)
		}
	})

	t.Run("returns nil for an empty payload", func(t *testing.T) {
		records, err := DecodeInventorySnapshot([]byte("  "))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if records != nil {
			t.Fatalf("expected nil got %v", records)
		}
	})
}
