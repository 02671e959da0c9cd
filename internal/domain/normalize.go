package domain

import "strings"

// NormalizeProduct maps one raw inventory record into the canonical Product
// shape. Total function: missing or malformed fields degrade to zero/empty
// defaults so that partial upstream data is never rejected.
//
// Field resolution order (first defined wins): id from the vendor SKU key
// then the generic id field; name from the vendor item-name field then the
// generic name field; unit price from the vendor final-price field then the
// generic unit-price field, else zero.
func NormalizeProduct(raw RawInventoryRecord) Product {
	product := Product{
		ID:        firstNonEmptyString(raw.SKUKey, raw.ID),
		Name:      firstNonEmptyString(raw.Item, raw.Name),
		Thickness: strings.TrimSpace(raw.Thickness),
		Size:      strings.TrimSpace(raw.Size),
		Material:  strings.TrimSpace(raw.Material),
		Maker:     strings.TrimSpace(raw.Maker),
		Location:  strings.TrimSpace(raw.Location),
	}

	product.UnitPrice = resolveUnitPrice(raw)
	product.LocationStock = resolveLocationStock(raw)
	product.CurrentStock = resolveCurrentStock(raw, product.LocationStock)
	product.StockStatus = resolveStockStatus(raw, product.CurrentStock)

	if raw.MarkingWaitQty != nil && *raw.MarkingWaitQty > 0 {
		product.MarkingWaitQty = *raw.MarkingWaitQty
	}

	return product
}

func resolveUnitPrice(raw RawInventoryRecord) int64 {
	var price float64
	switch {
	case raw.FinalPrice != nil:
		price = *raw.FinalPrice
	case raw.UnitPrice != nil:
		price = *raw.UnitPrice
	}
	if price < 0 {
		return 0
	}
	return int64(price)
}

// resolveLocationStock prefers an upstream-supplied mapping, copied verbatim
// including zero-quantity keys. Only when building the map from the two
// legacy location/quantity field pairs are zero quantities suppressed; when
// both pairs name the same location their quantities are summed.
func resolveLocationStock(raw RawInventoryRecord) map[string]int {
	if len(raw.LocationStock) > 0 {
		stock := make(map[string]int, len(raw.LocationStock))
		for location, qty := range raw.LocationStock {
			if qty < 0 {
				qty = 0
			}
			stock[location] = qty
		}
		return stock
	}

	stock := map[string]int{}
	addPair := func(location string, qty *int) {
		name := strings.TrimSpace(location)
		if name == "" || qty == nil || *qty <= 0 {
			return
		}
		stock[name] += *qty
	}
	addPair(raw.Location, raw.PrimaryQty)
	addPair(raw.SecondaryLocation, raw.SecondaryQty)
	if len(stock) == 0 {
		return nil
	}
	return stock
}

func resolveCurrentStock(raw RawInventoryRecord, locationStock map[string]int) int {
	if len(locationStock) > 0 {
		total := 0
		for _, qty := range locationStock {
			total += qty
		}
		return total
	}
	if raw.LegacyQty != nil && *raw.LegacyQty > 0 {
		return *raw.LegacyQty
	}
	return 0
}

// resolveStockStatus passes through a non-empty upstream status; otherwise
// derives AVAILABLE or OUT_OF_STOCK from the computed stock total.
// CHECK_LEAD_TIME is never derived here.
func resolveStockStatus(raw RawInventoryRecord, currentStock int) StockStatus {
	if status := strings.TrimSpace(raw.StockStatus); status != "" {
		return StockStatus(status)
	}
	if currentStock > 0 {
		return StockStatusAvailable
	}
	return StockStatusOutOfStock
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
