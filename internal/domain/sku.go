package domain

import "strings"

// ComposeSKUKey builds the dash-joined composite business key from the four
// identifying fields, dropping empty segments. The key is a deliberate
// soft-matching identifier and is lossy when a field contains a literal dash;
// re-linking therefore matches on the field tuple (see MatchesSKUFields) and
// stores the key for display and linking only.
func ComposeSKUKey(name, thickness, size, material string) string {
	segments := make([]string, 0, 4)
	for _, segment := range []string{name, thickness, size, material} {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			segments = append(segments, trimmed)
		}
	}
	return strings.Join(segments, "-")
}

// MatchesSKUFields reports whether the product's identifying tuple equals
// the given fields after trimming.
func (p Product) MatchesSKUFields(name, thickness, size, material string) bool {
	return strings.TrimSpace(p.Name) == strings.TrimSpace(name) &&
		strings.TrimSpace(p.Thickness) == strings.TrimSpace(thickness) &&
		strings.TrimSpace(p.Size) == strings.TrimSpace(size) &&
		strings.TrimSpace(p.Material) == strings.TrimSpace(material)
}

// StockShortage classifies how far a requested quantity exceeds what is on
// hand. Render-time annotation only, never persisted.
type StockShortage string

const (
	// StockShortageNone means the requested quantity is covered by stock.
	StockShortageNone StockShortage = "NONE"
	// StockShortageBackorder means quantity exceeds current stock but the
	// marking-wait quantity can cover the difference.
	StockShortageBackorder StockShortage = "BACKORDER"
	// StockShortageLeadTime means quantity exceeds current stock plus the
	// marking-wait quantity and needs a delivery-date confirmation.
	StockShortageLeadTime StockShortage = "LEAD_TIME"
)

// AssessStockShortage computes the shortage annotation for a requested
// quantity against a product's stock figures.
func AssessStockShortage(quantity, currentStock, markingWaitQty int) StockShortage {
	if quantity <= currentStock {
		return StockShortageNone
	}
	if quantity <= currentStock+markingWaitQty {
		return StockShortageBackorder
	}
	return StockShortageLeadTime
}
