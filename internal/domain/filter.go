package domain

import (
	"strings"

	"github.com/fitline/api/internal/platform/textutil"
)

// FilterCriteria is the value object recognized by the progressive filter
// pipeline. Empty sets and blank strings are no-ops for their stage.
type FilterCriteria struct {
	// CategoryKeywords keeps products whose name contains any keyword.
	CategoryKeywords []string
	// SubNames, when non-empty, overrides CategoryKeywords with an exact
	// name match against the chosen sub-names.
	SubNames []string
	// Query is a case-insensitive free-text substring matched against
	// name, size, material and maker.
	Query string
	// Thicknesses, Materials and Sizes are set-membership constraints.
	Thicknesses []string
	Materials   []string
	Sizes       []string
	// SizeQuery is the secondary size free-text box. While it is active,
	// zero-stock products stay visible so never-stocked sizes can be quoted.
	SizeQuery string
	// Locations keeps products with positive quantity in at least one
	// selected location. Selecting every known location means "no filter".
	Locations []string
	// AllLocations is the full known location set used to detect the
	// select-all case for the location stage.
	AllLocations []string
}

// SizeSearchActive reports whether the secondary size free-text search is in
// effect, which disables the zero-stock visibility cut.
func (c FilterCriteria) SizeSearchActive() bool {
	return strings.TrimSpace(c.SizeQuery) != ""
}

// FilterProducts narrows the normalized collection through the fixed stage
// order: category, free-text query, thickness, material, size, stock
// visibility, location. Pure and deterministic; output preserves input
// order; an empty result is a "no results" condition, not an error.
func FilterProducts(products []Product, criteria FilterCriteria) []Product {
	out := matchCategoryAndQuery(products, criteria)
	out = filterByMembership(out, criteria.Thicknesses, func(p Product) string { return p.Thickness })
	out = filterByMembership(out, criteria.Materials, func(p Product) string { return p.Material })
	out = filterByMembership(out, criteria.Sizes, func(p Product) string { return p.Size })
	out = filterByStockVisibility(out, criteria)
	out = filterByLocation(out, criteria)
	return out
}

// AvailableSizes computes the derived size facet: distinct sizes from the
// category+query stage output, restricted by the selected thickness and
// material sets, restricted to in-stock products, sorted naturally
// ("10A" before "125A") and filtered by the secondary size free-text box.
// Returns an empty facet until both thickness and material have at least one
// selection, to keep facet lists manageable.
func AvailableSizes(products []Product, criteria FilterCriteria) []string {
	if len(criteria.Thicknesses) == 0 || len(criteria.Materials) == 0 {
		return nil
	}

	matched := matchCategoryAndQuery(products, criteria)
	matched = filterByMembership(matched, criteria.Thicknesses, func(p Product) string { return p.Thickness })
	matched = filterByMembership(matched, criteria.Materials, func(p Product) string { return p.Material })

	seen := map[string]struct{}{}
	var sizes []string
	for _, product := range matched {
		if product.CurrentStock <= 0 {
			continue
		}
		size := strings.TrimSpace(product.Size)
		if size == "" {
			continue
		}
		if !textutil.ContainsFold(size, criteria.SizeQuery) {
			continue
		}
		if _, ok := seen[size]; ok {
			continue
		}
		seen[size] = struct{}{}
		sizes = append(sizes, size)
	}
	textutil.SortNatural(sizes)
	return sizes
}

// matchCategoryAndQuery applies the first two pipeline stages. Both
// FilterProducts and AvailableSizes build on this projection so the facet
// reuses the stage output instead of rescanning the raw collection.
func matchCategoryAndQuery(products []Product, criteria FilterCriteria) []Product {
	out := filterByCategory(products, criteria)
	return filterByQuery(out, criteria.Query)
}

func filterByCategory(products []Product, criteria FilterCriteria) []Product {
	subNames := trimmedSet(criteria.SubNames)
	if len(subNames) > 0 {
		return keep(products, func(p Product) bool {
			_, ok := subNames[strings.TrimSpace(p.Name)]
			return ok
		})
	}

	keywords := make([]string, 0, len(criteria.CategoryKeywords))
	for _, keyword := range criteria.CategoryKeywords {
		if folded := textutil.Fold(keyword); folded != "" {
			keywords = append(keywords, folded)
		}
	}
	if len(keywords) == 0 {
		return products
	}
	return keep(products, func(p Product) bool {
		name := textutil.Fold(p.Name)
		for _, keyword := range keywords {
			if strings.Contains(name, keyword) {
				return true
			}
		}
		return false
	})
}

func filterByQuery(products []Product, query string) []Product {
	folded := textutil.Fold(query)
	if folded == "" {
		return products
	}
	return keep(products, func(p Product) bool {
		return strings.Contains(textutil.Fold(p.Name), folded) ||
			strings.Contains(textutil.Fold(p.Size), folded) ||
			strings.Contains(textutil.Fold(p.Material), folded) ||
			strings.Contains(textutil.Fold(p.Maker), folded)
	})
}

func filterByMembership(products []Product, selected []string, field func(Product) string) []Product {
	members := trimmedSet(selected)
	if len(members) == 0 {
		return products
	}
	return keep(products, func(p Product) bool {
		_, ok := members[strings.TrimSpace(field(p))]
		return ok
	})
}

// filterByStockVisibility drops zero-stock products unless a size free-text
// search is active, in which case never-stocked sizes stay quotable.
func filterByStockVisibility(products []Product, criteria FilterCriteria) []Product {
	if criteria.SizeSearchActive() {
		return products
	}
	return keep(products, func(p Product) bool {
		return p.CurrentStock > 0
	})
}

// filterByLocation keeps products with positive quantity in at least one
// selected location, falling back to a substring match on the plain location
// field when no per-location map exists. Selecting the full location set
// disables the stage entirely.
func filterByLocation(products []Product, criteria FilterCriteria) []Product {
	selected := trimmedSet(criteria.Locations)
	if len(selected) == 0 {
		return products
	}
	all := trimmedSet(criteria.AllLocations)
	if len(all) > 0 && setsEqual(selected, all) {
		return products
	}

	return keep(products, func(p Product) bool {
		if len(p.LocationStock) > 0 {
			for location := range selected {
				if p.LocationStock[location] > 0 {
					return true
				}
			}
			return false
		}
		for location := range selected {
			if location != "" && strings.Contains(p.Location, location) {
				return true
			}
		}
		return false
	})
}

func keep(products []Product, predicate func(Product) bool) []Product {
	out := make([]Product, 0, len(products))
	for _, product := range products {
		if predicate(product) {
			out = append(out, product)
		}
	}
	return out
}

func trimmedSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for key := range a {
		if _, ok := b[key]; !ok {
			return false
		}
	}
	return true
}
