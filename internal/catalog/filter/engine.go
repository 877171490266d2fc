// internal/catalog/filter/engine.go
package filter

import "marketbot/internal/catalog/domain"

// Apply returns the products satisfying spec, in their original order.
// It is pure and total: every product is either kept or dropped, the
// input slice is never mutated, and filtering never reorders.
func Apply(products []domain.Product, spec domain.FilterSpec) []domain.Product {
	kept := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if Matches(p, spec) {
			kept = append(kept, p)
		}
	}
	return kept
}

// Matches reports whether a single product satisfies spec.
//
// A product without an old price cannot satisfy any discount threshold,
// so it is excluded whenever a discount filter is active. This is a
// documented policy, not an omission.
func Matches(p domain.Product, spec domain.FilterSpec) bool {
	if spec.PriceMin != nil && p.Price < *spec.PriceMin {
		return false
	}
	if spec.PriceMax != nil && p.Price > *spec.PriceMax {
		return false
	}

	if spec.MinDiscountPercent != nil {
		if p.OldPrice == nil {
			return false
		}
		if p.DiscountPercent() < float64(*spec.MinDiscountPercent) {
			return false
		}
	}

	return true
}
