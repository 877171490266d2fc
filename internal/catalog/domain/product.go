// internal/catalog/domain/product.go
package domain

import "fmt"

// Product is the canonical, normalized product entity. Instances are
// created once by the normalizer and never mutated afterwards.
type Product struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Brand       string   `json:"brand,omitempty"`
	Price       int64    `json:"price"`              // minor currency units
	OldPrice    *int64   `json:"oldPrice,omitempty"` // pre-discount, >= Price when set
	Rating      *float64 `json:"rating,omitempty"`   // [0.0, 5.0], nil when no reviews
	ReviewCount int      `json:"reviewCount"`
	URL         string   `json:"url"`
}

// DiscountPercent returns the discount in percent, or 0 when no old price
// is known.
func (p Product) DiscountPercent() float64 {
	if p.OldPrice == nil || *p.OldPrice <= 0 {
		return 0
	}
	return float64(*p.OldPrice-p.Price) / float64(*p.OldPrice) * 100
}

// FilterSpec holds the user-selectable predicates applied to normalized
// products. Absent bounds leave that side unbounded.
type FilterSpec struct {
	PriceMin           *int64 `json:"priceMin,omitempty"` // minor currency units
	PriceMax           *int64 `json:"priceMax,omitempty"`
	MinDiscountPercent *int   `json:"minDiscountPercent,omitempty"` // 0-100
}

// Validate checks internal consistency of the filter settings.
func (s FilterSpec) Validate() error {
	if s.PriceMin != nil && s.PriceMax != nil && *s.PriceMin > *s.PriceMax {
		return fmt.Errorf("priceMin (%d) > priceMax (%d)", *s.PriceMin, *s.PriceMax)
	}
	if s.MinDiscountPercent != nil && (*s.MinDiscountPercent < 0 || *s.MinDiscountPercent > 100) {
		return fmt.Errorf("minDiscountPercent (%d) out of range [0,100]", *s.MinDiscountPercent)
	}
	return nil
}

// CategoryQuery is the resolved input to one search pipeline run.
type CategoryQuery struct {
	CategoryID string     `json:"categoryId"`
	Filters    FilterSpec `json:"filters"`
	MaxItems   int        `json:"maxItems"`
	MaxPages   int        `json:"maxPages"`
}

// Batch is an ordered, non-empty group of products sized to fit one
// outbound display unit, together with its pre-rendered text.
type Batch struct {
	Products []Product `json:"products"`
	Text     string    `json:"text"`
}

// SearchResult is the output of one pipeline run. Incomplete marks results
// collected before the fetch degraded; partial results are valid output.
type SearchResult struct {
	CategoryID string  `json:"categoryId"`
	Batches    []Batch `json:"batches"`
	Total      int     `json:"total"`
	Skipped    int     `json:"skipped"`
	Incomplete bool    `json:"incomplete"`
}
