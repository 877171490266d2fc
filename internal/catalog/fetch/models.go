// internal/catalog/fetch/models.go
package fetch

// RawRecord is one unvalidated product entry exactly as the upstream
// catalog API returns it. Optional fields stay pointers so the normalizer
// can tell "absent" from "zero".
type RawRecord struct {
	ID        *int64    `json:"id"`
	Name      string    `json:"name"`
	Brand     string    `json:"brand"`
	Rating    *float64  `json:"rating"`
	Feedbacks *int      `json:"feedbacks"`
	Supplier  string    `json:"supplier"`
	Sizes     []RawSize `json:"sizes"`
}

// RawSize carries the per-size price block. The first size holds the
// category-page price.
type RawSize struct {
	Price *RawPrice `json:"price"`
}

// RawPrice is upstream's price pair in minor currency units (hundredths).
// Basic is the pre-discount price, Product the current sale price.
type RawPrice struct {
	Basic   int64 `json:"basic"`
	Product int64 `json:"product"`
}

// page mirrors the expected catalog page envelope.
type page struct {
	Data struct {
		Products []RawRecord `json:"products"`
	} `json:"data"`
}

// Query holds the per-search fetch parameters. Price bounds are passed
// upstream as server-side hints only; authoritative filtering happens
// after normalization.
type Query struct {
	PriceMin           *int64
	PriceMax           *int64
	MinDiscountPercent *int
	MaxPages           int
}

// Stats summarizes one fetch run. Incomplete marks a run that stopped
// early because a page exhausted its retry budget; whatever was collected
// before that is still valid.
type Stats struct {
	Pages      int
	Incomplete bool
}
