// internal/catalog/normalize/normalizer.go
package normalize

import (
	std "errors"
	"fmt"
	"strings"

	"marketbot/internal/catalog/domain"
	"marketbot/internal/catalog/fetch"
	"marketbot/internal/common/errors"
	"marketbot/internal/common/metrics"
)

// Skip reasons, used as metric labels.
const (
	SkipMissingID     = "missing_id"
	SkipMissingName   = "missing_name"
	SkipMissingPrice  = "missing_price"
	SkipPriceConflict = "price_conflict"
)

// Normalizer converts raw upstream records into canonical Products.
// Upstream already quotes prices in minor currency units (hundredths), so
// normalization keeps them as-is; the canonical model never sees major
// units.
type Normalizer struct {
	productURLTemplate string
}

func New(productURLTemplate string) *Normalizer {
	return &Normalizer{productURLTemplate: productURLTemplate}
}

// Normalize maps one raw record to a Product. A record missing id, name
// or price, or carrying an old price below the sale price, is skipped with
// RECORD_SKIPPED; one bad record never aborts its page.
func (n *Normalizer) Normalize(rec fetch.RawRecord) (domain.Product, error) {
	if rec.ID == nil || *rec.ID <= 0 {
		return domain.Product{}, errors.NewRecordSkippedError(SkipMissingID)
	}

	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return domain.Product{}, errors.NewRecordSkippedError(SkipMissingName)
	}

	if len(rec.Sizes) == 0 || rec.Sizes[0].Price == nil {
		return domain.Product{}, errors.NewRecordSkippedError(SkipMissingPrice)
	}
	price := rec.Sizes[0].Price.Product
	basic := rec.Sizes[0].Price.Basic
	if price <= 0 {
		return domain.Product{}, errors.NewRecordSkippedError(SkipMissingPrice)
	}
	if basic > 0 && basic < price {
		return domain.Product{}, errors.NewRecordSkippedError(SkipPriceConflict)
	}

	p := domain.Product{
		ID:    *rec.ID,
		Name:  name,
		Brand: strings.TrimSpace(rec.Brand),
		Price: price,
		URL:   fmt.Sprintf(n.productURLTemplate, *rec.ID),
	}

	if basic > 0 {
		old := basic
		p.OldPrice = &old
	}

	if rec.Feedbacks != nil && *rec.Feedbacks > 0 {
		p.ReviewCount = *rec.Feedbacks
		// No reviews means no rating; an out-of-range value is treated
		// as absent rather than an error.
		if rec.Rating != nil && *rec.Rating >= 0 && *rec.Rating <= 5 {
			r := *rec.Rating
			p.Rating = &r
		}
	}

	return p, nil
}

// NormalizeAll maps a page of records in upstream order, counting skips
// for observability. Ordering of kept products matches the input exactly.
func (n *Normalizer) NormalizeAll(records []fetch.RawRecord) ([]domain.Product, int) {
	products := make([]domain.Product, 0, len(records))
	skipped := 0

	for _, rec := range records {
		p, err := n.Normalize(rec)
		if err != nil {
			skipped++
			reason := "unknown"
			var stdErr *errors.StandardError
			if std.As(err, &stdErr) {
				reason = stdErr.Details
			}
			metrics.RecordsSkipped.WithLabelValues(reason).Inc()
			continue
		}
		products = append(products, p)
	}

	return products, skipped
}
