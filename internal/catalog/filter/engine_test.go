// internal/catalog/filter/engine_test.go
package filter

import (
	"testing"

	"marketbot/internal/catalog/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }
func iptr(v int) *int    { return &v }

func priced(id, price int64) domain.Product {
	return domain.Product{ID: id, Name: "p", Price: price}
}

func discounted(id, price, oldPrice int64) domain.Product {
	p := priced(id, price)
	p.OldPrice = &oldPrice
	return p
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestApply_PriceRange(t *testing.T) {
	products := []domain.Product{priced(1, 500), priced(2, 1500), priced(3, 3000)}

	got := Apply(products, domain.FilterSpec{PriceMin: i64(1000), PriceMax: i64(2000)})

	require.Len(t, got, 1)
	assert.Equal(t, int64(1500), got[0].Price)
}

func TestApply_PriceBoundsAreInclusive(t *testing.T) {
	products := []domain.Product{priced(1, 1000), priced(2, 2000)}

	got := Apply(products, domain.FilterSpec{PriceMin: i64(1000), PriceMax: i64(2000)})
	assert.Len(t, got, 2)
}

func TestApply_AbsentBoundIsUnbounded(t *testing.T) {
	products := []domain.Product{priced(1, 1), priced(2, 1000000)}

	assert.Len(t, Apply(products, domain.FilterSpec{PriceMin: i64(2)}), 1)
	assert.Len(t, Apply(products, domain.FilterSpec{PriceMax: i64(999999)}), 1)
	assert.Len(t, Apply(products, domain.FilterSpec{}), 2)
}

func TestApply_DiscountThreshold(t *testing.T) {
	products := []domain.Product{
		discounted(1, 800, 1000), // 20% off
		discounted(2, 700, 1000), // 30% off
	}

	got := Apply(products, domain.FilterSpec{MinDiscountPercent: iptr(25)})

	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestApply_NoOldPriceExcludedUnderDiscountFilter(t *testing.T) {
	products := []domain.Product{
		priced(1, 500),
		discounted(2, 500, 1000),
	}

	got := Apply(products, domain.FilterSpec{MinDiscountPercent: iptr(10)})

	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	// Without a discount filter the same product is kept.
	assert.Len(t, Apply(products, domain.FilterSpec{}), 2)
}

func TestApply_PreservesOrder(t *testing.T) {
	products := []domain.Product{
		priced(5, 100), priced(3, 200), priced(9, 300), priced(1, 400),
	}

	got := Apply(products, domain.FilterSpec{PriceMin: i64(150)})
	assert.Equal(t, []int64{3, 9, 1}, ids(got))
}

func TestApply_Idempotent(t *testing.T) {
	products := []domain.Product{
		discounted(1, 700, 1000),
		priced(2, 1500),
		discounted(3, 950, 1000),
	}
	spec := domain.FilterSpec{PriceMax: i64(2000), MinDiscountPercent: iptr(5)}

	once := Apply(products, spec)
	twice := Apply(once, spec)

	assert.Equal(t, once, twice)
}

func TestApply_EmptyInput(t *testing.T) {
	got := Apply(nil, domain.FilterSpec{PriceMin: i64(1)})
	assert.Empty(t, got)
}
