// internal/catalog/batch/split.go
package batch

import (
	"strings"
	"unicode/utf8"

	"marketbot/internal/catalog/domain"
)

// Split partitions products into display batches, greedily filling each
// batch until adding the next product would exceed maxChars or maxItems.
// Character limits count runes, not bytes, since chat platforms measure
// message length in characters.
//
// Ordering is preserved: concatenating the batches reproduces the input
// exactly. A single product whose block alone exceeds maxChars still gets
// its own batch rather than being dropped.
func Split(products []domain.Product, maxChars, maxItems int) []domain.Batch {
	if len(products) == 0 {
		return nil
	}

	var batches []domain.Batch
	var cur []domain.Product
	var text strings.Builder
	chars := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		batches = append(batches, domain.Batch{Products: cur, Text: text.String()})
		cur = nil
		text.Reset()
		chars = 0
	}

	for _, p := range products {
		block := Format(p)
		blockChars := utf8.RuneCountInString(block)

		overChars := maxChars > 0 && len(cur) > 0 && chars+blockChars > maxChars
		overItems := maxItems > 0 && len(cur) >= maxItems
		if overChars || overItems {
			flush()
		}

		cur = append(cur, p)
		text.WriteString(block)
		chars += blockChars
	}
	flush()

	return batches
}
