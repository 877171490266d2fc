// internal/catalog/batch/format.go
package batch

import (
	"fmt"
	"strconv"
	"strings"

	"marketbot/internal/catalog/domain"
)

// Format renders one product as its chat display block. Prices are stored
// in minor currency units and shown in major units here; this is the only
// place the conversion happens.
func Format(p domain.Product) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Название: %s\n", p.Name)

	if p.OldPrice != nil {
		fmt.Fprintf(&sb, "Цена: %d руб. (старая цена: %d руб.)\n", p.Price/100, *p.OldPrice/100)
	} else {
		fmt.Fprintf(&sb, "Цена: %d руб.\n", p.Price/100)
	}

	if p.Rating != nil {
		fmt.Fprintf(&sb, "Рейтинг: %s (%d отзывов)\n",
			strconv.FormatFloat(*p.Rating, 'f', -1, 64), p.ReviewCount)
	}

	fmt.Fprintf(&sb, "Ссылка: %s\n\n", p.URL)

	return sb.String()
}
