// internal/catalog/link/parser_test.go
package link

import (
	"testing"

	"marketbot/internal/common/errors"

	"github.com/stretchr/testify/assert"
)

func newTestParser() *Parser {
	return NewParser([]string{"www.wildberries.ru", "wildberries.ru"})
}

func TestParser_Parse_Category(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    string
	}{
		{
			name:   "full category path",
			rawURL: "https://www.wildberries.ru/catalog/sport/vidy-sporta/velosport/velosipedy",
			want:   "/catalog/sport/vidy-sporta/velosport/velosipedy",
		},
		{
			name:   "bare host without www",
			rawURL: "https://wildberries.ru/catalog/elektronika",
			want:   "/catalog/elektronika",
		},
		{
			name:   "trailing slash stripped",
			rawURL: "https://www.wildberries.ru/catalog/sport/velosipedy/",
			want:   "/catalog/sport/velosipedy",
		},
		{
			name:   "uppercase normalized",
			rawURL: "https://www.wildberries.ru/Catalog/Sport/Velosipedy",
			want:   "/catalog/sport/velosipedy",
		},
		{
			name:   "query string ignored",
			rawURL: "https://www.wildberries.ru/catalog/sport/velosipedy?sort=popular&page=2",
			want:   "/catalog/sport/velosipedy",
		},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Parse(tt.rawURL)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Identifier must be deterministic.
			again, err := p.Parse(tt.rawURL)
			assert.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestParser_Parse_InvalidLink(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
	}{
		{name: "empty", rawURL: ""},
		{name: "not a url", rawURL: "://broken"},
		{name: "unknown domain", rawURL: "https://marketplace.example/catalog/sport/bicycles"},
		{name: "no scheme", rawURL: "www.wildberries.ru/catalog/sport"},
		{name: "root path", rawURL: "https://www.wildberries.ru/"},
		{name: "non catalog path", rawURL: "https://www.wildberries.ru/promotions/sale"},
		{name: "catalog root only", rawURL: "https://www.wildberries.ru/catalog"},
		{name: "product detail link", rawURL: "https://www.wildberries.ru/catalog/12345/detail.aspx"},
		{name: "product segment", rawURL: "https://www.wildberries.ru/catalog/sport/bicycles/product/12345"},
	}

	p := newTestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.rawURL)
			assert.Error(t, err)
			assert.True(t, errors.IsInvalidLink(err), "expected INVALID_LINK, got %v", err)
		})
	}
}
