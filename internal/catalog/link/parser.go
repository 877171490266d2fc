// internal/catalog/link/parser.go
package link

import (
	"net/url"
	"regexp"
	"strings"

	"marketbot/internal/common/errors"
)

var productDetailPattern = regexp.MustCompile(`^\d+$`)

// Parser extracts a canonical category identifier from a marketplace URL.
// The identifier is the cleaned category path and is stable across calls,
// so it can be used as a cache/dedup key.
type Parser struct {
	hosts map[string]bool
}

func NewParser(hosts []string) *Parser {
	m := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		m[strings.ToLower(h)] = true
	}
	return &Parser{hosts: m}
}

// Parse validates rawURL and returns the category identifier, or an
// INVALID_LINK error when the domain is unrecognized or the path does not
// look like a category (single-product links included).
func (p *Parser) Parse(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", errors.NewInvalidLinkError("empty link")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.NewInvalidLinkError("not a valid URL: " + rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.NewInvalidLinkError("unsupported scheme: " + u.Scheme)
	}
	if !p.hosts[strings.ToLower(u.Hostname())] {
		return "", errors.NewInvalidLinkError("unrecognized marketplace domain: " + u.Hostname())
	}

	path := strings.ToLower(strings.TrimRight(u.EscapedPath(), "/"))
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segments) < 2 || segments[0] != "catalog" {
		return "", errors.NewInvalidLinkError("not a catalog path: " + path)
	}

	for _, seg := range segments[1:] {
		if seg == "" {
			return "", errors.NewInvalidLinkError("malformed catalog path: " + path)
		}
		// Product-detail links carry a numeric article segment
		// (/catalog/12345/detail.aspx) or an explicit product segment.
		if seg == "detail.aspx" || seg == "product" || productDetailPattern.MatchString(seg) {
			return "", errors.NewInvalidLinkError("product link, not a category: " + path)
		}
	}

	return path, nil
}
