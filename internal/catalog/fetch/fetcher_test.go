// internal/catalog/fetch/fetcher_test.go
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"marketbot/internal/catalog/index"
	"marketbot/internal/catalog/ratelimit"
	"marketbot/internal/common/config"
	"marketbot/internal/common/errors"
	httpclient "marketbot/internal/common/http"
	"marketbot/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageJSON(ids ...int64) string {
	var sb strings.Builder
	sb.WriteString(`{"data":{"products":[`)
	for i, id := range ids {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"id":%d,"name":"product-%d","brand":"brand","rating":4.5,"feedbacks":10,"sizes":[{"price":{"basic":150000,"product":120000}}]}`, id, id)
	}
	sb.WriteString(`]}}`)
	return sb.String()
}

func testCategory() *index.Category {
	return &index.Category{
		Name:  "Велосипеды",
		URL:   "/catalog/sport/velosipedy",
		Shard: "sport2",
		Query: "cat=12345",
	}
}

func newTestFetcher(t *testing.T, baseURL string, maxRetries int) *Fetcher {
	t.Helper()
	cfg := config.UpstreamConfig{
		CatalogURL:   baseURL + "/catalog/{shard}/v2/catalog",
		Currency:     "rub",
		Locale:       "ru",
		Dest:         -1257786,
		MaxRetries:   maxRetries,
		RetryBackoff: 1,
	}
	client := httpclient.NewClient(5*time.Second, "test-agent")
	limiter := ratelimit.NewHostLimiter(time.Millisecond)
	return NewFetcher(cfg, client, limiter, logger.NewNoOpLogger())
}

func collectPages(t *testing.T, f *Fetcher, q Query) ([]RawRecord, Stats, error) {
	t.Helper()
	var collected []RawRecord
	stats, err := f.Fetch(context.Background(), testCategory(), q, func(_ int, records []RawRecord) bool {
		collected = append(collected, records...)
		return true
	})
	return collected, stats, err
}

func TestFetcher_StopsOnEmptyPage(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		switch r.URL.Query().Get("page") {
		case "1":
			_, _ = w.Write([]byte(pageJSON(1, 2)))
		case "2":
			_, _ = w.Write([]byte(pageJSON(3, 4)))
		default:
			_, _ = w.Write([]byte(pageJSON()))
		}
		_ = n
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 2)
	records, stats, err := collectPages(t, f, Query{MaxPages: 10})

	require.NoError(t, err)
	assert.Len(t, records, 4)
	assert.Equal(t, 2, stats.Pages)
	assert.False(t, stats.Incomplete)
	// Two full pages plus the empty-page check, nothing beyond.
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestFetcher_RespectsMaxPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageJSON(1)))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 2)
	records, stats, err := collectPages(t, f, Query{MaxPages: 3})

	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 3, stats.Pages)
}

func TestFetcher_ConsumerStopsPagination(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(pageJSON(1, 2)))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 2)
	stats, err := f.Fetch(context.Background(), testCategory(), Query{MaxPages: 10}, func(_ int, _ []RawRecord) bool {
		return false
	})

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestFetcher_RetriesTransientErrors(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(pageJSON(7)))
			return
		}
		_, _ = w.Write([]byte(pageJSON()))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 3)
	records, stats, err := collectPages(t, f, Query{MaxPages: 10})

	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, stats.Pages)
	assert.False(t, stats.Incomplete)
}

func TestFetcher_RetryExhaustionKeepsPartialResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(pageJSON(1, 2)))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 2)
	records, stats, err := collectPages(t, f, Query{MaxPages: 10})

	assert.True(t, errors.IsUpstreamFetch(err), "expected UPSTREAM_FETCH_FAILED, got %v", err)
	assert.Len(t, records, 2)
	assert.Equal(t, 1, stats.Pages)
	assert.True(t, stats.Incomplete)
}

func TestFetcher_SchemaBreakIsFatalWithoutRetry(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		_, _ = w.Write([]byte(`["totally","different","payload"]`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, srv.URL, 3)
	_, stats, err := collectPages(t, f, Query{MaxPages: 10})

	assert.True(t, errors.IsUpstreamSchema(err), "expected UPSTREAM_SCHEMA_CHANGED, got %v", err)
	assert.False(t, stats.Incomplete)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "schema errors must not be retried")
}

func TestFetcher_SendsMarketplaceParameters(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, "/catalog/sport2/v2/catalog", r.URL.Path)
		_, _ = w.Write([]byte(pageJSON()))
	}))
	defer srv.Close()

	priceMin, priceMax := int64(100000), int64(5000000)
	discount := 15
	f := newTestFetcher(t, srv.URL, 2)
	_, _, err := collectPages(t, f, Query{
		MaxPages:           1,
		PriceMin:           &priceMin,
		PriceMax:           &priceMax,
		MinDiscountPercent: &discount,
	})
	require.NoError(t, err)

	for _, want := range []string{
		"cat=12345", "appType=1", "curr=rub", "locale=ru", "page=1",
		"sort=popular", "priceU=100000%3B5000000", "discount=15",
	} {
		assert.Contains(t, gotQuery, want)
	}
}

func TestFetcher_CancellationBetweenPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pageJSON(1)))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	f := newTestFetcher(t, srv.URL, 2)

	stats, err := f.Fetch(ctx, testCategory(), Query{MaxPages: 10}, func(_ int, _ []RawRecord) bool {
		cancel()
		return true
	})

	assert.True(t, errors.IsUpstreamFetch(err))
	assert.Equal(t, 1, stats.Pages)
	assert.True(t, stats.Incomplete)
}
