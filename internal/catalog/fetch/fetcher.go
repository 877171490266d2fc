// internal/catalog/fetch/fetcher.go
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marketbot/internal/catalog/index"
	"marketbot/internal/catalog/ratelimit"
	"marketbot/internal/common/config"
	"marketbot/internal/common/errors"
	httpclient "marketbot/internal/common/http"
	"marketbot/internal/common/logger"
	"marketbot/internal/common/metrics"
)

// PageFunc consumes one non-empty page of raw records in upstream order.
// Returning false stops pagination before the next page request.
type PageFunc func(pageNum int, records []RawRecord) bool

// Fetcher pages through the upstream catalog API for one category. Each
// Fetch call is an independent, restartable cursor walk; the only shared
// state is the per-host rate limiter.
type Fetcher struct {
	cfg     config.UpstreamConfig
	client  *httpclient.Client
	limiter *ratelimit.HostLimiter
	logger  logger.Logger
}

func NewFetcher(cfg config.UpstreamConfig, client *httpclient.Client, limiter *ratelimit.HostLimiter, log logger.Logger) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		logger:  log.WithFields(map[string]interface{}{"component": "catalog-fetcher"}),
	}
}

// Fetch walks pages 1..q.MaxPages and hands each non-empty page to fn.
// It stops on the first empty page, when fn declines more data, or when
// ctx is cancelled (checked between page fetches, never mid-page).
//
// A page that exhausts its retry budget surfaces UPSTREAM_FETCH_FAILED
// together with Stats.Incomplete=true; everything delivered to fn before
// that remains valid. A schema break aborts immediately.
func (f *Fetcher) Fetch(ctx context.Context, cat *index.Category, q Query, fn PageFunc) (Stats, error) {
	stats := Stats{}

	maxPages := q.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}

	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		if err := ctx.Err(); err != nil {
			stats.Incomplete = true
			return stats, errors.NewUpstreamFetchError(pageNum, err)
		}

		records, err := f.fetchPage(ctx, cat, q, pageNum)
		if err != nil {
			if errors.IsUpstreamFetch(err) {
				stats.Incomplete = true
			}
			return stats, err
		}

		if len(records) == 0 {
			metrics.CatalogPagesFetched.WithLabelValues("empty").Inc()
			break
		}

		metrics.CatalogPagesFetched.WithLabelValues("ok").Inc()
		stats.Pages++

		if !fn(pageNum, records) {
			break
		}
	}

	return stats, nil
}

// fetchPage requests one page with a bounded retry budget and exponential
// backoff. Schema breaks are never retried.
func (f *Fetcher) fetchPage(ctx context.Context, cat *index.Category, q Query, pageNum int) ([]RawRecord, error) {
	var lastErr error

	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			metrics.CatalogFetchRetries.Inc()
			backoff := config.GetDuration(f.cfg.RetryBackoff) << (attempt - 1)
			f.logger.Warn("retrying catalog page", map[string]interface{}{
				"page":    pageNum,
				"attempt": attempt,
				"backoff": backoff.String(),
				"error":   lastErr.Error(),
			})
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, errors.NewUpstreamFetchError(pageNum, err)
			}
		}

		records, err := f.requestPage(ctx, cat, q, pageNum)
		if err == nil {
			return records, nil
		}
		if errors.IsUpstreamSchema(err) {
			metrics.CatalogPagesFetched.WithLabelValues("schema_error").Inc()
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, errors.NewUpstreamFetchError(pageNum, ctx.Err())
		}
		lastErr = err
	}

	metrics.CatalogPagesFetched.WithLabelValues("error").Inc()
	return nil, errors.NewUpstreamFetchError(pageNum, lastErr)
}

func (f *Fetcher) requestPage(ctx context.Context, cat *index.Category, q Query, pageNum int) ([]RawRecord, error) {
	pageURL, err := f.buildPageURL(cat, q, pageNum)
	if err != nil {
		return nil, err
	}

	if err := f.limiter.Acquire(ctx, pageURL.Hostname()); err != nil {
		return nil, err
	}

	resp, err := f.client.GetJSON(ctx, pageURL.String())
	if err != nil {
		return nil, fmt.Errorf("page %d request: %w", pageNum, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("page %d returned status %d", pageNum, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("page %d read body: %w", pageNum, err)
	}

	if err := validatePagePayload(body); err != nil {
		return nil, err
	}

	var payload page
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewUpstreamSchemaError("page decode: " + err.Error())
	}

	return payload.Data.Products, nil
}

func (f *Fetcher) buildPageURL(cat *index.Category, q Query, pageNum int) (*url.URL, error) {
	base := strings.Replace(f.cfg.CatalogURL, "{shard}", cat.Shard, 1)
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("catalog url: %w", err)
	}

	// cat.Query carries the upstream category selector verbatim.
	params, err := url.ParseQuery(cat.Query)
	if err != nil {
		params = url.Values{}
	}

	params.Set("appType", "1")
	params.Set("curr", f.cfg.Currency)
	params.Set("dest", strconv.Itoa(f.cfg.Dest))
	params.Set("locale", f.cfg.Locale)
	params.Set("page", strconv.Itoa(pageNum))
	params.Set("sort", "popular")
	params.Set("spp", "0")

	// Server-side hints only; the filter engine re-applies these bounds.
	if q.PriceMin != nil || q.PriceMax != nil {
		lo, hi := int64(0), int64(99999999*100)
		if q.PriceMin != nil {
			lo = *q.PriceMin
		}
		if q.PriceMax != nil {
			hi = *q.PriceMax
		}
		params.Set("priceU", fmt.Sprintf("%d;%d", lo, hi))
	}
	if q.MinDiscountPercent != nil {
		params.Set("discount", strconv.Itoa(*q.MinDiscountPercent))
	}

	u.RawQuery = params.Encode()
	return u, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
