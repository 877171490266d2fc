// internal/catalog/search/pipeline.go
package search

import (
	"context"
	"fmt"
	"time"

	"marketbot/internal/catalog/batch"
	"marketbot/internal/catalog/domain"
	"marketbot/internal/catalog/fetch"
	"marketbot/internal/catalog/filter"
	"marketbot/internal/catalog/index"
	"marketbot/internal/catalog/link"
	"marketbot/internal/catalog/normalize"
	"marketbot/internal/common/config"
	"marketbot/internal/common/errors"
	"marketbot/internal/common/logger"
	"marketbot/internal/common/metrics"
	"marketbot/internal/common/observability"

	"github.com/google/uuid"
)

// Pipeline runs one category search end to end: resolve the category,
// page through the upstream catalog, normalize and filter each page, and
// batch the survivors for display. Each Search call is sequential and
// independent; concurrent calls share only the fetcher's host limiter.
type Pipeline struct {
	parser     *link.Parser
	index      *index.Index
	fetcher    *fetch.Fetcher
	normalizer *normalize.Normalizer
	searchCfg  config.SearchConfig
	batchCfg   config.BatchConfig
	obs        *observability.Observability
	logger     logger.Logger
}

func NewPipeline(
	parser *link.Parser,
	idx *index.Index,
	fetcher *fetch.Fetcher,
	normalizer *normalize.Normalizer,
	searchCfg config.SearchConfig,
	batchCfg config.BatchConfig,
	obs *observability.Observability,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		parser:     parser,
		index:      idx,
		fetcher:    fetcher,
		normalizer: normalizer,
		searchCfg:  searchCfg,
		batchCfg:   batchCfg,
		obs:        obs,
		logger:     log.WithFields(map[string]interface{}{"component": "search-pipeline"}),
	}
}

// ParseLink maps a raw marketplace link to its canonical category
// identifier without running a search.
func (p *Pipeline) ParseLink(rawURL string) (string, error) {
	return p.parser.Parse(rawURL)
}

// SearchLink parses a raw marketplace link and runs Search on the
// resulting category with default limits.
func (p *Pipeline) SearchLink(ctx context.Context, rawURL string, filters domain.FilterSpec) (*domain.SearchResult, error) {
	categoryID, err := p.parser.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return p.Search(ctx, domain.CategoryQuery{CategoryID: categoryID, Filters: filters})
}

// Search executes one pipeline run. INVALID_LINK and
// UPSTREAM_SCHEMA_CHANGED fail the query outright; a fetch that degrades
// after retries returns the products collected so far with
// Incomplete=true and no error.
func (p *Pipeline) Search(ctx context.Context, q domain.CategoryQuery) (*domain.SearchResult, error) {
	if err := q.Filters.Validate(); err != nil {
		return nil, errors.NewInvalidLinkError(fmt.Sprintf("rejected filters: %v", err))
	}

	requestID := uuid.New().String()
	log := p.logger.WithFields(map[string]interface{}{
		"request_id": requestID,
		"category":   q.CategoryID,
	})

	metrics.SearchesActive.Inc()
	defer metrics.SearchesActive.Dec()
	start := time.Now()

	result, err := p.run(ctx, q, log)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case result.Incomplete:
		status = "partial"
	}
	metrics.SearchDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if p.obs != nil {
		p.obs.RecordSearchProcessed(ctx, status)
		p.obs.RecordSearchDuration(ctx, time.Since(start), status)
	}

	if err != nil {
		log.WithError(err).Error("search failed", map[string]interface{}{
			"duration": time.Since(start).String(),
		})
		return nil, err
	}

	log.Info("search completed", map[string]interface{}{
		"total":      result.Total,
		"skipped":    result.Skipped,
		"batches":    len(result.Batches),
		"incomplete": result.Incomplete,
		"duration":   time.Since(start).String(),
	})
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, q domain.CategoryQuery, log logger.Logger) (*domain.SearchResult, error) {
	cat, err := p.index.Resolve(ctx, q.CategoryID)
	if err != nil {
		return nil, err
	}

	maxItems := q.MaxItems
	if maxItems <= 0 {
		maxItems = p.searchCfg.MaxItems
	}
	maxPages := q.MaxPages
	if maxPages <= 0 {
		maxPages = p.searchCfg.MaxPages
	}

	fq := fetch.Query{
		PriceMin:           q.Filters.PriceMin,
		PriceMax:           q.Filters.PriceMax,
		MinDiscountPercent: q.Filters.MinDiscountPercent,
		MaxPages:           maxPages,
	}

	var kept []domain.Product
	skipped := 0

	stats, err := p.fetcher.Fetch(ctx, cat, fq, func(pageNum int, records []fetch.RawRecord) bool {
		products, pageSkipped := p.normalizer.NormalizeAll(records)
		skipped += pageSkipped

		matched := filter.Apply(products, q.Filters)
		metrics.ProductsFiltered.WithLabelValues("kept").Add(float64(len(matched)))
		metrics.ProductsFiltered.WithLabelValues("dropped").Add(float64(len(products) - len(matched)))

		kept = append(kept, matched...)
		return len(kept) < maxItems
	})
	if err != nil {
		// Retry exhaustion degrades to whatever was collected so far;
		// schema breaks stay fatal.
		if !errors.IsUpstreamFetch(err) {
			return nil, err
		}
		log.WithError(err).Warn("search degraded to partial results", map[string]interface{}{
			"pages_fetched": stats.Pages,
			"collected":     len(kept),
		})
		stats.Incomplete = true
	}

	if len(kept) > maxItems {
		kept = kept[:maxItems]
	}

	return &domain.SearchResult{
		CategoryID: q.CategoryID,
		Batches:    batch.Split(kept, p.batchCfg.MaxChars, p.batchCfg.MaxItems),
		Total:      len(kept),
		Skipped:    skipped,
		Incomplete: stats.Incomplete,
	}, nil
}
