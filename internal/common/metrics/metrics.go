// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogPagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_pages_fetched_total",
			Help: "Total number of upstream catalog pages fetched",
		},
		[]string{"status"},
	)

	CatalogFetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_retries_total",
			Help: "Total number of page fetch retries",
		},
	)

	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_records_skipped_total",
			Help: "Total number of raw records skipped during normalization",
		},
		[]string{"reason"},
	)

	ProductsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_products_filtered_total",
			Help: "Total number of products kept or dropped by the filter engine",
		},
		[]string{"outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "catalog_search_duration_seconds",
			Help: "Duration of one full search pipeline run in seconds",
		},
		[]string{"result"},
	)

	SearchesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_searches_active",
			Help: "Number of search pipelines currently running",
		},
	)
)
