// cmd/searchd/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"marketbot/internal/catalog/domain"
	"marketbot/internal/catalog/fetch"
	"marketbot/internal/catalog/index"
	"marketbot/internal/catalog/link"
	"marketbot/internal/catalog/normalize"
	"marketbot/internal/catalog/ratelimit"
	"marketbot/internal/catalog/search"
	"marketbot/internal/common/config"
	"marketbot/internal/common/database"
	stderrors "marketbot/internal/common/errors"
	httpclient "marketbot/internal/common/http"
	"marketbot/internal/common/logger"
	"marketbot/internal/common/observability"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting searchd...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry; category resolution degrades to direct
	// menu fetches when the cache never comes up ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Warn("redis unavailable, category index cache disabled", zap.Error(err))
		redis = nil
	} else {
		defer redis.Close()
		zapLog.Info("Redis connected successfully")
	}

	// --- Wire the search pipeline ---
	client := httpclient.NewClient(config.GetDuration(cfg.Upstream.Timeout), cfg.Upstream.UserAgent)
	limiter := ratelimit.NewHostLimiter(config.GetDuration(cfg.Upstream.RequestInterval))

	pipeline := search.NewPipeline(
		link.NewParser(cfg.Upstream.Hosts),
		index.New(cfg.Upstream, client, redis, time.Duration(cfg.Search.IndexCacheTTL)*time.Second, log),
		fetch.NewFetcher(cfg.Upstream, client, limiter, log),
		normalize.New(cfg.Upstream.ProductURLTemplate),
		cfg.Search,
		cfg.Batch,
		obs,
		log,
	)

	// --- Health, Metrics & Search Server ---
	http.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/search", searchHandler(pipeline, zapLog))

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Metrics.Address))
		if err := http.ListenAndServe(cfg.Metrics.Address, nil); err != nil {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_ = shutdownCtx

	zapLog.Info("searchd stopped gracefully")
}

// searchHandler serves GET /search?url=<category link>&price_min=&price_max=
// &discount=&max_items=&max_pages=. Monetary query values are in minor
// currency units, matching the canonical model.
func searchHandler(pipeline *search.Pipeline, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawURL := r.URL.Query().Get("url")
		if rawURL == "" {
			writeError(w, http.StatusBadRequest, "missing url parameter")
			return
		}

		filters, err := parseFilters(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		q := domain.CategoryQuery{Filters: filters}
		if v := r.URL.Query().Get("max_items"); v != "" {
			q.MaxItems, _ = strconv.Atoi(v)
		}
		if v := r.URL.Query().Get("max_pages"); v != "" {
			q.MaxPages, _ = strconv.Atoi(v)
		}

		categoryID, err := pipeline.ParseLink(rawURL)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.CategoryID = categoryID

		result, err := pipeline.Search(r.Context(), q)
		if err != nil {
			switch {
			case stderrors.IsInvalidLink(err):
				writeError(w, http.StatusBadRequest, err.Error())
			case stderrors.IsUpstreamSchema(err):
				writeError(w, http.StatusBadGateway, err.Error())
			default:
				log.Error("search request failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func parseFilters(r *http.Request) (domain.FilterSpec, error) {
	var filters domain.FilterSpec

	if v := r.URL.Query().Get("price_min"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filters, fmt.Errorf("price_min: %w", err)
		}
		filters.PriceMin = &n
	}
	if v := r.URL.Query().Get("price_max"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filters, fmt.Errorf("price_max: %w", err)
		}
		filters.PriceMax = &n
	}
	if v := r.URL.Query().Get("discount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return filters, fmt.Errorf("discount: %w", err)
		}
		filters.MinDiscountPercent = &n
	}

	return filters, filters.Validate()
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
