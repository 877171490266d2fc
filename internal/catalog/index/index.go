// internal/catalog/index/index.go
package index

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"marketbot/internal/common/config"
	"marketbot/internal/common/database"
	"marketbot/internal/common/errors"
	httpclient "marketbot/internal/common/http"
	"marketbot/internal/common/logger"
)

const cacheKey = "marketbot:category-index"

// Category is one leaf of the marketplace catalog tree. Shard and Query
// address the catalog API endpoint serving this category.
type Category struct {
	Name  string `json:"name"`
	URL   string `json:"url"`
	Shard string `json:"shard"`
	Query string `json:"query"`
}

// menuNode mirrors the upstream main-menu tree structure.
type menuNode struct {
	Name   string     `json:"name"`
	URL    string     `json:"url"`
	Shard  string     `json:"shard"`
	Query  string     `json:"query"`
	Childs []menuNode `json:"childs"`
}

type localCacheEntry struct {
	categories []Category
	loadedAt   time.Time
}

// Index resolves canonical category identifiers to catalog API addresses.
// The full category tree is downloaded from the marketplace main menu and
// cached in Redis (and in-process) with a TTL; Redis being down degrades
// to a direct fetch, never to a failed resolution.
type Index struct {
	cfg    config.UpstreamConfig
	client *httpclient.Client
	cache  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger

	mu    sync.Mutex
	local *localCacheEntry
}

func New(cfg config.UpstreamConfig, client *httpclient.Client, cache *database.RedisClient, ttl time.Duration, log logger.Logger) *Index {
	return &Index{
		cfg:    cfg,
		client: client,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "category-index"}),
	}
}

// Resolve maps a category identifier (cleaned catalog path) to its
// Category. An unknown identifier fails with INVALID_LINK: the link looked
// like a category but the marketplace does not list it.
func (ix *Index) Resolve(ctx context.Context, categoryID string) (*Category, error) {
	categories, err := ix.categories(ctx)
	if err != nil {
		return nil, err
	}

	for i := range categories {
		if strings.EqualFold(categories[i].URL, categoryID) {
			c := categories[i]
			return &c, nil
		}
	}

	return nil, errors.NewInvalidLinkError("category not found in marketplace index: " + categoryID)
}

func (ix *Index) categories(ctx context.Context) ([]Category, error) {
	ix.mu.Lock()
	if ix.local != nil && time.Since(ix.local.loadedAt) < ix.ttl {
		cats := ix.local.categories
		ix.mu.Unlock()
		return cats, nil
	}
	ix.mu.Unlock()

	if cats, ok := ix.fromRedis(ctx); ok {
		ix.storeLocal(cats)
		return cats, nil
	}

	cats, err := ix.fetchTree(ctx)
	if err != nil {
		return nil, err
	}

	ix.storeLocal(cats)
	ix.toRedis(ctx, cats)
	return cats, nil
}

func (ix *Index) fromRedis(ctx context.Context) ([]Category, bool) {
	if ix.cache == nil {
		return nil, false
	}
	raw, err := ix.cache.Get(ctx, cacheKey)
	if err != nil {
		return nil, false
	}
	var cats []Category
	if err := json.Unmarshal([]byte(raw), &cats); err != nil {
		ix.logger.Warn("dropping corrupt category index cache entry", map[string]interface{}{
			"error": err.Error(),
		})
		_ = ix.cache.Del(ctx, cacheKey)
		return nil, false
	}
	return cats, true
}

func (ix *Index) toRedis(ctx context.Context, cats []Category) {
	if ix.cache == nil {
		return
	}
	raw, err := json.Marshal(cats)
	if err != nil {
		return
	}
	if err := ix.cache.Set(ctx, cacheKey, raw, ix.ttl); err != nil {
		ix.logger.Warn("failed to cache category index", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (ix *Index) storeLocal(cats []Category) {
	ix.mu.Lock()
	ix.local = &localCacheEntry{categories: cats, loadedAt: time.Now()}
	ix.mu.Unlock()
}

func (ix *Index) fetchTree(ctx context.Context) ([]Category, error) {
	resp, err := ix.client.GetJSON(ctx, ix.cfg.MainMenuURL)
	if err != nil {
		return nil, errors.NewUpstreamFetchError(0, fmt.Errorf("load category menu: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, errors.NewUpstreamFetchError(0, fmt.Errorf("category menu returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstreamFetchError(0, fmt.Errorf("read category menu: %w", err))
	}

	var tree []menuNode
	if err := json.Unmarshal(body, &tree); err != nil {
		return nil, errors.NewUpstreamSchemaError("category menu is not the expected tree: " + err.Error())
	}

	categories := flatten(tree)
	ix.logger.Info("category index loaded", map[string]interface{}{
		"categories": len(categories),
	})
	return categories, nil
}

// flatten walks the tree and collects leaf categories, matching the
// upstream convention that only leaves carry an addressable shard.
func flatten(nodes []menuNode) []Category {
	var out []Category
	for _, n := range nodes {
		if len(n.Childs) > 0 {
			out = append(out, flatten(n.Childs)...)
			continue
		}
		if n.URL == "" {
			continue
		}
		out = append(out, Category{
			Name:  n.Name,
			URL:   n.URL,
			Shard: n.Shard,
			Query: n.Query,
		})
	}
	return out
}
