package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

// GlobalCache holds durable facts and, on a local miss, falls back to an
// external knowledge source, caching what comes back.
type GlobalCache struct {
	*baseCache

	cfg       *config.GlobalConfig
	knowledge domain.KnowledgeSource

	ragQueries       atomic.Int64
	fallbackQueries  atomic.Int64
	fallbackFailures atomic.Int64
}

// NewGlobalCache creates the global knowledge layer. The knowledge source
// may be nil, in which case fallback is effectively disabled.
func NewGlobalCache(
	cfg *config.GlobalConfig,
	knowledge domain.KnowledgeSource,
	events domain.EventPublisher,
) *GlobalCache {
	return &GlobalCache{
		baseCache: newBaseCache(
			domain.LayerGlobal,
			time.Duration(cfg.DefaultTTLSeconds)*time.Second,
			time.Duration(cfg.CleanupIntervalSeconds)*time.Second,
			events,
		),
		cfg:       cfg,
		knowledge: knowledge,
	}
}

// QueryRAG answers from the local store first; on a miss, when fallback is
// requested and enabled, it asks the external knowledge source and caches
// the result under the layer's default TTL. An upstream failure degrades
// to whatever local data exists, stale included, never to an error.
func (g *GlobalCache) QueryRAG(
	ctx context.Context,
	query string,
	nResults int,
	useFallback bool,
) []*domain.KnowledgeItem {
	if query == "" {
		return nil
	}
	if nResults <= 0 {
		nResults = 1
	}

	g.ragQueries.Add(1)
	logger := observability.FromContext(ctx)

	fresh, stale := g.localItems(query)
	if fresh != nil {
		g.hits.Add(1)
		g.ops.Add(1)
		return truncateItems(fresh, nResults)
	}

	g.misses.Add(1)
	g.ops.Add(1)

	if !useFallback || !g.cfg.FallbackEnabled || g.knowledge == nil {
		return truncateItems(stale, nResults)
	}

	g.fallbackQueries.Add(1)

	items, err := g.knowledge.Query(ctx, query, nResults)
	if err != nil {
		g.fallbackFailures.Add(1)
		logger.Warn("knowledge fallback failed, serving local data",
			observability.Error(err),
			observability.Int("stale_items", len(stale)))
		return truncateItems(stale, nResults)
	}

	g.cacheItems(ctx, query, items)
	return truncateItems(items, nResults)
}

// localItems returns the cached items for a query. The first return is
// non-nil only for a fresh entry; the second carries stale data kept
// around as a fallback of last resort.
func (g *GlobalCache) localItems(query string) (fresh, stale []*domain.KnowledgeItem) {
	g.mu.Lock()
	defer g.mu.Unlock()

	entry, ok := g.entries[query]
	if !ok {
		return nil, nil
	}

	var items []*domain.KnowledgeItem
	if err := json.Unmarshal([]byte(entry.Value), &items); err != nil {
		return nil, nil
	}

	now := time.Now()
	if entry.Expired(now) {
		return nil, items
	}

	entry.AccessCount++
	entry.LastAccessedAt = now
	return items, nil
}

func (g *GlobalCache) cacheItems(ctx context.Context, query string, items []*domain.KnowledgeItem) {
	data, err := json.Marshal(items)
	if err != nil {
		g.errs.Add(1)
		observability.FromContext(ctx).Error("failed to marshal knowledge items",
			observability.Error(err))
		return
	}

	if _, err := g.store(ctx, query, string(data),
		time.Duration(g.cfg.DefaultTTLSeconds)*time.Second, nil); err != nil {
		observability.FromContext(ctx).Error("failed to cache knowledge items",
			observability.Error(err))
	}
}

// Stats extends the shared counters with fallback metrics.
func (g *GlobalCache) Stats(ctx context.Context) map[string]any {
	stats := g.baseCache.Stats(ctx)
	stats["fallbackEnabled"] = g.cfg.FallbackEnabled
	stats["ragQueries"] = g.ragQueries.Load()
	stats["fallbackQueries"] = g.fallbackQueries.Load()
	stats["fallbackFailures"] = g.fallbackFailures.Load()
	return stats
}

func truncateItems(items []*domain.KnowledgeItem, limit int) []*domain.KnowledgeItem {
	if items == nil {
		return []*domain.KnowledgeItem{}
	}
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
