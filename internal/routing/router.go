package routing

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

// similaritySearcher is satisfied by the semantic layer.
type similaritySearcher interface {
	FindSimilar(ctx context.Context, query string, nResults int, minSimilarity float64) ([]*domain.SimilarResult, error)
}

// vectorSearcher is satisfied by the vector layer.
type vectorSearcher interface {
	Search(ctx context.Context, query string, nResults int, minSimilarity float64, useReranking bool) ([]*domain.VectorResult, error)
}

// Router holds the layer registry and fans operations out across layers
// with fallback chaining. It holds no cross-layer lock: each layer is
// already thread-safe, and the router serializes only its own counters.
type Router struct {
	mu     sync.RWMutex
	caches map[domain.CacheLayer]domain.LayerCache

	classifier         *Classifier
	crossLayerFallback bool

	requests atomic.Int64
	hits     atomic.Int64
	misses   atomic.Int64
	errors   atomic.Int64
}

// NewRouter creates a router, loading extra classification rules from the
// configured YAML file when one is set.
func NewRouter(cfg *config.RoutingConfig) (*Router, error) {
	var extra []Rule
	if cfg.RulesFile != "" {
		loaded, err := LoadRulesFile(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		extra = loaded
	}

	classifier, err := NewClassifier(extra)
	if err != nil {
		return nil, err
	}

	return &Router{
		caches:             make(map[domain.CacheLayer]domain.LayerCache),
		classifier:         classifier,
		crossLayerFallback: cfg.CrossLayerFallback,
	}, nil
}

// RegisterCache adds a layer cache to the registry keyed by its reported
// layer identifier, overwriting any prior registration for that layer.
func (r *Router) RegisterCache(cache domain.LayerCache) {
	if cache == nil {
		return
	}

	r.mu.Lock()
	r.caches[cache.Layer()] = cache
	r.mu.Unlock()
}

// Layer returns the registered cache for a layer identifier.
func (r *Router) Layer(layer domain.CacheLayer) (domain.LayerCache, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cache, ok := r.caches[layer]
	return cache, ok
}

// DetermineCacheLayers classifies request text onto layers in priority
// order. Deterministic; unknown input always yields at least one layer.
func (r *Router) DetermineCacheLayers(text string) []domain.CacheLayer {
	return r.classifier.Classify(text)
}

// chainFor resolves the ordered list of registered caches to query for a
// key: first the classified layers, then, in cross-layer fallback mode,
// every other registered layer in canonical order.
func (r *Router) chainFor(key string) []domain.LayerCache {
	classified := r.classifier.Classify(key)

	r.mu.RLock()
	defer r.mu.RUnlock()

	chain := make([]domain.LayerCache, 0, len(r.caches))
	seen := make(map[domain.CacheLayer]bool)

	for _, layer := range classified {
		if cache, ok := r.caches[layer]; ok && !seen[layer] {
			chain = append(chain, cache)
			seen[layer] = true
		}
	}

	if r.crossLayerFallback {
		for _, layer := range domain.AllLayers() {
			if cache, ok := r.caches[layer]; ok && !seen[layer] {
				chain = append(chain, cache)
				seen[layer] = true
			}
		}
	}

	return chain
}

// Get queries the resolved chain in order. The first HIT short-circuits,
// tagged with its originating layer; a layer error is counted and the
// chain continues; ERROR surfaces only when every layer in the chain
// errored.
func (r *Router) Get(ctx context.Context, key string) *domain.CacheResult {
	r.requests.Add(1)

	chain := r.chainFor(key)
	if len(chain) == 0 {
		r.errors.Add(1)
		return &domain.CacheResult{
			Status:       domain.StatusError,
			ErrorMessage: "no cache layers registered",
		}
	}

	logger := observability.FromContext(ctx)
	errored := 0
	var lastError string

	for _, cache := range chain {
		result := cache.Get(ctx, key)
		switch result.Status {
		case domain.StatusHit:
			r.hits.Add(1)
			return result
		case domain.StatusError:
			errored++
			lastError = result.ErrorMessage
			logger.Warn("layer errored during fallback chain",
				observability.String("layer", string(cache.Layer())),
				observability.String("message", result.ErrorMessage))
		}
	}

	if errored == len(chain) {
		r.errors.Add(1)
		return &domain.CacheResult{
			Status:       domain.StatusError,
			ErrorMessage: lastError,
		}
	}

	r.misses.Add(1)
	return &domain.CacheResult{Status: domain.StatusMiss}
}

// GetFrom queries one explicit layer, bypassing classification.
func (r *Router) GetFrom(ctx context.Context, layer domain.CacheLayer, key string) *domain.CacheResult {
	r.requests.Add(1)

	cache, ok := r.Layer(layer)
	if !ok {
		r.errors.Add(1)
		return &domain.CacheResult{
			Status:       domain.StatusError,
			ErrorMessage: "layer not registered: " + string(layer),
			Layer:        layer,
		}
	}

	result := cache.Get(ctx, key)
	switch result.Status {
	case domain.StatusHit:
		r.hits.Add(1)
	case domain.StatusError:
		r.errors.Add(1)
	default:
		r.misses.Add(1)
	}
	return result
}

// Set writes to the primary layer selected for the key. A HIT status
// means "stored".
func (r *Router) Set(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
	metadata map[string]string,
) *domain.CacheResult {
	layers := r.classifier.Classify(key)
	return r.SetIn(ctx, layers[0], key, value, ttl, metadata)
}

// SetIn writes to one explicit layer.
func (r *Router) SetIn(
	ctx context.Context,
	layer domain.CacheLayer,
	key, value string,
	ttl time.Duration,
	metadata map[string]string,
) *domain.CacheResult {
	r.requests.Add(1)

	cache, ok := r.Layer(layer)
	if !ok {
		r.errors.Add(1)
		return &domain.CacheResult{
			Status:       domain.StatusError,
			ErrorMessage: "layer not registered: " + string(layer),
			Layer:        layer,
		}
	}

	if !cache.Set(ctx, key, value, ttl, metadata) {
		r.errors.Add(1)
		return &domain.CacheResult{
			Status:       domain.StatusError,
			ErrorMessage: "set failed",
			Layer:        layer,
		}
	}

	r.hits.Add(1)
	return &domain.CacheResult{Status: domain.StatusHit, Layer: layer}
}

// Delete fans out to every registered layer, reporting whether any layer
// held the key.
func (r *Router) Delete(ctx context.Context, key string) bool {
	r.requests.Add(1)

	deleted := false
	for _, cache := range r.registeredInOrder() {
		if cache.Delete(ctx, key) {
			deleted = true
		}
	}
	return deleted
}

// ClearCache fans out to every registered layer.
func (r *Router) ClearCache(ctx context.Context) bool {
	r.requests.Add(1)

	cleared := true
	for _, cache := range r.registeredInOrder() {
		if !cache.Clear(ctx) {
			cleared = false
		}
	}
	return cleared
}

// Search runs a similarity search across the semantic and vector layers,
// merging by key on the best score. A layer that cannot search, or that
// fails, is skipped rather than failing the call.
func (r *Router) Search(
	ctx context.Context,
	query string,
	nResults int,
	minSimilarity float64,
) []*domain.SimilarResult {
	r.requests.Add(1)

	if nResults <= 0 {
		nResults = 1
	}

	logger := observability.FromContext(ctx)
	best := make(map[string]float64)

	if cache, ok := r.Layer(domain.LayerSemantic); ok {
		if searcher, can := cache.(similaritySearcher); can {
			results, err := searcher.FindSimilar(ctx, query, nResults, minSimilarity)
			if err != nil {
				logger.Warn("semantic search failed during router search",
					observability.Error(err))
			}
			for _, result := range results {
				if result.Similarity > best[result.Key] {
					best[result.Key] = result.Similarity
				}
			}
		}
	}

	if cache, ok := r.Layer(domain.LayerVector); ok {
		if searcher, can := cache.(vectorSearcher); can {
			results, err := searcher.Search(ctx, query, nResults, minSimilarity, false)
			if err != nil {
				logger.Warn("vector search failed during router search",
					observability.Error(err))
			}
			for _, result := range results {
				if result.Score > best[result.Key] {
					best[result.Key] = result.Score
				}
			}
		}
	}

	merged := make([]*domain.SimilarResult, 0, len(best))
	for key, score := range best {
		merged = append(merged, &domain.SimilarResult{Key: key, Similarity: score})
	}
	sort.Slice(merged, func(a, b int) bool {
		if merged[a].Similarity != merged[b].Similarity {
			return merged[a].Similarity > merged[b].Similarity
		}
		return merged[a].Key < merged[b].Key
	})

	if len(merged) > nResults {
		merged = merged[:nResults]
	}
	return merged
}

// Stats aggregates the router's own counters with a per-layer rollup.
func (r *Router) Stats(ctx context.Context) map[string]any {
	requests := r.requests.Load()
	hits := r.hits.Load()
	misses := r.misses.Load()
	errs := r.errors.Load()

	layers := make(map[string]any)
	for _, cache := range r.registeredInOrder() {
		layers[string(cache.Layer())] = cache.Stats(ctx)
	}

	hitRate := 0.0
	errorRate := 0.0
	if requests > 0 {
		hitRate = float64(hits) / float64(requests)
		errorRate = float64(errs) / float64(requests)
	}

	return map[string]any{
		"totalRequests": requests,
		"totalHits":     hits,
		"totalMisses":   misses,
		"totalErrors":   errs,
		"hitRate":       hitRate,
		"errorRate":     errorRate,
		"cacheLayers":   len(layers),
		"layers":        layers,
	}
}

// registeredInOrder returns registered caches in canonical layer order.
func (r *Router) registeredInOrder() []domain.LayerCache {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.LayerCache, 0, len(r.caches))
	for _, layer := range domain.AllLayers() {
		if cache, ok := r.caches[layer]; ok {
			out = append(out, cache)
		}
	}
	return out
}
