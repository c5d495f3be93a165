package cache

import (
	"context"
	"time"

	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

// SemanticCache matches by meaning rather than exact key: alongside the
// exact-key store it maintains a similarity index over embedded keys, and
// a read that misses exactly falls back to the closest indexed entry.
type SemanticCache struct {
	*baseCache

	cfg      *config.SemanticConfig
	embedder domain.EmbeddingGenerator
	index    domain.SimilarityIndex
}

// NewSemanticCache creates the semantic layer.
func NewSemanticCache(
	cfg *config.SemanticConfig,
	embedder domain.EmbeddingGenerator,
	index domain.SimilarityIndex,
	events domain.EventPublisher,
) *SemanticCache {
	return &SemanticCache{
		baseCache: newBaseCache(
			domain.LayerSemantic,
			time.Duration(cfg.DefaultTTLSeconds)*time.Second,
			time.Duration(cfg.CleanupIntervalSeconds)*time.Second,
			events,
		),
		cfg:      cfg,
		embedder: embedder,
		index:    index,
	}
}

// Get tries the exact key first, then the closest indexed key above the
// configured similarity threshold. An index or embedding failure degrades
// to a plain MISS rather than an error.
func (s *SemanticCache) Get(ctx context.Context, key string) (result *domain.CacheResult) {
	defer s.recoverToResult(ctx, "get", &result)

	s.ops.Add(1)

	if key == "" {
		s.errs.Add(1)
		return s.errorResult("key cannot be empty")
	}

	if !s.initialized.Load() {
		s.errs.Add(1)
		return s.errorResult("cache not initialized")
	}

	entry, status := s.fetch(key)
	switch status {
	case domain.StatusHit:
		s.hits.Add(1)
		s.publish(ctx, observability.EventCacheHit, map[string]interface{}{"key": key})
		return &domain.CacheResult{Status: domain.StatusHit, Entry: entry, Layer: s.layer}
	case domain.StatusExpired:
		s.misses.Add(1)
		s.publish(ctx, observability.EventCacheExpired, map[string]interface{}{"key": key})
		return &domain.CacheResult{Status: domain.StatusExpired, Layer: s.layer}
	}

	if match := s.closestKey(ctx, key); match != "" && match != key {
		if entry, status := s.fetch(match); status == domain.StatusHit {
			s.hits.Add(1)
			s.publish(ctx, observability.EventCacheHit, map[string]interface{}{
				"key":         key,
				"matched_key": match,
			})
			return &domain.CacheResult{Status: domain.StatusHit, Entry: entry, Layer: s.layer}
		}
	}

	s.misses.Add(1)
	s.publish(ctx, observability.EventCacheMiss, map[string]interface{}{"key": key})
	return &domain.CacheResult{Status: domain.StatusMiss, Layer: s.layer}
}

// closestKey returns the best indexed key at or above the configured
// threshold, or "" when there is none or the collaborators fail.
func (s *SemanticCache) closestKey(ctx context.Context, key string) string {
	if s.embedder == nil || s.index == nil {
		return ""
	}

	embedding, err := s.embedder.Generate(ctx, key)
	if err != nil {
		observability.FromContext(ctx).Warn("semantic lookup embedding failed",
			observability.Error(err))
		return ""
	}

	matches, err := s.index.Search(ctx, embedding, s.cfg.SimilarityThreshold, 1)
	if err != nil {
		observability.FromContext(ctx).Warn("semantic lookup search failed",
			observability.Error(err))
		return ""
	}

	if len(matches) == 0 {
		return ""
	}
	return matches[0].Key
}

// Set stores the entry, then indexes the key's embedding. An indexing
// failure leaves the exact-key entry usable and is logged, not surfaced.
func (s *SemanticCache) Set(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
	metadata map[string]string,
) bool {
	entry, err := s.store(ctx, key, value, ttl, metadata)
	if err != nil {
		observability.FromContext(ctx).Error("semantic set failed",
			observability.Error(err))
		return false
	}

	s.indexKey(ctx, entry.Key, entry.Value, ttl)
	return true
}

func (s *SemanticCache) indexKey(ctx context.Context, key, value string, ttl time.Duration) {
	if s.embedder == nil || s.index == nil {
		return
	}

	logger := observability.FromContext(ctx)

	embedding, err := s.embedder.Generate(ctx, key)
	if err != nil {
		s.errs.Add(1)
		logger.Error("failed to generate embedding for semantic index",
			observability.Error(err))
		return
	}

	if err := s.index.Index(ctx, key, embedding, []byte(value), ttl); err != nil {
		s.errs.Add(1)
		logger.Error("failed to index semantic entry",
			observability.Error(err))
	}
}

// FindSimilar returns indexed keys ranked by similarity to the query.
// Candidates below the effective threshold are excluded, not ranked last.
// Scoring an entry never mutates its TTL or access bookkeeping.
func (s *SemanticCache) FindSimilar(
	ctx context.Context,
	query string,
	nResults int,
	minSimilarity float64,
) ([]*domain.SimilarResult, error) {
	if query == "" {
		return nil, domain.ErrValidation
	}
	if nResults <= 0 {
		nResults = 1
	}

	threshold := s.cfg.SimilarityThreshold
	if minSimilarity > threshold {
		threshold = minSimilarity
	}

	embedding, err := s.embedder.Generate(ctx, query)
	if err != nil {
		s.errs.Add(1)
		return nil, err
	}

	matches, err := s.index.Search(ctx, embedding, threshold, nResults)
	if err != nil {
		s.errs.Add(1)
		return nil, err
	}

	results := make([]*domain.SimilarResult, 0, len(matches))
	for _, match := range matches {
		results = append(results, &domain.SimilarResult{
			Key:        match.Key,
			Similarity: match.Similarity,
		})
	}
	return results, nil
}

// Delete removes the entry and its index vector.
func (s *SemanticCache) Delete(ctx context.Context, key string) bool {
	existed := s.baseCache.Delete(ctx, key)

	if s.index != nil {
		if err := s.index.Remove(ctx, key); err != nil {
			observability.FromContext(ctx).Warn("failed to remove semantic index entry",
				observability.Error(err))
		}
	}
	return existed
}

// Clear drops all entries and flushes the similarity index.
func (s *SemanticCache) Clear(ctx context.Context) bool {
	if !s.baseCache.Clear(ctx) {
		return false
	}

	if s.index != nil {
		if err := s.index.Flush(ctx); err != nil {
			observability.FromContext(ctx).Error("failed to flush semantic index",
				observability.Error(err))
			return false
		}
	}
	return true
}

// Stats extends the shared counters with the layer threshold.
func (s *SemanticCache) Stats(ctx context.Context) map[string]any {
	stats := s.baseCache.Stats(ctx)
	stats["similarityThreshold"] = s.cfg.SimilarityThreshold
	return stats
}
