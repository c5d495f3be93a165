package cache

import (
	"context"
	"time"

	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

// VectorCache is the embedding-similarity layer with optional reranking.
// Unlike the semantic layer it exposes the raw ranked search rather than
// folding the best match into Get.
type VectorCache struct {
	*baseCache

	cfg      *config.VectorConfig
	embedder domain.EmbeddingGenerator
	index    domain.SimilarityIndex
	reranker domain.Reranker
}

// NewVectorCache creates the vector layer.
func NewVectorCache(
	cfg *config.VectorConfig,
	embedder domain.EmbeddingGenerator,
	index domain.SimilarityIndex,
	reranker domain.Reranker,
	events domain.EventPublisher,
) *VectorCache {
	return &VectorCache{
		baseCache: newBaseCache(
			domain.LayerVector,
			time.Duration(cfg.DefaultTTLSeconds)*time.Second,
			time.Duration(cfg.CleanupIntervalSeconds)*time.Second,
			events,
		),
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		reranker: reranker,
	}
}

// Set stores the entry, then indexes the key's embedding with the value as
// retrievable context.
func (v *VectorCache) Set(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
	metadata map[string]string,
) bool {
	entry, err := v.store(ctx, key, value, ttl, metadata)
	if err != nil {
		observability.FromContext(ctx).Error("vector set failed",
			observability.Error(err))
		return false
	}

	if v.embedder == nil || v.index == nil {
		return true
	}

	logger := observability.FromContext(ctx)

	embedding, genErr := v.embedder.Generate(ctx, entry.Key)
	if genErr != nil {
		v.errs.Add(1)
		logger.Error("failed to generate embedding for vector index",
			observability.Error(genErr))
		return true
	}

	if indexErr := v.index.Index(ctx, entry.Key, embedding, []byte(entry.Value), ttl); indexErr != nil {
		v.errs.Add(1)
		logger.Error("failed to index vector entry",
			observability.Error(indexErr))
	}
	return true
}

// Search returns ranked candidates at or above the effective threshold.
// When reranking is requested a secondary pass reorders the top candidates
// before truncation; a reranking failure falls back to similarity order
// rather than failing the call. Scoring never mutates access bookkeeping.
func (v *VectorCache) Search(
	ctx context.Context,
	query string,
	nResults int,
	minSimilarity float64,
	useReranking bool,
) ([]*domain.VectorResult, error) {
	if query == "" {
		return nil, domain.ErrValidation
	}
	if nResults <= 0 {
		nResults = 1
	}

	threshold := v.cfg.SimilarityThreshold
	if minSimilarity > threshold {
		threshold = minSimilarity
	}

	embedding, err := v.embedder.Generate(ctx, query)
	if err != nil {
		v.errs.Add(1)
		return nil, err
	}

	// Pull a wider candidate set when reranking so the second pass has
	// something to reorder.
	limit := nResults
	if useReranking && v.cfg.RerankCandidates > limit {
		limit = v.cfg.RerankCandidates
	}

	matches, err := v.index.Search(ctx, embedding, threshold, limit)
	if err != nil {
		v.errs.Add(1)
		return nil, err
	}

	candidates := make([]*domain.VectorResult, 0, len(matches))
	for _, match := range matches {
		candidates = append(candidates, &domain.VectorResult{
			Key:     match.Key,
			Score:   match.Similarity,
			Context: string(match.Data),
		})
	}

	if useReranking && v.reranker != nil && len(candidates) > 1 {
		reranked, rerankErr := v.reranker.Rerank(ctx, query, candidates)
		if rerankErr != nil {
			observability.FromContext(ctx).Warn("reranking failed, keeping similarity order",
				observability.Error(rerankErr))
		} else {
			candidates = reranked
		}
	}

	if len(candidates) > nResults {
		candidates = candidates[:nResults]
	}
	return candidates, nil
}

// Delete removes the entry and its index vector.
func (v *VectorCache) Delete(ctx context.Context, key string) bool {
	existed := v.baseCache.Delete(ctx, key)

	if v.index != nil {
		if err := v.index.Remove(ctx, key); err != nil {
			observability.FromContext(ctx).Warn("failed to remove vector index entry",
				observability.Error(err))
		}
	}
	return existed
}

// Clear drops all entries and flushes the similarity index.
func (v *VectorCache) Clear(ctx context.Context) bool {
	if !v.baseCache.Clear(ctx) {
		return false
	}

	if v.index != nil {
		if err := v.index.Flush(ctx); err != nil {
			observability.FromContext(ctx).Error("failed to flush vector index",
				observability.Error(err))
			return false
		}
	}
	return true
}

// Stats extends the shared counters with the layer threshold.
func (v *VectorCache) Stats(ctx context.Context) map[string]any {
	stats := v.baseCache.Stats(ctx)
	stats["similarityThreshold"] = v.cfg.SimilarityThreshold
	stats["rerankCandidates"] = v.cfg.RerankCandidates
	return stats
}
