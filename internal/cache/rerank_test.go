package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-cache/strata/internal/cache"
	"github.com/strata-cache/strata/internal/domain"
)

func TestTermOverlapReranker(t *testing.T) {
	ctx := context.Background()
	reranker := cache.NewTermOverlapReranker()

	t.Run("should promote candidates sharing terms with the query", func(t *testing.T) {
		candidates := []*domain.VectorResult{
			{Key: "weather report", Score: 0.80, Context: "stocks and bonds"},
			{Key: "paris weather", Score: 0.78, Context: "weather in paris today"},
		}

		reranked, err := reranker.Rerank(ctx, "weather in paris", candidates)
		require.NoError(t, err)
		require.Len(t, reranked, 2)
		require.Equal(t, "paris weather", reranked[0].Key)
		require.Equal(t, "weather report", reranked[1].Key)
	})

	t.Run("should blend embedding score and term overlap", func(t *testing.T) {
		candidates := []*domain.VectorResult{
			{Key: "alpha beta", Score: 0.5, Context: ""},
		}

		// query terms {alpha, beta} equal the candidate terms, so the
		// overlap component contributes its full weight.
		reranked, err := reranker.Rerank(ctx, "alpha beta", candidates)
		require.NoError(t, err)
		require.InDelta(t, 0.7*0.5+0.3*1.0, reranked[0].Score, 1e-9)
	})

	t.Run("should score zero overlap for disjoint terms", func(t *testing.T) {
		candidates := []*domain.VectorResult{
			{Key: "gamma", Score: 0.4, Context: "delta"},
		}

		reranked, err := reranker.Rerank(ctx, "alpha beta", candidates)
		require.NoError(t, err)
		require.InDelta(t, 0.7*0.4, reranked[0].Score, 1e-9)
	})

	t.Run("should not modify the input slice", func(t *testing.T) {
		candidates := []*domain.VectorResult{
			{Key: "paris weather", Score: 0.2, Context: ""},
		}

		_, err := reranker.Rerank(ctx, "paris weather", candidates)
		require.NoError(t, err)
		require.InDelta(t, 0.2, candidates[0].Score, 1e-9)
	})

	t.Run("should handle an empty candidate list", func(t *testing.T) {
		reranked, err := reranker.Rerank(ctx, "anything", nil)
		require.NoError(t, err)
		require.Empty(t, reranked)
	})
}
