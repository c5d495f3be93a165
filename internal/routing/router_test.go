package routing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/routing"
)

// stubCache is a scriptable domain.LayerCache for router tests.
type stubCache struct {
	layer domain.CacheLayer

	getFunc    func(key string) *domain.CacheResult
	setOK      bool
	deleted    bool
	cleared    bool
	getCalls   int
	setCalls   int
	delCalls   int
	clearCalls int

	similar    []*domain.SimilarResult
	similarErr error
	vectors    []*domain.VectorResult
	vectorErr  error
}

func newStubCache(layer domain.CacheLayer) *stubCache {
	return &stubCache{layer: layer, setOK: true, deleted: true, cleared: true}
}

func (s *stubCache) Layer() domain.CacheLayer          { return s.layer }
func (s *stubCache) Initialize(context.Context) bool   { return true }
func (s *stubCache) Exists(context.Context, string) bool { return false }
func (s *stubCache) CleanupExpired(context.Context) int  { return 0 }
func (s *stubCache) Close() error                        { return nil }

func (s *stubCache) Get(_ context.Context, key string) *domain.CacheResult {
	s.getCalls++
	if s.getFunc != nil {
		return s.getFunc(key)
	}
	return &domain.CacheResult{Status: domain.StatusMiss, Layer: s.layer}
}

func (s *stubCache) Set(context.Context, string, string, time.Duration, map[string]string) bool {
	s.setCalls++
	return s.setOK
}

func (s *stubCache) Delete(context.Context, string) bool {
	s.delCalls++
	return s.deleted
}

func (s *stubCache) Clear(context.Context) bool {
	s.clearCalls++
	return s.cleared
}

func (s *stubCache) Stats(context.Context) map[string]any {
	return map[string]any{"layer": string(s.layer)}
}

func (s *stubCache) FindSimilar(context.Context, string, int, float64) ([]*domain.SimilarResult, error) {
	return s.similar, s.similarErr
}

func (s *stubCache) Search(context.Context, string, int, float64, bool) ([]*domain.VectorResult, error) {
	return s.vectors, s.vectorErr
}

func newRouterForTest(t *testing.T, fallback bool) *routing.Router {
	t.Helper()

	router, err := routing.NewRouter(&config.RoutingConfig{CrossLayerFallback: fallback})
	require.NoError(t, err)
	return router
}

func hitResult(layer domain.CacheLayer, key, value string) *domain.CacheResult {
	return &domain.CacheResult{
		Status: domain.StatusHit,
		Entry:  &domain.CacheEntry{Key: key, Value: value},
		Layer:  layer,
	}
}

func TestRouter_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("should short-circuit on the first hit", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.getFunc = func(key string) *domain.CacheResult {
			return hitResult(domain.LayerSemantic, key, "answer")
		}
		global := newStubCache(domain.LayerGlobal)

		router.RegisterCache(semantic)
		router.RegisterCache(global)

		result := router.Get(ctx, "anything at all")
		require.True(t, result.Hit())
		require.Equal(t, domain.LayerSemantic, result.Layer)
		require.Equal(t, "answer", result.Entry.Value)
		require.Equal(t, 0, global.getCalls)
	})

	t.Run("should continue past an errored layer", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.getFunc = func(string) *domain.CacheResult {
			return &domain.CacheResult{Status: domain.StatusError, ErrorMessage: "boom"}
		}
		global := newStubCache(domain.LayerGlobal)
		global.getFunc = func(key string) *domain.CacheResult {
			return hitResult(domain.LayerGlobal, key, "from-global")
		}

		router.RegisterCache(semantic)
		router.RegisterCache(global)

		result := router.Get(ctx, "anything")
		require.True(t, result.Hit())
		require.Equal(t, domain.LayerGlobal, result.Layer)
	})

	t.Run("should report error only when every layer errored", func(t *testing.T) {
		router := newRouterForTest(t, true)

		for _, layer := range []domain.CacheLayer{domain.LayerSemantic, domain.LayerGlobal} {
			stub := newStubCache(layer)
			stub.getFunc = func(string) *domain.CacheResult {
				return &domain.CacheResult{Status: domain.StatusError, ErrorMessage: "down: " + string(layer)}
			}
			router.RegisterCache(stub)
		}

		result := router.Get(ctx, "anything")
		require.Equal(t, domain.StatusError, result.Status)
		require.NotEmpty(t, result.ErrorMessage)
	})

	t.Run("should report a miss when no layer has the key", func(t *testing.T) {
		router := newRouterForTest(t, true)
		router.RegisterCache(newStubCache(domain.LayerSemantic))

		result := router.Get(ctx, "absent")
		require.Equal(t, domain.StatusMiss, result.Status)
	})

	t.Run("should error when no layers are registered", func(t *testing.T) {
		router := newRouterForTest(t, true)

		result := router.Get(ctx, "anything")
		require.Equal(t, domain.StatusError, result.Status)
	})

	t.Run("should stay on classified layers without cross-layer fallback", func(t *testing.T) {
		router := newRouterForTest(t, false)

		semantic := newStubCache(domain.LayerSemantic)
		global := newStubCache(domain.LayerGlobal)
		router.RegisterCache(semantic)
		router.RegisterCache(global)

		// no classification keyword: only the semantic default is consulted
		result := router.Get(ctx, "plain text")
		require.Equal(t, domain.StatusMiss, result.Status)
		require.Equal(t, 1, semantic.getCalls)
		require.Equal(t, 0, global.getCalls)
	})
}

func TestRouter_GetFrom(t *testing.T) {
	ctx := context.Background()

	t.Run("should query the named layer only", func(t *testing.T) {
		router := newRouterForTest(t, true)

		global := newStubCache(domain.LayerGlobal)
		global.getFunc = func(key string) *domain.CacheResult {
			return hitResult(domain.LayerGlobal, key, "v")
		}
		semantic := newStubCache(domain.LayerSemantic)
		router.RegisterCache(global)
		router.RegisterCache(semantic)

		result := router.GetFrom(ctx, domain.LayerGlobal, "key")
		require.True(t, result.Hit())
		require.Equal(t, 0, semantic.getCalls)
	})

	t.Run("should error for an unregistered layer", func(t *testing.T) {
		router := newRouterForTest(t, true)

		result := router.GetFrom(ctx, domain.LayerVector, "key")
		require.Equal(t, domain.StatusError, result.Status)
		require.Equal(t, domain.LayerVector, result.Layer)
	})
}

func TestRouter_SetDeleteClear(t *testing.T) {
	ctx := context.Background()

	t.Run("should route writes to the primary classified layer", func(t *testing.T) {
		router := newRouterForTest(t, true)

		predictive := newStubCache(domain.LayerPredictive)
		semantic := newStubCache(domain.LayerSemantic)
		router.RegisterCache(predictive)
		router.RegisterCache(semantic)

		result := router.Set(ctx, "predict the next step", "value", 0, nil)
		require.Equal(t, domain.StatusHit, result.Status)
		require.Equal(t, domain.LayerPredictive, result.Layer)
		require.Equal(t, 1, predictive.setCalls)
		require.Equal(t, 0, semantic.setCalls)
	})

	t.Run("should surface a failed write", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.setOK = false
		router.RegisterCache(semantic)

		result := router.SetIn(ctx, domain.LayerSemantic, "k", "v", 0, nil)
		require.Equal(t, domain.StatusError, result.Status)
	})

	t.Run("should error on writes to an unregistered layer", func(t *testing.T) {
		router := newRouterForTest(t, true)

		result := router.SetIn(ctx, domain.LayerVector, "k", "v", 0, nil)
		require.Equal(t, domain.StatusError, result.Status)
	})

	t.Run("should fan deletes out to every layer", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.deleted = false
		global := newStubCache(domain.LayerGlobal)
		router.RegisterCache(semantic)
		router.RegisterCache(global)

		require.True(t, router.Delete(ctx, "key"))
		require.Equal(t, 1, semantic.delCalls)
		require.Equal(t, 1, global.delCalls)

		global.deleted = false
		require.False(t, router.Delete(ctx, "key"))
	})

	t.Run("should fan clears out to every layer", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		global := newStubCache(domain.LayerGlobal)
		router.RegisterCache(semantic)
		router.RegisterCache(global)

		require.True(t, router.ClearCache(ctx))
		require.Equal(t, 1, semantic.clearCalls)
		require.Equal(t, 1, global.clearCalls)

		global.cleared = false
		require.False(t, router.ClearCache(ctx))
	})
}

func TestRouter_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("should merge semantic and vector results on the best score", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.similar = []*domain.SimilarResult{
			{Key: "shared", Similarity: 0.80},
			{Key: "semantic-only", Similarity: 0.90},
		}
		vector := newStubCache(domain.LayerVector)
		vector.vectors = []*domain.VectorResult{
			{Key: "shared", Score: 0.95},
			{Key: "vector-only", Score: 0.70},
		}
		router.RegisterCache(semantic)
		router.RegisterCache(vector)

		results := router.Search(ctx, "query", 10, 0.5)
		require.Len(t, results, 3)
		require.Equal(t, "shared", results[0].Key)
		require.InDelta(t, 0.95, results[0].Similarity, 1e-9)
		require.Equal(t, "semantic-only", results[1].Key)
		require.Equal(t, "vector-only", results[2].Key)
	})

	t.Run("should truncate to the requested count", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.similar = []*domain.SimilarResult{
			{Key: "a", Similarity: 0.9},
			{Key: "b", Similarity: 0.8},
			{Key: "c", Similarity: 0.7},
		}
		router.RegisterCache(semantic)

		results := router.Search(ctx, "query", 2, 0.5)
		require.Len(t, results, 2)
		require.Equal(t, "a", results[0].Key)
	})

	t.Run("should skip a failing layer instead of failing the search", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.similarErr = errors.New("index down")
		vector := newStubCache(domain.LayerVector)
		vector.vectors = []*domain.VectorResult{{Key: "v", Score: 0.8}}
		router.RegisterCache(semantic)
		router.RegisterCache(vector)

		results := router.Search(ctx, "query", 5, 0.5)
		require.Len(t, results, 1)
		require.Equal(t, "v", results[0].Key)
	})

	t.Run("should return empty with no searchable layers", func(t *testing.T) {
		router := newRouterForTest(t, true)
		router.RegisterCache(newStubCache(domain.LayerGlobal))

		require.Empty(t, router.Search(ctx, "query", 5, 0.5))
	})
}

func TestRouter_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("should aggregate counters and per-layer rollups", func(t *testing.T) {
		router := newRouterForTest(t, true)

		semantic := newStubCache(domain.LayerSemantic)
		semantic.getFunc = func(key string) *domain.CacheResult {
			if key == "present" {
				return hitResult(domain.LayerSemantic, key, "v")
			}
			return &domain.CacheResult{Status: domain.StatusMiss}
		}
		router.RegisterCache(semantic)

		require.True(t, router.Get(ctx, "present").Hit())
		require.Equal(t, domain.StatusMiss, router.Get(ctx, "absent").Status)

		stats := router.Stats(ctx)
		require.EqualValues(t, 2, stats["totalRequests"])
		require.EqualValues(t, 1, stats["totalHits"])
		require.EqualValues(t, 1, stats["totalMisses"])
		require.EqualValues(t, 0, stats["totalErrors"])
		require.InDelta(t, 0.5, stats["hitRate"].(float64), 1e-9)
		require.Equal(t, 1, stats["cacheLayers"])

		layers, ok := stats["layers"].(map[string]any)
		require.True(t, ok)
		require.Contains(t, layers, "semantic")
	})
}
