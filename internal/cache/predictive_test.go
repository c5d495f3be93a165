package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-cache/strata/internal/cache"
	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
)

func newPredictiveForTest(t *testing.T, threshold float64) *cache.PredictiveCache {
	t.Helper()

	cfg := &config.PredictiveConfig{
		DefaultTTLSeconds:      3600,
		CleanupIntervalSeconds: 60,
		ConfidenceThreshold:    threshold,
		MaxPredictions:         5,
		SessionHistorySize:     10,
		PrefetchTTLSeconds:     300,
		RefreshIntervalSeconds: 0,
	}

	c := cache.NewPredictiveCache(cfg, nil)
	require.True(t, c.Initialize(context.Background()))
	t.Cleanup(func() { require.NoError(t, c.Close()) })

	return c
}

func TestPredictiveCache_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("should return hit for a stored entry", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		require.True(t, c.Set(ctx, "query-1", "response-1", 0, nil))

		result := c.Get(ctx, "query-1")
		require.True(t, result.Hit())
		require.Equal(t, domain.StatusHit, result.Status)
		require.Equal(t, "response-1", result.Entry.Value)
		require.Equal(t, domain.LayerPredictive, result.Layer)
		require.EqualValues(t, 1, result.Entry.AccessCount)
	})

	t.Run("should return miss for an unknown key", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		result := c.Get(ctx, "never-stored")
		require.Equal(t, domain.StatusMiss, result.Status)
		require.Nil(t, result.Entry)
	})

	t.Run("should never expire an entry stored with zero ttl", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		require.True(t, c.Set(ctx, "immortal", "v", 0, nil))

		result := c.Get(ctx, "immortal")
		require.Equal(t, domain.StatusHit, result.Status)
		require.Nil(t, result.Entry.ExpiresAt)
	})

	t.Run("should expire an entry once, then miss", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		require.True(t, c.Set(ctx, "short-lived", "v", 20*time.Millisecond, nil))
		require.Equal(t, domain.StatusHit, c.Get(ctx, "short-lived").Status)

		time.Sleep(40 * time.Millisecond)

		require.Equal(t, domain.StatusExpired, c.Get(ctx, "short-lived").Status)
		require.Equal(t, domain.StatusMiss, c.Get(ctx, "short-lived").Status)
	})

	t.Run("should report existence without mutating access count", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		require.True(t, c.Set(ctx, "probe", "v", 0, nil))
		require.True(t, c.Exists(ctx, "probe"))
		require.False(t, c.Exists(ctx, "absent"))

		result := c.Get(ctx, "probe")
		require.EqualValues(t, 1, result.Entry.AccessCount)
	})

	t.Run("should delete idempotently", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		require.True(t, c.Set(ctx, "doomed", "v", 0, nil))
		require.True(t, c.Delete(ctx, "doomed"))
		require.False(t, c.Delete(ctx, "doomed"))
		require.Equal(t, domain.StatusMiss, c.Get(ctx, "doomed").Status)
	})

	t.Run("should reject operations before initialization", func(t *testing.T) {
		cfg := &config.PredictiveConfig{
			DefaultTTLSeconds:      3600,
			CleanupIntervalSeconds: 60,
			ConfidenceThreshold:    0.7,
			MaxPredictions:         5,
			SessionHistorySize:     10,
		}
		c := cache.NewPredictiveCache(cfg, nil)

		require.False(t, c.Set(ctx, "k", "v", 0, nil))
		require.Equal(t, domain.StatusError, c.Get(ctx, "k").Status)
	})

	t.Run("should reject an empty key", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		require.False(t, c.Set(ctx, "", "v", 0, nil))

		result := c.Get(ctx, "")
		require.Equal(t, domain.StatusError, result.Status)
		require.NotEmpty(t, result.ErrorMessage)
	})

	t.Run("should remove expired entries on cleanup", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		require.True(t, c.Set(ctx, "e1", "v", 10*time.Millisecond, nil))
		require.True(t, c.Set(ctx, "e2", "v", 10*time.Millisecond, nil))
		require.True(t, c.Set(ctx, "keep", "v", 0, nil))

		time.Sleep(30 * time.Millisecond)

		require.Equal(t, 2, c.CleanupExpired(ctx))
		require.Equal(t, 0, c.CleanupExpired(ctx))
		require.True(t, c.Exists(ctx, "keep"))
	})
}

func TestPredictiveCache_Predict(t *testing.T) {
	ctx := context.Background()

	t.Run("should predict the next query in a recorded sequence", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.5)

		require.True(t, c.Set(ctx, "a", "resp-a", 0, nil))
		require.True(t, c.Set(ctx, "b", "resp-b", 0, nil))
		require.True(t, c.Set(ctx, "c", "resp-c", 0, nil))

		predictions := c.Predict(ctx, &domain.PredictionRequest{
			Context:   "b",
			Timestamp: time.Now(),
		})
		require.Len(t, predictions, 1)
		require.Equal(t, "c", predictions[0].Query)
		require.Equal(t, "resp-c", predictions[0].Response)
		require.InDelta(t, 0.5, predictions[0].Confidence, 1e-9)
	})

	t.Run("should filter predictions below the confidence threshold", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.9)

		require.True(t, c.Set(ctx, "a", "resp-a", 0, nil))
		require.True(t, c.Set(ctx, "b", "resp-b", 0, nil))

		require.Empty(t, c.Predict(ctx, &domain.PredictionRequest{
			Context:   "a",
			Timestamp: time.Now(),
		}))
	})

	t.Run("should grow confidence with repetition", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.7)

		// The same three-query window has to repeat before its pattern
		// clears a 0.7 threshold.
		for i := 0; i < 3; i++ {
			require.True(t, c.Set(ctx, "a", "resp-a", 0, nil))
			require.True(t, c.Set(ctx, "b", "resp-b", 0, nil))
			require.True(t, c.Set(ctx, "c", "resp-c", 0, nil))
		}

		predictions := c.Predict(ctx, &domain.PredictionRequest{
			Context:   "b",
			Timestamp: time.Now(),
		})
		require.NotEmpty(t, predictions)
		require.Equal(t, "c", predictions[0].Query)
		require.GreaterOrEqual(t, predictions[0].Confidence, 0.7)
	})

	t.Run("should honor the max predictions cap", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.5)

		require.True(t, c.Set(ctx, "x", "resp-x", 0, nil))
		require.True(t, c.Set(ctx, "a", "resp-a", 0, nil))
		require.True(t, c.Set(ctx, "x", "resp-x", 0, nil))
		require.True(t, c.Set(ctx, "b", "resp-b", 0, nil))

		all := c.PredictNextQueries(ctx, &domain.PredictionRequest{
			Context:   "x",
			Timestamp: time.Now(),
		})
		require.Len(t, all, 2)
		require.Equal(t, []string{"a", "b"}, all)

		capped := c.Predict(ctx, &domain.PredictionRequest{
			Context:        "x",
			Timestamp:      time.Now(),
			MaxPredictions: 1,
		})
		require.Len(t, capped, 1)
	})

	t.Run("should isolate patterns per user", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.5)

		alice := map[string]string{"user_id": "alice"}
		require.True(t, c.Set(ctx, "a", "resp-a", 0, alice))
		require.True(t, c.Set(ctx, "b", "resp-b", 0, alice))

		require.Empty(t, c.Predict(ctx, &domain.PredictionRequest{
			Context:   "a",
			UserID:    "bob",
			Timestamp: time.Now(),
		}))
		require.NotEmpty(t, c.Predict(ctx, &domain.PredictionRequest{
			Context:   "a",
			UserID:    "alice",
			Timestamp: time.Now(),
		}))
	})

	t.Run("should return nothing for a nil request", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.5)
		require.Empty(t, c.Predict(ctx, nil))
	})
}

func TestPredictiveCache_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("should expose shared and layer-specific counters", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.5)

		require.True(t, c.Set(ctx, "a", "resp-a", 0, nil))
		require.Equal(t, domain.StatusHit, c.Get(ctx, "a").Status)
		require.Equal(t, domain.StatusMiss, c.Get(ctx, "missing").Status)

		stats := c.Stats(ctx)
		require.EqualValues(t, 1, stats["cacheHits"])
		require.EqualValues(t, 1, stats["cacheMisses"])
		require.EqualValues(t, 0, stats["cacheErrors"])
		require.Equal(t, 0.5, stats["hitRate"])
		require.Equal(t, 1, stats["totalCachedItems"])
		require.Equal(t, 1, stats["totalPatterns"])
		require.Equal(t, 1, stats["activeSessions"])
		require.Contains(t, stats, "predictionAccuracy")
		require.Contains(t, stats, "prefetchEfficiency")
	})

	t.Run("should drop patterns and histories on clear", func(t *testing.T) {
		c := newPredictiveForTest(t, 0.5)

		require.True(t, c.Set(ctx, "a", "resp-a", 0, nil))
		require.True(t, c.Set(ctx, "b", "resp-b", 0, nil))
		require.True(t, c.Clear(ctx))

		stats := c.Stats(ctx)
		require.Equal(t, 0, stats["totalCachedItems"])
		require.Equal(t, 0, stats["totalPatterns"])
		require.Equal(t, 0, stats["activeSessions"])
		require.Empty(t, c.Predict(ctx, &domain.PredictionRequest{
			Context:   "a",
			Timestamp: time.Now(),
		}))
	})
}
