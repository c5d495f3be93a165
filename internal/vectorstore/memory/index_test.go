package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-cache/strata/internal/vectorstore/memory"
)

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("should rank matches by cosine similarity", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "exact", []float64{1, 0}, []byte("a"), 0))
		require.NoError(t, index.Index(ctx, "close", []float64{0.9, 0.1}, []byte("b"), 0))
		require.NoError(t, index.Index(ctx, "orthogonal", []float64{0, 1}, []byte("c"), 0))

		matches, err := index.Search(ctx, []float64{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		require.Equal(t, "exact", matches[0].Key)
		require.InDelta(t, 1.0, matches[0].Similarity, 1e-9)
		require.Equal(t, "close", matches[1].Key)
		require.Equal(t, []byte("b"), matches[1].Data)
	})

	t.Run("should apply the similarity threshold", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "close", []float64{0.9, 0.1}, nil, 0))

		matches, err := index.Search(ctx, []float64{1, 0}, 0.999, 10)
		require.NoError(t, err)
		require.Empty(t, matches)
	})

	t.Run("should truncate to the limit", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "a", []float64{1, 0}, nil, 0))
		require.NoError(t, index.Index(ctx, "b", []float64{0.95, 0.05}, nil, 0))
		require.NoError(t, index.Index(ctx, "c", []float64{0.9, 0.1}, nil, 0))

		matches, err := index.Search(ctx, []float64{1, 0}, 0.5, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		require.Equal(t, "a", matches[0].Key)
	})

	t.Run("should skip expired vectors", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "fleeting", []float64{1, 0}, nil, 10*time.Millisecond))
		require.NoError(t, index.Index(ctx, "durable", []float64{1, 0}, nil, 0))

		time.Sleep(30 * time.Millisecond)

		matches, err := index.Search(ctx, []float64{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, "durable", matches[0].Key)
	})

	t.Run("should score dimension mismatches as zero", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "wide", []float64{1, 0, 0}, nil, 0))

		matches, err := index.Search(ctx, []float64{1, 0}, 0.1, 10)
		require.NoError(t, err)
		require.Empty(t, matches)
	})

	t.Run("should search an empty index without error", func(t *testing.T) {
		index := memory.NewIndex()

		matches, err := index.Search(ctx, []float64{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Empty(t, matches)
	})
}

func TestIndex_RemoveAndFlush(t *testing.T) {
	ctx := context.Background()

	t.Run("should remove a single vector", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "a", []float64{1, 0}, nil, 0))
		require.NoError(t, index.Index(ctx, "b", []float64{1, 0}, nil, 0))
		require.NoError(t, index.Remove(ctx, "a"))

		matches, err := index.Search(ctx, []float64{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, "b", matches[0].Key)

		// removing an absent key is a no-op
		require.NoError(t, index.Remove(ctx, "a"))
	})

	t.Run("should drop everything on flush", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "a", []float64{1, 0}, nil, 0))
		require.NoError(t, index.Flush(ctx))

		matches, err := index.Search(ctx, []float64{1, 0}, 0.5, 10)
		require.NoError(t, err)
		require.Empty(t, matches)
	})

	t.Run("should overwrite on re-index", func(t *testing.T) {
		index := memory.NewIndex()

		require.NoError(t, index.Index(ctx, "a", []float64{1, 0}, []byte("old"), 0))
		require.NoError(t, index.Index(ctx, "a", []float64{0, 1}, []byte("new"), 0))

		matches, err := index.Search(ctx, []float64{0, 1}, 0.9, 10)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, []byte("new"), matches[0].Data)
	})
}
