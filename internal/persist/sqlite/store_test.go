package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/persist/sqlite"
)

func newStoreForTest(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "snapshot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	return store
}

func TestStore_Entries(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip entries per layer", func(t *testing.T) {
		store := newStoreForTest(t)

		created := time.Now().Add(-time.Minute)
		expires := time.Now().Add(time.Hour)
		entries := []*domain.CacheEntry{
			{
				Key:            "greeting",
				Value:          "hello",
				CreatedAt:      created,
				ExpiresAt:      &expires,
				Metadata:       map[string]string{"user_id": "alice"},
				AccessCount:    3,
				LastAccessedAt: created,
			},
			{
				Key:            "farewell",
				Value:          "goodbye",
				CreatedAt:      created,
				LastAccessedAt: created,
			},
		}

		require.NoError(t, store.SaveEntries(ctx, domain.LayerSemantic, entries))

		loaded, err := store.LoadEntries(ctx, domain.LayerSemantic)
		require.NoError(t, err)
		require.Len(t, loaded, 2)

		byKey := make(map[string]*domain.CacheEntry, len(loaded))
		for _, entry := range loaded {
			require.Equal(t, domain.LayerSemantic, entry.Layer)
			byKey[entry.Key] = entry
		}

		greeting := byKey["greeting"]
		require.NotNil(t, greeting)
		require.Equal(t, "hello", greeting.Value)
		require.Equal(t, map[string]string{"user_id": "alice"}, greeting.Metadata)
		require.EqualValues(t, 3, greeting.AccessCount)
		require.NotNil(t, greeting.ExpiresAt)
		require.WithinDuration(t, expires, *greeting.ExpiresAt, time.Second)

		farewell := byKey["farewell"]
		require.NotNil(t, farewell)
		require.Nil(t, farewell.ExpiresAt)
		require.Nil(t, farewell.Metadata)
	})

	t.Run("should keep layers separate", func(t *testing.T) {
		store := newStoreForTest(t)

		now := time.Now()
		require.NoError(t, store.SaveEntries(ctx, domain.LayerSemantic, []*domain.CacheEntry{
			{Key: "a", Value: "1", CreatedAt: now, LastAccessedAt: now},
		}))
		require.NoError(t, store.SaveEntries(ctx, domain.LayerGlobal, []*domain.CacheEntry{
			{Key: "b", Value: "2", CreatedAt: now, LastAccessedAt: now},
		}))

		semantic, err := store.LoadEntries(ctx, domain.LayerSemantic)
		require.NoError(t, err)
		require.Len(t, semantic, 1)
		require.Equal(t, "a", semantic[0].Key)

		global, err := store.LoadEntries(ctx, domain.LayerGlobal)
		require.NoError(t, err)
		require.Len(t, global, 1)
		require.Equal(t, "b", global[0].Key)
	})

	t.Run("should replace the prior snapshot on save", func(t *testing.T) {
		store := newStoreForTest(t)

		now := time.Now()
		require.NoError(t, store.SaveEntries(ctx, domain.LayerSemantic, []*domain.CacheEntry{
			{Key: "old", Value: "1", CreatedAt: now, LastAccessedAt: now},
		}))
		require.NoError(t, store.SaveEntries(ctx, domain.LayerSemantic, []*domain.CacheEntry{
			{Key: "new", Value: "2", CreatedAt: now, LastAccessedAt: now},
		}))

		loaded, err := store.LoadEntries(ctx, domain.LayerSemantic)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		require.Equal(t, "new", loaded[0].Key)
	})

	t.Run("should not resurrect expired entries", func(t *testing.T) {
		store := newStoreForTest(t)

		now := time.Now()
		past := now.Add(-time.Minute)
		future := now.Add(time.Hour)
		require.NoError(t, store.SaveEntries(ctx, domain.LayerSemantic, []*domain.CacheEntry{
			{Key: "dead", Value: "x", CreatedAt: past, ExpiresAt: &past, LastAccessedAt: past},
			{Key: "live", Value: "y", CreatedAt: past, ExpiresAt: &future, LastAccessedAt: past},
		}))

		loaded, err := store.LoadEntries(ctx, domain.LayerSemantic)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		require.Equal(t, "live", loaded[0].Key)
	})

	t.Run("should load an empty snapshot as empty", func(t *testing.T) {
		store := newStoreForTest(t)

		loaded, err := store.LoadEntries(ctx, domain.LayerVector)
		require.NoError(t, err)
		require.Empty(t, loaded)
	})
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()

	t.Run("should round-trip sessions in creation order", func(t *testing.T) {
		store := newStoreForTest(t)

		earlier := time.Now().Add(-time.Hour)
		later := time.Now()
		sessions := []*domain.Session{
			{
				SessionID: "s2",
				UserID:    "alice",
				CreatedAt: later,
				Interactions: []domain.Interaction{
					{Query: "q", Response: "r", Timestamp: later},
				},
			},
			{SessionID: "s1", UserID: "bob", CreatedAt: earlier, Closed: true},
		}

		require.NoError(t, store.SaveSessions(ctx, sessions))

		loaded, err := store.LoadSessions(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		require.Equal(t, "s1", loaded[0].SessionID)
		require.True(t, loaded[0].Closed)
		require.Equal(t, "s2", loaded[1].SessionID)
		require.Len(t, loaded[1].Interactions, 1)
		require.Equal(t, "q", loaded[1].Interactions[0].Query)
	})

	t.Run("should replace prior sessions on save", func(t *testing.T) {
		store := newStoreForTest(t)

		now := time.Now()
		require.NoError(t, store.SaveSessions(ctx, []*domain.Session{
			{SessionID: "old", UserID: "alice", CreatedAt: now},
		}))
		require.NoError(t, store.SaveSessions(ctx, []*domain.Session{
			{SessionID: "new", UserID: "alice", CreatedAt: now},
		}))

		loaded, err := store.LoadSessions(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		require.Equal(t, "new", loaded[0].SessionID)
	})

	t.Run("should survive reopening the database", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "snapshot.db")

		store, err := sqlite.New(ctx, path)
		require.NoError(t, err)

		now := time.Now()
		require.NoError(t, store.SaveSessions(ctx, []*domain.Session{
			{SessionID: "persisted", UserID: "alice", CreatedAt: now},
		}))
		require.NoError(t, store.Close())

		reopened, err := sqlite.New(ctx, path)
		require.NoError(t, err)
		defer reopened.Close()

		loaded, err := reopened.LoadSessions(ctx)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		require.Equal(t, "persisted", loaded[0].SessionID)
	})
}
