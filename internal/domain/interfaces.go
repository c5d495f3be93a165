package domain

import (
	"context"
	"time"
)

// LayerCache is the contract shared by every cache layer. A layer owns its
// key→entry store plus any derived state (patterns, sessions, insights);
// all access from the router goes through this interface.
type LayerCache interface {
	// Layer returns the identifier this cache registers under.
	Layer() CacheLayer

	// Initialize allocates internal state and starts background maintainers.
	// It returns false, leaving the cache unusable, if any sub-step fails.
	// Calling Initialize twice on a running instance duplicates maintainers;
	// callers must not re-initialize.
	Initialize(ctx context.Context) bool

	// Get returns HIT with the entry if present and fresh, EXPIRED if present
	// but past its TTL (the entry is removed as a side effect), MISS if
	// absent, or ERROR on an internal fault.
	Get(ctx context.Context, key string) *CacheResult

	// Set upserts an entry. A ttl of zero means no expiry. Layer-specific
	// side effects run after the store write succeeds. Returns false on an
	// internal fault, which is logged rather than propagated.
	Set(ctx context.Context, key, value string, ttl time.Duration, metadata map[string]string) bool

	// Delete removes an entry, reporting whether it existed.
	Delete(ctx context.Context, key string) bool

	// Exists reports whether a fresh entry is present without mutating it.
	Exists(ctx context.Context, key string) bool

	// Clear drops all entries and all derived layer-specific state.
	Clear(ctx context.Context) bool

	// CleanupExpired removes every expired entry and returns the count.
	// The background sweep calls this; it is also safe to call on demand.
	CleanupExpired(ctx context.Context) int

	// Stats returns the shared counters (cacheHits, cacheMisses, cacheErrors,
	// totalOperations, totalCachedItems, hitRate) plus layer-specific fields.
	Stats(ctx context.Context) map[string]any

	// Close stops background maintainers and releases resources.
	Close() error
}

// EmbeddingGenerator creates vector embeddings from text.
type EmbeddingGenerator interface {
	// Generate creates a vector embedding from text.
	Generate(ctx context.Context, text string) ([]float64, error)

	// Name returns the generator identifier.
	Name() string

	// Dimension returns the vector dimension.
	Dimension() int
}

// SimilarityIndex stores embeddings and performs similarity search.
type SimilarityIndex interface {
	// Index stores a vector with associated data and an optional TTL.
	Index(ctx context.Context, key string, embedding []float64, data []byte, ttl time.Duration) error

	// Search finds vectors whose similarity to the query embedding is at
	// least threshold, ranked best first, truncated to limit.
	Search(ctx context.Context, embedding []float64, threshold float64, limit int) ([]*IndexMatch, error)

	// Remove drops a vector from the index. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error

	// Flush drops every vector from the index.
	Flush(ctx context.Context) error
}

// IndexMatch is one similarity-index search result.
type IndexMatch struct {
	Key        string
	Similarity float64
	Data       []byte
	IndexedAt  time.Time
}

// KnowledgeSource is the external RAG endpoint the global layer falls
// back to on a local miss.
type KnowledgeSource interface {
	// Query retrieves up to limit ranked knowledge items for the query text.
	Query(ctx context.Context, query string, limit int) ([]*KnowledgeItem, error)

	// Name returns the source identifier.
	Name() string
}

// Reranker reorders top similarity candidates before final truncation.
type Reranker interface {
	// Rerank rescores candidates against the query, best first.
	Rerank(ctx context.Context, query string, candidates []*VectorResult) ([]*VectorResult, error)
}

// SnapshotStore persists layer entries and diary sessions across restarts.
type SnapshotStore interface {
	// SaveEntries replaces the stored snapshot for a layer.
	SaveEntries(ctx context.Context, layer CacheLayer, entries []*CacheEntry) error

	// LoadEntries returns the stored snapshot for a layer.
	LoadEntries(ctx context.Context, layer CacheLayer) ([]*CacheEntry, error)

	// SaveSessions replaces the stored diary sessions.
	SaveSessions(ctx context.Context, sessions []*Session) error

	// LoadSessions returns the stored diary sessions.
	LoadSessions(ctx context.Context) ([]*Session, error)

	// Close releases the underlying store.
	Close() error
}

// EventPublisher publishes cache lifecycle events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}
