// Package memory implements the similarity index in process memory using
// brute-force cosine scoring. It is the default backend when no Redis
// address is configured.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/strata-cache/strata/internal/domain"
)

type record struct {
	embedding []float64
	data      []byte
	indexedAt time.Time
	expiresAt time.Time // zero means no expiry
}

// Index is an in-memory similarity index.
type Index struct {
	mu      sync.RWMutex
	records map[string]*record
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{
		records: make(map[string]*record),
	}
}

// Index stores a vector with associated data and an optional TTL.
func (i *Index) Index(_ context.Context, key string, embedding []float64, data []byte, ttl time.Duration) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	rec := &record{
		embedding: append([]float64(nil), embedding...),
		data:      append([]byte(nil), data...),
		indexedAt: time.Now(),
	}
	if ttl > 0 {
		rec.expiresAt = rec.indexedAt.Add(ttl)
	}

	i.records[key] = rec
	return nil
}

// Search finds vectors whose cosine similarity to the query embedding is
// at least threshold, ranked best first, truncated to limit.
func (i *Index) Search(
	_ context.Context,
	embedding []float64,
	threshold float64,
	limit int,
) ([]*domain.IndexMatch, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	now := time.Now()
	matches := make([]*domain.IndexMatch, 0, limit)

	for key, rec := range i.records {
		if !rec.expiresAt.IsZero() && now.After(rec.expiresAt) {
			continue
		}

		similarity := cosine(embedding, rec.embedding)
		if similarity < threshold {
			continue
		}

		matches = append(matches, &domain.IndexMatch{
			Key:        key,
			Similarity: similarity,
			Data:       rec.data,
			IndexedAt:  rec.indexedAt,
		})
	}

	sort.Slice(matches, func(a, b int) bool {
		return matches[a].Similarity > matches[b].Similarity
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches, nil
}

// Remove drops a vector from the index.
func (i *Index) Remove(_ context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.records, key)
	return nil
}

// Flush drops every vector from the index.
func (i *Index) Flush(_ context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.records = make(map[string]*record)
	return nil
}

// cosine returns the cosine similarity of two vectors, 0 on dimension
// mismatch or zero magnitude.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
