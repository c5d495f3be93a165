package cache

import (
	"context"
	"sort"
	"strings"

	"github.com/strata-cache/strata/internal/domain"
)

// TermOverlapReranker reorders vector-search candidates by blending the
// embedding score with lexical term overlap between the query and the
// candidate's key and context. It is deliberately cheap; the primary
// ranking signal stays the embedding similarity.
type TermOverlapReranker struct{}

// NewTermOverlapReranker creates the default reranker.
func NewTermOverlapReranker() *TermOverlapReranker {
	return &TermOverlapReranker{}
}

const (
	embeddingWeight = 0.7
	overlapWeight   = 0.3
)

// Rerank rescores candidates against the query, best first. The input
// slice is not modified.
func (r *TermOverlapReranker) Rerank(
	_ context.Context,
	query string,
	candidates []*domain.VectorResult,
) ([]*domain.VectorResult, error) {
	queryTerms := termSet(query)

	reranked := make([]*domain.VectorResult, 0, len(candidates))
	for _, candidate := range candidates {
		overlap := termOverlap(queryTerms, termSet(candidate.Key+" "+candidate.Context))
		reranked = append(reranked, &domain.VectorResult{
			Key:     candidate.Key,
			Score:   embeddingWeight*candidate.Score + overlapWeight*overlap,
			Context: candidate.Context,
		})
	}

	sort.SliceStable(reranked, func(a, b int) bool {
		return reranked[a].Score > reranked[b].Score
	})

	return reranked, nil
}

func termSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, term := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(term, ".,!?;:\"'()")] = struct{}{}
	}
	delete(set, "")
	return set
}

// termOverlap is the Jaccard similarity of two term sets.
func termOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0
	for term := range a {
		if _, ok := b[term]; ok {
			shared++
		}
	}

	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
