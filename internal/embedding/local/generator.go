// Package local provides a deterministic token-hash embedder. It stands in
// for the OpenAI generator when no API key is configured, so the semantic
// and vector layers stay functional offline. Similar texts share tokens and
// therefore land close together under cosine similarity.
package local

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
)

const defaultDimension = 256

// Generator hashes tokens into a fixed-size normalized vector.
type Generator struct {
	dimension int
}

// NewGenerator creates a local embedding generator.
func NewGenerator() *Generator {
	return &Generator{dimension: defaultDimension}
}

// Generate creates a deterministic embedding from text.
func (g *Generator) Generate(_ context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}

	vec := make([]float64, g.dimension)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%g.dimension]++
	}

	// L2 normalize so dot products are cosine similarities.
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec, nil
}

// Name returns the generator identifier.
func (g *Generator) Name() string {
	return "local"
}

// Dimension returns the vector dimension.
func (g *Generator) Dimension() int {
	return g.dimension
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}
