package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/strata-cache/strata/internal/domain"
)

// Vector widths of the supported embedding models.
const (
	dimensionStandard = 1536 // ada-002 and 3-small
	dimensionLarge    = 3072 // 3-large
)

// Generator produces embeddings through the OpenAI API. The similarity
// layers treat it as an upstream collaborator: a failed call surfaces as
// ErrUpstream and the lookup degrades to a plain miss.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates the generator. The model falls back to ada-002
// when the configuration leaves it unset.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is not configured", domain.ErrValidation)
	}

	model := cfg.Model
	if model == "" {
		model = string(openai.EmbeddingModelTextEmbeddingAda002)
	}

	return &Generator{
		client: openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:  model,
	}, nil
}

// Generate embeds a single text.
func (g *Generator) Generate(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", domain.ErrValidation)
	}

	resp, err := g.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(g.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings request: %v", domain.ErrUpstream, err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: embeddings response carried no vectors", domain.ErrUpstream)
	}

	return resp.Data[0].Embedding, nil
}

// Name returns the generator identifier.
func (g *Generator) Name() string {
	return "openai"
}

// Dimension reports the vector width of the configured model.
func (g *Generator) Dimension() int {
	if g.model == string(openai.EmbeddingModelTextEmbedding3Large) {
		return dimensionLarge
	}
	return dimensionStandard
}
