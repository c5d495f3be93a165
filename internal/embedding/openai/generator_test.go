package openai_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/embedding/openai"
)

func TestNewGenerator(t *testing.T) {
	t.Run("should reject a missing API key", func(t *testing.T) {
		_, err := openai.NewGenerator(openai.Config{})

		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("should default the model to ada-002", func(t *testing.T) {
		g, err := openai.NewGenerator(openai.Config{APIKey: "sk-test"})

		require.NoError(t, err)
		require.Equal(t, 1536, g.Dimension())
	})

	t.Run("should report the large model dimension", func(t *testing.T) {
		g, err := openai.NewGenerator(openai.Config{
			APIKey: "sk-test",
			Model:  "text-embedding-3-large",
		})

		require.NoError(t, err)
		require.Equal(t, 3072, g.Dimension())
	})
}

func TestGenerator_Generate(t *testing.T) {
	t.Run("should reject empty text without calling the API", func(t *testing.T) {
		g, err := openai.NewGenerator(openai.Config{APIKey: "sk-test"})
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), "")

		require.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestGenerator_Name(t *testing.T) {
	t.Run("should identify itself as openai", func(t *testing.T) {
		g, err := openai.NewGenerator(openai.Config{APIKey: "sk-test"})
		require.NoError(t, err)

		require.Equal(t, "openai", g.Name())
	})
}
