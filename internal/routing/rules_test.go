package routing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/routing"
)

func TestClassifier(t *testing.T) {
	classifier, err := routing.NewClassifier(nil)
	require.NoError(t, err)

	t.Run("should map keyword families to their layers", func(t *testing.T) {
		cases := []struct {
			text  string
			first domain.CacheLayer
		}{
			{"predict the next step", domain.LayerPredictive},
			{"find similar documents", domain.LayerSemantic},
			{"embedding lookup for this text", domain.LayerVector},
			{"define the term idempotent", domain.LayerGlobal},
			{"recall our last conversation", domain.LayerVectorDiary},
		}

		for _, tc := range cases {
			layers := classifier.Classify(tc.text)
			require.NotEmpty(t, layers, tc.text)
			require.Equal(t, tc.first, layers[0], tc.text)
		}
	})

	t.Run("should fall back to the semantic layer for unmatched text", func(t *testing.T) {
		layers := classifier.Classify("xyzzy")
		require.Equal(t, []domain.CacheLayer{domain.LayerSemantic}, layers)

		layers = classifier.Classify("")
		require.Equal(t, []domain.CacheLayer{domain.LayerSemantic}, layers)
	})

	t.Run("should always include the semantic layer exactly once", func(t *testing.T) {
		layers := classifier.Classify("predict something similar from the embedding history")

		count := 0
		for _, layer := range layers {
			if layer == domain.LayerSemantic {
				count++
			}
		}
		require.Equal(t, 1, count)
	})

	t.Run("should order matches by rule priority", func(t *testing.T) {
		layers := classifier.Classify("predict a fact from the session history")
		require.Equal(t, domain.LayerPredictive, layers[0])
		require.Equal(t, domain.LayerGlobal, layers[1])
		require.Equal(t, domain.LayerVectorDiary, layers[2])
	})

	t.Run("should be deterministic", func(t *testing.T) {
		first := classifier.Classify("predict a similar embedding")
		for i := 0; i < 10; i++ {
			require.Equal(t, first, classifier.Classify("predict a similar embedding"))
		}
	})

	t.Run("should let extra rules outrank built-in ones", func(t *testing.T) {
		custom, err := routing.NewClassifier([]routing.Rule{
			{Pattern: `(?i)\bweather\b`, Layer: domain.LayerGlobal, Priority: 1},
		})
		require.NoError(t, err)

		layers := custom.Classify("predict the weather")
		require.Equal(t, domain.LayerGlobal, layers[0])
		require.Equal(t, domain.LayerPredictive, layers[1])
	})

	t.Run("should reject invalid patterns and layers", func(t *testing.T) {
		_, err := routing.NewClassifier([]routing.Rule{{Pattern: `(`, Layer: domain.LayerGlobal}})
		require.Error(t, err)

		_, err = routing.NewClassifier([]routing.Rule{{Pattern: `ok`, Layer: "bogus"}})
		require.Error(t, err)
	})
}

func TestLoadRulesFile(t *testing.T) {
	t.Run("should load rules from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := `rules:
  - pattern: "(?i)\\bweather\\b"
    layer: global
    priority: 5
  - pattern: "(?i)\\btodo\\b"
    layer: predictive
    priority: 15
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		rules, err := routing.LoadRulesFile(path)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		require.Equal(t, domain.LayerGlobal, rules[0].Layer)
		require.Equal(t, 5, rules[0].Priority)
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		_, err := routing.LoadRulesFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("should fail on malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules: [whoops"), 0o644))

		_, err := routing.LoadRulesFile(path)
		require.Error(t, err)
	})
}
