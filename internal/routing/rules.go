// Package routing classifies request text onto cache layers and fans
// lookups out across them with fallback chaining.
package routing

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/strata-cache/strata/internal/domain"
)

// Rule maps a text pattern to a layer with a priority; lower priority
// numbers are evaluated (and returned) first.
type Rule struct {
	Pattern  string            `yaml:"pattern"`
	Layer    domain.CacheLayer `yaml:"layer"`
	Priority int               `yaml:"priority"`
}

type compiledRule struct {
	re       *regexp.Regexp
	layer    domain.CacheLayer
	priority int
}

// defaultRules is the built-in classification table. It is data, not
// code: extra rules can be layered on from a YAML file without touching
// the classifier.
var defaultRules = []Rule{
	{Pattern: `(?i)\b(predict|prediction|next|anticipate|upcoming|forecast)\b`, Layer: domain.LayerPredictive, Priority: 10},
	{Pattern: `(?i)\b(semantic|similar|meaning|context|related)\b`, Layer: domain.LayerSemantic, Priority: 20},
	{Pattern: `(?i)\b(vector|embedding|embeddings)\b`, Layer: domain.LayerVector, Priority: 30},
	{Pattern: `(?i)\b(knowledge|fact|facts|information|define|definition)\b`, Layer: domain.LayerGlobal, Priority: 40},
	{Pattern: `(?i)\b(conversation|diary|session|history|remember|recall)\b`, Layer: domain.LayerVectorDiary, Priority: 50},
}

// Classifier maps request text to an ordered list of layers.
type Classifier struct {
	rules []compiledRule
}

// NewClassifier compiles the built-in rule table plus any extra rules.
func NewClassifier(extra []Rule) (*Classifier, error) {
	rules := make([]compiledRule, 0, len(defaultRules)+len(extra))

	for _, rule := range append(append([]Rule{}, defaultRules...), extra...) {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid routing rule %q: %w", rule.Pattern, err)
		}
		if !validLayer(rule.Layer) {
			return nil, fmt.Errorf("invalid routing rule layer %q", rule.Layer)
		}
		rules = append(rules, compiledRule{re: re, layer: rule.Layer, priority: rule.Priority})
	}

	sort.SliceStable(rules, func(a, b int) bool {
		return rules[a].priority < rules[b].priority
	})

	return &Classifier{rules: rules}, nil
}

// Classify returns matching layers in priority order, deduplicated, with
// the semantic layer appended as the default fallback. It never returns
// an empty list and never fails, whatever the input.
func (c *Classifier) Classify(text string) []domain.CacheLayer {
	layers := make([]domain.CacheLayer, 0, 2)
	seen := make(map[domain.CacheLayer]bool)

	for _, rule := range c.rules {
		if seen[rule.layer] || !rule.re.MatchString(text) {
			continue
		}
		layers = append(layers, rule.layer)
		seen[rule.layer] = true
	}

	if !seen[domain.LayerSemantic] {
		layers = append(layers, domain.LayerSemantic)
	}

	return layers
}

// LoadRulesFile reads extra classification rules from a YAML file.
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var parsed struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	return parsed.Rules, nil
}

func validLayer(layer domain.CacheLayer) bool {
	for _, known := range domain.AllLayers() {
		if layer == known {
			return true
		}
	}
	return false
}
