package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

const (
	// patternWindow is how many trailing queries form one pattern key.
	patternWindow = 3

	// metaPrefetched marks entries warmed by the prefetch pass.
	metaPrefetched = "prefetched"

	// metaUserID carries the acting user on a set.
	metaUserID = "user_id"

	anonymousUser = "anonymous"

	maxPatternConfidence  = 0.95
	basePatternConfidence = 0.5
	confidencePerRepeat   = 0.1
	staleDecayFactor      = 0.9
	minPatternConfidence  = 0.05
	stalePatternAge       = 24 * time.Hour
)

// queryHistory is a bounded per-user queue of recent queries; the oldest
// entry is dropped on overflow.
type queryHistory struct {
	items []string
	limit int
}

func (h *queryHistory) add(query string) {
	h.items = append(h.items, query)
	if len(h.items) > h.limit {
		h.items = h.items[len(h.items)-h.limit:]
	}
}

func (h *queryHistory) window(size int) []string {
	if len(h.items) <= size {
		return append([]string(nil), h.items...)
	}
	return append([]string(nil), h.items[len(h.items)-size:]...)
}

func (h *queryHistory) last() string {
	if len(h.items) == 0 {
		return ""
	}
	return h.items[len(h.items)-1]
}

// PredictiveCache anticipates a user's next queries from observed access
// patterns and proactively warms related entries.
type PredictiveCache struct {
	*baseCache

	cfg *config.PredictiveConfig

	// Guarded by baseCache.mu alongside the entry store, since patterns
	// and histories are updated on the same writes.
	patterns  map[string]*domain.PredictionPattern
	histories map[string]*queryHistory

	predictionHits   atomic.Int64
	predictionMisses atomic.Int64
	prefetchHits     atomic.Int64
	prefetchMisses   atomic.Int64
}

// NewPredictiveCache creates the predictive layer.
func NewPredictiveCache(cfg *config.PredictiveConfig, events domain.EventPublisher) *PredictiveCache {
	return &PredictiveCache{
		baseCache: newBaseCache(
			domain.LayerPredictive,
			time.Duration(cfg.DefaultTTLSeconds)*time.Second,
			time.Duration(cfg.CleanupIntervalSeconds)*time.Second,
			events,
		),
		cfg:       cfg,
		patterns:  make(map[string]*domain.PredictionPattern),
		histories: make(map[string]*queryHistory),
	}
}

// Initialize starts the expiry sweep and the prediction refresh maintainer.
func (p *PredictiveCache) Initialize(ctx context.Context) bool {
	if !p.baseCache.Initialize(ctx) {
		return false
	}

	if p.cfg.RefreshIntervalSeconds > 0 {
		p.wg.Add(1)
		go p.refreshLoop()
	}

	return true
}

// Get tracks prediction accuracy on top of the base read: the first hit on
// a prefetched entry validates the prediction that warmed it.
func (p *PredictiveCache) Get(ctx context.Context, key string) *domain.CacheResult {
	result := p.baseCache.Get(ctx, key)

	if result.Hit() && result.Entry.Metadata[metaPrefetched] == "true" && result.Entry.AccessCount == 1 {
		p.predictionHits.Add(1)
	}

	return result
}

// Set stores the entry, then records the access pattern for the acting
// user and runs a prediction plus prefetch pass.
func (p *PredictiveCache) Set(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
	metadata map[string]string,
) bool {
	entry, err := p.store(ctx, key, value, ttl, metadata)
	if err != nil {
		observability.FromContext(ctx).Error("predictive set failed",
			observability.Error(err))
		return false
	}

	userID := anonymousUser
	if entry.Metadata != nil && entry.Metadata[metaUserID] != "" {
		userID = entry.Metadata[metaUserID]
	}

	p.recordAccess(userID, key, value)
	p.prefetch(ctx, userID, key)

	return true
}

// recordAccess appends the query to the user's bounded history and upserts
// the pattern for the trailing query window.
func (p *PredictiveCache) recordAccess(userID, query, response string) {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	history, ok := p.histories[userID]
	if !ok {
		history = &queryHistory{limit: p.cfg.SessionHistorySize}
		p.histories[userID] = history
	}
	history.add(query)

	window := history.window(patternWindow)
	patternKey := patternKeyFor(userID, window)

	if pattern, exists := p.patterns[patternKey]; exists {
		pattern.AccessFrequency++
		pattern.LastUsed = now
		pattern.Confidence = patternConfidence(pattern.AccessFrequency)
		return
	}

	responses := make([]string, len(window))
	responses[len(responses)-1] = response

	p.patterns[patternKey] = &domain.PredictionPattern{
		PatternID:        uuid.NewString(),
		UserID:           userID,
		QuerySequence:    window,
		ResponseSequence: responses,
		Timestamp:        now,
		Confidence:       patternConfidence(1),
		AccessFrequency:  1,
		LastUsed:         now,
	}
}

// PredictNextQueries generates candidate continuations ranked by
// confidence, filtered by the configured threshold and truncated to
// MaxPredictions. Internal faults yield an empty list.
func (p *PredictiveCache) PredictNextQueries(ctx context.Context, req *domain.PredictionRequest) []string {
	predictions := p.predict(ctx, req)

	queries := make([]string, 0, len(predictions))
	for _, prediction := range predictions {
		queries = append(queries, prediction.Query)
	}
	return queries
}

// Predict returns the ranked candidates with confidence and any cached
// response, for the tool surface.
func (p *PredictiveCache) Predict(ctx context.Context, req *domain.PredictionRequest) []*domain.Prediction {
	return p.predict(ctx, req)
}

func (p *PredictiveCache) predict(ctx context.Context, req *domain.PredictionRequest) (out []*domain.Prediction) {
	defer func() {
		if r := recover(); r != nil {
			p.errs.Add(1)
			observability.FromContext(ctx).Error("prediction fault",
				observability.Any("panic", r))
			out = nil
		}
	}()

	if req == nil {
		return nil
	}

	maxPredictions := req.MaxPredictions
	if maxPredictions <= 0 {
		maxPredictions = p.cfg.MaxPredictions
	}

	userID := req.UserID
	if userID == "" {
		userID = anonymousUser
	}

	p.mu.RLock()

	anchor := req.Context
	if anchor == "" {
		if history, ok := p.histories[userID]; ok {
			anchor = history.last()
		}
	}

	best := make(map[string]*domain.Prediction)
	for _, pattern := range p.patterns {
		if pattern.UserID != userID {
			continue
		}
		query, response, ok := nextInSequence(pattern, anchor)
		if !ok || pattern.Confidence < p.cfg.ConfidenceThreshold {
			continue
		}
		if existing, dup := best[query]; !dup || pattern.Confidence > existing.Confidence {
			best[query] = &domain.Prediction{
				Query:      query,
				Confidence: pattern.Confidence,
				Response:   response,
			}
		}
	}
	p.mu.RUnlock()

	out = make([]*domain.Prediction, 0, len(best))
	for _, prediction := range best {
		out = append(out, prediction)
	}

	// Rank by confidence, then by query text so equal scores stay stable.
	sort.Slice(out, func(a, b int) bool {
		if out[a].Confidence != out[b].Confidence {
			return out[a].Confidence > out[b].Confidence
		}
		return out[a].Query < out[b].Query
	})

	if len(out) > maxPredictions {
		out = out[:maxPredictions]
	}

	return out
}

// prefetch warms entries for the queries predicted to follow the one just
// written. A candidate with a known response warms an entry (prefetch
// hit); one without anything to warm counts as a prefetch miss.
func (p *PredictiveCache) prefetch(ctx context.Context, userID, justSet string) {
	predictions := p.predict(ctx, &domain.PredictionRequest{
		Context:        justSet,
		UserID:         userID,
		Timestamp:      time.Now(),
		MaxPredictions: p.cfg.MaxPredictions,
	})

	for _, prediction := range predictions {
		if prediction.Query == justSet {
			continue
		}
		if prediction.Response == "" {
			p.prefetchMisses.Add(1)
			continue
		}

		metadata := map[string]string{
			metaPrefetched: "true",
			metaUserID:     userID,
		}
		if _, err := p.store(ctx, prediction.Query, prediction.Response,
			time.Duration(p.cfg.PrefetchTTLSeconds)*time.Second, metadata); err != nil {
			p.prefetchMisses.Add(1)
			continue
		}

		p.prefetchHits.Add(1)
		p.publish(ctx, observability.EventPrefetch, map[string]interface{}{
			"key":        prediction.Query,
			"confidence": prediction.Confidence,
		})
	}
}

// CleanupExpired additionally counts prefetched entries that expired
// without ever being read; each is a prediction that did not pan out.
func (p *PredictiveCache) CleanupExpired(_ context.Context) int {
	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for key, entry := range p.entries {
		if !entry.Expired(now) {
			continue
		}
		if entry.Metadata[metaPrefetched] == "true" && entry.AccessCount == 0 {
			p.predictionMisses.Add(1)
		}
		delete(p.entries, key)
		removed++
	}
	return removed
}

// Clear drops all entries, patterns, and user histories.
func (p *PredictiveCache) Clear(ctx context.Context) bool {
	if !p.baseCache.Clear(ctx) {
		return false
	}

	p.mu.Lock()
	p.patterns = make(map[string]*domain.PredictionPattern)
	p.histories = make(map[string]*queryHistory)
	p.mu.Unlock()

	return true
}

// Stats extends the shared counters with prediction and prefetch metrics.
func (p *PredictiveCache) Stats(ctx context.Context) map[string]any {
	stats := p.baseCache.Stats(ctx)

	p.mu.RLock()
	totalPatterns := len(p.patterns)
	activeSessions := len(p.histories)
	p.mu.RUnlock()

	predHits := p.predictionHits.Load()
	predMisses := p.predictionMisses.Load()
	preHits := p.prefetchHits.Load()
	preMisses := p.prefetchMisses.Load()

	stats["predictionHits"] = predHits
	stats["predictionMisses"] = predMisses
	stats["predictionAccuracy"] = ratio(predHits, predHits+predMisses)
	stats["prefetchHits"] = preHits
	stats["prefetchMisses"] = preMisses
	stats["prefetchEfficiency"] = ratio(preHits, preHits+preMisses)
	stats["totalPatterns"] = totalPatterns
	stats["activeSessions"] = activeSessions

	return stats
}

// refreshLoop periodically decays the confidence of stale patterns so old
// behavior stops dominating predictions.
func (p *PredictiveCache) refreshLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(time.Duration(p.cfg.RefreshIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.refreshPatterns()
		}
	}
}

func (p *PredictiveCache) refreshPatterns() {
	ctx := observability.WithLayer(context.Background(), string(p.layer))
	defer func() {
		if r := recover(); r != nil {
			observability.FromContext(ctx).Error("prediction refresh tick failed",
				observability.Any("panic", r))
		}
	}()

	now := time.Now()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, pattern := range p.patterns {
		if now.Sub(pattern.LastUsed) < stalePatternAge {
			continue
		}
		pattern.Confidence *= staleDecayFactor
		if pattern.Confidence < minPatternConfidence {
			pattern.Confidence = minPatternConfidence
		}
	}
}

// nextInSequence finds the query that followed anchor in the pattern's
// recorded sequence, with its recorded response when one exists.
func nextInSequence(pattern *domain.PredictionPattern, anchor string) (query, response string, ok bool) {
	if anchor == "" {
		return "", "", false
	}

	for i := len(pattern.QuerySequence) - 2; i >= 0; i-- {
		if pattern.QuerySequence[i] != anchor {
			continue
		}
		query = pattern.QuerySequence[i+1]
		if i+1 < len(pattern.ResponseSequence) {
			response = pattern.ResponseSequence[i+1]
		}
		return query, response, true
	}
	return "", "", false
}

func patternConfidence(frequency int64) float64 {
	confidence := basePatternConfidence + confidencePerRepeat*float64(frequency-1)
	if confidence > maxPatternConfidence {
		confidence = maxPatternConfidence
	}
	return confidence
}

func patternKeyFor(userID string, window []string) string {
	hash := sha256.Sum256([]byte(userID + "|" + strings.Join(window, "|")))
	return hex.EncodeToString(hash[:])
}
