package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
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
	// compressedPrefix marks payloads stored gzip+base64.
	compressedPrefix = "gz:"

	// autoConsolidateAfter is how many open sessions a user accumulates
	// before the consolidation maintainer merges them.
	autoConsolidateAfter = 5

	topicMinLength = 4
)

// VectorDiary is the longitudinal per-user layer: sessions of interactions
// with derived insights, retention-based expiry, and consolidation.
type VectorDiary struct {
	*baseCache

	cfg *config.DiaryConfig

	// Guarded by baseCache.mu together with the entry store.
	sessions     map[string]*domain.Session
	userSessions map[string][]string
	insights     map[string][]*domain.Insight

	sessionCreations    atomic.Int64
	sessionAccesses     atomic.Int64
	insightGenerations  atomic.Int64
	consolidationEvents atomic.Int64
}

// NewVectorDiary creates the diary layer.
func NewVectorDiary(cfg *config.DiaryConfig, events domain.EventPublisher) *VectorDiary {
	return &VectorDiary{
		baseCache: newBaseCache(
			domain.LayerVectorDiary,
			time.Duration(cfg.DefaultTTLSeconds)*time.Second,
			time.Duration(cfg.CleanupIntervalSeconds)*time.Second,
			events,
		),
		cfg:          cfg,
		sessions:     make(map[string]*domain.Session),
		userSessions: make(map[string][]string),
		insights:     make(map[string][]*domain.Insight),
	}
}

// Initialize starts the expiry sweep and the consolidation maintainer.
func (d *VectorDiary) Initialize(ctx context.Context) bool {
	if !d.baseCache.Initialize(ctx) {
		return false
	}

	if d.cfg.ConsolidationIntervalSeconds > 0 {
		d.wg.Add(1)
		go d.consolidationLoop()
	}

	return true
}

// CreateSession opens a new empty session for the user.
func (d *VectorDiary) CreateSession(_ context.Context, userID string) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id cannot be empty", domain.ErrValidation)
	}

	session := &domain.Session{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		CreatedAt:    time.Now(),
		Interactions: []domain.Interaction{},
	}

	d.mu.Lock()
	d.sessions[session.SessionID] = session
	d.userSessions[userID] = append(d.userSessions[userID], session.SessionID)
	d.mu.Unlock()

	d.sessionCreations.Add(1)
	snapshot := *session
	return &snapshot, nil
}

// GetSession returns the session with payloads decompressed. An expired or
// closed session reads as not found, matching cache MISS semantics.
func (d *VectorDiary) GetSession(_ context.Context, sessionID string) (*domain.Session, error) {
	d.mu.Lock()
	session, ok := d.sessions[sessionID]
	if ok && d.sessionExpired(session, time.Now()) {
		d.removeSessionLocked(session)
		ok = false
	}
	if !ok || session.Closed {
		d.mu.Unlock()
		return nil, domain.ErrNotFound
	}

	snapshot := d.sessionSnapshotLocked(session)
	d.mu.Unlock()

	d.sessionAccesses.Add(1)
	return snapshot, nil
}

// AddInteraction appends a query/response exchange in arrival order.
func (d *VectorDiary) AddInteraction(ctx context.Context, sessionID, query, response string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id cannot be empty", domain.ErrValidation)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.sessions[sessionID]
	if !ok || session.Closed || d.sessionExpired(session, time.Now()) {
		return domain.ErrNotFound
	}

	session.Interactions = append(session.Interactions, domain.Interaction{
		Query:     d.compress(ctx, query),
		Response:  d.compress(ctx, response),
		Timestamp: time.Now(),
	})
	return nil
}

// CloseSession marks a session closed; later reads return not found.
func (d *VectorDiary) CloseSession(_ context.Context, sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.sessions[sessionID]
	if !ok {
		return false
	}
	session.Closed = true
	return true
}

// ConsolidateSessions merges every session the user has into one, keeping
// all interactions in chronological order on the earliest session and
// discarding the others together with their insights. Returns false for a
// user with zero sessions.
func (d *VectorDiary) ConsolidateSessions(ctx context.Context, userID string) bool {
	d.mu.Lock()

	ids := d.userSessions[userID]
	live := make([]*domain.Session, 0, len(ids))
	now := time.Now()
	for _, id := range ids {
		if session, ok := d.sessions[id]; ok && !d.sessionExpired(session, now) {
			live = append(live, session)
		}
	}

	if len(live) == 0 {
		d.mu.Unlock()
		return false
	}

	sort.Slice(live, func(a, b int) bool {
		return live[a].CreatedAt.Before(live[b].CreatedAt)
	})

	retained := live[0]
	merged := make([]domain.Interaction, 0)
	for _, session := range live {
		merged = append(merged, session.Interactions...)
	}
	sort.SliceStable(merged, func(a, b int) bool {
		return merged[a].Timestamp.Before(merged[b].Timestamp)
	})

	retained.Interactions = merged
	retained.Closed = false

	for _, session := range live[1:] {
		delete(d.sessions, session.SessionID)
		delete(d.insights, session.SessionID)
	}
	d.userSessions[userID] = []string{retained.SessionID}
	d.mu.Unlock()

	d.consolidationEvents.Add(1)
	d.publish(ctx, observability.EventConsolidation, map[string]interface{}{
		"user_id":  userID,
		"merged":   len(live),
		"retained": retained.SessionID,
	})
	return true
}

// GenerateInsights derives insight objects from a session's interaction
// history. A session with zero interactions, an unknown session id, or a
// session that reads as missing (closed or past retention) yields an
// empty list, never an error.
func (d *VectorDiary) GenerateInsights(ctx context.Context, sessionID string) []*domain.Insight {
	d.mu.Lock()
	session, ok := d.sessions[sessionID]
	if ok && d.sessionExpired(session, time.Now()) {
		d.removeSessionLocked(session)
		ok = false
	}
	if !ok || session.Closed || len(session.Interactions) == 0 {
		d.mu.Unlock()
		return []*domain.Insight{}
	}
	snapshot := d.sessionSnapshotLocked(session)
	d.mu.Unlock()

	insights := deriveInsights(snapshot)

	d.mu.Lock()
	d.insights[sessionID] = insights
	d.mu.Unlock()

	d.insightGenerations.Add(1)
	d.publish(ctx, observability.EventInsight, map[string]interface{}{
		"session_id": sessionID,
		"insights":   len(insights),
	})
	return insights
}

// AnalyzeUserBehavior summarizes a user's interests, patterns, preferences
// and engagement across their sessions, or nil when they have none.
func (d *VectorDiary) AnalyzeUserBehavior(_ context.Context, userID string) map[string]any {
	queries, sessionCount := d.userQueries(userID)
	if sessionCount == 0 {
		return nil
	}

	topics := topicFrequencies(queries)

	return map[string]any{
		"interests":   topTopics(topics, 5),
		"patterns":    repeatedTopics(topics),
		"preferences": questionPreferences(queries),
		"engagement": map[string]any{
			"sessions":               sessionCount,
			"interactions":           len(queries),
			"interactionsPerSession": float64(len(queries)) / float64(sessionCount),
		},
	}
}

// TrackLearningProgress estimates where the user is on their learning
// path from interaction volume and topic repetition.
func (d *VectorDiary) TrackLearningProgress(_ context.Context, userID string) map[string]any {
	queries, sessionCount := d.userQueries(userID)
	if sessionCount == 0 {
		return nil
	}

	topics := topicFrequencies(queries)

	level := "beginner"
	switch {
	case len(queries) >= 50:
		level = "advanced"
	case len(queries) >= 15:
		level = "intermediate"
	}

	mastery := make(map[string]float64, len(topics))
	for topic, freq := range topics {
		progress := float64(freq) / 10.0
		if progress > 1.0 {
			progress = 1.0
		}
		mastery[topic] = progress
	}

	return map[string]any{
		"currentLevel":    level,
		"learningPath":    topTopics(topics, 10),
		"masteryProgress": mastery,
		"recommendations": topTopics(topics, 3),
	}
}

// PredictUserNeeds ranks the topics the user is most likely to ask about
// next, by recurring interest.
func (d *VectorDiary) PredictUserNeeds(_ context.Context, userID string) []*domain.UserNeed {
	queries, sessionCount := d.userQueries(userID)
	if sessionCount == 0 {
		return nil
	}

	topics := topicFrequencies(queries)
	needs := make([]*domain.UserNeed, 0, len(topics))
	for topic, freq := range topics {
		confidence := 0.3 + 0.1*float64(freq)
		if confidence > 0.95 {
			confidence = 0.95
		}
		needs = append(needs, &domain.UserNeed{Topic: topic, Confidence: confidence})
	}

	sort.Slice(needs, func(a, b int) bool {
		if needs[a].Confidence != needs[b].Confidence {
			return needs[a].Confidence > needs[b].Confidence
		}
		return needs[a].Topic < needs[b].Topic
	})

	if len(needs) > 5 {
		needs = needs[:5]
	}
	return needs
}

// GenerateLearningRecommendations turns predicted needs into an ordered
// recommendation list.
func (d *VectorDiary) GenerateLearningRecommendations(ctx context.Context, userID string) []*domain.LearningRecommendation {
	needs := d.PredictUserNeeds(ctx, userID)

	recommendations := make([]*domain.LearningRecommendation, 0, len(needs))
	for i, need := range needs {
		recommendations = append(recommendations, &domain.LearningRecommendation{
			Topic:    need.Topic,
			Priority: i + 1,
			Reasoning: fmt.Sprintf("topic %q recurs across recent sessions (confidence %.2f)",
				need.Topic, need.Confidence),
		})
	}
	return recommendations
}

// CleanupExpired removes expired entries plus sessions past retention,
// returning the combined count.
func (d *VectorDiary) CleanupExpired(ctx context.Context) int {
	removed := d.baseCache.CleanupExpired(ctx)
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, session := range d.sessions {
		if d.sessionExpired(session, now) {
			d.removeSessionLocked(session)
			removed++
		}
	}
	return removed
}

// Clear drops all entries, sessions, and insights.
func (d *VectorDiary) Clear(ctx context.Context) bool {
	if !d.baseCache.Clear(ctx) {
		return false
	}

	d.mu.Lock()
	d.sessions = make(map[string]*domain.Session)
	d.userSessions = make(map[string][]string)
	d.insights = make(map[string][]*domain.Insight)
	d.mu.Unlock()

	return true
}

// Stats extends the shared counters with session and insight metrics.
func (d *VectorDiary) Stats(ctx context.Context) map[string]any {
	stats := d.baseCache.Stats(ctx)
	now := time.Now()

	d.mu.RLock()
	total := len(d.sessions)
	active := 0
	for _, session := range d.sessions {
		if !session.Closed && !d.sessionExpired(session, now) {
			active++
		}
	}
	totalInsights := 0
	var confidenceSum float64
	for _, list := range d.insights {
		totalInsights += len(list)
		for _, insight := range list {
			confidenceSum += insight.Confidence
		}
	}
	d.mu.RUnlock()

	quality := 0.0
	if totalInsights > 0 {
		quality = confidenceSum / float64(totalInsights)
	}

	stats["totalSessions"] = total
	stats["activeSessions"] = active
	stats["sessionCreations"] = d.sessionCreations.Load()
	stats["sessionAccesses"] = d.sessionAccesses.Load()
	stats["totalInsights"] = totalInsights
	stats["insightGenerations"] = d.insightGenerations.Load()
	stats["insightQualityScore"] = quality
	stats["consolidationEvents"] = d.consolidationEvents.Load()

	return stats
}

// SessionsSnapshot copies every live session, for snapshot persistence.
func (d *VectorDiary) SessionsSnapshot() []*domain.Session {
	now := time.Now()

	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*domain.Session, 0, len(d.sessions))
	for _, session := range d.sessions {
		if d.sessionExpired(session, now) {
			continue
		}
		out = append(out, d.sessionSnapshotLocked(session))
	}
	return out
}

// RestoreSessions loads persisted sessions, skipping any past retention.
func (d *VectorDiary) RestoreSessions(sessions []*domain.Session) {
	now := time.Now()

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, session := range sessions {
		if session == nil || session.SessionID == "" || d.sessionExpired(session, now) {
			continue
		}
		snapshot := *session
		d.sessions[snapshot.SessionID] = &snapshot
		d.userSessions[snapshot.UserID] = append(d.userSessions[snapshot.UserID], snapshot.SessionID)
	}
}

// consolidationLoop periodically merges sessions for users who have
// accumulated too many open ones.
func (d *VectorDiary) consolidationLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Duration(d.cfg.ConsolidationIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.runConsolidationTick()
		}
	}
}

func (d *VectorDiary) runConsolidationTick() {
	ctx := observability.WithLayer(context.Background(), string(d.layer))
	defer func() {
		if r := recover(); r != nil {
			observability.FromContext(ctx).Error("consolidation tick failed",
				observability.Any("panic", r))
		}
	}()

	d.mu.RLock()
	users := make([]string, 0)
	for userID, ids := range d.userSessions {
		if len(ids) > autoConsolidateAfter {
			users = append(users, userID)
		}
	}
	d.mu.RUnlock()

	for _, userID := range users {
		d.ConsolidateSessions(ctx, userID)
	}
}

func (d *VectorDiary) sessionExpired(session *domain.Session, now time.Time) bool {
	if d.cfg.RetentionDays <= 0 {
		return false
	}
	retention := time.Duration(d.cfg.RetentionDays) * 24 * time.Hour
	return now.Sub(session.CreatedAt) > retention
}

func (d *VectorDiary) removeSessionLocked(session *domain.Session) {
	delete(d.sessions, session.SessionID)
	delete(d.insights, session.SessionID)

	ids := d.userSessions[session.UserID]
	for i, id := range ids {
		if id == session.SessionID {
			d.userSessions[session.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(d.userSessions[session.UserID]) == 0 {
		delete(d.userSessions, session.UserID)
	}
}

// sessionSnapshotLocked copies a session with payloads decompressed.
// Callers must hold at least a read lock.
func (d *VectorDiary) sessionSnapshotLocked(session *domain.Session) *domain.Session {
	snapshot := *session
	snapshot.Interactions = make([]domain.Interaction, len(session.Interactions))
	for i, interaction := range session.Interactions {
		snapshot.Interactions[i] = domain.Interaction{
			Query:     decompress(interaction.Query),
			Response:  decompress(interaction.Response),
			Timestamp: interaction.Timestamp,
		}
	}
	return &snapshot
}

// userQueries returns the decompressed query texts across a user's live
// sessions along with how many sessions they have.
func (d *VectorDiary) userQueries(userID string) ([]string, int) {
	now := time.Now()

	d.mu.RLock()
	defer d.mu.RUnlock()

	queries := make([]string, 0)
	count := 0
	for _, id := range d.userSessions[userID] {
		session, ok := d.sessions[id]
		if !ok || d.sessionExpired(session, now) {
			continue
		}
		count++
		for _, interaction := range session.Interactions {
			queries = append(queries, decompress(interaction.Query))
		}
	}
	return queries, count
}

// compress gzips a payload when compression is enabled. Decompression is
// always attempted on read, so mixed payloads stay readable after the
// setting changes.
func (d *VectorDiary) compress(ctx context.Context, text string) string {
	if !d.cfg.CompressionEnabled || text == "" {
		return text
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(text)); err != nil {
		observability.FromContext(ctx).Warn("compression failed, storing raw",
			observability.Error(err))
		return text
	}
	if err := gz.Close(); err != nil {
		return text
	}

	return compressedPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decompress(text string) string {
	if !strings.HasPrefix(text, compressedPrefix) {
		return text
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(text, compressedPrefix))
	if err != nil {
		return text
	}

	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return text
	}
	defer gz.Close()

	out, err := io.ReadAll(gz)
	if err != nil {
		return text
	}
	return string(out)
}

// deriveInsights computes pattern, preference, trend, and behavior
// insights from a decompressed session snapshot.
func deriveInsights(session *domain.Session) []*domain.Insight {
	insights := make([]*domain.Insight, 0, 4)
	now := time.Now()

	queries := make([]string, 0, len(session.Interactions))
	for _, interaction := range session.Interactions {
		queries = append(queries, interaction.Query)
	}

	topics := topicFrequencies(queries)

	if repeated := repeatedTopics(topics); len(repeated) > 0 {
		freq := topics[repeated[0]]
		confidence := 0.3 + 0.15*float64(freq)
		if confidence > 0.9 {
			confidence = 0.9
		}
		insights = append(insights, &domain.Insight{
			InsightID:  uuid.NewString(),
			SessionID:  session.SessionID,
			Type:       domain.InsightPattern,
			Content:    fmt.Sprintf("recurring focus on %q (%d mentions)", repeated[0], freq),
			Confidence: confidence,
			CreatedAt:  now,
		})
	}

	if preference := questionPreferences(queries); preference != "" {
		insights = append(insights, &domain.Insight{
			InsightID:  uuid.NewString(),
			SessionID:  session.SessionID,
			Type:       domain.InsightPreference,
			Content:    fmt.Sprintf("prefers %s-style questions", preference),
			Confidence: 0.6,
			CreatedAt:  now,
		})
	}

	if len(session.Interactions) >= 3 {
		first := session.Interactions[0].Timestamp
		last := session.Interactions[len(session.Interactions)-1].Timestamp
		span := last.Sub(first)

		direction := "steady"
		half := len(queries) / 2
		if avgLength(queries[half:]) > avgLength(queries[:half])*1.5 {
			direction = "deepening"
		}
		insights = append(insights, &domain.Insight{
			InsightID: uuid.NewString(),
			SessionID: session.SessionID,
			Type:      domain.InsightTrend,
			Content: fmt.Sprintf("%s engagement over %d interactions spanning %s",
				direction, len(session.Interactions), span.Round(time.Second)),
			Confidence: 0.5,
			CreatedAt:  now,
		})
	}

	style := "brief"
	if len(session.Interactions) >= 10 {
		style = "extended"
	}
	insights = append(insights, &domain.Insight{
		InsightID:  uuid.NewString(),
		SessionID:  session.SessionID,
		Type:       domain.InsightBehavior,
		Content:    fmt.Sprintf("%s session with %d interactions", style, len(session.Interactions)),
		Confidence: 0.7,
		CreatedAt:  now,
	})

	return insights
}

var stopwords = map[string]struct{}{
	"what": {}, "when": {}, "where": {}, "which": {}, "this": {}, "that": {},
	"with": {}, "from": {}, "about": {}, "does": {}, "have": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "there": {}, "their": {},
}

// topicFrequencies counts significant terms across queries.
func topicFrequencies(queries []string) map[string]int {
	topics := make(map[string]int)
	for _, query := range queries {
		for _, term := range strings.Fields(strings.ToLower(query)) {
			term = strings.Trim(term, ".,!?;:\"'()")
			if len(term) < topicMinLength {
				continue
			}
			if _, skip := stopwords[term]; skip {
				continue
			}
			topics[term]++
		}
	}
	return topics
}

// topTopics returns the most frequent topics, ties broken alphabetically.
func topTopics(topics map[string]int, limit int) []string {
	ordered := make([]string, 0, len(topics))
	for topic := range topics {
		ordered = append(ordered, topic)
	}
	sort.Slice(ordered, func(a, b int) bool {
		if topics[ordered[a]] != topics[ordered[b]] {
			return topics[ordered[a]] > topics[ordered[b]]
		}
		return ordered[a] < ordered[b]
	})
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

// repeatedTopics returns topics mentioned more than once, most frequent first.
func repeatedTopics(topics map[string]int) []string {
	repeated := make([]string, 0)
	for topic, freq := range topics {
		if freq >= 2 {
			repeated = append(repeated, topic)
		}
	}
	sort.Slice(repeated, func(a, b int) bool {
		if topics[repeated[a]] != topics[repeated[b]] {
			return topics[repeated[a]] > topics[repeated[b]]
		}
		return repeated[a] < repeated[b]
	})
	return repeated
}

// questionPreferences picks the dominant interrogative style, or "".
func questionPreferences(queries []string) string {
	styles := map[string]int{}
	for _, query := range queries {
		lowered := strings.ToLower(strings.TrimSpace(query))
		for _, word := range []string{"how", "what", "why", "when", "where"} {
			if strings.HasPrefix(lowered, word) {
				styles[word]++
			}
		}
	}

	best, bestCount := "", 0
	for word, count := range styles {
		if count > bestCount || (count == bestCount && word < best) {
			best, bestCount = word, count
		}
	}
	return best
}

func avgLength(queries []string) float64 {
	if len(queries) == 0 {
		return 0
	}
	total := 0
	for _, query := range queries {
		total += len(query)
	}
	return float64(total) / float64(len(queries))
}
