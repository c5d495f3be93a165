package domain

import "time"

// CacheLayer identifies one specialized cache layer.
type CacheLayer string

// Known cache layers, in default fallback priority order.
const (
	LayerPredictive  CacheLayer = "predictive"
	LayerSemantic    CacheLayer = "semantic"
	LayerVector      CacheLayer = "vector"
	LayerGlobal      CacheLayer = "global"
	LayerVectorDiary CacheLayer = "vector_diary"
)

// AllLayers returns every known layer in fallback priority order.
func AllLayers() []CacheLayer {
	return []CacheLayer{
		LayerPredictive,
		LayerSemantic,
		LayerVector,
		LayerGlobal,
		LayerVectorDiary,
	}
}

// ResultStatus is the outcome of a cache operation.
type ResultStatus string

const (
	StatusHit     ResultStatus = "hit"
	StatusMiss    ResultStatus = "miss"
	StatusExpired ResultStatus = "expired"
	StatusError   ResultStatus = "error"
)

// CacheEntry is a value container with expiry and access metadata.
// ExpiresAt == nil means the entry never expires on its own.
type CacheEntry struct {
	Key            string            `json:"key"`
	Value          string            `json:"value"`
	Layer          CacheLayer        `json:"layer"`
	CreatedAt      time.Time         `json:"created_at"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	AccessCount    int64             `json:"access_count"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
}

// Expired reports whether the entry is past its expiry at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// CacheResult is the per-call outcome of a cache read or write.
// It is constructed per call and never persisted.
type CacheResult struct {
	Status       ResultStatus `json:"status"`
	Entry        *CacheEntry  `json:"entry,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Layer        CacheLayer   `json:"layer"`
}

// Hit reports whether the result carries a usable entry.
func (r *CacheResult) Hit() bool {
	return r.Status == StatusHit && r.Entry != nil
}

// PredictionPattern records one user's observed query/response sequence.
type PredictionPattern struct {
	PatternID        string    `json:"pattern_id"`
	UserID           string    `json:"user_id"`
	QuerySequence    []string  `json:"query_sequence"`
	ResponseSequence []string  `json:"response_sequence"`
	Timestamp        time.Time `json:"timestamp"`
	Confidence       float64   `json:"confidence"`
	AccessFrequency  int64     `json:"access_frequency"`
	LastUsed         time.Time `json:"last_used"`
}

// PredictionRequest asks the predictive layer for likely next queries.
type PredictionRequest struct {
	Context        string    `json:"context"`
	UserID         string    `json:"user_id"`
	Timestamp      time.Time `json:"timestamp"`
	MaxPredictions int       `json:"max_predictions"`
}

// Prediction is one candidate next query with its internal confidence.
type Prediction struct {
	Query      string  `json:"query"`
	Confidence float64 `json:"confidence"`
	Response   string  `json:"response,omitempty"`
}

// Interaction is a single query/response exchange within a diary session.
type Interaction struct {
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one user's longitudinal conversation record.
type Session struct {
	SessionID    string            `json:"session_id"`
	UserID       string            `json:"user_id"`
	CreatedAt    time.Time         `json:"created_at"`
	Interactions []Interaction     `json:"interactions"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Closed       bool              `json:"closed"`
}

// InsightType classifies a derived diary insight.
type InsightType string

const (
	InsightPattern    InsightType = "pattern"
	InsightTrend      InsightType = "trend"
	InsightPreference InsightType = "preference"
	InsightBehavior   InsightType = "behavior"
)

// Insight is a derived artifact computed from a session's interactions.
// Insights are created and read, never mutated, and purged with their session.
type Insight struct {
	InsightID  string      `json:"insight_id"`
	SessionID  string      `json:"session_id"`
	Type       InsightType `json:"type"`
	Content    string      `json:"content"`
	Confidence float64     `json:"confidence"`
	CreatedAt  time.Time   `json:"created_at"`
}

// SimilarResult is one ranked similarity-search candidate.
type SimilarResult struct {
	Key        string  `json:"key"`
	Similarity float64 `json:"similarity"`
}

// VectorResult is one ranked vector-search candidate with its context.
type VectorResult struct {
	Key     string  `json:"key"`
	Score   float64 `json:"score"`
	Context string  `json:"context,omitempty"`
}

// KnowledgeItem is one ranked result from the global knowledge layer.
type KnowledgeItem struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// UserNeed is a predicted upcoming topic for a diary user.
type UserNeed struct {
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

// LearningRecommendation is a suggested next topic for a diary user.
type LearningRecommendation struct {
	Topic     string `json:"topic"`
	Priority  int    `json:"priority"`
	Reasoning string `json:"reasoning"`
}
