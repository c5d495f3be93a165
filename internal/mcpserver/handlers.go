package mcpserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/strata-cache/strata/internal/domain"
)

// toolHandler executes one tool call and returns the structured payload.
type toolHandler func(ctx context.Context, args json.RawMessage) map[string]any

func (s *Server) handlerFor(name string) (toolHandler, bool) {
	switch name {
	case "cache_get":
		return s.handleCacheGet, true
	case "cache_set":
		return s.handleCacheSet, true
	case "cache_delete":
		return s.handleCacheDelete, true
	case "cache_search":
		return s.handleCacheSearch, true
	case "cache_stats":
		return s.handleCacheStats, true
	case "cache_clear":
		return s.handleCacheClear, true
	case "predictive_cache_predict":
		return s.handlePredict, true
	case "semantic_cache_similar":
		return s.handleSimilar, true
	case "vector_cache_search":
		return s.handleVectorSearch, true
	case "global_cache_query":
		return s.handleGlobalQuery, true
	case "vector_diary_session":
		return s.handleDiarySession, true
	default:
		return nil, false
	}
}

func errorPayload(message string) map[string]any {
	return map[string]any{
		"success": false,
		"status":  string(domain.StatusError),
		"message": message,
	}
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func (s *Server) handleCacheGet(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Key   string `json:"key"`
		Layer string `json:"layer"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Key == "" {
		return errorPayload("cache_get requires a key")
	}

	start := time.Now()

	var result *domain.CacheResult
	if params.Layer != "" {
		result = s.router.GetFrom(ctx, domain.CacheLayer(params.Layer), params.Key)
	} else {
		result = s.router.Get(ctx, params.Key)
	}

	payload := map[string]any{
		"success":         result.Status != domain.StatusError,
		"status":          string(result.Status),
		"executionTimeMs": elapsedMs(start),
		"cacheLayer":      string(result.Layer),
	}
	if result.Hit() {
		payload["data"] = map[string]any{
			"key":      result.Entry.Key,
			"value":    result.Entry.Value,
			"metadata": result.Entry.Metadata,
		}
	}
	if result.ErrorMessage != "" {
		payload["message"] = result.ErrorMessage
	}
	return payload
}

func (s *Server) handleCacheSet(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Key        string            `json:"key"`
		Value      string            `json:"value"`
		Layer      string            `json:"layer"`
		TTLSeconds int               `json:"ttl_seconds"`
		Metadata   map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Key == "" || params.Value == "" {
		return errorPayload("cache_set requires a key and value")
	}

	start := time.Now()
	ttl := time.Duration(params.TTLSeconds) * time.Second

	var result *domain.CacheResult
	if params.Layer != "" {
		result = s.router.SetIn(ctx, domain.CacheLayer(params.Layer), params.Key, params.Value, ttl, params.Metadata)
	} else {
		result = s.router.Set(ctx, params.Key, params.Value, ttl, params.Metadata)
	}

	payload := map[string]any{
		"success":         result.Status == domain.StatusHit,
		"status":          string(result.Status),
		"executionTimeMs": elapsedMs(start),
		"cacheLayer":      string(result.Layer),
	}
	if result.ErrorMessage != "" {
		payload["message"] = result.ErrorMessage
	}
	return payload
}

func (s *Server) handleCacheDelete(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Key == "" {
		return errorPayload("cache_delete requires a key")
	}

	start := time.Now()
	deleted := s.router.Delete(ctx, params.Key)

	status := string(domain.StatusMiss)
	if deleted {
		status = string(domain.StatusHit)
	}
	return map[string]any{
		"success":         true,
		"status":          status,
		"executionTimeMs": elapsedMs(start),
	}
}

func (s *Server) handleCacheSearch(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Query         string  `json:"query"`
		NResults      int     `json:"n_results"`
		MinSimilarity float64 `json:"min_similarity"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Query == "" {
		return errorPayload("cache_search requires a query")
	}
	if params.NResults <= 0 {
		params.NResults = 5
	}

	start := time.Now()
	results := s.router.Search(ctx, params.Query, params.NResults, params.MinSimilarity)

	data := make([]map[string]any, 0, len(results))
	for _, result := range results {
		data = append(data, map[string]any{
			"key":   result.Key,
			"score": result.Similarity,
		})
	}

	status := string(domain.StatusMiss)
	if len(data) > 0 {
		status = string(domain.StatusHit)
	}
	return map[string]any{
		"success":         true,
		"status":          status,
		"data":            data,
		"executionTimeMs": elapsedMs(start),
	}
}

func (s *Server) handleCacheStats(ctx context.Context, _ json.RawMessage) map[string]any {
	return map[string]any{
		"success": true,
		"status":  "ok",
		"data":    s.router.Stats(ctx),
	}
}

func (s *Server) handleCacheClear(ctx context.Context, _ json.RawMessage) map[string]any {
	if !s.router.ClearCache(ctx) {
		return errorPayload("one or more layers failed to clear")
	}
	return map[string]any{
		"success": true,
		"status":  "ok",
		"message": "all cache layers cleared",
	}
}

func (s *Server) handlePredict(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Query          string `json:"query"`
		UserID         string `json:"user_id"`
		MaxPredictions int    `json:"max_predictions"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Query == "" {
		return errorPayload("predictive_cache_predict requires a query")
	}

	predictions := s.predictive.Predict(ctx, &domain.PredictionRequest{
		Context:        params.Query,
		UserID:         params.UserID,
		Timestamp:      time.Now(),
		MaxPredictions: params.MaxPredictions,
	})

	data := make([]map[string]any, 0, len(predictions))
	for _, prediction := range predictions {
		data = append(data, map[string]any{
			"query":      prediction.Query,
			"confidence": prediction.Confidence,
			"response":   prediction.Response,
		})
	}

	status := string(domain.StatusMiss)
	if len(data) > 0 {
		status = string(domain.StatusHit)
	}
	return map[string]any{
		"success": true,
		"status":  status,
		"data":    data,
	}
}

func (s *Server) handleSimilar(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Query         string  `json:"query"`
		NResults      int     `json:"n_results"`
		MinSimilarity float64 `json:"min_similarity"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Query == "" {
		return errorPayload("semantic_cache_similar requires a query")
	}
	if params.NResults <= 0 {
		params.NResults = 5
	}

	results, err := s.semantic.FindSimilar(ctx, params.Query, params.NResults, params.MinSimilarity)
	if err != nil {
		return errorPayload("similarity search failed: " + err.Error())
	}

	data := make([]map[string]any, 0, len(results))
	for _, result := range results {
		data = append(data, map[string]any{
			"key":        result.Key,
			"similarity": result.Similarity,
		})
	}

	status := string(domain.StatusMiss)
	if len(data) > 0 {
		status = string(domain.StatusHit)
	}
	return map[string]any{
		"success": true,
		"status":  status,
		"data":    data,
	}
}

func (s *Server) handleVectorSearch(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Query         string  `json:"query"`
		NResults      int     `json:"n_results"`
		MinSimilarity float64 `json:"min_similarity"`
		UseReranking  bool    `json:"use_reranking"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Query == "" {
		return errorPayload("vector_cache_search requires a query")
	}
	if params.NResults <= 0 {
		params.NResults = 5
	}

	start := time.Now()
	results, err := s.vector.Search(ctx, params.Query, params.NResults, params.MinSimilarity, params.UseReranking)
	if err != nil {
		return errorPayload("vector search failed: " + err.Error())
	}

	data := make([]map[string]any, 0, len(results))
	for _, result := range results {
		data = append(data, map[string]any{
			"key":     result.Key,
			"score":   result.Score,
			"context": result.Context,
		})
	}

	status := string(domain.StatusMiss)
	if len(data) > 0 {
		status = string(domain.StatusHit)
	}
	return map[string]any{
		"success":         true,
		"status":          status,
		"data":            data,
		"executionTimeMs": elapsedMs(start),
	}
}

func (s *Server) handleGlobalQuery(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		Query       string `json:"query"`
		NResults    int    `json:"n_results"`
		UseFallback bool   `json:"use_fallback"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.Query == "" {
		return errorPayload("global_cache_query requires a query")
	}
	if params.NResults <= 0 {
		params.NResults = 5
	}

	start := time.Now()
	items := s.global.QueryRAG(ctx, params.Query, params.NResults, params.UseFallback)

	data := make([]map[string]any, 0, len(items))
	for _, item := range items {
		data = append(data, map[string]any{
			"source":  item.Source,
			"content": item.Content,
			"score":   item.Score,
		})
	}

	status := string(domain.StatusMiss)
	if len(data) > 0 {
		status = string(domain.StatusHit)
	}
	return map[string]any{
		"success":         true,
		"status":          status,
		"data":            data,
		"executionTimeMs": elapsedMs(start),
	}
}

func (s *Server) handleDiarySession(ctx context.Context, args json.RawMessage) map[string]any {
	var params struct {
		UserID          string `json:"user_id"`
		SessionID       string `json:"session_id"`
		CreateIfMissing bool   `json:"create_if_missing"`
		AddInteraction  bool   `json:"add_interaction"`
		Query           string `json:"query"`
		Response        string `json:"response"`
	}
	if err := json.Unmarshal(args, &params); err != nil || params.UserID == "" {
		return errorPayload("vector_diary_session requires a user_id")
	}

	sessionID := params.SessionID
	if sessionID == "" {
		if !params.CreateIfMissing {
			return errorPayload("no session_id given and create_if_missing is false")
		}
		session, err := s.diary.CreateSession(ctx, params.UserID)
		if err != nil {
			return errorPayload("failed to create session: " + err.Error())
		}
		sessionID = session.SessionID
	}

	if params.AddInteraction {
		if err := s.diary.AddInteraction(ctx, sessionID, params.Query, params.Response); err != nil {
			return errorPayload("failed to add interaction: " + err.Error())
		}
	}

	session, err := s.diary.GetSession(ctx, sessionID)
	if err != nil {
		return map[string]any{
			"success": false,
			"status":  string(domain.StatusMiss),
			"message": "session not found: " + sessionID,
		}
	}

	return map[string]any{
		"success": true,
		"status":  string(domain.StatusHit),
		"data":    session,
	}
}
