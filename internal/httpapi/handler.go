// Package httpapi exposes the admin HTTP surface: health, stats, and a
// small set of cache convenience endpoints mirroring the tool surface.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
	"github.com/strata-cache/strata/internal/routing"
	"go.uber.org/zap"
)

// Handler handles HTTP requests.
type Handler struct {
	router *routing.Router
}

// NewHandler creates a new HTTP handler (DI constructor).
func NewHandler(router *routing.Router) *Handler {
	return &Handler{
		router: router,
	}
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// HandleStats returns aggregate and per-layer statistics.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.router.Stats(r.Context()))
}

// HandleGet looks a key up, either through the routed fallback chain or
// in one explicit layer.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key query parameter is required", http.StatusBadRequest)
		return
	}

	var result *domain.CacheResult
	if layer := r.URL.Query().Get("layer"); layer != "" {
		result = h.router.GetFrom(ctx, domain.CacheLayer(layer), key)
	} else {
		result = h.router.Get(ctx, key)
	}

	status := http.StatusOK
	if result.Status == domain.StatusError {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

type setRequest struct {
	Key        string            `json:"key"`
	Value      string            `json:"value"`
	Layer      string            `json:"layer,omitempty"`
	TTLSeconds int               `json:"ttl_seconds,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// HandleSet stores a key/value pair.
func (h *Handler) HandleSet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req setRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second

	var result *domain.CacheResult
	if req.Layer != "" {
		result = h.router.SetIn(ctx, domain.CacheLayer(req.Layer), req.Key, req.Value, ttl, req.Metadata)
	} else {
		result = h.router.Set(ctx, req.Key, req.Value, ttl, req.Metadata)
	}

	if result.Status == domain.StatusError {
		observability.FromContext(ctx).Error("cache set failed",
			zap.String("key", req.Key),
			zap.String("layer", string(result.Layer)),
		)
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleDelete removes a key from every layer.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "key query parameter is required", http.StatusBadRequest)
		return
	}

	deleted := h.router.Delete(r.Context(), key)
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
	})
}

type searchRequest struct {
	Query         string  `json:"query"`
	NResults      int     `json:"n_results,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

// HandleSearch runs a similarity search across the searchable layers.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}
	if req.NResults <= 0 {
		req.NResults = 5
	}

	results := h.router.Search(ctx, req.Query, req.NResults, req.MinSimilarity)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// HandleClear empties every registered layer.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cleared := h.router.ClearCache(r.Context())
	status := http.StatusOK
	if !cleared {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]any{
		"cleared": cleared,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Already written status, can't change it, just log.
		return
	}
}
