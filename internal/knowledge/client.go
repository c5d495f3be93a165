// Package knowledge implements the HTTP client for the external RAG
// endpoint consumed by the global cache layer's fallback path.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

// Client queries a remote knowledge server over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a knowledge client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type queryRequest struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

type queryResponse struct {
	Results []struct {
		Source  string  `json:"source"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Query retrieves up to limit ranked knowledge items for the query text.
func (c *Client) Query(ctx context.Context, query string, limit int) ([]*domain.KnowledgeItem, error) {
	logger := observability.FromContext(ctx)

	body, err := json.Marshal(queryRequest{Query: query, NResults: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal knowledge query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build knowledge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("knowledge query failed",
			observability.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: knowledge server returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	var parsed queryResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil {
		return nil, fmt.Errorf("%w: invalid knowledge response: %v", domain.ErrUpstream, decodeErr)
	}

	items := make([]*domain.KnowledgeItem, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		items = append(items, &domain.KnowledgeItem{
			Source:  r.Source,
			Content: r.Content,
			Score:   r.Score,
		})
	}

	logger.Info("knowledge query completed",
		observability.Int("results", len(items)))

	return items, nil
}

// Name returns the source identifier.
func (c *Client) Name() string {
	return "rag"
}
