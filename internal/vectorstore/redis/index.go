package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/strata-cache/strata/internal/domain"
	"github.com/strata-cache/strata/internal/observability"
)

const (
	redisDialectVersion = 2
	keyPrefix           = "strata:"
)

// Index implements the similarity index on Redis with RediSearch KNN.
type Index struct {
	client             *redis.Client
	indexName          string
	embeddingDimension int
}

// NewIndex creates a new Redis-backed similarity index.
func NewIndex(client *redis.Client, indexName string, embeddingDimension int) (*Index, error) {
	i := &Index{
		client:             client,
		indexName:          indexName,
		embeddingDimension: embeddingDimension,
	}

	if err := i.createIndex(); err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return i, nil
}

// floatsToBytes converts float64 slice to binary byte representation.
func floatsToBytes(fs []float64) []byte {
	const bytesPerFloat32 = 4
	buf := make([]byte, len(fs)*bytesPerFloat32)

	for i, f := range fs {
		// Convert float64 to float32 for Redis compatibility
		f32 := float32(f)
		u := math.Float32bits(f32)
		binary.LittleEndian.PutUint32(buf[i*bytesPerFloat32:], u)
	}

	return buf
}

// Search finds similar vectors above the threshold.
func (i *Index) Search(
	ctx context.Context,
	embed []float64,
	threshold float64,
	limit int,
) ([]*domain.IndexMatch, error) {
	embeddingBytes := floatsToBytes(embed)

	logger := observability.FromContext(ctx)
	logger.Debug("starting vector search",
		observability.String("index", i.indexName),
		observability.Int("embedding_dim", len(embed)),
		observability.Float64("threshold", threshold),
		observability.Int("limit", limit))

	query := fmt.Sprintf("*=>[KNN %d @embedding $vec AS score]", limit)

	results, err := i.client.FTSearchWithArgs(ctx, i.indexName, query,
		&redis.FTSearchOptions{
			Return: []redis.FTSearchReturn{
				{FieldName: "data"},
				{FieldName: "indexed_at"},
				{FieldName: "score"},
			},
			DialectVersion: redisDialectVersion,
			Params: map[string]any{
				"vec": embeddingBytes,
			},
		},
	).Result()
	if err != nil {
		logger.Error("vector search failed",
			observability.Error(err))
		return nil, fmt.Errorf("search failed: %w", err)
	}

	logger.Debug("vector search completed",
		observability.Int("total_docs", results.Total),
		observability.Int("docs_returned", len(results.Docs)))

	return i.parseSearchResults(ctx, results, threshold), nil
}

// Index stores a vector with associated data.
func (i *Index) Index(
	ctx context.Context,
	key string,
	embedding []float64,
	data []byte,
	ttl time.Duration,
) error {
	logger := observability.FromContext(ctx)
	logger.Debug("starting vector index",
		observability.String("key", key),
		observability.Int("embedding_dim", len(embedding)),
		observability.Int("data_size", len(data)))

	embeddingBytes := floatsToBytes(embedding)

	pipe := i.client.Pipeline()

	pipe.HSet(ctx, i.prefixed(key),
		"embedding", embeddingBytes,
		"data", string(data),
		"indexed_at", time.Now().Unix(),
	)

	if ttl > 0 {
		pipe.Expire(ctx, i.prefixed(key), ttl)
	}

	if _, execErr := pipe.Exec(ctx); execErr != nil {
		logger.Error("vector index failed",
			observability.Error(execErr))
		return fmt.Errorf("failed to index: %w", execErr)
	}

	return nil
}

// Remove drops a vector from the index.
func (i *Index) Remove(ctx context.Context, key string) error {
	if err := i.client.Del(ctx, i.prefixed(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove: %w", err)
	}
	return nil
}

// Flush drops every vector carrying the index prefix.
func (i *Index) Flush(ctx context.Context) error {
	iter := i.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := i.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to flush: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan index keys: %w", err)
	}
	return nil
}

func (i *Index) prefixed(key string) string {
	return keyPrefix + key
}

// createIndex creates the Redis search index if it doesn't exist.
func (i *Index) createIndex() error {
	ctx := context.Background()
	logger := observability.FromContext(ctx)

	// Check if index already exists
	_, err := i.client.FTInfo(ctx, i.indexName).Result()
	if err == nil {
		// Index exists
		logger.Info("redis search index already exists, skipping creation",
			observability.String("index_name", i.indexName))
		return nil
	}

	logger.Info("creating redis search index",
		observability.String("index_name", i.indexName),
		observability.Int("embedding_dimension", i.embeddingDimension))

	_, err = i.client.FTCreate(ctx, i.indexName,
		&redis.FTCreateOptions{
			OnHash: true,
			Prefix: []any{keyPrefix},
		},
		&redis.FieldSchema{
			FieldName: "embedding",
			FieldType: redis.SearchFieldTypeVector,
			VectorArgs: &redis.FTVectorArgs{
				FlatOptions: &redis.FTFlatOptions{
					Type:           "FLOAT32",
					Dim:            i.embeddingDimension,
					DistanceMetric: "COSINE",
				},
			},
		},
		&redis.FieldSchema{
			FieldName: "data",
			FieldType: redis.SearchFieldTypeText,
		},
		&redis.FieldSchema{
			FieldName: "indexed_at",
			FieldType: redis.SearchFieldTypeNumeric,
			Sortable:  true,
		},
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	logger.Info("successfully created redis search index",
		observability.String("index_name", i.indexName))

	return nil
}

// parseSearchResults parses Redis FTSearchResult into domain matches.
func (i *Index) parseSearchResults(
	ctx context.Context,
	result redis.FTSearchResult,
	threshold float64,
) []*domain.IndexMatch {
	var results []*domain.IndexMatch

	for _, doc := range result.Docs {
		match := i.parseSearchResult(ctx, doc, threshold)
		if match != nil {
			results = append(results, match)
		}
	}

	return results
}

// parseSearchResult parses a single Document into a domain match.
func (i *Index) parseSearchResult(
	ctx context.Context,
	doc redis.Document,
	threshold float64,
) *domain.IndexMatch {
	logger := observability.FromContext(ctx)

	// Extract score from fields (it's returned as "score" field, not doc.Score)
	scoreStr, scoreOk := doc.Fields["score"]
	if !scoreOk {
		return nil
	}

	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return nil
	}

	// Convert distance to similarity (1.0 - distance for cosine)
	similarity := 1.0 - score

	if similarity < threshold {
		return nil
	}

	dataStr, dataOk := doc.Fields["data"]
	if !dataOk {
		logger.Warn("data field not found in search result",
			observability.String("key", doc.ID))
		return nil
	}

	var indexedAt time.Time
	if tsStr, tsOk := doc.Fields["indexed_at"]; tsOk {
		if ts, parseErr := strconv.ParseInt(tsStr, 10, 64); parseErr == nil {
			indexedAt = time.Unix(ts, 0)
		}
	}

	key := doc.ID
	if len(key) > len(keyPrefix) && key[:len(keyPrefix)] == keyPrefix {
		key = key[len(keyPrefix):]
	}

	return &domain.IndexMatch{
		Key:        key,
		Similarity: similarity,
		Data:       []byte(dataStr),
		IndexedAt:  indexedAt,
	}
}
