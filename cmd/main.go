package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"golang.org/x/sync/errgroup"

	"github.com/strata-cache/strata/internal/cache"
	"github.com/strata-cache/strata/internal/config"
	"github.com/strata-cache/strata/internal/domain"
	localembed "github.com/strata-cache/strata/internal/embedding/local"
	openaiembed "github.com/strata-cache/strata/internal/embedding/openai"
	"github.com/strata-cache/strata/internal/httpapi"
	"github.com/strata-cache/strata/internal/httpapi/middleware"
	"github.com/strata-cache/strata/internal/knowledge"
	"github.com/strata-cache/strata/internal/mcpserver"
	"github.com/strata-cache/strata/internal/observability"
	"github.com/strata-cache/strata/internal/persist"
	sqlitestore "github.com/strata-cache/strata/internal/persist/sqlite"
	"github.com/strata-cache/strata/internal/routing"
	memoryindex "github.com/strata-cache/strata/internal/vectorstore/memory"
	redisindex "github.com/strata-cache/strata/internal/vectorstore/redis"
)

func main() {
	container := buildContainer()

	if err := container.Invoke(run); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}
}

type app struct {
	dig.In

	Config      *config.Config
	Router      *routing.Router
	Predictive  *cache.PredictiveCache
	Semantic    *cache.SemanticCache
	Vector      *cache.VectorCache
	Global      *cache.GlobalCache
	Diary       *cache.VectorDiary
	Snapshotter *persist.Snapshotter
	HTTPServer  *httpapi.Server
	MCPServer   *mcpserver.Server
}

func run(a app) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.FromContext(ctx)

	layers := []domain.LayerCache{
		a.Predictive, a.Semantic, a.Vector, a.Global, a.Diary,
	}
	for _, layer := range layers {
		if !layer.Initialize(ctx) {
			logger.Error("layer failed to initialize",
				observability.String("layer", string(layer.Layer())))
			continue
		}
		a.Router.RegisterCache(layer)
	}

	a.Snapshotter.Restore(ctx)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return a.HTTPServer.Start()
	})
	group.Go(func() error {
		return a.MCPServer.RunStdio(groupCtx)
	})
	group.Go(func() error {
		return a.Snapshotter.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", observability.Error(err))
		}
		for _, layer := range layers {
			if err := layer.Close(); err != nil {
				logger.Error("layer close failed",
					observability.String("layer", string(layer.Layer())),
					observability.Error(err))
			}
		}
		return nil
	})

	return group.Wait()
}

type semanticCacheDeps struct {
	dig.In

	Config   *config.SemanticConfig
	Embedder domain.EmbeddingGenerator
	Index    domain.SimilarityIndex `name:"semantic_index"`
	Events   domain.EventPublisher
}

type vectorCacheDeps struct {
	dig.In

	Config   *config.VectorConfig
	Embedder domain.EmbeddingGenerator
	Index    domain.SimilarityIndex `name:"vector_index"`
	Reranker domain.Reranker
	Events   domain.EventPublisher
}

// newSimilarityIndex builds a dedicated index for one layer. The Redis
// index name is suffixed per layer so two layers never share a keyspace.
func newSimilarityIndex(
	cfg *config.RedisConfig,
	embedder domain.EmbeddingGenerator,
	layer string,
) (domain.SimilarityIndex, error) {
	if cfg.Addr == "" {
		return memoryindex.NewIndex(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return redisindex.NewIndex(client, cfg.IndexName+":"+layer, embedder.Dimension())
}

func buildContainer() *dig.Container {
	container := dig.New()

	// Configuration
	if err := container.Provide(config.Load); err != nil {
		log.Fatalf("Failed to provide config: %v", err)
	}
	if err := container.Provide(config.ParseDependenciesConfig); err != nil {
		log.Fatalf("Failed to provide config dependencies: %v", err)
	}

	// Observability
	if err := container.Provide(observability.InitLogger); err != nil {
		log.Fatalf("Failed to provide logger: %v", err)
	}
	if err := container.Provide(func() *slog.Logger {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}); err != nil {
		log.Fatalf("Failed to provide slog logger: %v", err)
	}
	if err := container.Provide(func(logger *slog.Logger) domain.EventPublisher {
		return observability.NewEventBus(logger)
	}); err != nil {
		log.Fatalf("Failed to provide event bus: %v", err)
	}

	// Embedding generator: OpenAI when a key is configured, otherwise the
	// deterministic local embedder so the service works offline.
	if err := container.Provide(func(cfg *openaiembed.Config) (domain.EmbeddingGenerator, error) {
		if cfg.APIKey == "" {
			return localembed.NewGenerator(), nil
		}
		return openaiembed.NewGenerator(*cfg)
	}); err != nil {
		log.Fatalf("Failed to provide embedding generator: %v", err)
	}

	// Similarity indexes: one instance per layer, so each layer's Clear and
	// Delete touch only its own vectors. RediSearch when an address is
	// configured, otherwise the in-process index.
	if err := container.Provide(func(
		cfg *config.RedisConfig,
		embedder domain.EmbeddingGenerator,
	) (domain.SimilarityIndex, error) {
		return newSimilarityIndex(cfg, embedder, "semantic")
	}, dig.Name("semantic_index")); err != nil {
		log.Fatalf("Failed to provide semantic similarity index: %v", err)
	}
	if err := container.Provide(func(
		cfg *config.RedisConfig,
		embedder domain.EmbeddingGenerator,
	) (domain.SimilarityIndex, error) {
		return newSimilarityIndex(cfg, embedder, "vector")
	}, dig.Name("vector_index")); err != nil {
		log.Fatalf("Failed to provide vector similarity index: %v", err)
	}

	// Knowledge source (optional external RAG endpoint).
	if err := container.Provide(func(cfg *config.KnowledgeConfig) domain.KnowledgeSource {
		if cfg.BaseURL == "" {
			return nil
		}
		return knowledge.NewClient(cfg.BaseURL,
			time.Duration(cfg.TimeoutSeconds)*time.Second)
	}); err != nil {
		log.Fatalf("Failed to provide knowledge source: %v", err)
	}

	// Reranker
	if err := container.Provide(func() domain.Reranker {
		return cache.NewTermOverlapReranker()
	}); err != nil {
		log.Fatalf("Failed to provide reranker: %v", err)
	}

	// Cache layers
	if err := container.Provide(cache.NewPredictiveCache); err != nil {
		log.Fatalf("Failed to provide predictive cache: %v", err)
	}
	if err := container.Provide(func(d semanticCacheDeps) *cache.SemanticCache {
		return cache.NewSemanticCache(d.Config, d.Embedder, d.Index, d.Events)
	}); err != nil {
		log.Fatalf("Failed to provide semantic cache: %v", err)
	}
	if err := container.Provide(func(d vectorCacheDeps) *cache.VectorCache {
		return cache.NewVectorCache(d.Config, d.Embedder, d.Index, d.Reranker, d.Events)
	}); err != nil {
		log.Fatalf("Failed to provide vector cache: %v", err)
	}
	if err := container.Provide(cache.NewGlobalCache); err != nil {
		log.Fatalf("Failed to provide global cache: %v", err)
	}
	if err := container.Provide(cache.NewVectorDiary); err != nil {
		log.Fatalf("Failed to provide vector diary: %v", err)
	}

	// Router
	if err := container.Provide(routing.NewRouter); err != nil {
		log.Fatalf("Failed to provide router: %v", err)
	}

	// Snapshot persistence (optional).
	if err := container.Provide(func(cfg *config.SnapshotConfig) (domain.SnapshotStore, error) {
		if cfg.Path == "" {
			return nil, nil
		}
		return sqlitestore.New(context.Background(), cfg.Path)
	}); err != nil {
		log.Fatalf("Failed to provide snapshot store: %v", err)
	}
	if err := container.Provide(func(
		cfg *config.SnapshotConfig,
		store domain.SnapshotStore,
		predictive *cache.PredictiveCache,
		semantic *cache.SemanticCache,
		vector *cache.VectorCache,
		global *cache.GlobalCache,
		diary *cache.VectorDiary,
	) *persist.Snapshotter {
		return persist.NewSnapshotter(
			store,
			time.Duration(cfg.IntervalSeconds)*time.Second,
			diary,
			predictive, semantic, vector, global, diary,
		)
	}); err != nil {
		log.Fatalf("Failed to provide snapshotter: %v", err)
	}

	// MCP tool surface
	if err := container.Provide(mcpserver.NewServer); err != nil {
		log.Fatalf("Failed to provide MCP server: %v", err)
	}

	// HTTP Layer
	if err := container.Provide(func(corsConfig *config.CORSConfig) middleware.Middleware {
		return middleware.BuildMiddlewareChain(corsConfig)
	}); err != nil {
		log.Fatalf("Failed to provide middleware chain: %v", err)
	}
	if err := container.Provide(httpapi.NewHandler); err != nil {
		log.Fatalf("Failed to provide HTTP handler: %v", err)
	}
	if err := container.Provide(httpapi.NewServer); err != nil {
		log.Fatalf("Failed to provide HTTP server: %v", err)
	}

	return container
}
