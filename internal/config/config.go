package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/dig"

	"github.com/strata-cache/strata/internal/embedding/openai"
)

// Config represents the cache service configuration.
type Config struct {
	Server     ServerConfig
	CORS       CORSConfig
	Tool       ToolConfig
	Embedding  openai.Config
	Redis      RedisConfig
	Knowledge  KnowledgeConfig
	Predictive PredictiveConfig
	Semantic   SemanticConfig
	Vector     VectorConfig
	Global     GlobalConfig
	Diary      DiaryConfig
	Snapshot   SnapshotConfig
	Routing    RoutingConfig
}

// ServerConfig contains HTTP admin server settings.
type ServerConfig struct {
	Port         int `env:"SERVER_PORT"          envDefault:"8080"`
	ReadTimeout  int `env:"SERVER_READ_TIMEOUT"  envDefault:"30"`
	WriteTimeout int `env:"SERVER_WRITE_TIMEOUT" envDefault:"30"`
}

// CORSConfig contains CORS policy settings for the admin server.
type CORSConfig struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS"   envSeparator:"," envDefault:"*"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS"   envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS"   envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS"                  envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE"                            envDefault:"86400"`
}

// ToolConfig contains MCP tool surface settings.
type ToolConfig struct {
	// TimeoutSeconds bounds a single tools/call dispatch.
	TimeoutSeconds int `env:"TOOL_TIMEOUT_SECONDS" envDefault:"30"`
}

// RedisConfig contains settings for the Redis-backed similarity index.
// When Addr is empty the vector layer uses the in-memory index instead.
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB"         envDefault:"0"`
	IndexName string `env:"REDIS_INDEX_NAME" envDefault:"strata_vectors"`
}

// KnowledgeConfig contains settings for the external RAG endpoint used by
// the global layer's fallback path.
type KnowledgeConfig struct {
	BaseURL        string `env:"KNOWLEDGE_BASE_URL"`
	TimeoutSeconds int    `env:"KNOWLEDGE_TIMEOUT_SECONDS" envDefault:"10"`
}

// PredictiveConfig contains predictive layer settings.
type PredictiveConfig struct {
	DefaultTTLSeconds      int     `env:"PREDICTIVE_DEFAULT_TTL_SECONDS"  envDefault:"3600"`
	CleanupIntervalSeconds int     `env:"PREDICTIVE_CLEANUP_SECONDS"      envDefault:"60"`
	ConfidenceThreshold    float64 `env:"PREDICTIVE_CONFIDENCE_THRESHOLD" envDefault:"0.7"`
	MaxPredictions         int     `env:"PREDICTIVE_MAX_PREDICTIONS"      envDefault:"5"`
	SessionHistorySize     int     `env:"PREDICTIVE_SESSION_HISTORY"      envDefault:"10"`
	PrefetchTTLSeconds     int     `env:"PREDICTIVE_PREFETCH_TTL_SECONDS" envDefault:"300"`
	RefreshIntervalSeconds int     `env:"PREDICTIVE_REFRESH_SECONDS"      envDefault:"120"`
}

// SemanticConfig contains semantic layer settings.
type SemanticConfig struct {
	DefaultTTLSeconds      int     `env:"SEMANTIC_DEFAULT_TTL_SECONDS" envDefault:"7200"`
	CleanupIntervalSeconds int     `env:"SEMANTIC_CLEANUP_SECONDS"     envDefault:"60"`
	SimilarityThreshold    float64 `env:"SEMANTIC_SIMILARITY_THRESHOLD" envDefault:"0.85"`
}

// VectorConfig contains vector layer settings.
type VectorConfig struct {
	DefaultTTLSeconds      int     `env:"VECTOR_DEFAULT_TTL_SECONDS" envDefault:"7200"`
	CleanupIntervalSeconds int     `env:"VECTOR_CLEANUP_SECONDS"     envDefault:"60"`
	SimilarityThreshold    float64 `env:"VECTOR_SIMILARITY_THRESHOLD" envDefault:"0.75"`
	RerankCandidates       int     `env:"VECTOR_RERANK_CANDIDATES"    envDefault:"20"`
}

// GlobalConfig contains global knowledge layer settings.
type GlobalConfig struct {
	DefaultTTLSeconds      int  `env:"GLOBAL_DEFAULT_TTL_SECONDS" envDefault:"86400"`
	CleanupIntervalSeconds int  `env:"GLOBAL_CLEANUP_SECONDS"     envDefault:"300"`
	FallbackEnabled        bool `env:"GLOBAL_FALLBACK_ENABLED"    envDefault:"true"`
}

// DiaryConfig contains vector diary layer settings.
type DiaryConfig struct {
	DefaultTTLSeconds            int  `env:"DIARY_DEFAULT_TTL_SECONDS"   envDefault:"0"`
	CleanupIntervalSeconds       int  `env:"DIARY_CLEANUP_SECONDS"       envDefault:"300"`
	RetentionDays                int  `env:"DIARY_RETENTION_DAYS"        envDefault:"30"`
	ConsolidationIntervalSeconds int  `env:"DIARY_CONSOLIDATION_SECONDS" envDefault:"3600"`
	CompressionEnabled           bool `env:"DIARY_COMPRESSION_ENABLED"   envDefault:"false"`
}

// SnapshotConfig contains durable snapshot settings. When Path is empty
// snapshots are disabled and the cache is purely in-memory.
type SnapshotConfig struct {
	Path            string `env:"SNAPSHOT_PATH"`
	IntervalSeconds int    `env:"SNAPSHOT_INTERVAL_SECONDS" envDefault:"300"`
}

// RoutingConfig contains router settings.
type RoutingConfig struct {
	// RulesFile optionally extends the built-in classification rules
	// with additional (pattern, layer, priority) entries from YAML.
	RulesFile string `env:"ROUTING_RULES_FILE"`

	// CrossLayerFallback queries every registered layer on a miss
	// instead of only the layers the classifier selected.
	CrossLayerFallback bool `env:"ROUTING_CROSS_LAYER_FALLBACK" envDefault:"true"`
}

// DepConfig is used for dependency injection with dig.
type DepConfig struct {
	dig.Out
	*ServerConfig
	*CORSConfig
	*ToolConfig
	*openai.Config
	*RedisConfig
	*KnowledgeConfig
	*PredictiveConfig
	*SemanticConfig
	*VectorConfig
	*GlobalConfig
	*DiaryConfig
	*SnapshotConfig
	*RoutingConfig
}

// Load loads environment files and parses configuration.
func Load() *Config {
	for _, file := range []string{".env"} {
		_ = godotenv.Load(file)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		panic(err)
	}

	return &cfg
}

// ParseDependenciesConfig returns pointers to sub-configs for dependency injection.
func ParseDependenciesConfig(cfg *Config) DepConfig {
	return DepConfig{
		dig.Out{},
		&cfg.Server,
		&cfg.CORS,
		&cfg.Tool,
		&cfg.Embedding,
		&cfg.Redis,
		&cfg.Knowledge,
		&cfg.Predictive,
		&cfg.Semantic,
		&cfg.Vector,
		&cfg.Global,
		&cfg.Diary,
		&cfg.Snapshot,
		&cfg.Routing,
	}
}
