// Package config provides configuration for the hybrid RAG system.
// Configuration is loaded with priority: defaults, then YAML file, then
// environment variables.
package config

import "time"

// Config is the complete system configuration.
type Config struct {
	// Environment runtime settings
	Environment EnvironmentConfig `yaml:"environment" env:"ENV"`

	// Routing thresholds and request limits
	Routing RoutingConfig `yaml:"routing" env:"ROUTING"`

	// Cache tier settings
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Redis backing store for the exact-match tier
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Vector index settings
	Vector VectorConfig `yaml:"vector" env:"VECTOR"`

	// Agents orchestration settings
	Agents AgentsConfig `yaml:"agents" env:"AGENTS"`

	// LLM completion and embedding provider settings
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Log logging settings
	Log LogConfig `yaml:"log" env:"LOG"`
}

// EnvironmentConfig holds runtime environment settings.
type EnvironmentConfig struct {
	// Name is one of dev, staging, prod.
	Name  string `yaml:"name" env:"NAME"`
	Debug bool   `yaml:"debug" env:"DEBUG"`
}

// IsProduction reports whether the configured environment is prod.
func (e EnvironmentConfig) IsProduction() bool { return e.Name == "prod" }

// RoutingConfig holds classifier thresholds and request limits.
type RoutingConfig struct {
	// ComplexityThresholdSimple is the score below which a query is simple.
	ComplexityThresholdSimple float64 `yaml:"complexity_threshold_simple" env:"COMPLEXITY_THRESHOLD_SIMPLE"`
	// ComplexityThresholdComplex is the score at or above which a query is
	// complex or multi-hop.
	ComplexityThresholdComplex float64 `yaml:"complexity_threshold_complex" env:"COMPLEXITY_THRESHOLD_COMPLEX"`
	// Timeout bounds one request end to end.
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// MaxQueryBytes rejects oversized input with InvalidQuery.
	MaxQueryBytes int `yaml:"max_query_bytes" env:"MAX_QUERY_BYTES"`
	// ModelPath points to a serialized classifier model. Empty disables
	// model mode.
	ModelPath string `yaml:"model_path" env:"MODEL_PATH"`
}

// CacheConfig holds per-tier cache settings.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"ENABLED"`
	L1      L1CacheConfig `yaml:"l1" env:"L1"`
	L2      L2CacheConfig `yaml:"l2" env:"L2"`
	L3      L3CacheConfig `yaml:"l3" env:"L3"`
}

// L1CacheConfig configures the exact-match tier.
type L1CacheConfig struct {
	MaxSize int           `yaml:"max_size" env:"MAX_SIZE"`
	TTL     time.Duration `yaml:"ttl" env:"TTL"`
}

// L2CacheConfig configures the semantic-similarity tier.
type L2CacheConfig struct {
	SimilarityThreshold float64       `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
	MaxSize             int           `yaml:"max_size" env:"MAX_SIZE"`
	TTL                 time.Duration `yaml:"ttl" env:"TTL"`
}

// L3CacheConfig configures the execution-path tier.
type L3CacheConfig struct {
	MaxPaths int           `yaml:"max_paths" env:"MAX_PATHS"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

// RedisConfig configures the optional redis backing for the exact tier.
// An empty Addr keeps the tier purely in memory.
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// VectorConfig configures embeddings and the vector index.
type VectorConfig struct {
	// Size is the embedding dimensionality.
	Size int `yaml:"size" env:"SIZE"`
	// CollectionName names the qdrant collection.
	CollectionName string `yaml:"collection_name" env:"COLLECTION_NAME"`
	// QdrantHost and QdrantPort locate the qdrant REST endpoint. Empty host
	// keeps retrieval in memory.
	QdrantHost string `yaml:"qdrant_host" env:"QDRANT_HOST"`
	QdrantPort int    `yaml:"qdrant_port" env:"QDRANT_PORT"`
}

// AgentsConfig configures the agent orchestrator.
type AgentsConfig struct {
	// MaxIterations is the refinement budget per agentic run.
	MaxIterations int `yaml:"max_iterations" env:"MAX_ITERATIONS"`
	// ConfidenceThreshold triggers early exit once synthesis confidence
	// exceeds it.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"CONFIDENCE_THRESHOLD"`
	// EnableSelfReflection runs the verification agent over the synthesis.
	EnableSelfReflection bool `yaml:"enable_self_reflection" env:"ENABLE_SELF_REFLECTION"`
	// ParallelAgents enables concurrent execution of independent subtasks.
	ParallelAgents bool `yaml:"parallel_agents" env:"PARALLEL_AGENTS"`
	// Strategy is one of sequential, parallel, adaptive.
	Strategy string `yaml:"strategy" env:"STRATEGY"`
}

// LLMConfig configures the completion and embedding providers.
type LLMConfig struct {
	APIKey         string        `yaml:"api_key" env:"API_KEY"`
	BaseURL        string        `yaml:"base_url" env:"BASE_URL"`
	Model          string        `yaml:"model" env:"MODEL"`
	EmbeddingModel string        `yaml:"embedding_model" env:"EMBEDDING_MODEL"`
	Temperature    float32       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens      int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Timeout        time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
}
