package config

import "time"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvironmentConfig{
			Name:  "dev",
			Debug: false,
		},
		Routing: RoutingConfig{
			ComplexityThresholdSimple:  0.3,
			ComplexityThresholdComplex: 0.7,
			Timeout:                    30 * time.Second,
			MaxQueryBytes:              32 * 1024,
		},
		Cache: CacheConfig{
			Enabled: true,
			L1: L1CacheConfig{
				MaxSize: 100,
				TTL:     3600 * time.Second,
			},
			L2: L2CacheConfig{
				SimilarityThreshold: 0.95,
				MaxSize:             500,
				TTL:                 7200 * time.Second,
			},
			L3: L3CacheConfig{
				MaxPaths: 100,
				TTL:      86400 * time.Second,
			},
		},
		Redis: RedisConfig{
			Addr:         "",
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Vector: VectorConfig{
			Size:           1536,
			CollectionName: "hybrid_rag",
			QdrantHost:     "",
			QdrantPort:     6333,
		},
		Agents: AgentsConfig{
			MaxIterations:        5,
			ConfidenceThreshold:  0.8,
			EnableSelfReflection: false,
			ParallelAgents:       true,
			Strategy:             "adaptive",
		},
		LLM: LLMConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Temperature:    0.7,
			MaxTokens:      2000,
			Timeout:        30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
