package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 0.3, cfg.Routing.ComplexityThresholdSimple)
	assert.Equal(t, 0.7, cfg.Routing.ComplexityThresholdComplex)
	assert.Equal(t, 30*time.Second, cfg.Routing.Timeout)

	assert.Equal(t, 100, cfg.Cache.L1.MaxSize)
	assert.Equal(t, 3600*time.Second, cfg.Cache.L1.TTL)
	assert.Equal(t, 0.95, cfg.Cache.L2.SimilarityThreshold)
	assert.Equal(t, 500, cfg.Cache.L2.MaxSize)
	assert.Equal(t, 7200*time.Second, cfg.Cache.L2.TTL)
	assert.Equal(t, 100, cfg.Cache.L3.MaxPaths)
	assert.Equal(t, 86400*time.Second, cfg.Cache.L3.TTL)

	assert.Equal(t, 1536, cfg.Vector.Size)
	assert.Equal(t, 5, cfg.Agents.MaxIterations)
	assert.Equal(t, 0.8, cfg.Agents.ConfidenceThreshold)
}

func TestLoader_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
routing:
  complexity_threshold_simple: 0.2
  timeout: 10s
cache:
  l1:
    max_size: 50
  l2:
    similarity_threshold: 0.9
environment:
  name: prod
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).WithoutDotenv().Load()
	require.NoError(t, err)

	assert.Equal(t, 0.2, cfg.Routing.ComplexityThresholdSimple)
	assert.Equal(t, 10*time.Second, cfg.Routing.Timeout)
	assert.Equal(t, 50, cfg.Cache.L1.MaxSize)
	assert.Equal(t, 0.9, cfg.Cache.L2.SimilarityThreshold)
	assert.True(t, cfg.Environment.IsProduction())

	// Untouched fields keep their defaults.
	assert.Equal(t, 0.7, cfg.Routing.ComplexityThresholdComplex)
	assert.Equal(t, 500, cfg.Cache.L2.MaxSize)
}

func TestLoader_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").WithoutDotenv().Load()
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Cache.L1.MaxSize)
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("HYBRIDRAG_CACHE_L1_MAX_SIZE", "7")
	t.Setenv("HYBRIDRAG_ROUTING_TIMEOUT", "5s")
	t.Setenv("HYBRIDRAG_ENV_DEBUG", "true")
	t.Setenv("HYBRIDRAG_LLM_TEMPERATURE", "0.2")

	cfg, err := NewLoader().WithoutDotenv().Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Cache.L1.MaxSize)
	assert.Equal(t, 5*time.Second, cfg.Routing.Timeout)
	assert.True(t, cfg.Environment.Debug)
	assert.InDelta(t, 0.2, float64(cfg.LLM.Temperature), 1e-6)
}

func TestLoader_EnvInvalidValue(t *testing.T) {
	t.Setenv("HYBRIDRAG_CACHE_L1_MAX_SIZE", "not-a-number")

	_, err := NewLoader().WithoutDotenv().Load()
	require.Error(t, err)
}

func TestLoader_Validator(t *testing.T) {
	bad := func(c *Config) error {
		if c.Cache.L2.SimilarityThreshold > 1 {
			return assert.AnError
		}
		return nil
	}

	t.Setenv("HYBRIDRAG_CACHE_L2_SIMILARITY_THRESHOLD", "1.5")
	_, err := NewLoader().WithoutDotenv().WithValidator(bad).Load()
	require.Error(t, err)
}
