package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestL2Cache_SimilarityHit(t *testing.T) {
	c := NewL2Cache(0.95, 10, time.Hour)

	c.Set("k1", []float64{1, 0, 0}, resultFor("what is the capital of France"))

	// Nearly identical embedding.
	entry, sim, ok := c.Get([]float64{0.999, 0.01, 0})
	require.True(t, ok)
	assert.GreaterOrEqual(t, sim, 0.95)
	assert.Equal(t, "answer for what is the capital of France", entry.Value.Answer)
	assert.Equal(t, 1, entry.HitCount)
	assert.Equal(t, int64(1), c.Stats().HitCount)
}

func TestL2Cache_BelowThresholdMisses(t *testing.T) {
	c := NewL2Cache(0.95, 10, time.Hour)

	c.Set("k1", []float64{1, 0, 0}, resultFor("q1"))

	_, _, ok := c.Get([]float64{0.5, 0.8, 0})
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
}

func TestL2Cache_BestMatchWins(t *testing.T) {
	c := NewL2Cache(0.9, 10, time.Hour)

	c.Set("far", []float64{0.95, 0.3, 0}, resultFor("far"))
	c.Set("near", []float64{1, 0, 0}, resultFor("near"))

	entry, _, ok := c.Get([]float64{1, 0, 0})
	require.True(t, ok)
	assert.Equal(t, "answer for near", entry.Value.Answer)
}

func TestL2Cache_GetTopKFiltersByThreshold(t *testing.T) {
	c := NewL2Cache(0.9, 10, time.Hour)

	c.Set("a", []float64{1, 0, 0}, resultFor("a"))
	c.Set("b", []float64{0.95, 0.3, 0}, resultFor("b"))
	c.Set("c", []float64{0, 1, 0}, resultFor("c"))

	// Only two entries clear the threshold; the orthogonal one never
	// appears no matter how large k is.
	matches := c.GetTopK([]float64{1, 0, 0}, 5)
	require.Len(t, matches, 2)
	assert.Equal(t, "a", matches[0].Entry.Key)
	assert.Equal(t, "b", matches[1].Entry.Key)
	assert.Greater(t, matches[0].Similarity, matches[1].Similarity)
	for _, m := range matches {
		assert.GreaterOrEqual(t, m.Similarity, 0.9)
	}

	matches = c.GetTopK([]float64{1, 0, 0}, 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].Entry.Key)
}

func TestL2Cache_EvictsColdest(t *testing.T) {
	c := NewL2Cache(0.95, 2, time.Hour)

	c.Set("cold", []float64{1, 0, 0}, resultFor("cold"))
	c.Set("warm", []float64{0, 1, 0}, resultFor("warm"))

	// Touch warm so cold has the lowest hit count.
	_, _, ok := c.Get([]float64{0, 1, 0})
	require.True(t, ok)

	c.Set("new", []float64{0, 0, 1}, resultFor("new"))

	assert.Equal(t, 2, c.Len())
	_, _, ok = c.Get([]float64{1, 0, 0})
	assert.False(t, ok, "cold entry should be evicted")
	_, _, ok = c.Get([]float64{0, 1, 0})
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestL2Cache_EvictionTieBreaksOldest(t *testing.T) {
	c := NewL2Cache(0.95, 2, time.Hour)

	c.Set("older", []float64{1, 0, 0}, resultFor("older"))
	time.Sleep(5 * time.Millisecond)
	c.Set("newer", []float64{0, 1, 0}, resultFor("newer"))

	c.Set("third", []float64{0, 0, 1}, resultFor("third"))

	_, _, ok := c.Get([]float64{1, 0, 0})
	assert.False(t, ok, "older entry loses the tie")
	_, _, ok = c.Get([]float64{0, 1, 0})
	assert.True(t, ok)
}

func TestL2Cache_TTLExpiry(t *testing.T) {
	c := NewL2Cache(0.95, 10, 10*time.Millisecond)

	c.Set("k", []float64{1, 0, 0}, resultFor("q"))
	time.Sleep(20 * time.Millisecond)

	_, _, ok := c.Get([]float64{1, 0, 0})
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestL2Cache_DeleteNear(t *testing.T) {
	c := NewL2Cache(0.95, 10, time.Hour)

	c.Set("a", []float64{1, 0, 0}, resultFor("a"))
	c.Set("b", []float64{0, 1, 0}, resultFor("b"))

	removed := c.DeleteNear([]float64{1, 0, 0})
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())
}

func TestL2Cache_DeleteMatchingCascadesToNearEntries(t *testing.T) {
	c := NewL2Cache(0.95, 10, time.Hour)

	c.Set("a", []float64{1, 0, 0}, resultFor("weather in Paris"))
	// Near-duplicate of the invalidated entry under a different query.
	c.Set("b", []float64{0.999, 0.01, 0}, resultFor("forecast for Paris"))
	c.Set("c", []float64{0, 1, 0}, resultFor("capital of France"))

	removed := c.DeleteMatching("weather*")
	assert.Equal(t, 2, removed, "glob match plus its semantic neighbour")
	assert.Equal(t, 1, c.Len())

	_, _, ok := c.Get([]float64{0, 1, 0})
	assert.True(t, ok, "unrelated entry survives")
}
