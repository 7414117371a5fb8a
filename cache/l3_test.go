package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hybridrag/hybridrag/types"
)

func steps(names ...string) []types.PathStep {
	out := make([]types.PathStep, 0, len(names))
	for _, n := range names {
		out = append(out, types.PathStep{Agent: n, Action: "execute"})
	}
	return out
}

func TestL3Cache_SaveAndGet(t *testing.T) {
	c := NewL3Cache(10, time.Hour)

	key := Fingerprint("Complex analytical query")
	saved := c.SavePath(key, "Complex analytical query", types.StrategyAgentic, steps("research", "synthesis"), 0.8, false)
	assert.True(t, saved, "empty slot takes the path")

	record, ok := c.GetPath(key)
	require.True(t, ok)
	assert.Equal(t, types.StrategyAgentic, record.Strategy)
	assert.Equal(t, "Complex analytical query", record.Query)
	assert.Len(t, record.Steps, 2)
	assert.Equal(t, 1, record.UseCount)
}

func TestL3Cache_ReplacesOnlyWhenBetter(t *testing.T) {
	c := NewL3Cache(10, time.Hour)

	require.True(t, c.SavePath("k", "q", types.StrategyAgentic, steps("a"), 0.9, false))

	// Occupied slot, not marked better: keep the stored path.
	assert.False(t, c.SavePath("k", "q", types.StrategyAgentic, steps("b"), 0.95, false))
	record, ok := c.GetPath("k")
	require.True(t, ok)
	assert.Equal(t, "a", record.Steps[0].Agent)

	// Marked better: replace unconditionally.
	assert.True(t, c.SavePath("k", "q", types.StrategyHybrid, steps("c"), 0.5, true))
	record, ok = c.GetPath("k")
	require.True(t, ok)
	assert.Equal(t, "c", record.Steps[0].Agent)
	assert.Equal(t, types.StrategyHybrid, record.Strategy)
}

func TestL3Cache_PeekDoesNotCountUse(t *testing.T) {
	c := NewL3Cache(10, time.Hour)

	c.SavePath("k", "q", types.StrategyAgentic, steps("a"), 0.7, false)

	record, ok := c.Peek("k")
	require.True(t, ok)
	assert.Equal(t, 0, record.UseCount)
	assert.Equal(t, int64(0), c.Stats().Hits)
}

func TestL3Cache_DeleteMatching(t *testing.T) {
	c := NewL3Cache(10, time.Hour)

	c.SavePath(Fingerprint("weather in Paris"), "weather in Paris", types.StrategyAgentic, steps("a"), 0.7, false)
	c.SavePath(Fingerprint("capital of France"), "capital of France", types.StrategyAgentic, steps("b"), 0.7, false)

	removed := c.DeleteMatching("weather*")
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, c.Len())

	_, ok := c.GetPath(Fingerprint("capital of France"))
	assert.True(t, ok)
}

func TestL3Cache_CapacityEvictsOldest(t *testing.T) {
	c := NewL3Cache(2, time.Hour)

	c.SavePath("first", "q1", types.StrategyAgentic, steps("a"), 0.5, false)
	time.Sleep(5 * time.Millisecond)
	c.SavePath("second", "q2", types.StrategyAgentic, steps("b"), 0.5, false)
	c.SavePath("third", "q3", types.StrategyAgentic, steps("c"), 0.5, false)

	assert.Equal(t, 2, c.Len())
	_, ok := c.GetPath("first")
	assert.False(t, ok)
	_, ok = c.GetPath("second")
	assert.True(t, ok)
}

func TestL3Cache_TTLExpiry(t *testing.T) {
	c := NewL3Cache(10, 10*time.Millisecond)

	c.SavePath("k", "q", types.StrategyClassic, steps("a"), 0.5, false)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.GetPath("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())

	// An expired slot counts as empty.
	assert.True(t, c.SavePath("k", "q", types.StrategyClassic, steps("b"), 0.4, false))
}

func TestL3Cache_Stats(t *testing.T) {
	c := NewL3Cache(10, time.Hour)

	for i := 0; i < 3; i++ {
		c.SavePath(fmt.Sprintf("k%d", i), "q", types.StrategyAgentic, steps("a"), 0.5, false)
	}
	c.GetPath("k0")
	c.GetPath("missing")

	stats := c.Stats()
	assert.Equal(t, 3, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.HitCount, "one live record was used once")
}
