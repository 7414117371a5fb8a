package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestCollector() (*Collector, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewCollector("hybridrag", reg, nil), reg
}

func TestCollector_RecordQuery(t *testing.T) {
	c, _ := newTestCollector()

	c.RecordQuery("classic", "simple", "success", 120*time.Millisecond, 0.85)
	c.RecordQuery("classic", "simple", "success", 90*time.Millisecond, 0.9)
	c.RecordQuery("agentic", "multi_hop", "error", 2*time.Second, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.queriesTotal.WithLabelValues("classic", "simple", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queriesTotal.WithLabelValues("agentic", "multi_hop", "error")))
}

func TestCollector_CacheCounters(t *testing.T) {
	c, _ := newTestCollector()

	c.RecordCacheHit("l1")
	c.RecordCacheHit("l1")
	c.RecordCacheMiss("l2")
	c.RecordCacheError("l1")
	c.SetCacheEntries("l2", 42)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheHits.WithLabelValues("l1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheMisses.WithLabelValues("l2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheErrors.WithLabelValues("l1")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.cacheEntries.WithLabelValues("l2")))
}

func TestCollector_LLMUsage(t *testing.T) {
	c, _ := newTestCollector()

	c.RecordLLMUsage("gpt-4o-mini", 100, 50, 0.0012)
	c.RecordLLMUsage("gpt-4o-mini", 200, 80, 0.0024)

	assert.Equal(t, 300.0, testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("gpt-4o-mini", "prompt")))
	assert.Equal(t, 130.0, testutil.ToFloat64(c.llmTokensUsed.WithLabelValues("gpt-4o-mini", "completion")))
	assert.InDelta(t, 0.0036, testutil.ToFloat64(c.llmCost.WithLabelValues("gpt-4o-mini")), 1e-9)
}

func TestCollector_FallbackAndRouting(t *testing.T) {
	c, _ := newTestCollector()

	c.RecordRoutingDecision("agentic", "complex")
	c.RecordFallback("agentic", "hybrid")
	c.RecordAgentExecution("research", "success", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.routingDecisions.WithLabelValues("agentic", "complex")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbacksTotal.WithLabelValues("agentic", "hybrid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.agentExecutionsTotal.WithLabelValues("research", "success")))
}
