// Package metrics provides prometheus instrumentation for the hybrid RAG
// decision fabric.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records query, routing, cache, LLM and agent metrics.
type Collector struct {
	queriesTotal    *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	queryConfidence *prometheus.HistogramVec

	routingDecisions *prometheus.CounterVec
	fallbacksTotal   *prometheus.CounterVec

	cacheHits    *prometheus.CounterVec
	cacheMisses  *prometheus.CounterVec
	cacheErrors  *prometheus.CounterVec
	cacheEntries *prometheus.GaugeVec

	llmTokensUsed *prometheus.CounterVec
	llmCost       *prometheus.CounterVec

	agentExecutionsTotal   *prometheus.CounterVec
	agentExecutionDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector registering under the given namespace.
// A nil registerer uses the prometheus default registry.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.queriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Total number of queries processed",
		},
		[]string{"strategy", "complexity", "status"},
	)

	c.queryDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"strategy"},
	)

	c.queryConfidence = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_confidence",
			Help:      "Confidence score distribution of answers",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"strategy"},
	)

	c.routingDecisions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total routing decisions by strategy",
		},
		[]string{"strategy", "complexity"},
	)

	c.fallbacksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Total fallback transitions between strategies",
		},
		[]string{"from", "to"},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total cache hits by tier",
		},
		[]string{"tier"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total cache misses by tier",
		},
		[]string{"tier"},
	)

	c.cacheErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_errors_total",
			Help:      "Total cache backend errors by tier",
		},
		[]string{"tier"},
	)

	c.cacheEntries = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Live entries per cache tier",
		},
		[]string{"tier"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total tokens consumed",
		},
		[]string{"model", "type"}, // type: prompt, completion
	)

	c.llmCost = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Total LLM cost in USD",
		},
		[]string{"model"},
	)

	c.agentExecutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_executions_total",
			Help:      "Total agent executions",
		},
		[]string{"agent_type", "status"},
	)

	c.agentExecutionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_execution_duration_seconds",
			Help:      "Agent execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"agent_type"},
	)

	logger.Debug("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// RecordQuery records one completed query.
func (c *Collector) RecordQuery(strategy, complexity, status string, duration time.Duration, confidence float64) {
	c.queriesTotal.WithLabelValues(strategy, complexity, status).Inc()
	c.queryDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	c.queryConfidence.WithLabelValues(strategy).Observe(confidence)
}

// RecordRoutingDecision records a routing decision.
func (c *Collector) RecordRoutingDecision(strategy, complexity string) {
	c.routingDecisions.WithLabelValues(strategy, complexity).Inc()
}

// RecordFallback records a fallback transition between strategies.
func (c *Collector) RecordFallback(from, to string) {
	c.fallbacksTotal.WithLabelValues(from, to).Inc()
}

// RecordCacheHit records a cache hit for a tier.
func (c *Collector) RecordCacheHit(tier string) {
	c.cacheHits.WithLabelValues(tier).Inc()
}

// RecordCacheMiss records a cache miss for a tier.
func (c *Collector) RecordCacheMiss(tier string) {
	c.cacheMisses.WithLabelValues(tier).Inc()
}

// RecordCacheError records a cache backend error for a tier.
func (c *Collector) RecordCacheError(tier string) {
	c.cacheErrors.WithLabelValues(tier).Inc()
}

// SetCacheEntries sets the live entry gauge for a tier.
func (c *Collector) SetCacheEntries(tier string, n int) {
	c.cacheEntries.WithLabelValues(tier).Set(float64(n))
}

// RecordLLMUsage records token consumption and cost for a model.
func (c *Collector) RecordLLMUsage(model string, promptTokens, completionTokens int, cost float64) {
	c.llmTokensUsed.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(model, "completion").Add(float64(completionTokens))
	c.llmCost.WithLabelValues(model).Add(cost)
}

// RecordAgentExecution records one agent run.
func (c *Collector) RecordAgentExecution(agentType, status string, duration time.Duration) {
	c.agentExecutionsTotal.WithLabelValues(agentType, status).Inc()
	c.agentExecutionDuration.WithLabelValues(agentType).Observe(duration.Seconds())
}
