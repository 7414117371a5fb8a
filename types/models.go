// Package types defines the shared data model of the hybrid RAG decision
// fabric: query metadata, routing decisions, agent results, and the final
// QueryResult returned to callers.
package types

import (
	"time"
)

// Complexity is the discrete complexity bucket assigned to a query.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"    // single-fact lookup
	ComplexityModerate Complexity = "moderate"  // needs some reasoning
	ComplexityComplex  Complexity = "complex"   // multi-step analysis
	ComplexityMultiHop Complexity = "multi_hop" // facts from independent contexts
)

// Strategy is the execution strategy selected for a query.
type Strategy string

const (
	StrategyClassic Strategy = "classic" // single-shot retrieve-and-generate
	StrategyAgentic Strategy = "agentic" // multi-step agent orchestration
	StrategyHybrid  Strategy = "hybrid"  // both pipelines, best result wins
	StrategyCache   Strategy = "cache"   // served from cache
)

// AgentType identifies a specialised agent role.
type AgentType string

const (
	AgentResearch     AgentType = "research"
	AgentAnalysis     AgentType = "analysis"
	AgentSynthesis    AgentType = "synthesis"
	AgentVerification AgentType = "verification"
)

// Query is a raw user query with optional identifiers. Immutable once
// received.
type Query struct {
	Text      string            `json:"text"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// QueryMetadata is produced by the analyzer and passed read-only to all
// downstream components. Embedding is populated lazily: it stays nil until
// an L2 lookup or an embedding-dependent strategy first needs it, and is
// never recomputed once set.
type QueryMetadata struct {
	QueryID         string     `json:"query_id"`
	OriginalQuery   string     `json:"original_query"`
	Language        string     `json:"language"`
	Complexity      Complexity `json:"complexity"`
	ComplexityScore float64    `json:"complexity_score"`
	Entities        []string   `json:"entities"`
	Intent          string     `json:"intent"`
	Keywords        []string   `json:"keywords"`
	Embedding       []float64  `json:"embedding,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	UserID          string     `json:"user_id,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
}

// RoutingDecision is the router's verdict for one query.
type RoutingDecision struct {
	Strategy           Strategy   `json:"strategy"`
	Confidence         float64    `json:"confidence"`
	Reasoning          string     `json:"reasoning"`
	FallbackStrategies []Strategy `json:"fallback_strategies"`
	EstimatedTimeMS    int64      `json:"estimated_time_ms"`
	EstimatedCostUSD   float64    `json:"estimated_cost_usd"`
	CacheHit           bool       `json:"cache_hit"`
}

// Document is a retrieved document chunk.
type Document struct {
	DocID     string            `json:"doc_id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Embedding []float64         `json:"embedding,omitempty"`
	Score     float64           `json:"score,omitempty"`
	Source    string            `json:"source,omitempty"`
	ChunkID   int               `json:"chunk_id,omitempty"`
}

// AgentResult is the outcome of a single agent invocation.
type AgentResult struct {
	AgentType       AgentType `json:"agent_type"`
	AgentID         string    `json:"agent_id"`
	Result          string    `json:"result"`
	Confidence      float64   `json:"confidence"`
	Sources         []string  `json:"sources,omitempty"`
	ExecutionTimeMS int64     `json:"execution_time_ms"`
	TokensUsed      int       `json:"tokens_used"`
	CostUSD         float64   `json:"cost_usd"`
}

// QueryResult is the final response object. It is built incrementally
// inside the pipelines and sealed at the orchestration boundary; callers
// only ever observe the sealed value.
type QueryResult struct {
	QueryID         string   `json:"query_id"`
	Answer          string   `json:"answer"`
	StrategyUsed    Strategy `json:"strategy_used"`
	ConfidenceScore float64  `json:"confidence_score"`
	RelevanceScore  float64  `json:"relevance_score"`

	LatencyMS  int64   `json:"latency_ms"`
	TokensUsed int     `json:"tokens_used"`
	CostUSD    float64 `json:"cost_usd"`

	DocumentsRetrieved []Document    `json:"documents_retrieved,omitempty"`
	AgentsUsed         []AgentType   `json:"agents_used,omitempty"`
	AgentResults       []AgentResult `json:"agent_results,omitempty"`

	ExecutionPath  []string `json:"execution_path,omitempty"`
	ReasoningChain []string `json:"reasoning_chain,omitempty"`

	Metadata     *QueryMetadata `json:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Cached       bool           `json:"cached"`
	FallbackUsed bool           `json:"fallback_used"`
	Error        string         `json:"error,omitempty"`
}

// PathStep is one executed step of an agentic run, recorded in the L3 path
// cache.
type PathStep struct {
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Result string `json:"result"`
}

// CacheEntry is a stored cache record. Embedding is only set for semantic
// (L2) entries.
type CacheEntry struct {
	Key       string       `json:"key"`
	Value     *QueryResult `json:"value"`
	Embedding []float64    `json:"embedding,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	HitCount  int          `json:"hit_count"`
}

// Expired reports whether the entry's TTL has elapsed at the given time.
func (e *CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// FallbackChain returns the fixed fallback sequence for a primary strategy,
// ordered by decreasing preference. Cache has no fallbacks.
func FallbackChain(primary Strategy) []Strategy {
	switch primary {
	case StrategyAgentic:
		return []Strategy{StrategyHybrid, StrategyClassic}
	case StrategyHybrid:
		return []Strategy{StrategyClassic, StrategyAgentic}
	case StrategyClassic:
		return []Strategy{StrategyHybrid, StrategyAgentic}
	default:
		return nil
	}
}
