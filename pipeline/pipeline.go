// Package pipeline implements the execution pipelines behind the routing
// strategies: single-shot classic retrieval, agent orchestration, and the
// hybrid coordinator that races both.
package pipeline

import (
	"context"

	"github.com/hybridrag/hybridrag/types"
)

// Pipeline executes a query end to end for one strategy. Implementations
// fill in answer, confidence, cost and execution path; identifiers,
// latency and caching flags are sealed by the caller.
type Pipeline interface {
	Strategy() types.Strategy
	Execute(ctx context.Context, meta *types.QueryMetadata) (*types.QueryResult, error)
}
