package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/agents"
	"github.com/hybridrag/hybridrag/types"
)

// Agentic runs the multi-step agent orchestration.
type Agentic struct {
	orchestrator *agents.Orchestrator
	logger       *zap.Logger
}

var _ Pipeline = (*Agentic)(nil)

// NewAgentic creates the agentic pipeline over an orchestrator.
func NewAgentic(orchestrator *agents.Orchestrator, logger *zap.Logger) *Agentic {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agentic{
		orchestrator: orchestrator,
		logger:       logger.With(zap.String("component", "agentic_pipeline")),
	}
}

// Strategy identifies the pipeline.
func (p *Agentic) Strategy() types.Strategy { return types.StrategyAgentic }

// Execute runs the orchestrator and maps its outcome onto a result.
func (p *Agentic) Execute(ctx context.Context, meta *types.QueryMetadata) (*types.QueryResult, error) {
	outcome, err := p.orchestrator.Run(ctx, meta.OriginalQuery)
	if err != nil {
		return nil, err
	}

	path := make([]string, 0, len(outcome.Steps))
	for _, step := range outcome.Steps {
		path = append(path, step.Agent)
	}

	p.logger.Debug("agentic pipeline complete",
		zap.String("query_id", meta.QueryID),
		zap.Int("agents", len(outcome.AgentsUsed)),
		zap.Float64("confidence", outcome.Confidence))

	return &types.QueryResult{
		Answer:          outcome.Answer,
		StrategyUsed:    types.StrategyAgentic,
		ConfidenceScore: outcome.Confidence,
		TokensUsed:      outcome.TokensUsed,
		CostUSD:         outcome.CostUSD,
		AgentsUsed:      outcome.AgentsUsed,
		AgentResults:    outcome.AgentResults,
		ExecutionPath:   path,
		ReasoningChain:  outcome.Reasoning,
	}, nil
}

// StepsFromResult rebuilds the executed path from a result for path
// caching.
func StepsFromResult(result *types.QueryResult) []types.PathStep {
	steps := make([]types.PathStep, 0, len(result.AgentResults))
	for _, r := range result.AgentResults {
		steps = append(steps, types.PathStep{
			Agent:  string(r.AgentType),
			Action: "execute",
		})
	}
	return steps
}
