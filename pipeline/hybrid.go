package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/types"
)

// Hybrid runs the classic and agentic pipelines concurrently and returns
// the more confident result. Ties go to classic as the cheaper path. When
// one pipeline fails the survivor is returned with the fallback flag set;
// when both fail the agentic error wins.
type Hybrid struct {
	classic Pipeline
	agentic Pipeline
	logger  *zap.Logger
}

var _ Pipeline = (*Hybrid)(nil)

// NewHybrid creates the hybrid coordinator.
func NewHybrid(classic, agentic Pipeline, logger *zap.Logger) *Hybrid {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hybrid{
		classic: classic,
		agentic: agentic,
		logger:  logger.With(zap.String("component", "hybrid_pipeline")),
	}
}

// Strategy identifies the pipeline.
func (p *Hybrid) Strategy() types.Strategy { return types.StrategyHybrid }

// Execute races both pipelines to completion.
func (p *Hybrid) Execute(ctx context.Context, meta *types.QueryMetadata) (*types.QueryResult, error) {
	var (
		wg                     sync.WaitGroup
		classicRes, agenticRes *types.QueryResult
		classicErr, agenticErr error
	)

	// Each branch gets its own copy of the metadata so the lazy embedding
	// write does not race.
	classicMeta := *meta
	agenticMeta := *meta

	wg.Add(2)
	go func() {
		defer wg.Done()
		classicRes, classicErr = p.classic.Execute(ctx, &classicMeta)
	}()
	go func() {
		defer wg.Done()
		agenticRes, agenticErr = p.agentic.Execute(ctx, &agenticMeta)
	}()
	wg.Wait()

	if meta.Embedding == nil && classicMeta.Embedding != nil {
		meta.Embedding = classicMeta.Embedding
	}

	switch {
	case classicErr != nil && agenticErr != nil:
		return nil, agenticErr

	case classicErr != nil:
		p.logger.Warn("classic branch failed, using agentic result", zap.Error(classicErr))
		agenticRes.StrategyUsed = types.StrategyAgentic
		agenticRes.FallbackUsed = true
		return agenticRes, nil

	case agenticErr != nil:
		p.logger.Warn("agentic branch failed, using classic result", zap.Error(agenticErr))
		classicRes.StrategyUsed = types.StrategyClassic
		classicRes.FallbackUsed = true
		return classicRes, nil
	}

	winner := classicRes
	if agenticRes.ConfidenceScore > classicRes.ConfidenceScore {
		winner = agenticRes
	}

	p.logger.Debug("hybrid race decided",
		zap.String("winner", string(winner.StrategyUsed)),
		zap.Float64("classic_confidence", classicRes.ConfidenceScore),
		zap.Float64("agentic_confidence", agenticRes.ConfidenceScore))

	winner.StrategyUsed = types.StrategyHybrid
	winner.TokensUsed = classicRes.TokensUsed + agenticRes.TokensUsed
	winner.CostUSD = classicRes.CostUSD + agenticRes.CostUSD
	return winner, nil
}
