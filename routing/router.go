package routing

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/metrics"
	"github.com/hybridrag/hybridrag/types"
)

// Router selects an execution strategy for a classified query and walks
// the fallback chain past unavailable strategies.
type Router struct {
	classifier *Classifier
	oracle     ResourceOracle
	collector  *metrics.Collector
	logger     *zap.Logger
}

// NewRouter creates a router. The oracle and collector are optional; a nil
// oracle treats every strategy as available.
func NewRouter(classifier *Classifier, oracle ResourceOracle, collector *metrics.Collector, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		classifier: classifier,
		oracle:     oracle,
		collector:  collector,
		logger:     logger.With(zap.String("component", "router")),
	}
}

// Classify runs the classifier and stamps the verdict on the metadata.
func (r *Router) Classify(meta *types.QueryMetadata) Classification {
	cls := r.classifier.Classify(meta.OriginalQuery)
	meta.Complexity = cls.Complexity
	meta.ComplexityScore = cls.Score
	return cls
}

// Route decides the strategy for a query. The classification on the
// metadata is filled in as a side effect. Returns ResourceUnavailable when
// the primary and every fallback strategy are down.
func (r *Router) Route(meta *types.QueryMetadata) (*types.RoutingDecision, error) {
	cls := r.Classify(meta)

	primary := determineStrategy(cls.Complexity, cls.Confidence)
	fallbacks := types.FallbackChain(primary)

	strategy, err := r.firstAvailable(primary, fallbacks)
	if err != nil {
		return nil, err
	}
	if strategy != primary {
		r.logger.Warn("primary strategy unavailable",
			zap.String("primary", string(primary)),
			zap.String("selected", string(strategy)))
		if r.collector != nil {
			r.collector.RecordFallback(string(primary), string(strategy))
		}
		fallbacks = types.FallbackChain(strategy)
	}

	decision := &types.RoutingDecision{
		Strategy:           strategy,
		Confidence:         cls.Confidence,
		Reasoning:          reasoning(strategy, cls.Complexity),
		FallbackStrategies: fallbacks,
		EstimatedTimeMS:    estimateTime(strategy, cls.Complexity),
		EstimatedCostUSD:   estimateCost(strategy, meta.OriginalQuery),
	}

	if r.collector != nil {
		r.collector.RecordRoutingDecision(string(strategy), string(cls.Complexity))
	}
	r.logger.Debug("query routed",
		zap.String("query_id", meta.QueryID),
		zap.String("complexity", string(cls.Complexity)),
		zap.String("strategy", string(strategy)),
		zap.Float64("confidence", cls.Confidence))

	return decision, nil
}

// firstAvailable returns the primary strategy or the first live fallback.
func (r *Router) firstAvailable(primary types.Strategy, fallbacks []types.Strategy) (types.Strategy, error) {
	if r.oracle == nil || r.oracle.Available(primary) {
		return primary, nil
	}
	for _, fb := range fallbacks {
		if r.oracle.Available(fb) {
			return fb, nil
		}
	}
	return "", types.NewError(types.ErrResourceUnavailable,
		"no strategy available for query")
}

// determineStrategy maps a complexity bucket to a strategy. Moderate
// queries go classic only when the classifier is confident.
func determineStrategy(complexity types.Complexity, confidence float64) types.Strategy {
	switch complexity {
	case types.ComplexitySimple:
		return types.StrategyClassic
	case types.ComplexityComplex, types.ComplexityMultiHop:
		return types.StrategyAgentic
	case types.ComplexityModerate:
		if confidence > 0.7 {
			return types.StrategyClassic
		}
		return types.StrategyHybrid
	default:
		return types.StrategyHybrid
	}
}

var baseTimesMS = map[types.Strategy]int64{
	types.StrategyClassic: 200,
	types.StrategyAgentic: 2000,
	types.StrategyHybrid:  1500,
	types.StrategyCache:   10,
}

var complexityMultiplier = map[types.Complexity]float64{
	types.ComplexitySimple:   0.5,
	types.ComplexityModerate: 1.0,
	types.ComplexityComplex:  2.0,
	types.ComplexityMultiHop: 3.0,
}

// estimateTime predicts execution time from the strategy base time scaled
// by complexity.
func estimateTime(strategy types.Strategy, complexity types.Complexity) int64 {
	base, ok := baseTimesMS[strategy]
	if !ok {
		base = 1000
	}
	mult, ok := complexityMultiplier[complexity]
	if !ok {
		mult = 1.0
	}
	return int64(float64(base) * mult)
}

var baseCostsUSD = map[types.Strategy]float64{
	types.StrategyClassic: 0.001,
	types.StrategyAgentic: 0.01,
	types.StrategyHybrid:  0.005,
	types.StrategyCache:   0,
}

// estimateCost predicts execution cost from the strategy base cost scaled
// by query length.
func estimateCost(strategy types.Strategy, query string) float64 {
	base, ok := baseCostsUSD[strategy]
	if !ok {
		base = 0.003
	}
	return base * (1.0 + float64(len(query))/1000.0)
}

func reasoning(strategy types.Strategy, complexity types.Complexity) string {
	switch strategy {
	case types.StrategyClassic:
		return fmt.Sprintf("query classified as %s, single-shot retrieval is sufficient", complexity)
	case types.StrategyAgentic:
		return "query requires multi-step analysis, dispatching agent orchestration"
	case types.StrategyHybrid:
		return "moderate query with uncertain classification, running both pipelines"
	case types.StrategyCache:
		return "similar query found in cache, serving cached result"
	default:
		return fmt.Sprintf("strategy %s selected from query analysis", strategy)
	}
}
