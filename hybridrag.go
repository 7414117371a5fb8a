// Package hybridrag is a hybrid retrieval system that routes each query to
// the cheapest strategy able to answer it: single-shot retrieval for
// simple lookups, multi-step agent orchestration for complex analysis, a
// concurrent race of both when the classification is uncertain, and a
// three-tier cache in front of everything.
package hybridrag

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/singleflight"

	"github.com/hybridrag/hybridrag/agents"
	"github.com/hybridrag/hybridrag/cache"
	"github.com/hybridrag/hybridrag/config"
	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/metrics"
	"github.com/hybridrag/hybridrag/pipeline"
	"github.com/hybridrag/hybridrag/retrieval"
	"github.com/hybridrag/hybridrag/routing"
	"github.com/hybridrag/hybridrag/types"

	"github.com/prometheus/client_golang/prometheus"
)

// System is the entry point. Construct it with New and run queries with
// Query; a System is safe for concurrent use.
type System struct {
	cfg       *config.Config
	logger    *zap.Logger
	collector *metrics.Collector
	registry  prometheus.Registerer

	completer  llm.Completer
	embedder   llm.Embedder
	retriever  retrieval.Retriever
	redisStore *cache.RedisStore

	cache     *cache.Manager
	router    *routing.Router
	oracle    routing.ResourceOracle
	pipelines map[types.Strategy]pipeline.Pipeline

	group singleflight.Group
}

// New builds a system from the configuration. Options inject alternative
// providers; anything not injected is built from the config.
func New(cfg *config.Config, opts ...Option) (*System, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	s := &System{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		logger, err := buildLogger(cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		s.logger = logger
	}

	s.collector = metrics.NewCollector("hybridrag", s.registry, s.logger)

	if s.completer == nil || s.embedder == nil {
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			EmbeddingModel: cfg.LLM.EmbeddingModel,
			Dimensions:     cfg.Vector.Size,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			Timeout:        cfg.LLM.Timeout,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		if s.completer == nil {
			s.completer = client
		}
		if s.embedder == nil {
			s.embedder = client
		}
	}

	if s.retriever == nil {
		if cfg.Vector.QdrantHost != "" {
			s.retriever = retrieval.NewQdrantIndex(retrieval.QdrantConfig{
				Host:       cfg.Vector.QdrantHost,
				Port:       cfg.Vector.QdrantPort,
				Collection: cfg.Vector.CollectionName,
				VectorSize: cfg.Vector.Size,
			}, s.logger)
		} else {
			s.retriever = retrieval.NewInMemoryIndex(s.logger)
		}
	}

	if s.redisStore == nil && cfg.Redis.Addr != "" {
		store, err := cache.NewRedisStore(cache.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			TTL:          cfg.Cache.L1.TTL,
		}, s.logger)
		if err != nil {
			return nil, err
		}
		s.redisStore = store
	}

	s.cache = cache.NewManager(cache.ManagerConfig{
		Enabled:     cfg.Cache.Enabled,
		L1MaxSize:   cfg.Cache.L1.MaxSize,
		L1TTL:       cfg.Cache.L1.TTL,
		L2Threshold: cfg.Cache.L2.SimilarityThreshold,
		L2MaxSize:   cfg.Cache.L2.MaxSize,
		L2TTL:       cfg.Cache.L2.TTL,
		L3MaxPaths:  cfg.Cache.L3.MaxPaths,
		L3TTL:       cfg.Cache.L3.TTL,
	}, s.redisStore, s.collector, s.logger)

	model := routing.LoadTreeModel(cfg.Routing.ModelPath, s.logger)
	var classifierModel routing.Model
	if model != nil {
		classifierModel = model
	}
	classifier := routing.NewClassifier(classifierModel, s.logger)
	s.router = routing.NewRouter(classifier, s.oracle, s.collector, s.logger)

	roles := []agents.Agent{
		agents.NewResearchAgent(s.completer, s.retriever, s.embedder, s.logger),
		agents.NewAnalysisAgent(s.completer, s.logger),
		agents.NewSynthesisAgent(s.completer, s.logger),
		agents.NewVerificationAgent(s.completer, s.logger),
	}
	orchestrator := agents.NewOrchestrator(agents.Config{
		MaxIterations:        cfg.Agents.MaxIterations,
		ConfidenceThreshold:  cfg.Agents.ConfidenceThreshold,
		EnableSelfReflection: cfg.Agents.EnableSelfReflection,
		Mode:                 executionMode(cfg.Agents),
	}, agents.NewDecomposer(s.completer, s.logger), roles, s.completer, s.collector, s.logger)

	classic := pipeline.NewClassic(s.completer, s.embedder, s.retriever, 5, s.logger)
	agentic := pipeline.NewAgentic(orchestrator, s.logger)
	s.pipelines = map[types.Strategy]pipeline.Pipeline{
		types.StrategyClassic: classic,
		types.StrategyAgentic: agentic,
		types.StrategyHybrid:  pipeline.NewHybrid(classic, agentic, s.logger),
	}

	s.logger.Info("hybrid rag system initialized",
		zap.String("environment", cfg.Environment.Name),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.String("model", cfg.LLM.Model))

	return s, nil
}

func executionMode(cfg config.AgentsConfig) agents.ExecutionMode {
	if !cfg.ParallelAgents {
		return agents.ModeSequential
	}
	switch cfg.Strategy {
	case "sequential":
		return agents.ModeSequential
	case "parallel":
		return agents.ModeParallel
	default:
		return agents.ModeAdaptive
	}
}

// Query processes one query end to end. Concurrent identical queries are
// collapsed into a single execution. Failed queries return both an
// apologetic result and the typed error.
func (s *System) Query(ctx context.Context, query string, opts ...QueryOption) (*types.QueryResult, error) {
	var options queryOptions
	for _, opt := range opts {
		opt(&options)
	}

	if max := s.cfg.Routing.MaxQueryBytes; max > 0 && len(query) > max {
		return nil, types.NewError(types.ErrInvalidQuery,
			fmt.Sprintf("query exceeds %d bytes", max))
	}

	// A zero timeout leaves no room to run anything; a negative one
	// disables the deadline.
	switch timeout := s.cfg.Routing.Timeout; {
	case timeout == 0:
		return nil, types.NewError(types.ErrTimeout, "query deadline is zero")
	case timeout > 0:
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	key := cache.Fingerprint(query) + "|" + string(options.forceStrategy)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.process(ctx, query, options)
	})
	result, _ := v.(*types.QueryResult)
	return result, err
}

// SimpleQuery forces single-shot retrieval for a query, skipping agent
// orchestration entirely.
func (s *System) SimpleQuery(ctx context.Context, query string, opts ...QueryOption) (*types.QueryResult, error) {
	opts = append(opts, WithForceStrategy(types.StrategyClassic))
	return s.Query(ctx, query, opts...)
}

// ComplexQuery forces the agentic strategy for a query.
func (s *System) ComplexQuery(ctx context.Context, query string, opts ...QueryOption) (*types.QueryResult, error) {
	opts = append(opts, WithForceStrategy(types.StrategyAgentic))
	return s.Query(ctx, query, opts...)
}

func (s *System) process(ctx context.Context, query string, options queryOptions) (*types.QueryResult, error) {
	start := time.Now()
	fingerprint := cache.Fingerprint(query)

	// Exact tier first: no embedding needed.
	if cached, ok := s.cache.GetExact(ctx, fingerprint); ok {
		return s.sealCached(cached, start), nil
	}

	meta := analyze(query, options)

	// Semantic tier needs the embedding; compute it once here, downstream
	// consumers reuse it.
	if s.cfg.Cache.Enabled {
		s.ensureEmbedding(ctx, meta)
		if cached, _, ok := s.cache.GetSemantic(meta.Embedding); ok {
			return s.sealCached(cached, start), nil
		}
	}

	decision, err := s.decide(meta, options)
	if err != nil {
		return s.sealFailure(meta, start, err, "", false), err
	}

	result, attempted, execErr := s.execute(ctx, meta, decision)
	if execErr != nil {
		s.record(string(attempted), meta, "error", start, 0)
		return s.sealFailure(meta, start, execErr, attempted, attempted != decision.Strategy), execErr
	}

	s.seal(result, meta, start)
	s.record(string(result.StrategyUsed), meta, "success", start, result.ConfidenceScore)

	s.cache.Put(ctx, fingerprint, meta, result)
	if result.StrategyUsed == types.StrategyAgentic || len(result.AgentResults) > 0 {
		s.cache.SavePath(fingerprint, query, result.StrategyUsed, pipeline.StepsFromResult(result), result.ConfidenceScore)
	}

	return result, nil
}

// decide routes the query, or fabricates a decision for a forced strategy.
func (s *System) decide(meta *types.QueryMetadata, options queryOptions) (*types.RoutingDecision, error) {
	if options.forceStrategy != "" {
		// Classification still runs so complexity lands in the metadata.
		s.router.Classify(meta)
		return &types.RoutingDecision{
			Strategy:           options.forceStrategy,
			Confidence:         1.0,
			Reasoning:          "strategy forced by caller",
			FallbackStrategies: types.FallbackChain(options.forceStrategy),
		}, nil
	}
	return s.router.Route(meta)
}

// execute runs the decided strategy and walks the fallback chain on
// failure. The returned strategy is the last one attempted, so failure
// results report where execution actually died.
func (s *System) execute(ctx context.Context, meta *types.QueryMetadata, decision *types.RoutingDecision) (*types.QueryResult, types.Strategy, error) {
	strategies := append([]types.Strategy{decision.Strategy}, decision.FallbackStrategies...)

	attempted := decision.Strategy
	var lastErr error
	for i, strategy := range strategies {
		if ctx.Err() != nil {
			return nil, attempted, types.NewError(types.ErrTimeout, "query deadline exceeded").WithCause(ctx.Err())
		}

		p, ok := s.pipelines[strategy]
		if !ok {
			continue
		}
		attempted = strategy

		result, err := p.Execute(ctx, meta)
		s.reportOutcome(strategy, err)
		if err == nil {
			if i > 0 {
				result.FallbackUsed = true
				s.collector.RecordFallback(string(decision.Strategy), string(strategy))
				s.logger.Warn("strategy fell back",
					zap.String("query_id", meta.QueryID),
					zap.String("from", string(decision.Strategy)),
					zap.String("to", string(strategy)))
			}
			return result, strategy, nil
		}

		lastErr = err
		s.logger.Error("pipeline failed",
			zap.String("query_id", meta.QueryID),
			zap.String("strategy", string(strategy)),
			zap.Error(err))

		if types.IsCode(err, types.ErrTimeout) {
			return nil, attempted, err
		}
	}

	if lastErr == nil {
		lastErr = types.NewError(types.ErrRoutingFailed, "no pipeline available")
	}
	return nil, attempted, types.NewError(types.ErrPipelineFailed, "all strategies failed").WithCause(lastErr)
}

// reportOutcome feeds breaker-backed oracles.
func (s *System) reportOutcome(strategy types.Strategy, err error) {
	if breaker, ok := s.oracle.(*routing.BreakerOracle); ok {
		breaker.Report(strategy, err)
	}
}

// ensureEmbedding computes the query embedding once. Failures are logged
// and leave the embedding nil; the semantic tier is skipped.
func (s *System) ensureEmbedding(ctx context.Context, meta *types.QueryMetadata) {
	if meta.Embedding != nil || s.embedder == nil {
		return
	}
	embedding, err := s.embedder.Embed(ctx, meta.OriginalQuery)
	if err != nil {
		s.logger.Warn("query embedding failed, skipping semantic cache",
			zap.String("query_id", meta.QueryID), zap.Error(err))
		return
	}
	meta.Embedding = embedding
}

// seal stamps the identity, latency and metadata onto a pipeline result.
func (s *System) seal(result *types.QueryResult, meta *types.QueryMetadata, start time.Time) {
	result.QueryID = meta.QueryID
	result.Metadata = meta
	result.Timestamp = time.Now()
	result.LatencyMS = time.Since(start).Milliseconds()
}

// sealCached marks a cache-served copy of a stored result.
func (s *System) sealCached(stored *types.QueryResult, start time.Time) *types.QueryResult {
	result := *stored
	result.Cached = true
	result.LatencyMS = time.Since(start).Milliseconds()
	result.Timestamp = time.Now()
	s.collector.RecordQuery(string(types.StrategyCache), complexityLabel(result.Metadata), "success",
		time.Since(start), result.ConfidenceScore)
	return &result
}

// sealFailure builds the apologetic result returned alongside the error.
// attempted is the last strategy execution reached, empty when routing
// failed before anything ran.
func (s *System) sealFailure(meta *types.QueryMetadata, start time.Time, err error, attempted types.Strategy, fellBack bool) *types.QueryResult {
	return &types.QueryResult{
		QueryID:         meta.QueryID,
		Answer:          "Sorry, the query could not be processed. Please try again.",
		StrategyUsed:    attempted,
		FallbackUsed:    fellBack,
		ConfidenceScore: 0,
		LatencyMS:       time.Since(start).Milliseconds(),
		Metadata:        meta,
		Timestamp:       time.Now(),
		Error:           err.Error(),
	}
}

func (s *System) record(strategy string, meta *types.QueryMetadata, status string, start time.Time, confidence float64) {
	s.collector.RecordQuery(strategy, string(meta.Complexity), status, time.Since(start), confidence)
}

func complexityLabel(meta *types.QueryMetadata) string {
	if meta == nil {
		return "unknown"
	}
	return string(meta.Complexity)
}

// IndexDocuments embeds and indexes documents for retrieval. Documents
// that already carry embeddings are indexed as-is.
func (s *System) IndexDocuments(ctx context.Context, docs []types.Document) error {
	for i := range docs {
		if docs[i].Embedding != nil {
			continue
		}
		embedding, err := s.embedder.Embed(ctx, docs[i].Content)
		if err != nil {
			return err
		}
		docs[i].Embedding = embedding
	}
	return s.retriever.Add(ctx, docs)
}

// WarmCache primes the cache by running each query through the full
// pipeline. Queries already cached are served from cache, so warming is
// idempotent. Returns the number of queries warmed.
func (s *System) WarmCache(ctx context.Context, queries []string) int {
	return s.cache.Warm(ctx, queries, func(ctx context.Context, query string) (*types.QueryResult, error) {
		return s.Query(ctx, query)
	})
}

// InvalidatePattern removes cached results whose query matches the glob
// pattern.
func (s *System) InvalidatePattern(ctx context.Context, pattern string) int {
	return s.cache.InvalidatePattern(ctx, pattern)
}

// CacheStats returns a snapshot of the cache tiers.
func (s *System) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Close releases system resources.
func (s *System) Close() error {
	err := s.cache.Close()
	_ = s.logger.Sync()
	return err
}

// buildLogger constructs the zap logger from the log configuration.
func buildLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}
