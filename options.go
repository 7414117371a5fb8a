package hybridrag

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/cache"
	"github.com/hybridrag/hybridrag/llm"
	"github.com/hybridrag/hybridrag/retrieval"
	"github.com/hybridrag/hybridrag/routing"
	"github.com/hybridrag/hybridrag/types"
)

// Option customises system construction.
type Option func(*System)

// WithLogger replaces the logger built from the configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(s *System) { s.logger = logger }
}

// WithCompleter injects a completion provider, replacing the OpenAI client
// built from the configuration.
func WithCompleter(completer llm.Completer) Option {
	return func(s *System) { s.completer = completer }
}

// WithEmbedder injects an embedding provider.
func WithEmbedder(embedder llm.Embedder) Option {
	return func(s *System) { s.embedder = embedder }
}

// WithRetriever injects a document index, replacing the one selected from
// the configuration.
func WithRetriever(retriever retrieval.Retriever) Option {
	return func(s *System) { s.retriever = retriever }
}

// WithResourceOracle injects strategy availability tracking.
func WithResourceOracle(oracle routing.ResourceOracle) Option {
	return func(s *System) { s.oracle = oracle }
}

// WithRedisStore injects a durable backing for the exact cache tier.
func WithRedisStore(store *cache.RedisStore) Option {
	return func(s *System) { s.redisStore = store }
}

// WithMetricsRegistry registers collectors on the given registry instead
// of the prometheus default.
func WithMetricsRegistry(reg prometheus.Registerer) Option {
	return func(s *System) { s.registry = reg }
}

// QueryOption customises one query.
type QueryOption func(*queryOptions)

type queryOptions struct {
	userID        string
	sessionID     string
	metadata      map[string]string
	forceStrategy types.Strategy
}

// WithUserID attaches a user identifier to the query.
func WithUserID(userID string) QueryOption {
	return func(o *queryOptions) { o.userID = userID }
}

// WithSessionID attaches a session identifier to the query.
func WithSessionID(sessionID string) QueryOption {
	return func(o *queryOptions) { o.sessionID = sessionID }
}

// WithMetadata attaches caller metadata to the query.
func WithMetadata(metadata map[string]string) QueryOption {
	return func(o *queryOptions) { o.metadata = metadata }
}

// WithForceStrategy bypasses routing and runs the given strategy.
func WithForceStrategy(strategy types.Strategy) QueryOption {
	return func(o *queryOptions) { o.forceStrategy = strategy }
}
