package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hybridrag/hybridrag/metrics"
	"github.com/hybridrag/hybridrag/types"
)

// ManagerConfig configures the three tiers.
type ManagerConfig struct {
	Enabled bool

	L1MaxSize int
	L1TTL     time.Duration

	L2Threshold float64
	L2MaxSize   int
	L2TTL       time.Duration

	L3MaxPaths int
	L3TTL      time.Duration
}

// DefaultManagerConfig returns the default tier settings.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Enabled:     true,
		L1MaxSize:   100,
		L1TTL:       3600 * time.Second,
		L2Threshold: 0.95,
		L2MaxSize:   500,
		L2TTL:       7200 * time.Second,
		L3MaxPaths:  100,
		L3TTL:       86400 * time.Second,
	}
}

// Manager composes the three tiers behind one read and write surface.
// The exact tier can be backed by redis; backend failures degrade to
// misses and never fail the caller.
type Manager struct {
	cfg   ManagerConfig
	l1    *L1Cache
	l2    *L2Cache
	l3    *L3Cache
	store *RedisStore

	collector *metrics.Collector
	logger    *zap.Logger
}

// NewManager creates a cache manager. The redis store and collector are
// optional.
func NewManager(cfg ManagerConfig, store *RedisStore, collector *metrics.Collector, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		cfg:       cfg,
		l1:        NewL1Cache(cfg.L1MaxSize, cfg.L1TTL),
		l2:        NewL2Cache(cfg.L2Threshold, cfg.L2MaxSize, cfg.L2TTL),
		l3:        NewL3Cache(cfg.L3MaxPaths, cfg.L3TTL),
		store:     store,
		collector: collector,
		logger:    logger.With(zap.String("component", "cache")),
	}
}

// GetExact looks up a query fingerprint in the exact tier. A redis hit
// refills the in-process LRU.
func (m *Manager) GetExact(ctx context.Context, fingerprint string) (*types.QueryResult, bool) {
	if !m.cfg.Enabled {
		return nil, false
	}

	if entry, ok := m.l1.Get(fingerprint); ok {
		m.recordHit("l1")
		return entry.Value, true
	}

	if m.store != nil {
		entry, err := m.store.Get(ctx, fingerprint)
		switch {
		case err == nil:
			m.l1.Set(fingerprint, entry.Value)
			m.recordHit("l1")
			return entry.Value, true
		case err != ErrCacheMiss:
			m.recordError("l1", err)
		}
	}

	m.recordMiss("l1")
	return nil, false
}

// GetSemantic looks up the semantic tier by embedding. Returns the cached
// result and the similarity of the match.
func (m *Manager) GetSemantic(embedding []float64) (*types.QueryResult, float64, bool) {
	if !m.cfg.Enabled || len(embedding) == 0 {
		return nil, 0, false
	}

	entry, sim, ok := m.l2.Get(embedding)
	if !ok {
		m.recordMiss("l2")
		return nil, 0, false
	}
	m.recordHit("l2")
	return entry.Value, sim, true
}

// GetSemanticTopK returns up to k semantic entries meeting the similarity
// threshold, best first.
func (m *Manager) GetSemanticTopK(embedding []float64, k int) []SemanticMatch {
	if !m.cfg.Enabled || len(embedding) == 0 {
		return nil
	}
	return m.l2.GetTopK(embedding, k)
}

// Put writes a completed result through the tiers. The in-process exact
// tier is updated before return; the redis write happens in the
// background. The semantic tier is written only when the metadata carries
// an embedding.
func (m *Manager) Put(ctx context.Context, fingerprint string, meta *types.QueryMetadata, result *types.QueryResult) {
	if !m.cfg.Enabled || result == nil {
		return
	}

	m.l1.Set(fingerprint, result)

	if meta != nil && len(meta.Embedding) > 0 {
		m.l2.Set(fingerprint, meta.Embedding, result)
	}

	if m.store != nil {
		entry := &types.CacheEntry{
			Key:       fingerprint,
			Value:     result,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(m.cfg.L1TTL),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := m.store.Set(ctx, entry); err != nil {
				m.recordError("l1", err)
			}
		}()
	}

	m.updateGauges()
}

// SavePath records an execution path under the query fingerprint. The
// stored path gives way only when the new one scores strictly higher.
func (m *Manager) SavePath(key, query string, strategy types.Strategy, steps []types.PathStep, score float64) bool {
	if !m.cfg.Enabled {
		return false
	}
	existing, ok := m.l3.Peek(key)
	isBetter := ok && score > existing.SuccessScore
	return m.l3.SavePath(key, query, strategy, steps, score, isBetter)
}

// GetPath returns the remembered path for a query fingerprint.
func (m *Manager) GetPath(key string) (*PathRecord, bool) {
	if !m.cfg.Enabled {
		return nil, false
	}
	record, ok := m.l3.GetPath(key)
	if ok {
		m.recordHit("l3")
	} else {
		m.recordMiss("l3")
	}
	return record, ok
}

// InvalidatePattern removes entries whose original query matches the glob
// pattern from every tier, including the redis backing and the semantic
// neighbours of each invalidated embedding. Returns the number of
// in-memory entries removed.
func (m *Manager) InvalidatePattern(ctx context.Context, pattern string) int {
	removed := m.l1.DeleteMatching(pattern)
	removed += m.l2.DeleteMatching(pattern)
	removed += m.l3.DeleteMatching(pattern)

	if m.store != nil {
		if _, err := m.store.DeleteMatching(ctx, pattern); err != nil {
			m.recordError("l1", err)
		}
	}

	m.updateGauges()
	m.logger.Info("cache invalidated",
		zap.String("pattern", pattern),
		zap.Int("removed", removed))
	return removed
}

// InvalidateNear removes semantic entries within the similarity threshold
// of the embedding. Returns the number removed.
func (m *Manager) InvalidateNear(embedding []float64) int {
	removed := m.l2.DeleteNear(embedding)
	m.updateGauges()
	return removed
}

// Warm runs the given lookup for each query so the tiers fill through the
// regular write path. Lookups that already hit the cache still count as
// warmed, which makes warming idempotent. Failed queries are logged and
// skipped.
func (m *Manager) Warm(ctx context.Context, queries []string, exec func(context.Context, string) (*types.QueryResult, error)) int {
	if !m.cfg.Enabled || exec == nil {
		return 0
	}
	warmed := 0
	for _, query := range queries {
		if query == "" {
			continue
		}
		if _, err := exec(ctx, query); err != nil {
			m.logger.Warn("cache warm query failed",
				zap.String("query", query), zap.Error(err))
			continue
		}
		warmed++
	}
	m.logger.Info("cache warmed", zap.Int("queries", warmed))
	return warmed
}

// Clear synchronously empties the in-process exact tier.
func (m *Manager) Clear() {
	m.l1.Clear()
	m.updateGauges()
}

// Stats returns a snapshot of all tiers.
func (m *Manager) Stats() Stats {
	return Stats{
		L1: m.l1.Stats(),
		L2: m.l2.Stats(),
		L3: m.l3.Stats(),
	}
}

// Close releases backing resources.
func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

func (m *Manager) recordHit(tier string) {
	if m.collector != nil {
		m.collector.RecordCacheHit(tier)
	}
}

func (m *Manager) recordMiss(tier string) {
	if m.collector != nil {
		m.collector.RecordCacheMiss(tier)
	}
}

func (m *Manager) recordError(tier string, err error) {
	m.logger.Warn("cache backend error, treating as miss",
		zap.String("tier", tier), zap.Error(err))
	if m.collector != nil {
		m.collector.RecordCacheError(tier)
	}
}

func (m *Manager) updateGauges() {
	if m.collector == nil {
		return
	}
	m.collector.SetCacheEntries("l1", m.l1.Len())
	m.collector.SetCacheEntries("l2", m.l2.Len())
	m.collector.SetCacheEntries("l3", m.l3.Len())
}
