package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/hybridrag/hybridrag/retrieval"
	"github.com/hybridrag/hybridrag/types"
)

// L2Cache is the semantic tier: entries carry the query embedding, and a
// lookup hits when the best cosine similarity meets the threshold.
type L2Cache struct {
	mu        sync.Mutex
	threshold float64
	capacity  int
	ttl       time.Duration
	entries   map[string]*types.CacheEntry

	hits      int64
	misses    int64
	evictions int64
}

// SemanticMatch is one similar cached entry.
type SemanticMatch struct {
	Entry      *types.CacheEntry
	Similarity float64
}

// NewL2Cache creates a semantic cache.
func NewL2Cache(threshold float64, capacity int, ttl time.Duration) *L2Cache {
	if capacity <= 0 {
		capacity = 500
	}
	return &L2Cache{
		threshold: threshold,
		capacity:  capacity,
		ttl:       ttl,
		entries:   make(map[string]*types.CacheEntry),
	}
}

// Get returns the most similar live entry when its similarity meets the
// threshold. The similarity of the match is returned alongside.
func (c *L2Cache) Get(embedding []float64) (*types.CacheEntry, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()

	matches := c.topMatches(embedding, 1)
	if len(matches) == 0 {
		c.misses++
		return nil, 0, false
	}

	best := matches[0]
	best.Entry.HitCount++
	c.hits++
	return best.Entry, best.Similarity, true
}

// GetTopK returns up to k live entries meeting the similarity threshold,
// ordered by decreasing similarity.
func (c *L2Cache) GetTopK(embedding []float64, k int) []SemanticMatch {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	return c.topMatches(embedding, k)
}

// topMatches collects entries at or above the threshold, best first.
// Caller holds the lock.
func (c *L2Cache) topMatches(embedding []float64, k int) []SemanticMatch {
	matches := make([]SemanticMatch, 0, len(c.entries))
	for _, entry := range c.entries {
		sim := retrieval.CosineSimilarity(embedding, entry.Embedding)
		if sim < c.threshold {
			continue
		}
		matches = append(matches, SemanticMatch{Entry: entry, Similarity: sim})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Set stores a result with its query embedding. Inserting at capacity
// evicts the entry with the lowest hit count, oldest first on ties.
func (c *L2Cache) Set(key string, embedding []float64, value *types.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.capacity {
		c.evictColdest()
	}
	c.entries[key] = &types.CacheEntry{
		Key:       key,
		Value:     value,
		Embedding: embedding,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
}

// DeleteNear removes entries whose similarity to the embedding meets the
// threshold. Returns the number removed.
func (c *L2Cache) DeleteNear(embedding []float64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteNearLocked(embedding)
}

// deleteNearLocked is DeleteNear under an already-held lock.
func (c *L2Cache) deleteNearLocked(embedding []float64) int {
	removed := 0
	for key, entry := range c.entries {
		if retrieval.CosineSimilarity(embedding, entry.Embedding) >= c.threshold {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// DeleteMatching removes entries whose original query text matches the
// glob pattern, then cascades to entries semantically close to a removed
// one: they would keep serving the stale answer otherwise. Returns the
// total number removed.
func (c *L2Cache) DeleteMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var invalidated [][]float64
	removed := 0
	for key, entry := range c.entries {
		query := ""
		if entry.Value != nil && entry.Value.Metadata != nil {
			query = entry.Value.Metadata.OriginalQuery
		}
		if ok, err := matchPattern(pattern, query); err != nil {
			return removed
		} else if ok {
			invalidated = append(invalidated, entry.Embedding)
			delete(c.entries, key)
			removed++
		}
	}

	for _, embedding := range invalidated {
		removed += c.deleteNearLocked(embedding)
	}
	return removed
}

// Len returns the number of live entries.
func (c *L2Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the tier counters.
func (c *L2Cache) Stats() TierStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := TierStats{
		Entries:   len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	for _, entry := range c.entries {
		s.HitCount += int64(entry.HitCount)
	}
	s.fillHitRate()
	return s
}

// purgeExpired removes expired entries. Caller holds the lock.
func (c *L2Cache) purgeExpired() {
	now := time.Now()
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
		}
	}
}

// evictColdest removes the entry with the lowest hit count, breaking ties
// by age. Caller holds the lock.
func (c *L2Cache) evictColdest() {
	var victim string
	var victimEntry *types.CacheEntry
	for key, entry := range c.entries {
		if victimEntry == nil ||
			entry.HitCount < victimEntry.HitCount ||
			(entry.HitCount == victimEntry.HitCount && entry.CreatedAt.Before(victimEntry.CreatedAt)) {
			victim, victimEntry = key, entry
		}
	}
	if victimEntry != nil {
		delete(c.entries, victim)
		c.evictions++
	}
}
