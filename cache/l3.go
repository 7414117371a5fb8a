package cache

import (
	"sync"
	"time"

	"github.com/hybridrag/hybridrag/types"
)

// PathRecord is the remembered execution path for one query, keyed by the
// query fingerprint.
type PathRecord struct {
	Key          string           `json:"key"`
	Query        string           `json:"query"`
	Strategy     types.Strategy   `json:"strategy"`
	Steps        []types.PathStep `json:"steps"`
	SuccessScore float64          `json:"success_score"`
	CreatedAt    time.Time        `json:"created_at"`
	ExpiresAt    time.Time        `json:"expires_at"`
	UseCount     int              `json:"use_count"`
}

// Expired reports whether the record's TTL has elapsed.
func (r *PathRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// L3Cache is the execution-path tier: one remembered path per query
// fingerprint, consulted for analytics and path reuse hints.
type L3Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	paths    map[string]*PathRecord

	hits      int64
	misses    int64
	evictions int64
}

// NewL3Cache creates a path cache.
func NewL3Cache(capacity int, ttl time.Duration) *L3Cache {
	if capacity <= 0 {
		capacity = 100
	}
	return &L3Cache{
		capacity: capacity,
		ttl:      ttl,
		paths:    make(map[string]*PathRecord),
	}
}

// SavePath stores a path for a query fingerprint. An empty or expired slot
// always takes the path; an occupied slot is replaced only when the caller
// marks the new path better. Returns true when the path was stored.
func (c *L3Cache) SavePath(key, query string, strategy types.Strategy, steps []types.PathStep, score float64, isBetter bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if existing, ok := c.paths[key]; ok && !existing.Expired(now) && !isBetter {
		return false
	}

	if _, ok := c.paths[key]; !ok && len(c.paths) >= c.capacity {
		c.evictOldest()
	}

	c.paths[key] = &PathRecord{
		Key:          key,
		Query:        query,
		Strategy:     strategy,
		Steps:        steps,
		SuccessScore: score,
		CreatedAt:    now,
		ExpiresAt:    now.Add(c.ttl),
	}
	return true
}

// Peek returns the live record for a key without touching the hit
// counters.
func (c *L3Cache) Peek(key string) (*PathRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.paths[key]
	if !ok || record.Expired(time.Now()) {
		return nil, false
	}
	return record, true
}

// DeleteMatching removes records whose query text matches the glob
// pattern. Returns the number removed.
func (c *L3Cache) DeleteMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, record := range c.paths {
		if ok, err := matchPattern(pattern, record.Query); err != nil {
			return removed
		} else if ok {
			delete(c.paths, key)
			removed++
		}
	}
	return removed
}

// GetPath returns the stored path for a query fingerprint.
func (c *L3Cache) GetPath(key string) (*PathRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.paths[key]
	if !ok || record.Expired(time.Now()) {
		if ok {
			delete(c.paths, key)
		}
		c.misses++
		return nil, false
	}

	record.UseCount++
	c.hits++
	return record, true
}

// Len returns the number of live records.
func (c *L3Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

// Stats returns a snapshot of the tier counters.
func (c *L3Cache) Stats() TierStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := TierStats{
		Entries:   len(c.paths),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	for _, record := range c.paths {
		s.HitCount += int64(record.UseCount)
	}
	s.fillHitRate()
	return s
}

// evictOldest removes the oldest record. Caller holds the lock.
func (c *L3Cache) evictOldest() {
	var victim string
	var victimRecord *PathRecord
	for key, record := range c.paths {
		if victimRecord == nil || record.CreatedAt.Before(victimRecord.CreatedAt) {
			victim, victimRecord = key, record
		}
	}
	if victimRecord != nil {
		delete(c.paths, victim)
		c.evictions++
	}
}
