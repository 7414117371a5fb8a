// Package cache implements the three-tier result cache: an exact-match LRU
// (L1, optionally backed by redis), a semantic similarity tier (L2) and an
// execution-path tier (L3).
//
// Tier errors never fail a query. A backend failure is treated as a miss,
// logged, and counted.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path"
)

// ErrCacheMiss indicates cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Fingerprint returns the exact-match key for a query: the hex sha256 of
// its raw bytes. No normalization is applied, byte-different queries are
// different keys.
func Fingerprint(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

// TierStats is a point-in-time snapshot of one tier. HitCount aggregates
// the per-entry hit counters across live entries, so it drops as entries
// expire or are evicted, unlike the monotonic Hits.
type TierStats struct {
	Entries   int     `json:"entries"`
	HitCount  int64   `json:"hit_count"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Errors    int64   `json:"errors"`
	HitRate   float64 `json:"hit_rate"`
}

func (s *TierStats) fillHitRate() {
	total := s.Hits + s.Misses
	if total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
}

// Stats aggregates per-tier statistics.
type Stats struct {
	L1 TierStats `json:"l1"`
	L2 TierStats `json:"l2"`
	L3 TierStats `json:"l3"`
}

// matchPattern matches a query text against a shell-style glob pattern.
func matchPattern(pattern, query string) (bool, error) {
	return path.Match(pattern, query)
}
