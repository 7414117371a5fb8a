package cache

import (
	"sync"
	"time"

	"github.com/hybridrag/hybridrag/types"
)

// L1Cache is the exact-match tier: an LRU keyed by query fingerprint.
type L1Cache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	items    map[string]*lruNode
	head     *lruNode
	tail     *lruNode

	hits      int64
	misses    int64
	evictions int64
}

type lruNode struct {
	key   string
	entry *types.CacheEntry
	prev  *lruNode
	next  *lruNode
}

// NewL1Cache creates an exact-match LRU with the given capacity and TTL.
func NewL1Cache(capacity int, ttl time.Duration) *L1Cache {
	if capacity <= 0 {
		capacity = 100
	}
	return &L1Cache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*lruNode),
	}
}

// Get returns the entry for a fingerprint. A hit refreshes recency and
// increments the entry's hit count. Expired entries are removed and count
// as misses.
func (c *L1Cache) Get(key string) (*types.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if node.entry.Expired(time.Now()) {
		c.removeNode(node)
		delete(c.items, key)
		c.misses++
		return nil, false
	}

	c.moveToHead(node)
	node.entry.HitCount++
	c.hits++
	return node.entry, true
}

// Set stores a result under a fingerprint. Inserting at capacity evicts the
// least recently used entry.
func (c *L1Cache) Set(key string, value *types.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if node, ok := c.items[key]; ok {
		node.entry = &types.CacheEntry{
			Key:       key,
			Value:     value,
			CreatedAt: now,
			ExpiresAt: now.Add(c.ttl),
		}
		c.moveToHead(node)
		return
	}

	node := &lruNode{
		key: key,
		entry: &types.CacheEntry{
			Key:       key,
			Value:     value,
			CreatedAt: now,
			ExpiresAt: now.Add(c.ttl),
		},
	}
	c.items[key] = node
	c.addToHead(node)

	if len(c.items) > c.capacity {
		evicted := c.tail
		c.removeNode(evicted)
		delete(c.items, evicted.key)
		c.evictions++
	}
}

// Delete removes a fingerprint. Returns true when an entry was present.
func (c *L1Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeNode(node)
	delete(c.items, key)
	return true
}

// DeleteMatching removes entries whose original query text matches the
// shell-style glob pattern. Returns the number removed.
func (c *L1Cache) DeleteMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, node := range c.items {
		query := ""
		if node.entry.Value != nil && node.entry.Value.Metadata != nil {
			query = node.entry.Value.Metadata.OriginalQuery
		}
		matched, err := matchPattern(pattern, query)
		if err != nil {
			return removed
		}
		if matched {
			c.removeNode(node)
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Clear synchronously empties the tier. Counters are kept.
func (c *L1Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*lruNode)
	c.head, c.tail = nil, nil
}

// Keys returns live fingerprints in most-recently-used order.
func (c *L1Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for node := c.head; node != nil; node = node.next {
		keys = append(keys, node.key)
	}
	return keys
}

// Len returns the number of live entries.
func (c *L1Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the tier counters.
func (c *L1Cache) Stats() TierStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := TierStats{
		Entries:   len(c.items),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	for _, node := range c.items {
		s.HitCount += int64(node.entry.HitCount)
	}
	s.fillHitRate()
	return s
}

func (c *L1Cache) addToHead(node *lruNode) {
	node.prev = nil
	node.next = c.head
	if c.head != nil {
		c.head.prev = node
	}
	c.head = node
	if c.tail == nil {
		c.tail = node
	}
}

func (c *L1Cache) removeNode(node *lruNode) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		c.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		c.tail = node.prev
	}
	node.prev = nil
	node.next = nil
}

func (c *L1Cache) moveToHead(node *lruNode) {
	if c.head == node {
		return
	}
	c.removeNode(node)
	c.addToHead(node)
}
