package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// hashKeyPrefix separates content hash lookups from report entries so a
// metadata key can never collide with a report's content hash.
const hashKeyPrefix = "hash:"

// CacheEntry is a node in the cache's doubly linked LRU list
type CacheEntry struct {
	Key       string
	Value     []byte
	CreatedAt time.Time
	prev      *CacheEntry
	next      *CacheEntry
}

// ResultCache is an LRU cache with TTL expiry for encoded lint reports
// and content hash lookups. Size accounting covers value bytes only.
type ResultCache struct {
	mutex   sync.RWMutex
	entries map[string]*CacheEntry
	head    *CacheEntry
	tail    *CacheEntry
	size    int64
	maxSize int64
	ttl     time.Duration

	hits      int64
	misses    int64
	evictions int64
}

// NewResultCache creates a result cache bounded by maxSize value bytes.
// Entries older than ttl are dropped on access.
func NewResultCache(maxSize int64, ttl time.Duration) *ResultCache {
	head := &CacheEntry{}
	tail := &CacheEntry{}
	head.next = tail
	tail.prev = head

	return &ResultCache{
		entries: make(map[string]*CacheEntry),
		head:    head,
		tail:    tail,
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get returns the cached value for key and marks it recently used.
// Expired entries are removed on the spot.
func (c *ResultCache) Get(key string) ([]byte, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.CreatedAt) > c.ttl {
		c.removeEntry(entry)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.moveToFront(entry)
	atomic.AddInt64(&c.hits, 1)
	return entry.Value, true
}

// Set stores value under key, evicting least recently used entries until
// the cache fits its size limit again.
func (c *ResultCache) Set(key string, value []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, exists := c.entries[key]; exists {
		c.size += int64(len(value)) - int64(len(entry.Value))
		entry.Value = value
		entry.CreatedAt = time.Now()
		c.moveToFront(entry)
		c.evictIfNeeded()
		return
	}

	entry := &CacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
	}
	c.entries[key] = entry
	c.addToFront(entry)
	c.size += int64(len(value))

	c.evictIfNeeded()
}

// GetHash looks up a previously computed content hash by metadata key
func (c *ResultCache) GetHash(metadataKey string) (string, bool) {
	value, found := c.Get(hashKeyPrefix + metadataKey)
	if !found || len(value) == 0 {
		return "", false
	}
	return string(value), true
}

// SetHash stores a content hash under a metadata key so later checks can
// skip re-reading unchanged files
func (c *ResultCache) SetHash(metadataKey, hash string) {
	c.Set(hashKeyPrefix+metadataKey, []byte(hash))
}

// Clear removes all entries
func (c *ResultCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.head.next = c.tail
	c.tail.prev = c.head
	c.size = 0
}

// GetStats returns entry count, total value bytes, and the size limit
func (c *ResultCache) GetStats() (int, int64, int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries), c.size, c.maxSize
}

// GetHits returns the number of cache hits
func (c *ResultCache) GetHits() int64 {
	return atomic.LoadInt64(&c.hits)
}

// GetMisses returns the number of cache misses
func (c *ResultCache) GetMisses() int64 {
	return atomic.LoadInt64(&c.misses)
}

// GetEvictions returns the number of evicted entries
func (c *ResultCache) GetEvictions() int64 {
	return atomic.LoadInt64(&c.evictions)
}

// GetHitRate returns the fraction of lookups served from cache, 0 to 1
func (c *ResultCache) GetHitRate() float64 {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// evictIfNeeded removes entries from the LRU end until the cache fits.
// Caller must hold the write lock.
func (c *ResultCache) evictIfNeeded() {
	for c.size > c.maxSize && c.tail.prev != c.head {
		c.removeEntry(c.tail.prev)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// removeEntry drops an entry from both the map and the list.
// Caller must hold the write lock.
func (c *ResultCache) removeEntry(entry *CacheEntry) {
	delete(c.entries, entry.Key)
	c.unlink(entry)
	c.size -= int64(len(entry.Value))
}

func (c *ResultCache) addToFront(entry *CacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *ResultCache) unlink(entry *CacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	entry.prev = nil
	entry.next = nil
}

func (c *ResultCache) moveToFront(entry *CacheEntry) {
	c.unlink(entry)
	c.addToFront(entry)
}
