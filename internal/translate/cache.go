package translate

import (
	"strings"
	"sync"
	"time"
)

// Cache memoizes translations keyed by normalized source text and target
// language. It is bounded: when full, Store evicts the single oldest-inserted
// entry, regardless of how recently it was read. This is deliberately not an
// LRU. Lookup treats entries older than the TTL as absent but does not evict
// them; eviction only happens under insertion pressure.
//
// The cache is process-lifetime scoped and safe for concurrent use. Construct
// one at startup and pass it to every caller; there is no package-level
// instance.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	text       string
	insertedAt time.Time
}

// NewCache creates a Cache holding at most maxSize entries, each valid for ttl.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Lookup returns the cached translation for text into targetLang, if present
// and within the TTL.
func (c *Cache) Lookup(text, targetLang string) (string, bool) {
	key := cacheKey(text, targetLang)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if c.now().Sub(entry.insertedAt) > c.ttl {
		return "", false
	}
	return entry.text, true
}

// Store records a translation, evicting the oldest-inserted entry when the
// size bound would be exceeded.
func (c *Cache) Store(text, targetLang, translation string) {
	key := cacheKey(text, targetLang)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		c.entries[key] = cacheEntry{text: translation, insertedAt: c.now()}
		return
	}
	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.entries[key] = cacheEntry{text: translation, insertedAt: c.now()}
	c.order = append(c.order, key)
}

// Len returns the current number of entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cacheKey folds case and surrounding whitespace so requests differing only in
// padding or capitalization share an entry.
func cacheKey(text, targetLang string) string {
	return strings.ToLower(strings.TrimSpace(text)) + "\x00" + strings.ToLower(targetLang)
}
