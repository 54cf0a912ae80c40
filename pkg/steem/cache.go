package steem

import (
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// Cache TTLs, matching how quickly each result class goes stale on chain.
const (
	accountCacheTTL = 120 * time.Second
	configCacheTTL  = 300 * time.Second
	chainIDCacheTTL = 1200 * time.Second
)

// memoryCache is a small TTL map for results that are expensive to refetch
// and slow to change (node config, chain id, recently queried accounts).
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value   any
	expires time.Time
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]cacheEntry{}}
}

func (c *memoryCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *memoryCache) set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expires: time.Now().Add(ttl)}
}

func (c *memoryCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]cacheEntry{}
}

// accountsCacheKey digests a name set order-independently so {"a","b"} and
// {"b","a"} hit the same entry.
func accountsCacheKey(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	h := blake3.New()
	for _, n := range sorted {
		h.Write([]byte(n))
		h.Write([]byte{0})
	}
	return "accounts:" + hex.EncodeToString(h.Sum(nil))
}
