package gastatus

import (
	"fmt"
	"sync"

	"github.com/harrison/gasctl/internal/models"
)

// ParseCache is a bounded LRU cache of parsed agent output, keyed by
// (path, mtime) so a file's parse result is reused until it changes again.
// It is safe for concurrent use.
type ParseCache struct {
	mu          sync.Mutex
	entries     map[string]*models.ParsedOutput
	accessOrder []string
	maxSize     int
	hits        int
	misses      int
}

// NewParseCache creates a cache bounded to maxSize entries.
func NewParseCache(maxSize int) *ParseCache {
	return &ParseCache{
		entries: make(map[string]*models.ParsedOutput),
		maxSize: maxSize,
	}
}

func cacheKey(path string, mtimeUnixNano int64) string {
	return fmt.Sprintf("%s:%d", path, mtimeUnixNano)
}

// Get looks up a cached parse result for (path, mtime).
func (c *ParseCache) Get(path string, mtimeUnixNano int64) (*models.ParsedOutput, bool) {
	key := cacheKey(path, mtimeUnixNano)

	c.mu.Lock()
	defer c.mu.Unlock()

	parsed, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.touch(key)
	c.hits++
	return parsed, true
}

// Set stores a parse result for (path, mtime), evicting the least recently
// used entry if the cache is at capacity.
func (c *ParseCache) Set(path string, mtimeUnixNano int64, parsed *models.ParsedOutput) {
	key := cacheKey(path, mtimeUnixNano)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeFromOrder(key)
	} else if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		oldest := c.accessOrder[0]
		c.accessOrder = c.accessOrder[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = parsed
	c.accessOrder = append(c.accessOrder, key)
}

// InvalidatePrefix removes every cached entry whose key starts with
// path+":" — used when a file is known to have been replaced or rotated.
func (c *ParseCache) InvalidatePrefix(path string) {
	prefix := path + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	var remaining []string
	for _, key := range c.accessOrder {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
			continue
		}
		remaining = append(remaining, key)
	}
	c.accessOrder = remaining
}

// Size returns the current number of cached entries.
func (c *ParseCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheStats reports hit/miss counters for diagnostics.
type CacheStats struct {
	Size    int
	MaxSize int
	Hits    int
	Misses  int
}

func (c *ParseCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Size: len(c.entries), MaxSize: c.maxSize, Hits: c.hits, Misses: c.misses}
}

// touch marks key as most recently used. Caller must hold c.mu.
func (c *ParseCache) touch(key string) {
	c.removeFromOrder(key)
	c.accessOrder = append(c.accessOrder, key)
}

// removeFromOrder deletes key from accessOrder. Caller must hold c.mu.
func (c *ParseCache) removeFromOrder(key string) {
	for i, k := range c.accessOrder {
		if k == key {
			c.accessOrder = append(c.accessOrder[:i], c.accessOrder[i+1:]...)
			return
		}
	}
}
