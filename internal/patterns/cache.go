package patterns

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/clever-edge/internal/models"
)

// Cache holds the current PatternSet per corpus. Sets are replaced
// wholesale and never patched.
type Cache struct {
	cache    *cache.Cache
	ttl      time.Duration
	mu       sync.RWMutex
	versions map[string]int
	hits     uint64
	misses   uint64
}

// NewCache creates a pattern cache; a zero ttl keeps sets until replaced
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := ttl * 2
	if ttl == cache.NoExpiration {
		cleanup = 0
	}
	return &Cache{
		cache:    cache.New(ttl, cleanup),
		ttl:      ttl,
		versions: make(map[string]int),
	}
}

// Replace installs set as the current set for its corpus and returns the
// version it replaced (0 when none). Older versions are ignored.
func (c *Cache) Replace(set models.PatternSet) (previous int, replaced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	previous = c.versions[set.Corpus]
	if set.Version <= previous {
		return previous, false
	}

	frozen := set
	frozen.Patterns = append([]models.Pattern(nil), set.Patterns...)
	c.cache.Set(set.Corpus, frozen, c.ttl)
	c.versions[set.Corpus] = set.Version
	return previous, true
}

// Current returns the live set for a corpus
func (c *Cache) Current(corpus string) (models.PatternSet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, found := c.cache.Get(corpus); found {
		if set, ok := v.(models.PatternSet); ok {
			c.hits++
			return set, true
		}
	}
	c.misses++
	return models.PatternSet{}, false
}

// Patterns returns a copy of the live patterns for a corpus, or nil
func (c *Cache) Patterns(corpus string) []models.Pattern {
	set, ok := c.Current(corpus)
	if !ok {
		return nil
	}
	return append([]models.Pattern(nil), set.Patterns...)
}

// NextVersion returns the version the next discovery run should carry
func (c *Cache) NextVersion(corpus string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.versions[corpus] + 1
}

// Stats returns cache statistics
func (c *Cache) Stats() (hits, misses uint64, ratio float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hits, misses = c.hits, c.misses
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// Clear flushes every corpus
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.versions = make(map[string]int)
	c.hits, c.misses = 0, 0
}
