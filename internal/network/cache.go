package network

import "sync"

const (
	maxCacheEntries = 50
	cacheEvictBatch = 10
)

// graphCache memoizes built graphs keyed by filters/mode/topK/row
// count. Purely a performance cache; clearing it never changes output.
type graphCache struct {
	mu      sync.Mutex
	entries map[string]*Graph
	order   []string
}

func newGraphCache() *graphCache {
	return &graphCache{entries: make(map[string]*Graph)}
}

func (c *graphCache) get(key string) (*Graph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.entries[key]
	return g, ok
}

func (c *graphCache) put(key string, g *Graph) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = g

	// Past the bound, evict the oldest batch rather than one at a
	// time, so eviction cost stays amortized.
	if len(c.entries) > maxCacheEntries {
		evict := c.order[:cacheEvictBatch]
		c.order = c.order[cacheEvictBatch:]
		for _, old := range evict {
			delete(c.entries, old)
		}
	}
}

func (c *graphCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Graph)
	c.order = nil
}

func (c *graphCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
