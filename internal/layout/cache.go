package layout

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheChunks is the decoded-chunk capacity a file cache gets
// unless configured otherwise.
const DefaultCacheChunks = 512

// Cache holds decoded chunk bytes across the datasets of one file,
// keyed by the dataset's object header address and the chunk's linear
// cell number. The 2Q policy keeps repeatedly-hit chunks resident even
// under large scans.
type Cache struct {
	q *lru.TwoQueueCache[cacheKey, []byte]
}

type cacheKey struct {
	tag   uint64 // dataset object header address
	index uint64 // chunk linear cell number
}

// NewCache returns a cache holding up to n decoded chunks.
func NewCache(n int) (*Cache, error) {
	q, err := lru.New2Q[cacheKey, []byte](n)
	if err != nil {
		return nil, err
	}
	return &Cache{q: q}, nil
}

// Get returns the cached decoded bytes for a chunk.
func (c *Cache) Get(tag, index uint64) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	return c.q.Get(cacheKey{tag, index})
}

// Add caches a chunk's decoded bytes. Callers must not mutate data
// afterwards.
func (c *Cache) Add(tag, index uint64, data []byte) {
	if c == nil {
		return
	}
	c.q.Add(cacheKey{tag, index}, data)
}

// Remove drops a chunk, called when its stored bytes are rewritten.
func (c *Cache) Remove(tag, index uint64) {
	if c == nil {
		return
	}
	c.q.Remove(cacheKey{tag, index})
}

// Purge drops everything.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.q.Purge()
}
