package resolver

import "sync"

// Cache is the business-key to surrogate-id mapping for one entity type.
// It is the single mutable piece of shared state in the pipeline, so all
// access is serialized. New ids are minted from a counter seeded above
// the highest id already persisted.
type Cache struct {
	mu     sync.Mutex
	ids    map[string]int64
	nextID int64
}

func NewCache() *Cache {
	return &Cache{ids: make(map[string]int64), nextID: 1}
}

// Lookup returns the id for a fingerprint if one has been assigned.
func (c *Cache) Lookup(fingerprint string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.ids[fingerprint]
	return id, ok
}

// Assign returns the id for a fingerprint, minting a new one on first
// sight. The second return reports whether the id was newly minted.
func (c *Cache) Assign(fingerprint string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id, ok := c.ids[fingerprint]; ok {
		return id, false
	}

	id := c.nextID
	c.nextID++
	c.ids[fingerprint] = id
	return id, true
}

// Replace swaps the whole mapping for one rebuilt from storage and moves
// the mint counter past the highest persisted id.
func (c *Cache) Replace(ids map[string]int64, maxID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ids = make(map[string]int64, len(ids))
	for fingerprint, id := range ids {
		c.ids[fingerprint] = id
	}
	c.nextID = maxID + 1
}

// Len returns the number of mapped keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
