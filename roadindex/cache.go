package roadindex

import (
	"sync"

	"github.com/tfcollins140/sleuth3rUGM/raster"
)

// Cache holds one Index per distinct road raster. Entries are keyed by raster
// identity, so a raster must not be mutated after its first lookup.
// Built indexes are immutable and may be shared by concurrent engines.
type Cache struct {
	mu      sync.Mutex
	entries map[*raster.Grid]*Index
	builds  int
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[*raster.Grid]*Index)}
}

// Get returns the index for roads, building it on first use.
func (c *Cache) Get(roads *raster.Grid) *Index {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ix, ok := c.entries[roads]; ok {
		return ix
	}
	ix := Build(roads)
	c.entries[roads] = ix
	c.builds++
	return ix
}

// Builds returns how many indexes have been built.
func (c *Cache) Builds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.builds
}

// Len returns the number of cached indexes.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
