package marketplace

import (
	"sync"

	"github.com/sudo-init-do/hushousing/internal/chain"
)

// Cache is the ordered listing sequence from the most recently completed read.
//
// The lock only makes the swap memory safe. There is no versioning: a slow
// refresh that finishes after a newer one overwrites it.
type Cache struct {
	mu       sync.RWMutex
	listings []chain.Listing
}

func NewCache() *Cache {
	return &Cache{}
}

// Replace swaps in a whole new sequence. Listings are never mutated in place.
func (c *Cache) Replace(listings []chain.Listing) {
	c.mu.Lock()
	c.listings = listings
	c.mu.Unlock()
}

// Snapshot returns a copy of the current sequence.
func (c *Cache) Snapshot() []chain.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]chain.Listing, len(c.listings))
	copy(out, c.listings)
	return out
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listings)
}

// At looks up a listing by its contract index.
func (c *Cache) At(index int) (chain.Listing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.listings) {
		return chain.Listing{}, false
	}
	l := c.listings[index]
	return l, l.Index == index
}
