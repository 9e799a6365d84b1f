// Package market holds the shared top-of-book quote cache written by the
// stream ingestors and read by the scan loop.
package market

import (
	"sort"
	"sync"

	"github.com/mtkach/arbscout/internal/models"
)

// Cache is a two-level map symbol -> venue -> latest quote. Writes are
// last-write-wins: each (symbol, venue) cell is owned by exactly one
// ingestor, so concurrent writers never contend on the same cell and no
// ordering is guaranteed between venues.
type Cache struct {
	mu     sync.RWMutex
	quotes map[string]map[string]models.Quote
}

func NewCache() *Cache {
	return &Cache{
		quotes: make(map[string]map[string]models.Quote),
	}
}

// Seed installs the explicit "no quote yet" sentinel for a (symbol, venue)
// pair so readers never observe a missing key for a tracked symbol. Called
// once per pair when an ingestor starts tracking its batch.
func (c *Cache) Seed(symbol, venue string, floorVolume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.quotes[symbol]; !ok {
		c.quotes[symbol] = make(map[string]models.Quote)
	}
	c.quotes[symbol][venue] = models.Quote{Volume: floorVolume}
}

// Update overwrites the entry for a (symbol, venue) pair unconditionally.
func (c *Cache) Update(symbol, venue string, quote models.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.quotes[symbol]; !ok {
		c.quotes[symbol] = make(map[string]models.Quote)
	}
	c.quotes[symbol][venue] = quote
}

// Quote returns the entry for a (symbol, venue) pair.
func (c *Cache) Quote(symbol, venue string) (models.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	venues, ok := c.quotes[symbol]
	if !ok {
		return models.Quote{}, false
	}
	q, ok := venues[venue]
	return q, ok
}

// Snapshot copies the venue map for one symbol.
func (c *Cache) Snapshot(symbol string) map[string]models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	venues, ok := c.quotes[symbol]
	if !ok {
		return nil
	}
	out := make(map[string]models.Quote, len(venues))
	for venue, q := range venues {
		out[venue] = q
	}
	return out
}

// All copies the entire cache. The scan loop takes one such snapshot per
// cycle so every detector in the cycle sees the same view.
func (c *Cache) All() map[string]map[string]models.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]models.Quote, len(c.quotes))
	for symbol, venues := range c.quotes {
		inner := make(map[string]models.Quote, len(venues))
		for venue, q := range venues {
			inner[venue] = q
		}
		out[symbol] = inner
	}
	return out
}

// Symbols returns the sorted set of tracked symbols.
func (c *Cache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.quotes))
	for symbol := range c.quotes {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Len reports the number of tracked symbols.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
