package quote

import (
	"sync"

	"futures-core/pkg/exchanges/common"
)

// Cache is a last-write-wins bid/ask cache keyed by symbol. It is written by
// the market data feed and by the connector's synchronous fallback fetch, and
// read concurrently by strategies and the display API. A stored quote always
// carries both sides; readers never see a half-initialized entry.
type Cache struct {
	mu     sync.RWMutex
	quotes map[string]common.Quote
}

// NewCache creates an empty quote cache.
func NewCache() *Cache {
	return &Cache{quotes: make(map[string]common.Quote)}
}

// Merge updates the quote for symbol. A nil side preserves the stored value.
// When no entry exists yet, both sides are required; a one-sided merge
// against an absent entry is dropped so the both-sides invariant holds.
// The resulting quote and whether it was stored are returned.
func (c *Cache) Merge(symbol string, bid, ask *float64) (common.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	q, ok := c.quotes[symbol]
	if !ok && (bid == nil || ask == nil) {
		return common.Quote{}, false
	}
	if bid != nil {
		q.Bid = *bid
	}
	if ask != nil {
		q.Ask = *ask
	}
	c.quotes[symbol] = q
	return q, true
}

// Get returns the quote for symbol, if present.
func (c *Cache) Get(symbol string) (common.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	return q, ok
}

// Snapshot returns a copy of every cached quote.
func (c *Cache) Snapshot() map[string]common.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]common.Quote, len(c.quotes))
	for s, q := range c.quotes {
		out[s] = q
	}
	return out
}
