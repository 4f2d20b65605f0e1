package fx

import (
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCacheTTL is how long a fetched rate stays valid.
const DefaultCacheTTL = time.Hour

// Clock returns the current time.
type Clock func() time.Time

type cachedRate struct {
	rate     decimal.Decimal
	cachedAt time.Time
}

// Cache holds exchange rates for a fixed time-to-live.
// Expired entries are evicted when read. Safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	ttl   time.Duration
	clock Clock
	rates map[string]cachedRate
}

// NewCache creates a cache. A non-positive ttl means DefaultCacheTTL and a nil clock means time.Now.
func NewCache(ttl time.Duration, clock Clock) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		ttl:   ttl,
		clock: clock,
		rates: make(map[string]cachedRate),
	}
}

// Key builds the cache key for a currency pair, e.g. "EUR->ILS".
func Key(from, to string) string {
	return strings.ToUpper(from) + "->" + strings.ToUpper(to)
}

// Get returns a cached rate that is younger than the TTL.
func (c *Cache) Get(key string) (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.rates[key]
	if !ok {
		return decimal.Zero, false
	}
	if c.clock().Sub(entry.cachedAt) >= c.ttl {
		delete(c.rates, key)
		return decimal.Zero, false
	}
	return entry.rate, true
}

// Set stores a rate stamped with the current clock time.
func (c *Cache) Set(key string, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[key] = cachedRate{rate: rate, cachedAt: c.clock()}
}

// Clear drops every cached rate.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = make(map[string]cachedRate)
}

// Len reports how many entries are stored, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rates)
}
