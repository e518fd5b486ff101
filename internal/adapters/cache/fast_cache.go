package cache

import (
	"fmt"
	"time"

	"ratecache/internal/domain"

	"github.com/dgraph-io/ristretto"
)

// RistrettoRateCache is the short-lived in-memory layer in front of the
// rate store. Entries expire on their own; the conversion service also
// clears the whole layer after a rebase, since every cached value predates
// the new base currency.
type RistrettoRateCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewRateCache(maxItems int64, ttl time.Duration) (*RistrettoRateCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10 * maxItems,
		MaxCost:     maxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create rate cache failed: %w", err)
	}
	return &RistrettoRateCache{cache: c, ttl: ttl}, nil
}

func (c *RistrettoRateCache) Get(key string) (domain.Rate, bool) {
	if v, ok := c.cache.Get(key); ok {
		rate, ok := v.(domain.Rate)
		return rate, ok
	}
	return domain.Rate{}, false
}

func (c *RistrettoRateCache) Set(key string, rate domain.Rate) {
	c.cache.SetWithTTL(key, rate, 1, c.ttl)
}

func (c *RistrettoRateCache) Clear() { c.cache.Clear() }

func (c *RistrettoRateCache) Close() { c.cache.Close() }
