package geocode

import (
	"context"

	"go.uber.org/zap"
)

// CachedClient is a cache-first Provider: cache hits (including cached
// non-matches) never reach the backing provider.
type CachedClient struct {
	provider Provider
	cache    *Cache
}

// NewCachedClient wraps a provider with a cache. A nil cache degrades to
// pass-through lookups.
func NewCachedClient(provider Provider, cache *Cache) *CachedClient {
	return &CachedClient{provider: provider, cache: cache}
}

// ReverseGeocode answers from the cache when possible, otherwise queries the
// provider and stores the result. Cache write failures are logged, not
// returned: a lost cache entry only costs a future lookup.
func (c *CachedClient) ReverseGeocode(ctx context.Context, lat, lon float64) (*Result, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, lat, lon)
		if err != nil {
			zap.L().Warn("geocode: cache read failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	result, err := c.provider.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, lat, lon, result); err != nil {
			zap.L().Warn("geocode: cache write failed", zap.Error(err))
		}
	}
	return result, nil
}
