package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is the fallback used when no redis address is configured,
// keeping single-binary deployments dependency free.
type MemoryCache struct {
	store *gocache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: gocache.New(5*time.Minute, 10*time.Minute),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	if v, ok := c.store.Get(key); ok {
		return v.(string), nil
	}
	return "", nil
}

func (c *MemoryCache) SetEx(ctx context.Context, key, value string, expiresAt time.Duration) error {
	c.store.Set(key, value, expiresAt)
	return nil
}

func (c *MemoryCache) Del(ctx context.Context, key string) error {
	c.store.Delete(key)
	return nil
}
