package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. A Runner backed by it relaxes every scene from
// scratch, which is what --no-cache and the "none" backend select.
type NullCache struct{}

// NewNullCache returns a cache on which every frame lookup misses.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get reports a miss for every key.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set drops data.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
