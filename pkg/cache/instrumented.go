package cache

import (
	"context"
	"time"

	"github.com/matzehuels/docktree/pkg/observability"
)

// Instrumented reports hits, misses and writes of c to the registered
// [observability.CacheHooks]. Key types come from [KeyType].
func Instrumented(c Cache) Cache {
	return &instrumented{Cache: c}
}

type instrumented struct {
	Cache
}

func (c *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, hit, err := c.Cache.Get(ctx, key)
	if err == nil {
		if hit {
			observability.Cache().OnCacheHit(ctx, KeyType(key))
		} else {
			observability.Cache().OnCacheMiss(ctx, KeyType(key))
		}
	}
	return data, hit, err
}

func (c *instrumented) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.Cache.Set(ctx, key, data, ttl)
	if err == nil {
		observability.Cache().OnCacheSet(ctx, KeyType(key), len(data))
	}
	return err
}

func (c *instrumented) Clear(ctx context.Context) error {
	return Clear(ctx, c.Cache)
}
