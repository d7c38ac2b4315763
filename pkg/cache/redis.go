// pkg/cache/redis.go
package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis wraps an established client. prefix namespaces the bridge's keys
// so a shared instance can serve other services too.
func NewRedis(rdb *redis.Client, prefix string) Cache {
	return &redisCache{rdb: rdb, prefix: prefix}
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte) error {
	return c.rdb.Set(ctx, c.prefix+key, value, 0).Err()
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}
