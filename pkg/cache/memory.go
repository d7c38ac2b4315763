// pkg/cache/memory.go
package cache

import (
	"context"
	"sync"
)

type memCache struct {
	mu sync.RWMutex
	m  map[string][]byte
}

func NewMemory() Cache {
	return &memCache{m: map[string][]byte{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	c.mu.Lock()
	c.m[key] = cp
	c.mu.Unlock()
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
	return nil
}
