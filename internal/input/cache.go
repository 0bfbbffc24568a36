// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ansible Policy Contributors

package input

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache memoizes loader results by (target type, path) for one run.
// Concurrent callers asking for the same key share a single load.
type Cache struct {
	mu      sync.RWMutex
	entries map[string][]*Record
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string][]*Record)}
}

func cacheKey(targetType, path string) string {
	return targetType + "\x00" + path
}

// Load returns the cached records for the key or loads them with l.
// Errors are not cached.
func (c *Cache) Load(ctx context.Context, l Loader, targetType, path string) ([]*Record, error) {
	key := cacheKey(targetType, path)

	c.mu.RLock()
	recs, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return recs, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		recs, err := l.Load(ctx, targetType, path)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = recs
		c.mu.Unlock()
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Record), nil
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
