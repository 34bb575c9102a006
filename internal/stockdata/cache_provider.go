package stockdata

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss is returned by providers when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider stores JSON-encodable values with an expiration.
type CacheProvider interface {
	Get(key string, dest any) error
	Set(key string, value any, expiration time.Duration) error
	Delete(key string) error
}

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// MemoryCache is the default process-local CacheProvider.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]memoryItem{}}
}

func (c *MemoryCache) Get(key string, dest any) error {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || len(item.data) == 0 {
		return ErrCacheMiss
	}

	if !item.expiresAt.IsZero() && timeNow().After(item.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return ErrCacheMiss
	}
	return json.Unmarshal(item.data, dest)
}

func (c *MemoryCache) Set(key string, value any, expiration time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if expiration > 0 {
		expiresAt = timeNow().Add(expiration)
	}

	c.mu.Lock()
	c.items[key] = memoryItem{data: b, expiresAt: expiresAt}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

var (
	cacheMu       sync.RWMutex
	cacheProvider CacheProvider = NewMemoryCache()
)

// SetCacheProvider swaps the history cache; nil restores the in-memory one.
func SetCacheProvider(p CacheProvider) {
	if p == nil {
		p = NewMemoryCache()
	}
	cacheMu.Lock()
	cacheProvider = p
	cacheMu.Unlock()
}

func getCacheProvider() CacheProvider {
	cacheMu.RLock()
	defer cacheMu.RUnlock()
	return cacheProvider
}
