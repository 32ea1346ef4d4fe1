package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gamehub/pkg/cache"
)

// MemoryCache is an in-memory cache implementation that satisfies the CacheLayer interface.
// Expiry is decided at read time against the injected clock; the optional
// background sweep only reclaims memory and never changes what Get returns.
// There is no size bound.
type MemoryCache struct {
	// data stores the cache entries
	data map[string]*cache.CacheEntry

	// mu protects concurrent access to data
	mu sync.RWMutex

	// config holds the cache configuration
	config MemoryCacheConfig

	// closed is set once Close has run
	closed bool

	// stopCleanup is used to signal cleanup goroutine to stop
	stopCleanup chan struct{}

	// wg waits for cleanup goroutine to finish
	wg sync.WaitGroup
}

// MemoryCacheConfig holds configuration for the memory cache
type MemoryCacheConfig struct {
	// Name is the cache layer identifier
	Name string

	// DefaultTTL is used when Set receives a non-positive TTL
	DefaultTTL time.Duration

	// CleanupInterval is how often to sweep expired entries (0 = never)
	CleanupInterval time.Duration

	// Clock supplies the current time. Defaults to the system clock.
	Clock cache.Clock
}

// NewMemoryCache creates a new in-memory cache with the given configuration.
// A sweep goroutine is started only when CleanupInterval is positive.
func NewMemoryCache(config MemoryCacheConfig) *MemoryCache {
	if config.Name == "" {
		config.Name = "memory"
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = time.Hour
	}
	if config.Clock == nil {
		config.Clock = cache.SystemClock{}
	}

	c := &MemoryCache{
		data:        make(map[string]*cache.CacheEntry),
		config:      config,
		stopCleanup: make(chan struct{}),
	}

	if config.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.cleanup(config.CleanupInterval)
	}

	return c
}

// Get retrieves a value from the cache.
// An entry whose TTL has lapsed is removed and reported as cache.ErrKeyNotFound.
func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, err
	}

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, cache.ErrClosed
	}
	e, exists := c.data[key]
	c.mu.RUnlock()

	if !exists {
		return nil, cache.ErrKeyNotFound
	}

	if e.IsExpired(c.config.Clock.Now()) {
		c.mu.Lock()
		// A concurrent Set may have replaced the entry.
		if cur, ok := c.data[key]; ok && cur == e {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, cache.ErrKeyNotFound
	}

	return e.Value, nil
}

// Set stores a value in the cache with the specified TTL.
// If ttl is not positive, uses the default TTL.
func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return cache.ErrClosed
	}

	c.data[key] = &cache.CacheEntry{
		Key:      key,
		Value:    value,
		StoredAt: c.config.Clock.Now(),
		TTL:      ttl,
	}

	return nil
}

// Delete removes a key from the cache.
// Returns nil even if the key doesn't exist.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return cache.ErrClosed
	}
	delete(c.data, key)

	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
// Expired entries are counted too; they were still occupying the map.
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, cache.ErrClosed
	}

	removed := 0
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
			removed++
		}
	}
	return removed, nil
}

// Clear drops every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return cache.ErrClosed
	}
	c.data = make(map[string]*cache.CacheEntry)
	return nil
}

// TTL reports the remaining lifetime of key.
func (c *MemoryCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return 0, cache.ErrClosed
	}

	e, exists := c.data[key]
	if !exists {
		return 0, cache.ErrKeyNotFound
	}

	remaining := e.TimeToLive(c.config.Clock.Now())
	if remaining <= 0 {
		return 0, cache.ErrKeyNotFound
	}
	return remaining, nil
}

// Keys returns the sorted keys of all live entries.
func (c *MemoryCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.config.Clock.Now()
	keys := make([]string, 0, len(c.data))
	for key, e := range c.data {
		if !e.IsExpired(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Name returns the cache layer name.
func (c *MemoryCache) Name() string {
	return c.config.Name
}

// Close stops the background cleanup goroutine and clears all data.
// Calling Close more than once is a no-op.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.data = nil
	c.mu.Unlock()

	close(c.stopCleanup)
	c.wg.Wait()

	return nil
}

// cleanup runs in a background goroutine to remove expired entries.
func (c *MemoryCache) cleanup(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// removeExpired removes all expired entries from the cache.
func (c *MemoryCache) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.config.Clock.Now()
	removed := 0
	for key, e := range c.data {
		if e.IsExpired(now) {
			delete(c.data, key)
			removed++
		}
	}
	return removed
}

// Stats returns current cache statistics.
func (c *MemoryCache) Stats() MemoryCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.config.Clock.Now()
	stats := MemoryCacheStats{Size: len(c.data)}
	for _, e := range c.data {
		if e.IsExpired(now) {
			stats.Expired++
		}
	}
	return stats
}

// MemoryCacheStats holds cache statistics.
type MemoryCacheStats struct {
	Size    int // Entries held, including ones awaiting sweep
	Expired int // Entries past their TTL but not yet reclaimed
}
