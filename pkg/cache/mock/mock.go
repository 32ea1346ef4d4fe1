package mock

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gamehub/pkg/cache"
)

// MockLayer is a mock implementation of CacheLayer for testing.
// It allows injecting custom behavior for each method and tracks call counts.
type MockLayer struct {
	// Function hooks - set these to customize behavior
	GetFunc          func(ctx context.Context, key string) (interface{}, error)
	SetFunc          func(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteFunc       func(ctx context.Context, key string) error
	DeletePrefixFunc func(ctx context.Context, prefix string) (int, error)
	ClearFunc        func(ctx context.Context) error
	NameFunc         func() string
	CloseFunc        func() error

	// Call tracking (must use atomic operations for race-free access)
	getCalls          int64
	setCalls          int64
	deleteCalls       int64
	deletePrefixCalls int64
	clearCalls        int64
	closeCalls        int64
}

// Get implements CacheLayer.Get with optional custom behavior.
func (m *MockLayer) Get(ctx context.Context, key string) (interface{}, error) {
	atomic.AddInt64(&m.getCalls, 1)
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, cache.ErrKeyNotFound
}

// Set implements CacheLayer.Set with optional custom behavior.
func (m *MockLayer) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	atomic.AddInt64(&m.setCalls, 1)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, ttl)
	}
	return nil
}

// Delete implements CacheLayer.Delete with optional custom behavior.
func (m *MockLayer) Delete(ctx context.Context, key string) error {
	atomic.AddInt64(&m.deleteCalls, 1)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	return nil
}

// DeletePrefix implements CacheLayer.DeletePrefix with optional custom behavior.
func (m *MockLayer) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	atomic.AddInt64(&m.deletePrefixCalls, 1)
	if m.DeletePrefixFunc != nil {
		return m.DeletePrefixFunc(ctx, prefix)
	}
	return 0, nil
}

// Clear implements CacheLayer.Clear with optional custom behavior.
func (m *MockLayer) Clear(ctx context.Context) error {
	atomic.AddInt64(&m.clearCalls, 1)
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}

// Name implements CacheLayer.Name with optional custom behavior.
func (m *MockLayer) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

// GetCalls returns the number of Get calls (thread-safe).
func (m *MockLayer) GetCalls() int {
	return int(atomic.LoadInt64(&m.getCalls))
}

// SetCalls returns the number of Set calls (thread-safe).
func (m *MockLayer) SetCalls() int {
	return int(atomic.LoadInt64(&m.setCalls))
}

// DeleteCalls returns the number of Delete calls (thread-safe).
func (m *MockLayer) DeleteCalls() int {
	return int(atomic.LoadInt64(&m.deleteCalls))
}

// DeletePrefixCalls returns the number of DeletePrefix calls (thread-safe).
func (m *MockLayer) DeletePrefixCalls() int {
	return int(atomic.LoadInt64(&m.deletePrefixCalls))
}

// ClearCalls returns the number of Clear calls (thread-safe).
func (m *MockLayer) ClearCalls() int {
	return int(atomic.LoadInt64(&m.clearCalls))
}

// CloseCalls returns the number of Close calls (thread-safe).
func (m *MockLayer) CloseCalls() int {
	return int(atomic.LoadInt64(&m.closeCalls))
}

// Close implements CacheLayer.Close with optional custom behavior.
func (m *MockLayer) Close() error {
	atomic.AddInt64(&m.closeCalls, 1)
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// NewMockLayer creates a new MockLayer that misses on every Get.
func NewMockLayer(name string) *MockLayer {
	return &MockLayer{
		NameFunc: func() string { return name },
	}
}

// ManualClock is a cache.Clock whose time only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the frozen time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
