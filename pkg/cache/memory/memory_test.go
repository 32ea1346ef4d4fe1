package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/cache/mock"
)

var epoch = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*MemoryCache, *mock.ManualClock) {
	t.Helper()
	clock := mock.NewManualClock(epoch)
	c := NewMemoryCache(MemoryCacheConfig{
		Name:       "test",
		DefaultTTL: time.Hour,
		Clock:      clock,
	})
	t.Cleanup(func() { c.Close() })
	return c, clock
}

func TestMemoryCache_Get(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	// Test Get non-existent key
	_, err := c.Get(ctx, "nonexistent")
	if !cache.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound for non-existent key, got %v", err)
	}

	// Test Set and Get
	if err := c.Set(ctx, "all-games", "value1", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := c.Get(ctx, "all-games")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "value1" {
		t.Errorf("Expected 'value1', got %v", value)
	}
}

func TestMemoryCache_SetOverwrites(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "game-tetris", "v1", time.Minute)
	clock.Advance(50 * time.Second)
	c.Set(ctx, "game-tetris", "v2", time.Minute)
	clock.Advance(50 * time.Second)

	value, err := c.Get(ctx, "game-tetris")
	if err != nil {
		t.Fatalf("Overwrite should reset the stored time: %v", err)
	}
	if value != "v2" {
		t.Errorf("Expected 'v2', got %v", value)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "key1", "value1", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := c.Get(ctx, "key1"); !cache.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound after delete, got %v", err)
	}

	// Deleting a missing key is fine
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestMemoryCache_ReadTimeExpiry(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "hot-games-8", "value1", 2*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	tests := []struct {
		name    string
		advance time.Duration
		found   bool
	}{
		{"immediately", 0, true},
		{"just before TTL", 2*time.Minute - time.Millisecond, true},
		{"at TTL", time.Millisecond, false},
	}

	for _, tt := range tests {
		clock.Advance(tt.advance)
		_, err := c.Get(ctx, "hot-games-8")
		if tt.found && err != nil {
			t.Errorf("%s: expected hit, got %v", tt.name, err)
		}
		if !tt.found && !cache.IsNotFound(err) {
			t.Errorf("%s: expected miss, got %v", tt.name, err)
		}
	}

	if c.Stats().Size != 0 {
		t.Error("Expired entry should be dropped on read")
	}
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for _, key := range []string{"game-a", "game-b", "games-category-io", "hot-games-8", "all-games"} {
		c.Set(ctx, key, key, 0)
	}

	removed, err := c.DeletePrefix(ctx, "game-")
	if err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	expected := []string{"all-games", "games-category-io", "hot-games-8"}
	keys := c.Keys()
	if strings.Join(keys, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected keys %v, got %v", expected, keys)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if len(c.Keys()) != 0 {
		t.Errorf("Expected empty cache after Clear, got %v", c.Keys())
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "new-games-8", "v", 5*time.Minute)
	clock.Advance(2 * time.Minute)

	remaining, err := c.TTL(ctx, "new-games-8")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if remaining != 3*time.Minute {
		t.Errorf("Expected 3m remaining, got %v", remaining)
	}

	clock.Advance(3 * time.Minute)
	if _, err := c.TTL(ctx, "new-games-8"); !cache.IsNotFound(err) {
		t.Errorf("Expected ErrKeyNotFound for expired TTL, got %v", err)
	}
}

func TestMemoryCache_NoSizeBound(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 5000; i++ {
		c.Set(ctx, "game-"+strconv.Itoa(i), i, 0)
	}
	if c.Stats().Size != 5000 {
		t.Errorf("Expected all 5000 entries to be kept, got %d", c.Stats().Size)
	}
}

func TestMemoryCache_Sweep(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "short", 1, time.Second)
	c.Set(ctx, "long", 2, time.Hour)
	clock.Advance(time.Minute)

	if stats := c.Stats(); stats.Expired != 1 {
		t.Errorf("Expected 1 expired entry awaiting sweep, got %d", stats.Expired)
	}
	if removed := c.removeExpired(); removed != 1 {
		t.Errorf("Expected sweep to remove 1 entry, got %d", removed)
	}
	if _, err := c.Get(ctx, "long"); err != nil {
		t.Errorf("Sweep removed a live entry: %v", err)
	}
}

func TestMemoryCache_BackgroundCleanup(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{
		Name:            "test",
		CleanupInterval: 10 * time.Millisecond,
	})
	defer c.Close()

	ctx := context.Background()
	c.Set(ctx, "key1", "value1", 20*time.Millisecond)

	time.Sleep(100 * time.Millisecond)

	if c.Stats().Size != 0 {
		t.Error("Expected background sweep to reclaim expired entry")
	}
}

func TestMemoryCache_Closed(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{Name: "test"})
	ctx := context.Background()

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	if err := c.Set(ctx, "k", "v", 0); err != cache.ErrClosed {
		t.Errorf("Expected ErrClosed from Set, got %v", err)
	}
	if _, err := c.Get(ctx, "k"); err != cache.ErrClosed {
		t.Errorf("Expected ErrClosed from Get, got %v", err)
	}
}

func TestMemoryCache_Concurrency(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{
		Name:            "test",
		DefaultTTL:      time.Hour,
		CleanupInterval: time.Millisecond,
	})
	defer c.Close()

	ctx := context.Background()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			key := "game-" + strconv.Itoa(id)
			value := "value" + strconv.Itoa(id)

			if err := c.Set(ctx, key, value, 0); err != nil {
				t.Errorf("Concurrent Set failed: %v", err)
			}

			got, err := c.Get(ctx, key)
			if err != nil {
				t.Errorf("Concurrent Get failed: %v", err)
			}
			if got != value {
				t.Errorf("Concurrent Get got %v, expected %v", got, value)
			}

			if _, err := c.DeletePrefix(ctx, key); err != nil {
				t.Errorf("Concurrent DeletePrefix failed: %v", err)
			}
		}(i)
	}

	wg.Wait()
}

func TestMemoryCache_KeyValidation(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	invalidKeys := []string{
		"",                       // empty
		" leading",               // leading space
		"key\twith\ttabs",        // tabs
		"key\nwith\nnewlines",    // newlines
		strings.Repeat("a", 251), // too long
	}

	for _, key := range invalidKeys {
		if err := c.Set(ctx, key, "value", 0); err == nil {
			t.Errorf("Expected error for invalid key: %q", key)
		}

		if _, err := c.Get(ctx, key); err == nil {
			t.Errorf("Expected error for invalid key: %q", key)
		}

		if err := c.Delete(ctx, key); err == nil {
			t.Errorf("Expected error for invalid key: %q", key)
		}
	}
}

func TestMemoryCache_Name(t *testing.T) {
	c := NewMemoryCache(MemoryCacheConfig{Name: "my-cache"})
	defer c.Close()

	if c.Name() != "my-cache" {
		t.Errorf("Expected name 'my-cache', got %q", c.Name())
	}
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	c := NewMemoryCache(MemoryCacheConfig{Name: "bench", DefaultTTL: time.Hour})
	defer c.Close()

	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		c.Set(ctx, "game-"+strconv.Itoa(i), i, 0)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Get(ctx, "game-"+strconv.Itoa(i%1000))
			i++
		}
	})
}

func BenchmarkMemoryCache_Set(b *testing.B) {
	c := NewMemoryCache(MemoryCacheConfig{Name: "bench", DefaultTTL: time.Hour})
	defer c.Close()

	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Set(ctx, "game-"+strconv.Itoa(i%1000), i, 0)
			i++
		}
	})
}
