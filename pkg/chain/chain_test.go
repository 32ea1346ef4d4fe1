package chain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/cache/memory"
	"gamehub/pkg/cache/mock"
	"gamehub/pkg/metrics"
	metricsmem "gamehub/pkg/metrics/memory"
	"gamehub/pkg/resilience"
)

var _ cache.CacheLayer = (*Chain)(nil)
var _ cache.TTLReporter = (*Chain)(nil)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newMemoryLayer(name string, clock cache.Clock) *memory.MemoryCache {
	return memory.NewMemoryCache(memory.MemoryCacheConfig{Name: name, Clock: clock})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		layers      []cache.CacheLayer
		expectError bool
		expectedLen int
	}{
		{
			name:        "empty layers",
			layers:      []cache.CacheLayer{},
			expectError: true,
		},
		{
			name:        "single layer",
			layers:      []cache.CacheLayer{mock.NewMockLayer("L1")},
			expectedLen: 1,
		},
		{
			name: "multiple layers",
			layers: []cache.CacheLayer{
				mock.NewMockLayer("L1"),
				mock.NewMockLayer("L2"),
				mock.NewMockLayer("L3"),
			},
			expectedLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain, err := New(tt.layers...)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if chain.Len() != tt.expectedLen {
				t.Errorf("Expected length %d, got %d", tt.expectedLen, chain.Len())
			}
		})
	}
}

func TestChain_Get_L1Hit(t *testing.T) {
	l1 := mock.NewMockLayer("L1")
	l1.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		return "value-from-l1", nil
	}

	l2 := mock.NewMockLayer("L2")

	chain, err := New(l1, l2)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}

	value, err := chain.Get(context.Background(), "key")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if value != "value-from-l1" {
		t.Errorf("Expected 'value-from-l1', got %v", value)
	}

	if l2.GetCalls() != 0 {
		t.Errorf("Expected L2 not to be called on L1 hit, got %d calls", l2.GetCalls())
	}
}

func TestChain_Get_L2HitWarmsL1(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	ctx := context.Background()

	if err := l2.Set(ctx, "game-tetris", "tetris", 10*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	chain, err := New(l1, l2)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}

	value, err := chain.Get(ctx, "game-tetris")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if value != "tetris" {
		t.Errorf("Expected 'tetris', got %v", value)
	}

	// Warm-up is synchronous, so L1 holds the value as soon as Get returns
	if v, err := l1.Get(ctx, "game-tetris"); err != nil || v != "tetris" {
		t.Errorf("Expected L1 to be warmed, got %v, %v", v, err)
	}
}

func TestChain_WarmUpKeepsRemainingTTL(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	ctx := context.Background()

	if err := l2.Set(ctx, "hot-games-8", []string{"a"}, 10*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	clock.Advance(4 * time.Minute)

	chain, _ := New(l1, l2)
	if _, err := chain.Get(ctx, "hot-games-8"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ttl, err := l1.TTL(ctx, "hot-games-8")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != 6*time.Minute {
		t.Errorf("Expected warmed TTL 6m, got %v", ttl)
	}

	// The copy expires together with the original
	clock.Advance(6 * time.Minute)
	if _, err := chain.Get(ctx, "hot-games-8"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Expected miss after original deadline, got %v", err)
	}
}

func TestChain_WarmUpFallsBackToWarmTTL(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)

	l2 := mock.NewMockLayer("L2")
	l2.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		return "from-l2", nil
	}

	chain, err := NewWithConfig(ChainConfig{WarmTTL: 30 * time.Second}, l1, l2)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}

	ctx := context.Background()
	if _, err := chain.Get(ctx, "key"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ttl, err := l1.TTL(ctx, "key")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != 30*time.Second {
		t.Errorf("Expected warm TTL 30s, got %v", ttl)
	}
}

func TestChain_WarmUpDoesNotResurrectDeletedKey(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)

	entered := make(chan struct{})
	release := make(chan struct{})

	l2 := mock.NewMockLayer("L2")
	l2.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		close(entered)
		<-release
		return "stale", nil
	}

	chain, _ := New(l1, l2)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := chain.Get(ctx, "all-games")
		done <- err
	}()

	<-entered
	if err := chain.Delete(ctx, "all-games"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if _, err := l1.Get(ctx, "all-games"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Expected L1 to stay empty after invalidation, got %v", err)
	}
}

func TestChain_Get_AllMiss(t *testing.T) {
	l1 := mock.NewMockLayer("L1")
	l2 := mock.NewMockLayer("L2")

	chain, _ := New(l1, l2)

	_, err := chain.Get(context.Background(), "missing")
	if !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestChain_Get_LayerErrorFallsThrough(t *testing.T) {
	l1 := mock.NewMockLayer("L1")
	l1.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		return nil, errors.New("connection refused")
	}

	l2 := mock.NewMockLayer("L2")
	l2.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		return "from-l2", nil
	}

	chain, _ := New(l1, l2)

	value, err := chain.Get(context.Background(), "key")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if value != "from-l2" {
		t.Errorf("Expected 'from-l2', got %v", value)
	}
}

func TestChain_Get_ErrorsOnlyIsMiss(t *testing.T) {
	l1 := mock.NewMockLayer("L1")
	l1.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		return nil, errors.New("connection refused")
	}

	chain, _ := New(l1)

	if _, err := chain.Get(context.Background(), "key"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestChain_Get_CancelledContext(t *testing.T) {
	chain, _ := New(mock.NewMockLayer("L1"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := chain.Get(ctx, "key"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestChain_Get_SingleFlight(t *testing.T) {
	var calls atomic.Int32

	l1 := mock.NewMockLayer("L1")
	l1.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)
		return "value", nil
	}

	chain, _ := New(l1)

	var wg sync.WaitGroup
	const n = 10
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := chain.Get(context.Background(), "key"); err != nil || v != "value" {
				t.Errorf("Expected 'value', got %v, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got >= n {
		t.Errorf("Expected coalesced lookups (< %d), got %d", n, got)
	}
}

func TestChain_Set(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	ctx := context.Background()

	chain, _ := New(l1, l2)

	if err := chain.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	for _, layer := range []*memory.MemoryCache{l1, l2} {
		if v, err := layer.Get(ctx, "key"); err != nil || v != "value" {
			t.Errorf("Expected %s to hold value, got %v, %v", layer.Name(), v, err)
		}
	}
}

func TestChain_Set_PartialFailure(t *testing.T) {
	l1 := mock.NewMockLayer("L1")
	l2 := mock.NewMockLayer("L2")
	l2.SetFunc = func(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
		return errors.New("l2 down")
	}
	l3 := mock.NewMockLayer("L3")

	chain, _ := New(l1, l2, l3)

	if err := chain.Set(context.Background(), "key", "value", time.Minute); err == nil {
		t.Error("Expected error from failing layer")
	}

	if l1.SetCalls() != 1 || l3.SetCalls() != 1 {
		t.Errorf("Expected all layers attempted, got L1=%d L3=%d", l1.SetCalls(), l3.SetCalls())
	}
}

func TestChain_WithDecayingTTLStrategy(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	l3 := newMemoryLayer("L3", clock)
	ctx := context.Background()

	chain, err := NewWithConfig(ChainConfig{
		TTLStrategy: &DecayingTTLStrategy{DecayFactor: 0.5},
	}, l1, l2, l3)
	if err != nil {
		t.Fatalf("Failed to create chain: %v", err)
	}

	if err := chain.Set(ctx, "key", "value", 8*time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	expected := map[*memory.MemoryCache]time.Duration{
		l1: 2 * time.Minute,
		l2: 4 * time.Minute,
		l3: 8 * time.Minute,
	}
	for layer, want := range expected {
		got, err := layer.TTL(ctx, "key")
		if err != nil {
			t.Fatalf("TTL on %s failed: %v", layer.Name(), err)
		}
		if got != want {
			t.Errorf("Expected %s TTL %v, got %v", layer.Name(), want, got)
		}
	}

	// L1 expires first, the chain still serves from L2
	clock.Advance(3 * time.Minute)
	if _, err := l1.Get(ctx, "key"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Expected L1 expired, got %v", err)
	}
	if v, err := chain.Get(ctx, "key"); err != nil || v != "value" {
		t.Errorf("Expected chain to serve from L2, got %v, %v", v, err)
	}
}

func TestChain_Delete(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	ctx := context.Background()

	chain, _ := New(l1, l2)
	_ = chain.Set(ctx, "key", "value", time.Minute)

	if err := chain.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := chain.Get(ctx, "key"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Expected miss after delete, got %v", err)
	}
}

func TestChain_DeletePrefix(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	ctx := context.Background()

	chain, _ := New(l1, l2)
	_ = chain.Set(ctx, "hot-games-8", "a", time.Minute)
	_ = chain.Set(ctx, "hot-games-12", "b", time.Minute)
	_ = l2.Set(ctx, "hot-games-20", "c", time.Minute)
	_ = chain.Set(ctx, "all-categories", "d", time.Minute)

	removed, err := chain.DeletePrefix(ctx, "hot-games-")
	if err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 removed from the fullest layer, got %d", removed)
	}

	for _, key := range []string{"hot-games-8", "hot-games-12", "hot-games-20"} {
		if _, err := chain.Get(ctx, key); !errors.Is(err, cache.ErrKeyNotFound) {
			t.Errorf("Expected %s removed, got %v", key, err)
		}
	}
	if _, err := chain.Get(ctx, "all-categories"); err != nil {
		t.Errorf("Expected unrelated key kept, got %v", err)
	}
}

func TestChain_Clear(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	ctx := context.Background()

	chain, _ := New(l1, l2)
	_ = chain.Set(ctx, "a", 1, time.Minute)
	_ = chain.Set(ctx, "b", 2, time.Minute)

	if err := chain.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if len(l1.Keys()) != 0 || len(l2.Keys()) != 0 {
		t.Errorf("Expected empty layers, got %v and %v", l1.Keys(), l2.Keys())
	}
}

func TestChain_NamespaceInvalidation(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	l2 := newMemoryLayer("L2", clock)
	ctx := context.Background()

	chain, _ := New(l1, l2)
	for _, key := range []string{"all-games", "game-tetris", "hot-games-8", "all-categories"} {
		_ = chain.Set(ctx, key, key, time.Minute)
	}

	ns := cache.Namespace{
		Name:     "games",
		Keys:     []string{"all-games"},
		Prefixes: []string{"game-", "hot-games-"},
	}
	if _, err := ns.Invalidate(ctx, chain); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if keys := l2.Keys(); len(keys) != 1 || keys[0] != "all-categories" {
		t.Errorf("Expected only all-categories left, got %v", keys)
	}
}

func TestChain_TTL(t *testing.T) {
	clock := mock.NewManualClock(epoch)
	l1 := newMemoryLayer("L1", clock)
	ctx := context.Background()

	chain, _ := New(l1)
	_ = chain.Set(ctx, "key", "value", 5*time.Minute)
	clock.Advance(time.Minute)

	ttl, err := chain.TTL(ctx, "key")
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != 4*time.Minute {
		t.Errorf("Expected 4m, got %v", ttl)
	}

	if _, err := chain.TTL(ctx, "missing"); !errors.Is(err, cache.ErrKeyNotFound) {
		t.Errorf("Expected ErrKeyNotFound, got %v", err)
	}
}

func TestChain_WithMetrics(t *testing.T) {
	collector := metricsmem.NewMemoryCollector()

	l1 := mock.NewMockLayer("L1")
	l2 := mock.NewMockLayer("L2")
	l2.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		if key == "present" {
			return "value", nil
		}
		return nil, cache.ErrKeyNotFound
	}

	chain, _ := NewWithConfig(ChainConfig{Metrics: collector}, l1, l2)
	ctx := context.Background()

	_, _ = chain.Get(ctx, "present")
	_, _ = chain.Get(ctx, "absent")

	snapshot := collector.Snapshot()
	if snapshot.ChainHits != 1 {
		t.Errorf("Expected 1 chain hit, got %d", snapshot.ChainHits)
	}
	if snapshot.ChainMisses != 1 {
		t.Errorf("Expected 1 chain miss, got %d", snapshot.ChainMisses)
	}
	if snapshot.ChainHitsByLayer[1] != 1 {
		t.Errorf("Expected hit at layer index 1, got %v", snapshot.ChainHitsByLayer)
	}

	if lm := collector.GetLayerMetrics("L1"); lm == nil || lm.Misses != 2 {
		t.Errorf("Expected 2 L1 misses, got %+v", lm)
	}
}

func TestChain_CircuitOpensOnFailingLayer(t *testing.T) {
	l1 := mock.NewMockLayer("L1")
	l1.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		return nil, errors.New("l1 broken")
	}
	l1.SetFunc = func(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
		return errors.New("l1 broken")
	}

	l2 := mock.NewMockLayer("L2")
	l2.GetFunc = func(ctx context.Context, key string) (interface{}, error) {
		return "from-l2", nil
	}

	chain, _ := NewWithConfig(ChainConfig{
		Resilience: func(i int) resilience.ResilientConfig {
			return resilience.DefaultResilientConfig()
		},
	}, l1, l2)

	for i := 0; i < 10; i++ {
		if v, err := chain.Get(context.Background(), "key"); err != nil || v != "from-l2" {
			t.Fatalf("Expected fallback to L2, got %v, %v", v, err)
		}
	}

	rl, ok := chain.Layers()[0].(*resilience.ResilientLayer)
	if !ok {
		t.Fatal("Expected resilient layer")
	}
	if rl.State() != metrics.CircuitOpen {
		t.Errorf("Expected circuit open, got %v", rl.State())
	}

	// Once open, L1 is not called any more
	if l1.GetCalls() >= 10 {
		t.Errorf("Expected open circuit to short-circuit L1, got %d calls", l1.GetCalls())
	}
}

func TestChain_Close(t *testing.T) {
	l1 := mock.NewMockLayer("L1")
	l2 := mock.NewMockLayer("L2")
	l2.CloseFunc = func() error { return errors.New("close failed") }
	l3 := mock.NewMockLayer("L3")

	chain, _ := New(l1, l2, l3)

	if err := chain.Close(); err == nil {
		t.Error("Expected close error")
	}

	for _, l := range []*mock.MockLayer{l1, l2, l3} {
		if l.CloseCalls() != 1 {
			t.Errorf("Expected %s closed once, got %d", l.Name(), l.CloseCalls())
		}
	}
}

func TestChain_Layers(t *testing.T) {
	chain, _ := New(mock.NewMockLayer("L1"), mock.NewMockLayer("L2"))

	layers := chain.Layers()
	if len(layers) != 2 {
		t.Fatalf("Expected 2 layers, got %d", len(layers))
	}
	if layers[0].Name() != "L1" || layers[1].Name() != "L2" {
		t.Errorf("Expected L1, L2 order, got %s, %s", layers[0].Name(), layers[1].Name())
	}
}

func TestChain_String(t *testing.T) {
	chain, _ := New(mock.NewMockLayer("L1"), mock.NewMockLayer("L2"))

	if got := chain.Name(); got != "L1+L2" {
		t.Errorf("Expected name 'L1+L2', got %q", got)
	}
	if got := chain.String(); got != "chain(2 layers): L1 -> L2" {
		t.Errorf("Expected 'chain(2 layers): L1 -> L2', got %q", got)
	}
}
