package chain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"
	"gamehub/pkg/resilience"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Chain manages multiple cache layers with automatic fallback and warm-up.
// Layers are ordered from fastest (L1) to slowest (LN). Chain itself
// satisfies cache.CacheLayer, so callers can use one layer or many.
type Chain struct {
	layers  []*resilience.ResilientLayer
	sf      singleflight.Group
	config  ChainConfig
	metrics metrics.MetricsCollector
	logger  *logging.Logger

	// mu is held exclusively by invalidations and shared by warm-ups,
	// so a warm-up can never write a key back after it was evicted.
	mu  sync.RWMutex
	gen atomic.Uint64
}

// ChainConfig configures a Chain.
type ChainConfig struct {
	// TTLStrategy decides per-layer TTLs on Set (default: uniform)
	TTLStrategy TTLStrategy

	// Resilience builds the resilience config for the layer at index i.
	// Default: 100ms timeout for L1, 1s for deeper layers.
	Resilience func(i int) resilience.ResilientConfig

	// WarmTTL is used when a lower layer cannot report the remaining TTL
	// of a hit (default: 1 minute)
	WarmTTL time.Duration

	Metrics metrics.MetricsCollector
	Logger  *logging.Logger
}

func defaultResilience(i int) resilience.ResilientConfig {
	if i == 0 {
		return resilience.DefaultResilientConfig().WithTimeout(100 * time.Millisecond)
	}
	return resilience.DefaultResilientConfig().WithTimeout(time.Second)
}

// New creates a new chain of cache layers with default configuration.
// Layers should be ordered from fastest to slowest (L1 to LN).
// Returns an error if no layers are provided.
func New(layers ...cache.CacheLayer) (*Chain, error) {
	return NewWithConfig(ChainConfig{}, layers...)
}

// NewWithConfig creates a chain with explicit configuration.
// All layers are wrapped with resilience protection.
func NewWithConfig(config ChainConfig, layers ...cache.CacheLayer) (*Chain, error) {
	if len(layers) == 0 {
		return nil, errors.New("chain: at least one layer required")
	}

	if config.TTLStrategy == nil {
		config.TTLStrategy = &UniformTTLStrategy{}
	}
	if config.Resilience == nil {
		config.Resilience = defaultResilience
	}
	if config.WarmTTL <= 0 {
		config.WarmTTL = time.Minute
	}

	collector := metrics.OrNoOp(config.Metrics)
	logger := logging.OrNop(config.Logger)

	resilientLayers := make([]*resilience.ResilientLayer, len(layers))
	for i, layer := range layers {
		resilientLayers[i] = resilience.NewResilientLayerWithMetrics(layer, config.Resilience(i), collector, logger)
	}

	return &Chain{
		layers:  resilientLayers,
		config:  config,
		metrics: collector,
		logger:  logger.Named("chain"),
	}, nil
}

// Get retrieves a value from the chain.
// It traverses layers in order until a hit, then synchronously warms upper layers.
// Concurrent Gets for the same key within one invalidation generation share a traversal.
func (c *Chain) Get(ctx context.Context, key string) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	gen := c.gen.Load()
	result, err, _ := c.sf.Do(strconv.FormatUint(gen, 10)+"|"+key, func() (interface{}, error) {
		return c.getWithFallback(ctx, key, gen)
	})

	return result, err
}

// getWithFallback performs the actual chain traversal and warm-up.
func (c *Chain) getWithFallback(ctx context.Context, key string, gen uint64) (interface{}, error) {
	start := time.Now()
	var lastErr error

	for i, layer := range c.layers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		value, err := layer.Get(ctx, key)
		if err != nil {
			// Misses and unavailable layers both fall through to the next layer
			lastErr = err
			continue
		}

		if i > 0 {
			c.warmUpperLayers(ctx, key, value, i, gen)
		}

		c.metrics.RecordChainGet(true, i, time.Since(start))
		return value, nil
	}

	c.metrics.RecordChainGet(false, -1, time.Since(start))

	if lastErr == nil || cache.IsNotFound(lastErr) {
		return nil, cache.ErrKeyNotFound
	}
	// A layer failure while the rest missed is still a miss to the caller.
	c.logger.Debug("chain miss with layer errors", zap.String("key", key), zap.Error(lastErr))
	return nil, cache.ErrKeyNotFound
}

// warmUpperLayers copies a hit into the layers above hitIndex with the
// lower layer's remaining TTL, so the copy never outlives the original.
func (c *Chain) warmUpperLayers(ctx context.Context, key string, value interface{}, hitIndex int, gen uint64) {
	ttl := c.config.WarmTTL
	if remaining, err := c.layers[hitIndex].TTL(ctx, key); err == nil && remaining > 0 {
		ttl = remaining
	} else if cache.IsNotFound(err) {
		// Expired between Get and TTL.
		return
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gen.Load() != gen {
		return
	}

	for i := hitIndex - 1; i >= 0; i-- {
		if err := c.layers[i].Set(ctx, key, value, ttl); err != nil {
			c.logger.Debug("warm-up failed",
				zap.String("layer", c.layers[i].Name()),
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

// Set writes the value to all layers in the chain.
// If any layer fails, the errors are joined but other layers are still attempted.
func (c *Chain) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var errs []error

	for i, layer := range c.layers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		layerTTL := c.config.TTLStrategy.GetTTL(i, len(c.layers), ttl)
		if err := layer.Set(ctx, key, value, layerTTL); err != nil {
			errs = append(errs, cache.WrapError(err, layer.Name(), "set"))
		}
	}

	return errors.Join(errs...)
}

// invalidate runs fn against every layer while holding the invalidation lock.
func (c *Chain) invalidate(ctx context.Context, fn func(layer cache.CacheLayer) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen.Add(1)

	var errs []error
	for _, layer := range c.layers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(layer); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Delete removes the key from all layers in the chain.
func (c *Chain) Delete(ctx context.Context, key string) error {
	return c.invalidate(ctx, func(layer cache.CacheLayer) error {
		return cache.WrapError(layer.Delete(ctx, key), layer.Name(), "delete")
	})
}

// DeletePrefix removes every key under prefix from all layers.
// The count reported is the largest removed from any single layer.
func (c *Chain) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	removed := 0
	err := c.invalidate(ctx, func(layer cache.CacheLayer) error {
		n, err := layer.DeletePrefix(ctx, prefix)
		if n > removed {
			removed = n
		}
		return cache.WrapError(err, layer.Name(), "delete prefix")
	})
	return removed, err
}

// Clear empties every layer.
func (c *Chain) Clear(ctx context.Context) error {
	return c.invalidate(ctx, func(layer cache.CacheLayer) error {
		return cache.WrapError(layer.Clear(ctx), layer.Name(), "clear")
	})
}

// TTL reports the remaining lifetime of key in the first layer holding it.
func (c *Chain) TTL(ctx context.Context, key string) (time.Duration, error) {
	for _, layer := range c.layers {
		ttl, err := layer.TTL(ctx, key)
		if err == nil && ttl > 0 {
			return ttl, nil
		}
	}
	return 0, cache.ErrKeyNotFound
}

// Name returns the chain's layer names joined with "+".
func (c *Chain) Name() string {
	names := make([]string, len(c.layers))
	for i, layer := range c.layers {
		names[i] = layer.Name()
	}
	return strings.Join(names, "+")
}

// Close closes all layers in the chain.
// Returns the joined errors, but attempts to close all layers.
func (c *Chain) Close() error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Layers returns a copy of the layers slice for inspection.
func (c *Chain) Layers() []cache.CacheLayer {
	layers := make([]cache.CacheLayer, len(c.layers))
	for i, layer := range c.layers {
		layers[i] = layer
	}
	return layers
}

// Len returns the number of layers in the chain.
func (c *Chain) Len() int {
	return len(c.layers)
}

// String returns a string representation of the chain.
func (c *Chain) String() string {
	return fmt.Sprintf("chain(%d layers): %s", len(c.layers), strings.Join(strings.Split(c.Name(), "+"), " -> "))
}
