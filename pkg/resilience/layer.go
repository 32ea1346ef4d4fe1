package resilience

import (
	"context"
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ResilientLayer wraps a CacheLayer with resilience features including
// circuit breaker and timeout protection. Cache misses count as successes
// so a cold cache never trips the breaker.
type ResilientLayer struct {
	layer   cache.CacheLayer
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	metrics metrics.MetricsCollector
	logger  *logging.Logger
}

// NewResilientLayer creates a new resilient layer wrapper around the given cache layer.
// It adds circuit breaker protection and timeout enforcement to all operations.
func NewResilientLayer(layer cache.CacheLayer, config ResilientConfig) *ResilientLayer {
	return NewResilientLayerWithMetrics(layer, config, nil, nil)
}

// NewResilientLayerWithMetrics creates a new resilient layer with a metrics collector and logger.
// Nil arguments fall back to no-op implementations.
func NewResilientLayerWithMetrics(layer cache.CacheLayer, config ResilientConfig, collector metrics.MetricsCollector, logger *logging.Logger) *ResilientLayer {
	logger = logging.OrNop(logger).Named("resilience").Named(layer.Name())
	collector = metrics.OrNoOp(collector)

	rl := &ResilientLayer{
		layer:   layer,
		timeout: config.Timeout,
		metrics: collector,
		logger:  logger,
	}

	logger.Debug("resilient layer initialized",
		zap.String("layer", layer.Name()),
		zap.Duration("timeout", config.Timeout),
		zap.Uint32("max_requests", config.CircuitBreakerConfig.MaxRequests),
		zap.Duration("circuit_timeout", config.CircuitBreakerConfig.Timeout),
	)

	rl.cb = newBreaker(layer.Name(), config.CircuitBreakerConfig, isCacheSuccess, collector, logger)

	return rl
}

func isCacheSuccess(err error) bool {
	return err == nil || cache.IsNotFound(err)
}

// execute runs fn under the layer timeout and the breaker.
func (rl *ResilientLayer) execute(ctx context.Context, operation, key string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if rl.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rl.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := rl.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err == nil || cache.IsNotFound(err) {
		return result, err
	}

	err = translate(ctx, err)
	switch {
	case cache.IsCircuitOpen(err):
		rl.logger.Warn("circuit breaker open - request rejected",
			zap.String("operation", operation),
			zap.String("key", key),
		)
	case cache.IsTimeout(err):
		rl.logger.Warn("operation timeout",
			zap.String("operation", operation),
			zap.String("key", key),
			zap.Duration("timeout", rl.timeout),
			zap.Duration("elapsed", time.Since(start)),
		)
	default:
		rl.logger.Error(operation+" operation failed",
			zap.String("key", key),
			zap.String("error_type", cache.ClassifyError(err)),
			zap.Error(err),
		)
	}
	return nil, err
}

// Name returns the name of the underlying cache layer.
func (rl *ResilientLayer) Name() string {
	return rl.layer.Name()
}

// Get retrieves a value from the cache with timeout and circuit breaker protection.
func (rl *ResilientLayer) Get(ctx context.Context, key string) (interface{}, error) {
	start := time.Now()
	result, err := rl.execute(ctx, "get", key, func(ctx context.Context) (interface{}, error) {
		return rl.layer.Get(ctx, key)
	})
	rl.metrics.RecordGet(rl.layer.Name(), err == nil, time.Since(start))
	return result, err
}

// Set stores a value in the cache with timeout and circuit breaker protection.
func (rl *ResilientLayer) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	start := time.Now()
	_, err := rl.execute(ctx, "set", key, func(ctx context.Context) (interface{}, error) {
		return nil, rl.layer.Set(ctx, key, value, ttl)
	})
	rl.metrics.RecordSet(rl.layer.Name(), err == nil, time.Since(start))
	return err
}

// Delete removes a value from the cache with timeout and circuit breaker protection.
func (rl *ResilientLayer) Delete(ctx context.Context, key string) error {
	start := time.Now()
	_, err := rl.execute(ctx, "delete", key, func(ctx context.Context) (interface{}, error) {
		return nil, rl.layer.Delete(ctx, key)
	})
	rl.metrics.RecordDelete(rl.layer.Name(), err == nil, time.Since(start))
	return err
}

// DeletePrefix removes every entry under prefix with timeout and circuit breaker protection.
func (rl *ResilientLayer) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	result, err := rl.execute(ctx, "delete_prefix", prefix, func(ctx context.Context) (interface{}, error) {
		return rl.layer.DeletePrefix(ctx, prefix)
	})
	removed, _ := result.(int)
	if err == nil {
		rl.metrics.RecordInvalidation(rl.layer.Name(), removed)
	}
	return removed, err
}

// Clear removes all values from the cache with timeout and circuit breaker protection.
func (rl *ResilientLayer) Clear(ctx context.Context) error {
	_, err := rl.execute(ctx, "clear", "*", func(ctx context.Context) (interface{}, error) {
		return nil, rl.layer.Clear(ctx)
	})
	return err
}

// TTL reports the remaining lifetime of key when the wrapped layer can.
// Layers that cannot report one yield zero, meaning unknown.
func (rl *ResilientLayer) TTL(ctx context.Context, key string) (time.Duration, error) {
	reporter, ok := rl.layer.(cache.TTLReporter)
	if !ok {
		return 0, nil
	}
	result, err := rl.execute(ctx, "ttl", key, func(ctx context.Context) (interface{}, error) {
		return reporter.TTL(ctx, key)
	})
	ttl, _ := result.(time.Duration)
	return ttl, err
}

// State returns the breaker's current state.
func (rl *ResilientLayer) State() metrics.CircuitState {
	switch rl.cb.State() {
	case gobreaker.StateOpen:
		return metrics.CircuitOpen
	case gobreaker.StateHalfOpen:
		return metrics.CircuitHalfOpen
	default:
		return metrics.CircuitClosed
	}
}

// Close closes the underlying cache layer.
func (rl *ResilientLayer) Close() error {
	return rl.layer.Close()
}
