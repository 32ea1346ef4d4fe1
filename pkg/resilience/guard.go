package resilience

import (
	"context"
	"time"

	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"

	"github.com/sony/gobreaker"
)

// Guard protects arbitrary calls (typically HTTP requests) with the same
// timeout and circuit breaker used for cache layers.
type Guard struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
}

// GuardOption customizes a Guard.
type GuardOption func(*guardOptions)

type guardOptions struct {
	excluded  func(error) bool
	collector metrics.MetricsCollector
	logger    *logging.Logger
}

// WithExcluded marks errors that are answers rather than failures
// (for example a 404); they do not count towards tripping the breaker.
func WithExcluded(fn func(error) bool) GuardOption {
	return func(o *guardOptions) { o.excluded = fn }
}

// WithMetrics reports breaker state changes to collector.
func WithMetrics(collector metrics.MetricsCollector) GuardOption {
	return func(o *guardOptions) { o.collector = collector }
}

// WithLogger sets the logger used for breaker state changes.
func WithLogger(logger *logging.Logger) GuardOption {
	return func(o *guardOptions) { o.logger = logger }
}

// NewGuard creates a Guard named name.
func NewGuard(name string, config ResilientConfig, opts ...GuardOption) *Guard {
	o := guardOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	excluded := o.excluded
	isSuccessful := func(err error) bool {
		return err == nil || (excluded != nil && excluded(err))
	}

	logger := logging.OrNop(o.logger).Named("guard").Named(name)

	return &Guard{
		name:    name,
		cb:      newBreaker(name, config.CircuitBreakerConfig, isSuccessful, metrics.OrNoOp(o.collector), logger),
		timeout: config.Timeout,
	}
}

// Do runs fn with the guard's deadline. It returns cache.ErrCircuitOpen
// without calling fn while the breaker is open, and cache.ErrTimeout when
// the deadline expired.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return translate(ctx, err)
}

// Name returns the guard's name.
func (g *Guard) Name() string {
	return g.name
}
