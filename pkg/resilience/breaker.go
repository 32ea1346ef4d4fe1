package resilience

import (
	"context"
	"errors"

	"gamehub/pkg/cache"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// newBreaker converts config into gobreaker settings. isSuccessful decides
// which errors leave the breaker's failure counts untouched.
func newBreaker(name string, config CircuitBreakerConfig, isSuccessful func(error) bool, collector metrics.MetricsCollector, logger *logging.Logger) *gobreaker.CircuitBreaker {
	readyToTrip := config.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = consecutiveFailures(5)
	}

	settings := gobreaker.Settings{
		Name:         name,
		MaxRequests:  config.MaxRequests,
		Interval:     config.Interval,
		Timeout:      config.Timeout,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return readyToTrip(Counts{
				Requests:             counts.Requests,
				TotalSuccesses:       counts.TotalSuccesses,
				TotalFailures:        counts.TotalFailures,
				ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
				ConsecutiveFailures:  counts.ConsecutiveFailures,
			})
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)

			var state metrics.CircuitState
			switch to {
			case gobreaker.StateClosed:
				state = metrics.CircuitClosed
			case gobreaker.StateHalfOpen:
				state = metrics.CircuitHalfOpen
			case gobreaker.StateOpen:
				state = metrics.CircuitOpen
			}
			collector.RecordCircuitState(name, state)
		},
	}

	return gobreaker.NewCircuitBreaker(settings)
}

// translate maps breaker and deadline errors onto the cache sentinels.
func translate(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return cache.ErrCircuitOpen
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return cache.ErrTimeout
	default:
		return err
	}
}
