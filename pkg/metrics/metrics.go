package metrics

import (
	"time"
)

// MetricsCollector defines the interface for collecting cache and data-layer metrics.
// Implementations can export metrics to various backends (Prometheus, in-memory, etc.).
type MetricsCollector interface {
	// Cache operations
	RecordGet(layer string, hit bool, duration time.Duration)
	RecordSet(layer string, success bool, duration time.Duration)
	RecordDelete(layer string, success bool, duration time.Duration)
	RecordInvalidation(layer string, removed int)

	// Circuit breaker
	RecordCircuitState(layer string, state CircuitState)

	// Async writer
	RecordQueueDepth(layer string, depth int)
	RecordWriteDropped(layer string)
	RecordAsyncWrite(layer string, success bool, duration time.Duration)

	// Chain-level
	RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration)

	// Data manager
	RecordFetch(operation string, source FetchSource, duration time.Duration)
	RecordMutation(collection string, success bool)
	RecordPublish(topic string)
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	// CircuitClosed means the circuit breaker is allowing requests through.
	CircuitClosed CircuitState = iota
	// CircuitOpen means the circuit breaker is blocking requests.
	CircuitOpen
	// CircuitHalfOpen means the circuit breaker is testing if the service has recovered.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// FetchSource says where a data-manager read was answered from.
type FetchSource int

const (
	// SourceCache means the value was a cache hit.
	SourceCache FetchSource = iota
	// SourceNetwork means the API answered.
	SourceNetwork
	// SourceFallback means the API failed and the in-memory mirror answered.
	SourceFallback
)

// String returns the label used for the source.
func (s FetchSource) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceNetwork:
		return "network"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// NoOpCollector is a no-op implementation of MetricsCollector.
// It's used as the default collector when metrics are not needed.
type NoOpCollector struct{}

// RecordGet does nothing.
func (NoOpCollector) RecordGet(layer string, hit bool, duration time.Duration) {}

// RecordSet does nothing.
func (NoOpCollector) RecordSet(layer string, success bool, duration time.Duration) {}

// RecordDelete does nothing.
func (NoOpCollector) RecordDelete(layer string, success bool, duration time.Duration) {}

// RecordInvalidation does nothing.
func (NoOpCollector) RecordInvalidation(layer string, removed int) {}

// RecordCircuitState does nothing.
func (NoOpCollector) RecordCircuitState(layer string, state CircuitState) {}

// RecordQueueDepth does nothing.
func (NoOpCollector) RecordQueueDepth(layer string, depth int) {}

// RecordWriteDropped does nothing.
func (NoOpCollector) RecordWriteDropped(layer string) {}

// RecordAsyncWrite does nothing.
func (NoOpCollector) RecordAsyncWrite(layer string, success bool, duration time.Duration) {}

// RecordChainGet does nothing.
func (NoOpCollector) RecordChainGet(hit bool, layerIndex int, totalDuration time.Duration) {}

// RecordFetch does nothing.
func (NoOpCollector) RecordFetch(operation string, source FetchSource, duration time.Duration) {}

// RecordMutation does nothing.
func (NoOpCollector) RecordMutation(collection string, success bool) {}

// RecordPublish does nothing.
func (NoOpCollector) RecordPublish(topic string) {}

// OrNoOp returns c, or a NoOpCollector when c is nil.
func OrNoOp(c MetricsCollector) MetricsCollector {
	if c == nil {
		return NoOpCollector{}
	}
	return c
}
