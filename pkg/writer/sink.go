package writer

import (
	"context"
	"time"

	"gamehub/pkg/cache"
)

// Op is one deferred write. Sinks interpret Key and Value; TTL only
// matters to cache-backed sinks.
type Op struct {
	Key   string
	Value interface{}
	TTL   time.Duration
}

// Sink is the destination an AsyncWriter drains into.
type Sink interface {
	Name() string
	Apply(ctx context.Context, op Op) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, op Op) error
}

// Name returns SinkName.
func (s SinkFunc) Name() string { return s.SinkName }

// Apply calls Fn.
func (s SinkFunc) Apply(ctx context.Context, op Op) error { return s.Fn(ctx, op) }

type layerSink struct {
	layer cache.CacheLayer
}

// LayerSink writes each Op into a cache layer with Set.
func LayerSink(layer cache.CacheLayer) Sink {
	return layerSink{layer: layer}
}

func (s layerSink) Name() string { return s.layer.Name() }

func (s layerSink) Apply(ctx context.Context, op Op) error {
	return s.layer.Set(ctx, op.Key, op.Value, op.TTL)
}
