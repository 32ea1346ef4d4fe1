package datamanager

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"

	"gamehub/pkg/cache"
	"gamehub/pkg/metrics"
)

// errMissing is returned by a fetch when the API answered that the item
// does not exist. It is an answer, not a failure, and is never cached.
var errMissing = errors.New("datamanager: missing")

// loader describes one cached read. fetch receives the generation the
// read started at and must only refresh the mirror through remember.
type loader[T any] struct {
	op       string
	key      string
	ttl      time.Duration
	fetch    func(ctx context.Context, gen uint64) (T, error)
	fallback func() T
}

// load answers l from the cache, the API or the mirror, in that order.
func load[T any](ctx context.Context, m *DataManager, l loader[T]) T {
	start := time.Now()

	v, err := m.cache.Get(ctx, l.key)
	if err == nil {
		if out, ok := decode[T](v); ok {
			m.metrics.RecordFetch(l.op, metrics.SourceCache, time.Since(start))
			return out
		}
		m.logger.Debug("cached value does not decode", zap.String("key", l.key))
	} else if !cache.IsNotFound(err) {
		m.logger.Debug("cache get failed", zap.String("key", l.key), zap.Error(err))
	}

	out, err := fetchOnce(ctx, m, l)
	switch {
	case err == nil:
		m.metrics.RecordFetch(l.op, metrics.SourceNetwork, time.Since(start))
		return out
	case errors.Is(err, errMissing):
		m.metrics.RecordFetch(l.op, metrics.SourceNetwork, time.Since(start))
		var zero T
		return zero
	}

	m.logger.Warn("fetch failed, serving fallback",
		zap.String("operation", l.op),
		zap.String("key", l.key),
		zap.Error(err))
	m.metrics.RecordFetch(l.op, metrics.SourceFallback, time.Since(start))
	return l.fallback()
}

// fetchOnce runs l.fetch and caches the result. With coalescing on,
// concurrent callers for the same key and generation share one fetch; a
// read issued after a write never joins a fetch started before it.
func fetchOnce[T any](ctx context.Context, m *DataManager, l loader[T]) (T, error) {
	gen := m.gen.Load()
	fn := func() (interface{}, error) {
		v, err := l.fetch(ctx, gen)
		if err != nil {
			return nil, err
		}
		m.populate(ctx, l.key, v, l.ttl, gen)
		return v, nil
	}

	var (
		v   interface{}
		err error
	)
	if m.config.Coalesce {
		v, err, _ = m.sf.Do(l.key+"#"+strconv.FormatUint(gen, 10), fn)
	} else {
		v, err = fn()
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// decode converts a cached value to T. Values from a shared layer arrive
// as JSON.
func decode[T any](v interface{}) (T, bool) {
	if out, ok := v.(T); ok {
		return out, true
	}

	var (
		out T
		raw []byte
	)
	switch b := v.(type) {
	case json.RawMessage:
		raw = b
	case []byte:
		raw = b
	case string:
		raw = []byte(b)
	default:
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}
