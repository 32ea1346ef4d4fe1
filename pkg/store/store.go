package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/cache/memory"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"

	"go.uber.org/zap"
)

// Options configures a Store.
type Options struct {
	// ReadCacheTTL bounds how long a loaded document is reused (default: 5m)
	ReadCacheTTL time.Duration

	// ExpectedGames sizes the game id index (default: 10000)
	ExpectedGames uint

	Clock   cache.Clock
	Logger  *logging.Logger
	Metrics metrics.MetricsCollector
}

// Store gives typed access to the documents of a Backend.
//
// Reads go through a short-lived read cache and return the collection's
// documented default when the document is missing or does not decode.
// Mutations run read-modify-write under one lock with strict reads, so a
// corrupt document aborts the mutation instead of being overwritten.
type Store struct {
	backend Backend
	reads   cache.CacheLayer
	ttl     time.Duration
	clock   cache.Clock
	index   *gameIndex
	logger  *logging.Logger
	metrics metrics.MetricsCollector

	// writeMu serializes read-modify-write mutations
	writeMu sync.Mutex
}

// New creates a Store over backend.
func New(backend Backend, opts Options) *Store {
	if opts.ReadCacheTTL <= 0 {
		opts.ReadCacheTTL = 5 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = cache.SystemClock{}
	}

	return &Store{
		backend: backend,
		reads: memory.NewMemoryCache(memory.MemoryCacheConfig{
			Name:       "store-reads",
			DefaultTTL: opts.ReadCacheTTL,
			Clock:      opts.Clock,
		}),
		ttl:     opts.ReadCacheTTL,
		clock:   opts.Clock,
		index:   newGameIndex(opts.ExpectedGames),
		logger:  logging.OrNop(opts.Logger).Named("store"),
		metrics: metrics.OrNoOp(opts.Metrics),
	}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// load returns the raw document and whether it came from the backend.
// Unless bypass is set, a fresh read cache entry is used.
func (s *Store) load(ctx context.Context, c Collection, bypass bool) ([]byte, bool, error) {
	if !bypass {
		if v, err := s.reads.Get(ctx, string(c)); err == nil {
			if body, ok := v.([]byte); ok {
				return body, false, nil
			}
		}
	}

	body, err := s.backend.Load(ctx, c)
	if err != nil {
		return nil, false, err
	}

	if err := s.reads.Set(ctx, string(c), body, s.ttl); err != nil {
		s.logger.Debug("read cache set failed", zap.String("collection", string(c)), zap.Error(err))
	}
	return body, true, nil
}

// readDocument decodes c into a fresh T. A missing document yields def().
// A document that does not decode yields def() unless strict is set, in
// which case ErrCorrupt is returned. Strict reads bypass the read cache.
func readDocument[T any](ctx context.Context, s *Store, c Collection, def func() T, strict bool) (T, error) {
	v, _, err := readDocumentSource(ctx, s, c, def, strict)
	return v, err
}

// readDocumentSource is readDocument also reporting whether the backend was read.
func readDocumentSource[T any](ctx context.Context, s *Store, c Collection, def func() T, strict bool) (T, bool, error) {
	body, fromBackend, err := s.load(ctx, c, strict)
	if err != nil {
		if IsNotFound(err) {
			return def(), true, nil
		}
		s.logger.Error("document load failed", zap.String("collection", string(c)), zap.Error(err))
		return def(), false, err
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		if strict {
			return v, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, c, err)
		}
		s.logger.Warn("document does not decode, using default",
			zap.String("collection", string(c)),
			zap.Error(err),
		)
		return def(), false, nil
	}
	return v, fromBackend, nil
}

// writeDocument saves v as the collection's document and drops the cached read.
func writeDocument[T any](ctx context.Context, s *Store, c Collection, v T) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.metrics.RecordMutation(string(c), false)
		return fmt.Errorf("store: encode %s: %w", c, err)
	}

	err = s.backend.Save(ctx, c, body)
	s.Invalidate(ctx, c)
	s.metrics.RecordMutation(string(c), err == nil)
	if err != nil {
		s.logger.Error("document save failed",
			zap.String("collection", string(c)),
			zap.String("backend", s.backend.Name()),
			zap.Error(err),
		)
		return err
	}

	s.logger.Debug("document saved", zap.String("collection", string(c)), zap.Int("bytes", len(body)))
	return nil
}

// Invalidate drops the cached read of c, so the next read hits the backend.
// Used when another instance reports a change.
func (s *Store) Invalidate(ctx context.Context, c Collection) {
	if err := s.reads.Delete(ctx, string(c)); err != nil {
		s.logger.Debug("read cache delete failed", zap.String("collection", string(c)), zap.Error(err))
	}
	if c == Games {
		s.index.reset()
	}
}

// InvalidateAll drops every cached read.
func (s *Store) InvalidateAll(ctx context.Context) {
	for _, c := range Collections() {
		s.Invalidate(ctx, c)
	}
}

// Close releases the read cache and the backend.
func (s *Store) Close() error {
	s.reads.Close()
	return s.backend.Close()
}
