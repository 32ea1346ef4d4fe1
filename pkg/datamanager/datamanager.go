// Package datamanager is the read/write façade over the gamehub API.
//
// Reads are answered from the cache while fresh, otherwise fetched from the
// API; a fetch failure degrades to a result derived from the in-memory
// mirror of the last successful fetch and never surfaces as an error.
// Writes go to the API first, then to the mirror, then invalidate every
// derived cache key, and only then announce the change.
package datamanager

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"gamehub/pkg/cache"
	"gamehub/pkg/cache/memory"
	"gamehub/pkg/catalog"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"
	"gamehub/pkg/notify"
	"gamehub/pkg/writer"
)

// API is the remote surface a DataManager talks to. *client.Client implements it.
type API interface {
	ListGames(ctx context.Context) ([]catalog.Game, error)
	GetGame(ctx context.Context, id string) (catalog.Game, error)
	CreateGame(ctx context.Context, g catalog.Game) (catalog.Game, error)
	UpdateGame(ctx context.Context, id string, patch catalog.GamePatch) (catalog.Game, error)
	RecordStats(ctx context.Context, id string, views, plays int64) error

	ListCategories(ctx context.Context) ([]catalog.Category, error)
	SaveCategories(ctx context.Context, categories []catalog.Category) error
	ListFeaturedEntries(ctx context.Context) ([]catalog.FeaturedGame, error)
	SaveFeaturedEntries(ctx context.Context, entries []catalog.FeaturedGame) error
	HomepageContent(ctx context.Context) (catalog.HomepageContent, error)
	SaveHomepageContent(ctx context.Context, content catalog.HomepageContent) error
	SeoSettings(ctx context.Context) (catalog.SeoDocument, error)
	SaveSeoSettings(ctx context.Context, doc catalog.SeoDocument) error
	FooterContent(ctx context.Context) (catalog.FooterContent, error)
	SaveFooterContent(ctx context.Context, footer catalog.FooterContent) error
}

// Errors returned by write operations.
var (
	ErrInvalidGame = errors.New("datamanager: game needs an id or a name")
	ErrEmptyPatch  = errors.New("datamanager: patch changes nothing")
	ErrClosed      = errors.New("datamanager: closed")
)

// TTLs are the cache lifetimes per read operation. Bulk reads live longer
// than high-churn rankings.
type TTLs struct {
	AllGames      time.Duration `yaml:"all_games"`
	Game          time.Duration `yaml:"game"`
	HotGames      time.Duration `yaml:"hot_games"`
	NewGames      time.Duration `yaml:"new_games"`
	CategoryGames time.Duration `yaml:"category_games"`
	FeaturedGames time.Duration `yaml:"featured_games"`
	Search        time.Duration `yaml:"search"`
	Related       time.Duration `yaml:"related"`
	Categories    time.Duration `yaml:"categories"`
	Documents     time.Duration `yaml:"documents"`
}

// Config configures a DataManager.
type Config struct {
	TTL TTLs `yaml:"ttl"`

	// FallbackMaxAge bounds how old the mirror may be to answer a failed
	// read. Older mirrors answer with an empty result (0 = unlimited).
	FallbackMaxAge time.Duration `yaml:"fallback_max_age"`

	// Coalesce shares one in-flight fetch between concurrent misses of
	// the same key.
	Coalesce bool `yaml:"coalesce"`

	// Stats configures the background view/play flusher
	Stats writer.AsyncWriterConfig `yaml:"stats"`
}

// DefaultConfig returns the standard TTLs with coalescing enabled.
func DefaultConfig() Config {
	return Config{
		TTL: TTLs{
			AllGames:      time.Hour,
			Game:          time.Hour,
			HotGames:      2 * time.Minute,
			NewGames:      5 * time.Minute,
			CategoryGames: 3 * time.Minute,
			FeaturedGames: 5 * time.Minute,
			Search:        2 * time.Minute,
			Related:       5 * time.Minute,
			Categories:    time.Hour,
			Documents:     10 * time.Minute,
		},
		Coalesce: true,
		Stats: writer.AsyncWriterConfig{
			QueueSize:   256,
			Workers:     1,
			MaxWaitTime: -1,
			OpTimeout:   5 * time.Second,
		},
	}
}

// Dependencies are the collaborators of a DataManager. API is required.
type Dependencies struct {
	API API

	// Cache holds derived views. A private memory cache is used when nil.
	Cache cache.CacheLayer

	// Notifier carries change announcements between instances. Without
	// one, changes only reach this instance's subscribers.
	Notifier notify.Notifier

	// Seed is the mirror content before the first successful fetch
	Seed []catalog.Game

	Clock   cache.Clock
	Logger  *logging.Logger
	Metrics metrics.MetricsCollector
}

// DataManager is the only component views talk to for catalog data.
// Returned values may be shared with the cache and must not be modified.
type DataManager struct {
	api      API
	cache    cache.CacheLayer
	ownCache bool
	notifier notify.Notifier
	views    *notify.Bus
	stats    *writer.AsyncWriter
	config   Config
	clock    cache.Clock
	logger   *logging.Logger
	metrics  metrics.MetricsCollector

	sf singleflight.Group

	// invMu is held exclusively by invalidations and shared by cache
	// populates. gen moves on every write and invalidation; a fetch that
	// started at an older gen neither caches nor refreshes the mirror.
	invMu sync.RWMutex
	gen   atomic.Uint64

	mu         sync.RWMutex
	games      []catalog.Game
	gamesAt    time.Time
	categories []catalog.Category
	featured   []catalog.FeaturedGame
	homepage   catalog.HomepageContent
	seo        *catalog.SeoDocument
	footer     *catalog.FooterContent

	unsubscribe []func()
	closed      atomic.Bool
}

type selfKey struct{}

// New creates a DataManager and subscribes it to every topic of
// deps.Notifier.
func New(config Config, deps Dependencies) (*DataManager, error) {
	if deps.API == nil {
		return nil, errors.New("datamanager: api is required")
	}
	if deps.Clock == nil {
		deps.Clock = cache.SystemClock{}
	}
	logger := logging.OrNop(deps.Logger).Named("datamanager")
	collector := metrics.OrNoOp(deps.Metrics)

	m := &DataManager{
		api:      deps.API,
		cache:    deps.Cache,
		notifier: deps.Notifier,
		views:    notify.NewBus(notify.WithClock(deps.Clock), notify.WithLogger(logger)),
		config:   config,
		clock:    deps.Clock,
		logger:   logger,
		metrics:  collector,
	}
	if m.cache == nil {
		m.cache = memory.NewMemoryCache(memory.MemoryCacheConfig{
			Name:            "datamanager",
			DefaultTTL:      config.TTL.AllGames,
			CleanupInterval: time.Minute,
			Clock:           deps.Clock,
		})
		m.ownCache = true
	}
	if len(deps.Seed) > 0 {
		m.games = cloneGames(deps.Seed)
		m.gamesAt = m.clock.Now()
	}

	m.stats = writer.NewAsyncWriterWithMetrics(writer.SinkFunc{
		SinkName: "stats",
		Fn:       m.flushStats,
	}, config.Stats, collector, logger)

	if m.notifier != nil {
		for _, topic := range notify.Topics() {
			m.unsubscribe = append(m.unsubscribe, m.notifier.Subscribe(topic, m.onEvent))
		}
	}
	return m, nil
}

// onEvent invalidates the topic's namespace, then runs the view listeners.
// Events published by this instance were invalidated before publishing.
func (m *DataManager) onEvent(ctx context.Context, e notify.Event) {
	if self, _ := ctx.Value(selfKey{}).(*DataManager); self != m {
		if ns, ok := NamespaceFor(e.Topic); ok {
			m.invalidate(ctx, ns)
		}
		m.logger.Debug("remote change",
			zap.String("topic", string(e.Topic)),
			zap.String("origin", e.Origin))
	}
	m.views.Deliver(ctx, e)
}

// Subscribe registers h to run after every change on topic, local or
// remote, once the change's cache entries are gone. Call the returned func
// on teardown.
func (m *DataManager) Subscribe(topic notify.Topic, h notify.Handler) (unsubscribe func()) {
	return m.views.Subscribe(topic, h)
}

// publish announces topic. The mutation already succeeded, so a failed
// announcement is only logged.
func (m *DataManager) publish(ctx context.Context, topic notify.Topic) {
	if m.notifier == nil {
		m.views.Deliver(ctx, notify.Event{Topic: topic, Origin: m.views.Origin(), At: m.clock.Now().UTC()})
		return
	}
	if err := m.notifier.Publish(context.WithValue(ctx, selfKey{}, m), topic); err != nil {
		m.logger.Warn("change announcement failed", zap.String("topic", string(topic)), zap.Error(err))
	}
}

// invalidate removes every key of ns. Populates that started before the
// call will not write their result.
func (m *DataManager) invalidate(ctx context.Context, ns cache.Namespace) {
	m.invMu.Lock()
	m.gen.Add(1)
	removed, err := ns.Invalidate(ctx, m.cache)
	m.invMu.Unlock()

	m.metrics.RecordInvalidation(ns.Name, removed)
	if err != nil {
		m.logger.Warn("invalidation incomplete", zap.String("namespace", ns.Name), zap.Error(err))
	}
}

// populate caches v under key unless an invalidation ran since gen.
func (m *DataManager) populate(ctx context.Context, key string, v interface{}, ttl time.Duration, gen uint64) {
	m.invMu.RLock()
	defer m.invMu.RUnlock()

	if m.gen.Load() != gen {
		return
	}
	if err := m.cache.Set(ctx, key, v, ttl); err != nil {
		m.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// remember applies fn to the mirror unless a write or an invalidation ran
// since gen. A snapshot fetched before a write is older than the mirror.
func (m *DataManager) remember(gen uint64, fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen.Load() != gen {
		return false
	}
	fn()
	return true
}

// Initialize loads games and categories into the cache and the mirror.
// Failures are returned for logging; reads keep working on the mirror.
func (m *DataManager) Initialize(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := fetchOnce(ctx, m, m.allGamesLoader())
		return err
	})
	g.Go(func() error {
		_, err := fetchOnce(ctx, m, m.allCategoriesLoader())
		return err
	})
	if err := g.Wait(); err != nil {
		m.logger.Warn("initial load failed", zap.Error(err))
		return err
	}

	m.logger.Info("data manager initialized", zap.Int("games", len(m.mirrorGames())))
	return nil
}

// Refresh drops every cached view and reloads.
func (m *DataManager) Refresh(ctx context.Context) error {
	m.invMu.Lock()
	m.gen.Add(1)
	err := m.cache.Clear(ctx)
	m.invMu.Unlock()
	if err != nil {
		m.logger.Warn("cache clear failed", zap.Error(err))
	}
	return m.Initialize(ctx)
}

// Staleness reports the age of the games mirror. ok is false before the
// first successful fetch.
func (m *DataManager) Staleness() (age time.Duration, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.gamesAt.IsZero() {
		return 0, false
	}
	return m.clock.Now().Sub(m.gamesAt), true
}

// FlushStats waits for queued view and play counts to reach the API.
func (m *DataManager) FlushStats(timeout time.Duration) error {
	return m.stats.Flush(timeout)
}

// StatsDelivery reports how many view and play increments reached the API.
func (m *DataManager) StatsDelivery() writer.Stats {
	return m.stats.Stats()
}

// Close unsubscribes from the notifier and drains pending stats. A cache
// passed in Dependencies is left open.
func (m *DataManager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, u := range m.unsubscribe {
		u()
	}

	err := m.stats.Close()
	m.views.Close()
	if m.ownCache {
		err = errors.Join(err, m.cache.Close())
	}
	return err
}
