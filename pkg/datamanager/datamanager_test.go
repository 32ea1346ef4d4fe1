package datamanager

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/cache/memory"
	"gamehub/pkg/cache/mock"
	"gamehub/pkg/catalog"
	"gamehub/pkg/client"
	"gamehub/pkg/metrics"
	metricsmem "gamehub/pkg/metrics/memory"
	"gamehub/pkg/notify"
)

var _ API = (*client.Client)(nil)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

var errUnavailable = errors.New("api unavailable")

// fakeAPI is an in-memory API with call counters and a failure switch.
type fakeAPI struct {
	mu         sync.Mutex
	games      []catalog.Game
	categories []catalog.Category
	featured   []catalog.FeaturedGame
	homepage   catalog.HomepageContent
	seo        catalog.SeoDocument
	footer     catalog.FooterContent
	views      map[string]int64
	plays      map[string]int64

	fail atomic.Bool

	// block, when set, holds ListGames until closed
	block chan struct{}

	// stale, when set, holds the first ListGames after it took its
	// snapshot until closed
	stale     chan struct{}
	staleUsed atomic.Bool

	listCalls   atomic.Int64
	getCalls    atomic.Int64
	updateCalls atomic.Int64
}

func newFakeAPI(games ...catalog.Game) *fakeAPI {
	return &fakeAPI{
		games:    games,
		homepage: catalog.DefaultHomepageContent(),
		seo:      catalog.DefaultSeoDocument(),
		footer:   catalog.DefaultFooterContent(),
		views:    make(map[string]int64),
		plays:    make(map[string]int64),
	}
}

func (f *fakeAPI) err() error {
	if f.fail.Load() {
		return errUnavailable
	}
	return nil
}

func (f *fakeAPI) ListGames(ctx context.Context) ([]catalog.Game, error) {
	f.listCalls.Add(1)
	if f.block != nil {
		<-f.block
	}
	if err := f.err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	games := cloneGames(f.games)
	f.mu.Unlock()

	if f.stale != nil && f.staleUsed.CompareAndSwap(false, true) {
		<-f.stale
	}
	return games, nil
}

func (f *fakeAPI) GetGame(ctx context.Context, id string) (catalog.Game, error) {
	f.getCalls.Add(1)
	if err := f.err(); err != nil {
		return catalog.Game{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := catalog.FindByID(f.games, id)
	if !ok || !g.IsActive {
		return catalog.Game{}, &client.StatusError{Method: "GET", Path: "/api/games/" + id, Code: 404, Message: "game not found"}
	}
	return g.Clone(), nil
}

func (f *fakeAPI) CreateGame(ctx context.Context, g catalog.Game) (catalog.Game, error) {
	if err := f.err(); err != nil {
		return catalog.Game{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := catalog.FindByID(f.games, g.ID); exists {
		return catalog.Game{}, &client.StatusError{Method: "POST", Path: "/api/admin/games", Code: 409, Message: "exists"}
	}
	f.games = append(f.games, g.Clone())
	return g, nil
}

func (f *fakeAPI) UpdateGame(ctx context.Context, id string, patch catalog.GamePatch) (catalog.Game, error) {
	f.updateCalls.Add(1)
	if err := f.err(); err != nil {
		return catalog.Game{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.games {
		if f.games[i].ID == id {
			f.games[i] = patch.Apply(f.games[i])
			return f.games[i].Clone(), nil
		}
	}
	return catalog.Game{}, &client.StatusError{Method: "PUT", Path: "/api/admin/games", Code: 404, Message: "game not found"}
}

func (f *fakeAPI) RecordStats(ctx context.Context, id string, views, plays int64) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views[id] += views
	f.plays[id] += plays
	return nil
}

func (f *fakeAPI) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Category(nil), f.categories...), nil
}

func (f *fakeAPI) SaveCategories(ctx context.Context, categories []catalog.Category) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.categories = append([]catalog.Category(nil), categories...)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) ListFeaturedEntries(ctx context.Context) ([]catalog.FeaturedGame, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.FeaturedGame(nil), f.featured...), nil
}

func (f *fakeAPI) SaveFeaturedEntries(ctx context.Context, entries []catalog.FeaturedGame) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.featured = append([]catalog.FeaturedGame(nil), entries...)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) HomepageContent(ctx context.Context) (catalog.HomepageContent, error) {
	if err := f.err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.homepage, nil
}

func (f *fakeAPI) SaveHomepageContent(ctx context.Context, content catalog.HomepageContent) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.homepage = content
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) SeoSettings(ctx context.Context) (catalog.SeoDocument, error) {
	if err := f.err(); err != nil {
		return catalog.SeoDocument{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seo, nil
}

func (f *fakeAPI) SaveSeoSettings(ctx context.Context, doc catalog.SeoDocument) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.seo = doc
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) FooterContent(ctx context.Context) (catalog.FooterContent, error) {
	if err := f.err(); err != nil {
		return catalog.FooterContent{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.footer, nil
}

func (f *fakeAPI) SaveFooterContent(ctx context.Context, footer catalog.FooterContent) error {
	if err := f.err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.footer = footer
	f.mu.Unlock()
	return nil
}

func sampleGames() []catalog.Game {
	return []catalog.Game{
		{ID: "tetris", Name: "Tetris", Category: "puzzle", Tags: []string{"classic", "blocks"}, Rating: 4.5, ViewCount: 10, AddedDate: "2024-01-10", IsActive: true, IsFeatured: true},
		{ID: "doom", Name: "Doom", Category: "shooter", Tags: []string{"classic", "fps"}, Rating: 4.8, ViewCount: 50, AddedDate: "2024-03-01", IsActive: true, Developer: "id Software"},
		{ID: "sudoku", Name: "Sudoku", Category: "puzzle", Tags: []string{"numbers"}, Rating: 4.0, ViewCount: 30, AddedDate: "2024-02-15", IsActive: true},
	}
}

type harness struct {
	dm      *DataManager
	api     *fakeAPI
	cache   *memory.MemoryCache
	clock   *mock.ManualClock
	metrics *metricsmem.MemoryCollector
}

func newHarness(t *testing.T, api *fakeAPI, config Config, notifier notify.Notifier) *harness {
	t.Helper()

	clock := mock.NewManualClock(epoch)
	layer := memory.NewMemoryCache(memory.MemoryCacheConfig{Name: "test", Clock: clock})
	collector := metricsmem.NewMemoryCollector()

	dm, err := New(config, Dependencies{
		API:      api,
		Cache:    layer,
		Notifier: notifier,
		Clock:    clock,
		Metrics:  collector,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() {
		dm.Close()
		layer.Close()
	})
	return &harness{dm: dm, api: api, cache: layer, clock: clock, metrics: collector}
}

func ids(games []catalog.Game) []string {
	out := make([]string, len(games))
	for i, g := range games {
		out[i] = g.ID
	}
	return out
}

func equalIDs(got []string, want ...string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestNew_RequiresAPI(t *testing.T) {
	if _, err := New(DefaultConfig(), Dependencies{}); err == nil {
		t.Error("Expected error without an API")
	}
}

func TestDataManager_GetAllGames_CachedUntilTTL(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	if got := h.dm.GetAllGames(ctx); len(got) != 3 {
		t.Fatalf("Expected 3 games, got %d", len(got))
	}

	// a hit never goes to the network, even when the source changed
	h.api.mu.Lock()
	h.api.games = append(h.api.games, catalog.Game{ID: "pong", Name: "Pong", IsActive: true})
	h.api.mu.Unlock()

	if got := h.dm.GetAllGames(ctx); len(got) != 3 {
		t.Errorf("Expected cached 3 games, got %d", len(got))
	}
	if calls := h.api.listCalls.Load(); calls != 1 {
		t.Errorf("Expected 1 list call, got %d", calls)
	}

	h.clock.Advance(time.Hour)
	if got := h.dm.GetAllGames(ctx); len(got) != 4 {
		t.Errorf("Expected 4 games after expiry, got %d", len(got))
	}
	if hits := h.metrics.Fetches(opAllGames, metrics.SourceCache); hits != 1 {
		t.Errorf("Expected 1 cache answer, got %d", hits)
	}
}

func TestDataManager_GetHotGames(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)

	hot := h.dm.GetHotGames(context.Background(), 2)
	if len(hot) != 2 {
		t.Fatalf("Expected 2 hot games, got %d", len(hot))
	}
	if hot[0].ViewCount != 50 || hot[1].ViewCount != 30 {
		t.Errorf("Expected view counts [50 30], got [%d %d]", hot[0].ViewCount, hot[1].ViewCount)
	}
	if _, err := h.cache.Get(context.Background(), "hot-games-2"); err != nil {
		t.Errorf("Expected hot-games-2 cached, got %v", err)
	}
}

func TestDataManager_GetNewGames(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)

	newest := h.dm.GetNewGames(context.Background(), 0)
	if len(newest) != 3 || newest[0].ID != "doom" || newest[1].ID != "sudoku" || newest[2].ID != "tetris" {
		t.Errorf("Expected doom, sudoku, tetris, got %+v", newest)
	}
}

func TestDataManager_SearchGames(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"PUZZLE", 0, []string{"tetris", "sudoku"}},
		{"puzzle", 1, []string{"tetris"}},
		{"software", 0, []string{"doom"}},
		{"FPS", 0, []string{"doom"}},
		{"chess", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ids(h.dm.SearchGames(ctx, tt.query, tt.limit))
			if !equalIDs(got, tt.want...) {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDataManager_GetRelatedGames(t *testing.T) {
	games := []catalog.Game{
		{ID: "source", Category: "puzzle", Tags: []string{"a", "b", "c"}, IsActive: true},
		{ID: "close", Category: "puzzle", Tags: []string{"a", "b"}, Rating: 0, IsActive: true},
		{ID: "far", Category: "racing", Tags: []string{"a"}, Rating: 5, ViewCount: 100, IsActive: true},
		{ID: "none", Category: "racing", IsActive: true},
		{ID: "hidden", Category: "puzzle", Tags: []string{"a", "b", "c"}, IsActive: false},
	}
	h := newHarness(t, newFakeAPI(games...), DefaultConfig(), nil)

	got := ids(h.dm.GetRelatedGames(context.Background(), "source", 5))
	if !equalIDs(got, "close", "far") {
		t.Errorf("Expected [close far], got %v", got)
	}

	if unknown := h.dm.GetRelatedGames(context.Background(), "missing", 5); len(unknown) != 0 {
		t.Errorf("Expected no related games for an unknown id, got %v", ids(unknown))
	}
	if inactive := h.dm.GetRelatedGames(context.Background(), "hidden", 5); len(inactive) != 0 {
		t.Errorf("Expected no related games for an inactive id, got %v", ids(inactive))
	}
}

func TestDataManager_FilteredLists(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	if got := ids(h.dm.GetGamesByCategory(ctx, "puzzle", 0)); !equalIDs(got, "tetris", "sudoku") {
		t.Errorf("Expected puzzle games, got %v", got)
	}
	if got := ids(h.dm.GetGamesByTag(ctx, "classic", 1)); !equalIDs(got, "tetris") {
		t.Errorf("Expected [tetris], got %v", got)
	}
	if got := ids(h.dm.GetFeaturedGames(ctx, 0)); !equalIDs(got, "tetris") {
		t.Errorf("Expected [tetris], got %v", got)
	}
}

func TestDataManager_GetGameByID(t *testing.T) {
	games := append(sampleGames(), catalog.Game{ID: "old", Name: "Old", IsActive: false})
	h := newHarness(t, newFakeAPI(games...), DefaultConfig(), nil)
	ctx := context.Background()

	g, ok := h.dm.GetGameByID(ctx, "doom")
	if !ok || g.Name != "Doom" {
		t.Fatalf("Expected doom, got %+v (%v)", g, ok)
	}
	h.dm.GetGameByID(ctx, "doom")
	if calls := h.api.getCalls.Load(); calls != 1 {
		t.Errorf("Expected 1 get call, got %d", calls)
	}

	if _, ok := h.dm.GetGameByID(ctx, "old"); ok {
		t.Error("Expected inactive game not to be served")
	}
	if _, ok := h.dm.GetGameByID(ctx, "missing"); ok {
		t.Error("Expected missing game not to be found")
	}
	if n := h.metrics.Fetches(opGame, metrics.SourceFallback); n != 0 {
		t.Errorf("Expected a not-found answer not to fall back, got %d fallbacks", n)
	}
}

func TestDataManager_UpdateGameVisibleImmediately(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	if err := h.dm.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	h.dm.GetHotGames(ctx, 8)
	h.dm.GetGameByID(ctx, "tetris")
	getCalls := h.api.getCalls.Load()

	name := "Tetris Deluxe"
	views := int64(1000)
	updated, err := h.dm.UpdateGame(ctx, "tetris", catalog.GamePatch{Name: &name, ViewCount: &views})
	if err != nil {
		t.Fatalf("UpdateGame failed: %v", err)
	}
	if updated.Name != name {
		t.Errorf("Expected returned name %q, got %q", name, updated.Name)
	}

	g, ok := h.dm.GetGameByID(ctx, "tetris")
	if !ok || g.Name != name {
		t.Errorf("Expected updated game, got %+v", g)
	}
	if calls := h.api.getCalls.Load(); calls != getCalls {
		t.Errorf("Expected no network read after the update, got %d extra", calls-getCalls)
	}
	if mirrored, _ := h.dm.LookupGame("tetris"); mirrored.Name != name {
		t.Errorf("Expected mirror updated, got %q", mirrored.Name)
	}

	for _, key := range []string{"all-games", "hot-games-8"} {
		if _, err := h.cache.Get(ctx, key); !cache.IsNotFound(err) {
			t.Errorf("Expected %s evicted, got %v", key, err)
		}
	}

	hot := h.dm.GetHotGames(ctx, 1)
	if len(hot) != 1 || hot[0].ID != "tetris" {
		t.Errorf("Expected tetris to lead the hot list, got %+v", hot)
	}
}

func TestDataManager_UpdateGame_Errors(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	if _, err := h.dm.UpdateGame(ctx, "tetris", catalog.GamePatch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("Expected ErrEmptyPatch, got %v", err)
	}

	name := "X"
	_, err := h.dm.UpdateGame(ctx, "missing", catalog.GamePatch{Name: &name})
	if !client.IsNotFound(err) {
		t.Errorf("Expected a not-found error, got %v", err)
	}
}

func TestDataManager_DeleteGameIsSoft(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	h.dm.Initialize(ctx)

	if err := h.dm.DeleteGame(ctx, "doom"); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}

	h.api.mu.Lock()
	stored, ok := catalog.FindByID(h.api.games, "doom")
	h.api.mu.Unlock()
	if !ok || stored.IsActive {
		t.Errorf("Expected doom kept and inactive upstream, got %+v (%v)", stored, ok)
	}

	if got := ids(h.dm.GetAllGames(ctx)); !equalIDs(got, "tetris", "sudoku") {
		t.Errorf("Expected doom excluded, got %v", got)
	}

	g, ok := h.dm.LookupGame("doom")
	if !ok {
		t.Fatal("Expected doom in the mirror")
	}
	if g.IsActive {
		t.Error("Expected doom inactive")
	}

	if _, ok := h.dm.GetGameByID(ctx, "doom"); ok {
		t.Error("Expected deleted game not served by id")
	}
}

func TestDataManager_AddGame(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), bus)
	ctx := context.Background()

	var events atomic.Int32
	unsubscribe := h.dm.Subscribe(notify.GamesUpdated, func(ctx context.Context, e notify.Event) {
		events.Add(1)
	})
	defer unsubscribe()

	created, err := h.dm.AddGame(ctx, catalog.Game{Name: "Space  Invaders!", Category: "arcade", ViewCount: 99, IsActive: true})
	if err != nil {
		t.Fatalf("AddGame failed: %v", err)
	}
	if created.ID != "space-invaders" {
		t.Errorf("Expected id space-invaders, got %q", created.ID)
	}
	if created.ViewCount != 0 {
		t.Errorf("Expected zeroed counters, got %d views", created.ViewCount)
	}
	if created.AddedDate != "2024-06-01" {
		t.Errorf("Expected added date 2024-06-01, got %q", created.AddedDate)
	}
	if events.Load() != 1 {
		t.Errorf("Expected 1 event, got %d", events.Load())
	}

	if _, ok := h.dm.GetGameByID(ctx, "space-invaders"); !ok {
		t.Error("Expected the new game served by id")
	}
	if calls := h.api.getCalls.Load(); calls != 0 {
		t.Errorf("Expected no network read, got %d", calls)
	}

	if _, err := h.dm.AddGame(ctx, catalog.Game{Name: "!!!"}); !errors.Is(err, ErrInvalidGame) {
		t.Errorf("Expected ErrInvalidGame, got %v", err)
	}
	if _, err := h.dm.AddGame(ctx, catalog.Game{Name: "Space Invaders"}); err == nil {
		t.Error("Expected a duplicate to be rejected")
	}
}

func TestDataManager_FailedMutationChangesNothing(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), bus)
	ctx := context.Background()

	h.dm.Initialize(ctx)

	var events atomic.Int32
	bus.Subscribe(notify.GamesUpdated, func(ctx context.Context, e notify.Event) {
		events.Add(1)
	})

	h.api.fail.Store(true)
	name := "Broken"
	if _, err := h.dm.UpdateGame(ctx, "tetris", catalog.GamePatch{Name: &name}); !errors.Is(err, errUnavailable) {
		t.Errorf("Expected errUnavailable, got %v", err)
	}

	if g, _ := h.dm.LookupGame("tetris"); g.Name != "Tetris" {
		t.Errorf("Expected mirror untouched, got %q", g.Name)
	}
	if _, err := h.cache.Get(ctx, "all-games"); err != nil {
		t.Errorf("Expected cache untouched, got %v", err)
	}
	if events.Load() != 0 {
		t.Errorf("Expected no event, got %d", events.Load())
	}
	if counts := h.metrics.Mutations(collectionGames); counts.Failed != 1 {
		t.Errorf("Expected 1 failed mutation, got %+v", counts)
	}
}

func TestDataManager_FallbackOnFetchFailure(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	h.dm.Initialize(ctx)
	h.clock.Advance(2 * time.Hour)
	h.api.fail.Store(true)

	hot := h.dm.GetHotGames(ctx, 2)
	if len(hot) != 2 || hot[0].ID != "doom" || hot[1].ID != "sudoku" {
		t.Errorf("Expected hot games from the mirror, got %+v", hot)
	}
	if g, ok := h.dm.GetGameByID(ctx, "tetris"); !ok || g.ID != "tetris" {
		t.Errorf("Expected tetris from the mirror, got %+v", g)
	}
	if got := h.dm.SearchGames(ctx, "puzzle", 0); len(got) != 2 {
		t.Errorf("Expected 2 search results from the mirror, got %d", len(got))
	}
	if n := h.metrics.Fetches(opHotGames, metrics.SourceFallback); n != 1 {
		t.Errorf("Expected 1 fallback answer, got %d", n)
	}

	// fallback answers are not cached
	h.api.fail.Store(false)
	before := h.api.listCalls.Load()
	h.dm.GetHotGames(ctx, 2)
	if calls := h.api.listCalls.Load(); calls != before+1 {
		t.Errorf("Expected a network retry, got %d calls", calls-before)
	}
}

func TestDataManager_FallbackMaxAge(t *testing.T) {
	config := DefaultConfig()
	config.FallbackMaxAge = 30 * time.Minute
	h := newHarness(t, newFakeAPI(sampleGames()...), config, nil)
	ctx := context.Background()

	h.dm.Initialize(ctx)
	h.api.fail.Store(true)

	h.clock.Advance(10 * time.Minute)
	if got := h.dm.GetNewGames(ctx, 8); len(got) != 3 {
		t.Errorf("Expected a fresh mirror to answer, got %d", len(got))
	}

	age, ok := h.dm.Staleness()
	if !ok || age != 10*time.Minute {
		t.Errorf("Expected staleness 10m, got %v (%v)", age, ok)
	}

	h.clock.Advance(2 * time.Hour)
	if got := h.dm.GetAllGames(ctx); len(got) != 0 {
		t.Errorf("Expected an expired mirror to answer empty, got %d", len(got))
	}
}

func TestDataManager_FallbackWithoutData(t *testing.T) {
	api := newFakeAPI()
	api.fail.Store(true)
	h := newHarness(t, api, DefaultConfig(), nil)
	ctx := context.Background()

	if err := h.dm.Initialize(ctx); !errors.Is(err, errUnavailable) {
		t.Errorf("Expected Initialize to report the failure, got %v", err)
	}
	if got := h.dm.GetAllGames(ctx); len(got) != 0 {
		t.Errorf("Expected no games, got %d", len(got))
	}
	if _, ok := h.dm.Staleness(); ok {
		t.Error("Expected no staleness before a successful fetch")
	}
	if got := h.dm.GetHomepageContent(ctx); got["newGames"] == nil {
		t.Error("Expected default homepage content")
	}
	if got := h.dm.GetSeoSettings(ctx); got.SiteName != catalog.DefaultSeoDocument().SeoSettings.SiteName {
		t.Errorf("Expected default SEO settings, got %q", got.SiteName)
	}
}

func TestDataManager_Seed(t *testing.T) {
	api := newFakeAPI()
	api.fail.Store(true)

	dm, err := New(DefaultConfig(), Dependencies{API: api, Seed: sampleGames()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer dm.Close()

	if got := dm.GetHotGames(context.Background(), 1); len(got) != 1 || got[0].ID != "doom" {
		t.Errorf("Expected doom from the seed, got %+v", got)
	}
}

func TestDataManager_Coalesce(t *testing.T) {
	tests := []struct {
		name     string
		coalesce bool
		want     int64
	}{
		{"coalesced", true, 1},
		{"independent", false, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI(sampleGames()...)
			api.block = make(chan struct{})
			config := DefaultConfig()
			config.Coalesce = tt.coalesce
			h := newHarness(t, api, config, nil)

			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if got := h.dm.GetAllGames(context.Background()); len(got) != 3 {
						t.Errorf("Expected 3 games, got %d", len(got))
					}
				}()
			}

			for api.listCalls.Load() < tt.want {
				time.Sleep(time.Millisecond)
			}
			time.Sleep(20 * time.Millisecond)
			close(api.block)
			wg.Wait()

			if calls := api.listCalls.Load(); calls != tt.want {
				t.Errorf("Expected %d list calls, got %d", tt.want, calls)
			}
		})
	}
}

func TestDataManager_InvalidationDuringFetch(t *testing.T) {
	api := newFakeAPI(sampleGames()...)
	api.block = make(chan struct{})
	h := newHarness(t, api, DefaultConfig(), nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		h.dm.GetAllGames(ctx)
		close(done)
	}()

	for api.listCalls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	h.dm.invalidate(ctx, gamesNamespace)
	close(api.block)
	<-done

	if _, err := h.cache.Get(ctx, "all-games"); !cache.IsNotFound(err) {
		t.Errorf("Expected the in-flight result not cached, got %v", err)
	}
}

func TestDataManager_WriteDuringFetch(t *testing.T) {
	api := newFakeAPI(sampleGames()...)
	api.stale = make(chan struct{})
	h := newHarness(t, api, DefaultConfig(), nil)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		h.dm.GetAllGames(ctx)
		close(done)
	}()

	for !api.staleUsed.Load() {
		time.Sleep(time.Millisecond)
	}
	if err := h.dm.DeleteGame(ctx, "sudoku"); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}

	if got := ids(h.dm.GetAllGames(ctx)); len(got) != 2 || slices.Contains(got, "sudoku") {
		t.Errorf("Expected a read after the delete to skip sudoku, got %v", got)
	}

	close(api.stale)
	<-done

	if g, ok := h.dm.LookupGame("sudoku"); !ok || g.IsActive {
		t.Errorf("Expected the mirror to keep sudoku inactive, got %+v", g)
	}
	if got := ids(h.dm.GetAllGames(ctx)); slices.Contains(got, "sudoku") {
		t.Errorf("Expected the older snapshot not cached, got %v", got)
	}
	if calls := api.listCalls.Load(); calls != 2 {
		t.Errorf("Expected 2 list calls, got %d", calls)
	}
}

func TestDataManager_CrossInstance(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()
	api := newFakeAPI(sampleGames()...)
	admin := newHarness(t, api, DefaultConfig(), bus)
	viewer := newHarness(t, api, DefaultConfig(), bus)
	ctx := context.Background()

	if got := viewer.dm.GetAllGames(ctx); len(got) != 3 {
		t.Fatalf("Expected 3 games, got %d", len(got))
	}

	var (
		observed []string
		cached   error
	)
	unsubscribe := viewer.dm.Subscribe(notify.GamesUpdated, func(ctx context.Context, e notify.Event) {
		_, cached = viewer.cache.Get(ctx, "all-games")
		observed = ids(viewer.dm.GetAllGames(ctx))
	})
	defer unsubscribe()

	if err := admin.dm.DeleteGame(ctx, "sudoku"); err != nil {
		t.Fatalf("DeleteGame failed: %v", err)
	}

	if !cache.IsNotFound(cached) {
		t.Errorf("Expected the viewer's cache invalidated before its listener ran, got %v", cached)
	}
	if !equalIDs(observed, "tetris", "doom") {
		t.Errorf("Expected the listener to observe the delete, got %v", observed)
	}

	// after teardown the listener no longer runs
	unsubscribe()
	observed = nil
	name := "Doom II"
	admin.dm.UpdateGame(ctx, "doom", catalog.GamePatch{Name: &name})
	if observed != nil {
		t.Errorf("Expected no delivery after unsubscribe, got %v", observed)
	}
}

func TestDataManager_OwnEventDoesNotDropSeed(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), bus)
	ctx := context.Background()

	name := "Tetris 2"
	if _, err := h.dm.UpdateGame(ctx, "tetris", catalog.GamePatch{Name: &name}); err != nil {
		t.Fatalf("UpdateGame failed: %v", err)
	}
	if _, err := h.cache.Get(ctx, "game-tetris"); err != nil {
		t.Errorf("Expected game-tetris seeded, got %v", err)
	}
}

func TestDataManager_RemoteEvent(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), bus)
	ctx := context.Background()

	h.dm.GetAllGames(ctx)
	h.dm.GetAllCategories(ctx)

	bus.Deliver(ctx, notify.Event{Topic: notify.GamesUpdated, Origin: "elsewhere"})

	if _, err := h.cache.Get(ctx, "all-games"); !cache.IsNotFound(err) {
		t.Errorf("Expected all-games invalidated, got %v", err)
	}
	if _, err := h.cache.Get(ctx, "all-categories"); err != nil {
		t.Errorf("Expected all-categories kept, got %v", err)
	}
}

func TestDataManager_Documents(t *testing.T) {
	h := newHarness(t, newFakeAPI(), DefaultConfig(), nil)
	ctx := context.Background()

	categories := []catalog.Category{
		{ID: "puzzle", Name: "Puzzle", IsActive: true},
		{ID: "retired", Name: "Retired", IsActive: false},
	}
	if err := h.dm.SaveCategories(ctx, categories); err != nil {
		t.Fatalf("SaveCategories failed: %v", err)
	}
	if got := h.dm.GetAllCategories(ctx); len(got) != 1 || got[0].ID != "puzzle" {
		t.Errorf("Expected [puzzle], got %+v", got)
	}
	if c, ok := h.dm.GetCategoryByID(ctx, "puzzle"); !ok || c.Name != "Puzzle" {
		t.Errorf("Expected puzzle, got %+v", c)
	}
	if _, ok := h.dm.GetCategoryByID(ctx, "retired"); ok {
		t.Error("Expected inactive category hidden")
	}

	entries := []catalog.FeaturedGame{
		{ID: "b", Title: "B", IsActive: true, Order: 2},
		{ID: "a", Title: "A", IsActive: true, Order: 1},
		{ID: "x", Title: "X", IsActive: false, Order: 0},
	}
	if err := h.dm.SaveFeaturedEntries(ctx, entries); err != nil {
		t.Fatalf("SaveFeaturedEntries failed: %v", err)
	}
	if got := h.dm.GetFeaturedEntries(ctx); len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Errorf("Expected [a b], got %+v", got)
	}

	settings := catalog.DefaultSeoDocument().SeoSettings
	settings.SiteName = "Arcade"
	h.dm.GetSiteConfig(ctx)
	if err := h.dm.SaveSeoSettings(ctx, settings); err != nil {
		t.Fatalf("SaveSeoSettings failed: %v", err)
	}
	if got := h.dm.GetSiteConfig(ctx); got.SiteName != "Arcade" {
		t.Errorf("Expected site name Arcade, got %q", got.SiteName)
	}
	if got := h.dm.GetSeoSettings(ctx); got.SiteName != "Arcade" {
		t.Errorf("Expected site name Arcade, got %q", got.SiteName)
	}

	h.dm.GetHomepageContent(ctx)
	if err := h.dm.SaveHomepageContent(ctx, catalog.HomepageContent{"hero": map[string]any{"title": "Hi"}}); err != nil {
		t.Fatalf("SaveHomepageContent failed: %v", err)
	}
	if got := h.dm.GetHomepageContent(ctx); got["hero"] == nil || got["newGames"] != nil {
		t.Errorf("Expected the saved homepage, got %v", got)
	}

	footer := catalog.DefaultFooterContent()
	footer.CustomHTML = "<p>hi</p>"
	if err := h.dm.SaveFooterContent(ctx, footer); err != nil {
		t.Fatalf("SaveFooterContent failed: %v", err)
	}
	if got := h.dm.GetFooterContent(ctx); got.CustomHTML != "<p>hi</p>" {
		t.Errorf("Expected the saved footer, got %q", got.CustomHTML)
	}

	// mirrors answer once the API is gone
	h.clock.Advance(2 * time.Hour)
	h.api.fail.Store(true)
	if got := h.dm.GetAllCategories(ctx); len(got) != 1 {
		t.Errorf("Expected categories from the mirror, got %d", len(got))
	}
	if got := h.dm.GetFooterContent(ctx); got.CustomHTML != "<p>hi</p>" {
		t.Errorf("Expected footer from the mirror, got %q", got.CustomHTML)
	}
}

func TestDataManager_RecordStats(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	h.dm.Initialize(ctx)

	h.dm.RecordView(ctx, "tetris")
	h.dm.RecordView(ctx, "tetris")
	h.dm.RecordPlay(ctx, "tetris")

	if g, _ := h.dm.LookupGame("tetris"); g.ViewCount != 12 || g.PlayCount != 1 {
		t.Errorf("Expected mirror counters 12/1, got %d/%d", g.ViewCount, g.PlayCount)
	}

	if err := h.dm.FlushStats(time.Second); err != nil {
		t.Fatalf("FlushStats failed: %v", err)
	}
	h.api.mu.Lock()
	views, plays := h.api.views["tetris"], h.api.plays["tetris"]
	h.api.mu.Unlock()
	if views != 2 || plays != 1 {
		t.Errorf("Expected 2 views and 1 play sent, got %d and %d", views, plays)
	}
	if d := h.dm.StatsDelivery(); d.Applied != 3 || d.Backlog() != 0 {
		t.Errorf("Expected 3 increments delivered, got %+v", d)
	}
}

func TestDataManager_Refresh(t *testing.T) {
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), nil)
	ctx := context.Background()

	h.dm.GetHotGames(ctx, 3)
	if err := h.dm.Refresh(ctx); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := h.cache.Get(ctx, "hot-games-3"); !cache.IsNotFound(err) {
		t.Errorf("Expected hot-games-3 cleared, got %v", err)
	}
	if _, err := h.cache.Get(ctx, "all-games"); err != nil {
		t.Errorf("Expected all-games reloaded, got %v", err)
	}
}

func TestDataManager_Close(t *testing.T) {
	bus := notify.NewBus()
	defer bus.Close()
	h := newHarness(t, newFakeAPI(sampleGames()...), DefaultConfig(), bus)

	if err := h.dm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if n := bus.Subscribers(notify.GamesUpdated); n != 0 {
		t.Errorf("Expected no subscriptions after Close, got %d", n)
	}

	name := "X"
	if _, err := h.dm.UpdateGame(context.Background(), "tetris", catalog.GamePatch{Name: &name}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
	if err := h.dm.Close(); err != nil {
		t.Errorf("Expected a second Close to succeed, got %v", err)
	}
}

func TestNamespaceFor(t *testing.T) {
	for _, topic := range notify.Topics() {
		if _, ok := NamespaceFor(topic); !ok {
			t.Errorf("Expected a namespace for %s", topic)
		}
	}

	games, _ := NamespaceFor(notify.GamesUpdated)
	tests := []struct {
		key  string
		owns bool
	}{
		{"all-games", true},
		{"game-tetris", true},
		{"hot-games-8", true},
		{"games-category-puzzle-0", true},
		{"search-games-puzzle-0", true},
		{"related-games-tetris-6", true},
		{"all-categories", false},
		{"featured-entries", false},
	}
	for _, tt := range tests {
		if got := games.Owns(tt.key); got != tt.owns {
			t.Errorf("Owns(%q): expected %v, got %v", tt.key, tt.owns, got)
		}
	}
}

func TestDecode(t *testing.T) {
	hot := []catalog.HotGame{{ID: "doom", ViewCount: 50}}
	raw, _ := json.Marshal(hot)

	tests := []struct {
		name  string
		value interface{}
		ok    bool
	}{
		{"native", hot, true},
		{"raw message", json.RawMessage(raw), true},
		{"bytes", raw, true},
		{"garbage", json.RawMessage(`{"nope"`), false},
		{"wrong type", 42, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decode[[]catalog.HotGame](tt.value)
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && (len(got) != 1 || got[0].ID != "doom") {
				t.Errorf("Expected [doom], got %+v", got)
			}
		})
	}
}
