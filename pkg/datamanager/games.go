package datamanager

import (
	"context"
	"errors"
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/catalog"
	"gamehub/pkg/client"
)

// Default list sizes for n <= 0.
const (
	DefaultHotGames      = 8
	DefaultNewGames      = 8
	DefaultFeaturedGames = 8
	DefaultRelatedGames  = 6
)

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

func cloneGames(games []catalog.Game) []catalog.Game {
	out := make([]catalog.Game, len(games))
	for i, g := range games {
		out[i] = g.Clone()
	}
	return out
}

// mirrorGames returns a copy of the mirror.
func (m *DataManager) mirrorGames() []catalog.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneGames(m.games)
}

// fallbackGames returns the mirror, or nothing once it is older than
// FallbackMaxAge.
func (m *DataManager) fallbackGames() []catalog.Game {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if max := m.config.FallbackMaxAge; max > 0 && m.clock.Now().Sub(m.gamesAt) > max {
		return nil
	}
	return cloneGames(m.games)
}

// setGames replaces the mirror with a snapshot fetched at gen.
func (m *DataManager) setGames(gen uint64, games []catalog.Game) {
	m.remember(gen, func() {
		m.games = cloneGames(games)
		m.gamesAt = m.clock.Now()
	})
}

// upsertGame replaces the mirror record with g.ID or appends g.
func (m *DataManager) upsertGame(g catalog.Game) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putGame(g)
}

func (m *DataManager) putGame(g catalog.Game) {
	for i := range m.games {
		if m.games[i].ID == g.ID {
			m.games[i] = g.Clone()
			return
		}
	}
	m.games = append(m.games, g.Clone())
}

// fetchGames reads the collection from the API and refreshes the mirror.
func (m *DataManager) fetchGames(ctx context.Context, gen uint64) ([]catalog.Game, error) {
	games, err := m.api.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	m.setGames(gen, games)
	return games, nil
}

// gamesLoader builds a loader deriving its result from the whole
// collection, fetched or mirrored.
func gamesLoader[T any](m *DataManager, op, key string, ttl time.Duration, derive func([]catalog.Game) T) loader[T] {
	return loader[T]{
		op:  op,
		key: key,
		ttl: ttl,
		fetch: func(ctx context.Context, gen uint64) (T, error) {
			games, err := m.fetchGames(ctx, gen)
			if err != nil {
				var zero T
				return zero, err
			}
			return derive(games), nil
		},
		fallback: func() T {
			return derive(m.fallbackGames())
		},
	}
}

func (m *DataManager) allGamesLoader() loader[[]catalog.Game] {
	return gamesLoader(m, opAllGames, opAllGames, m.config.TTL.AllGames, catalog.Active)
}

// GetAllGames returns the active games in stored order.
func (m *DataManager) GetAllGames(ctx context.Context) []catalog.Game {
	return load(ctx, m, m.allGamesLoader())
}

// GetGameByID returns the active game with id.
func (m *DataManager) GetGameByID(ctx context.Context, id string) (catalog.Game, bool) {
	g := load(ctx, m, loader[catalog.Game]{
		op:  opGame,
		key: cache.Key(opGame, id),
		ttl: m.config.TTL.Game,
		fetch: func(ctx context.Context, gen uint64) (catalog.Game, error) {
			g, err := m.api.GetGame(ctx, id)
			if err != nil {
				if errors.Is(err, client.ErrNotFound) {
					return catalog.Game{}, errMissing
				}
				return catalog.Game{}, err
			}
			m.remember(gen, func() { m.putGame(g) })
			return g, nil
		},
		fallback: func() catalog.Game {
			g, ok := catalog.FindByID(m.fallbackGames(), id)
			if !ok || !g.IsActive {
				return catalog.Game{}
			}
			return g
		},
	})
	return g, g.ID != "" && g.IsActive
}

// LookupGame finds id in the mirror, active or not, without any I/O.
func (m *DataManager) LookupGame(id string) (catalog.Game, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := catalog.FindByID(m.games, id)
	if !ok {
		return catalog.Game{}, false
	}
	return g.Clone(), true
}

// GetHotGames returns the n most viewed active games.
func (m *DataManager) GetHotGames(ctx context.Context, n int) []catalog.HotGame {
	n = orDefault(n, DefaultHotGames)
	return load(ctx, m, gamesLoader(m, opHotGames, cache.Key(opHotGames, n), m.config.TTL.HotGames,
		func(games []catalog.Game) []catalog.HotGame {
			return catalog.HotGames(games, n)
		}))
}

// GetNewGames returns the n most recently added active games.
func (m *DataManager) GetNewGames(ctx context.Context, n int) []catalog.NewGame {
	n = orDefault(n, DefaultNewGames)
	return load(ctx, m, gamesLoader(m, opNewGames, cache.Key(opNewGames, n), m.config.TTL.NewGames,
		func(games []catalog.Game) []catalog.NewGame {
			return catalog.NewGames(games, n)
		}))
}

// SearchGames matches query against name, description, category,
// developer and tags, ignoring case. limit <= 0 returns every match.
func (m *DataManager) SearchGames(ctx context.Context, query string, limit int) []catalog.Game {
	if limit < 0 {
		limit = 0
	}
	return load(ctx, m, gamesLoader(m, opSearchGames, searchKey(query, limit), m.config.TTL.Search,
		func(games []catalog.Game) []catalog.Game {
			return catalog.Search(games, query, limit)
		}))
}

// GetRelatedGames returns up to n active games related to game id, best
// first. An unknown id has no related games.
func (m *DataManager) GetRelatedGames(ctx context.Context, id string, n int) []catalog.Game {
	n = orDefault(n, DefaultRelatedGames)
	return load(ctx, m, gamesLoader(m, opRelatedGames, cache.Key(opRelatedGames, id, n), m.config.TTL.Related,
		func(games []catalog.Game) []catalog.Game {
			source, ok := catalog.FindByID(games, id)
			if !ok || !source.IsActive {
				return []catalog.Game{}
			}
			return catalog.RelatedGames(games, source, n)
		}))
}

// GetGamesByCategory returns active games in category. limit <= 0 returns
// all of them.
func (m *DataManager) GetGamesByCategory(ctx context.Context, category string, limit int) []catalog.Game {
	if limit < 0 {
		limit = 0
	}
	return load(ctx, m, gamesLoader(m, opCategoryGames, cache.Key(opCategoryGames, category, limit), m.config.TTL.CategoryGames,
		func(games []catalog.Game) []catalog.Game {
			return catalog.ByCategory(games, category, limit)
		}))
}

// GetGamesByTag returns active games carrying tag.
func (m *DataManager) GetGamesByTag(ctx context.Context, tag string, limit int) []catalog.Game {
	if limit < 0 {
		limit = 0
	}
	return load(ctx, m, gamesLoader(m, opTagGames, cache.Key(opTagGames, tag, limit), m.config.TTL.CategoryGames,
		func(games []catalog.Game) []catalog.Game {
			return catalog.ByTag(games, tag, limit)
		}))
}

// GetFeaturedGames returns active games flagged featured.
func (m *DataManager) GetFeaturedGames(ctx context.Context, limit int) []catalog.Game {
	limit = orDefault(limit, DefaultFeaturedGames)
	return load(ctx, m, gamesLoader(m, opFeaturedGames, cache.Key(opFeaturedGames, limit), m.config.TTL.FeaturedGames,
		func(games []catalog.Game) []catalog.Game {
			return catalog.Featured(games, limit)
		}))
}
