package store

import (
	"context"
	"fmt"

	"gamehub/pkg/catalog"

	"go.uber.org/zap"
)

func noGames() []catalog.Game { return []catalog.Game{} }

// readGames loads the games document and refreshes the id index whenever
// the backend was read.
func (s *Store) readGames(ctx context.Context, strict bool) ([]catalog.Game, error) {
	games, fromBackend, err := readDocumentSource(ctx, s, Games, noGames, strict)
	if err != nil {
		return nil, err
	}
	if games == nil {
		games = noGames()
	}

	if fromBackend {
		s.indexGames(games)
	}
	return games, nil
}

func (s *Store) indexGames(games []catalog.Game) {
	ids := make([]string, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	s.index.rebuild(ids, s.clock.Now().Add(s.ttl))
}

// Games returns every game record, active or not.
func (s *Store) Games(ctx context.Context) ([]catalog.Game, error) {
	return s.readGames(ctx, false)
}

// LightweightGames returns every game projected to the listing fields.
func (s *Store) LightweightGames(ctx context.Context) ([]catalog.LightGame, error) {
	games, err := s.Games(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Lightweight(games), nil
}

// GameByID returns one record whether active or not.
func (s *Store) GameByID(ctx context.Context, id string) (catalog.Game, error) {
	if s.index.absent(id, s.clock.Now()) {
		return catalog.Game{}, fmt.Errorf("%w: game %q", ErrNotFound, id)
	}

	games, err := s.Games(ctx)
	if err != nil {
		return catalog.Game{}, err
	}
	if g, ok := catalog.FindByID(games, id); ok {
		return g, nil
	}
	return catalog.Game{}, fmt.Errorf("%w: game %q", ErrNotFound, id)
}

// CreateGame appends a record. A missing id is derived from the name and a
// missing AddedDate is stamped with today's date. Creating an id that
// exists, active or not, fails with ErrConflict.
func (s *Store) CreateGame(ctx context.Context, g catalog.Game) (catalog.Game, error) {
	g = g.Clone()
	if g.ID == "" {
		g.ID = catalog.Slugify(g.Name)
	}
	if g.ID == "" {
		return catalog.Game{}, fmt.Errorf("%w: game needs an id or a name", ErrInvalid)
	}
	if g.AddedDate == "" {
		g.AddedDate = s.clock.Now().Format(catalog.DateLayout)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	games, err := s.readGames(ctx, true)
	if err != nil {
		return catalog.Game{}, err
	}
	if _, exists := catalog.FindByID(games, g.ID); exists {
		return catalog.Game{}, fmt.Errorf("%w: game %q exists", ErrConflict, g.ID)
	}

	games = append(games, g)
	if err := writeDocument(ctx, s, Games, games); err != nil {
		return catalog.Game{}, err
	}
	s.indexGames(games)

	s.logger.Info("game created", zap.String("id", g.ID))
	return g, nil
}

// UpdateGame applies patch to the record with id.
func (s *Store) UpdateGame(ctx context.Context, id string, patch catalog.GamePatch) (catalog.Game, error) {
	return s.mutateGame(ctx, id, func(g catalog.Game) catalog.Game {
		return patch.Apply(g)
	})
}

// DeactivateGame soft-deletes the record: it stays in the collection with
// IsActive cleared.
func (s *Store) DeactivateGame(ctx context.Context, id string) (catalog.Game, error) {
	return s.UpdateGame(ctx, id, catalog.Deactivate())
}

// RecordStats adds views and plays to the record's counters.
func (s *Store) RecordStats(ctx context.Context, id string, views, plays int64) (catalog.Game, error) {
	if views < 0 || plays < 0 {
		return catalog.Game{}, fmt.Errorf("%w: negative counter increment", ErrInvalid)
	}
	return s.mutateGame(ctx, id, func(g catalog.Game) catalog.Game {
		g.ViewCount += views
		g.PlayCount += plays
		return g
	})
}

func (s *Store) mutateGame(ctx context.Context, id string, fn func(catalog.Game) catalog.Game) (catalog.Game, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	games, err := s.readGames(ctx, true)
	if err != nil {
		return catalog.Game{}, err
	}

	for i := range games {
		if games[i].ID != id {
			continue
		}
		games[i] = fn(games[i])
		games[i].ID = id
		if err := writeDocument(ctx, s, Games, games); err != nil {
			return catalog.Game{}, err
		}
		s.indexGames(games)
		return games[i], nil
	}

	return catalog.Game{}, fmt.Errorf("%w: game %q", ErrNotFound, id)
}
