package datamanager

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gamehub/pkg/cache"
	"gamehub/pkg/catalog"
	"gamehub/pkg/notify"
)

// Mutation metric labels.
const (
	collectionGames      = "games"
	collectionCategories = "categories"
	collectionFeatured   = "featuredGames"
	collectionHomepage   = "homepage"
	collectionSeo        = "seoSettings"
	collectionFooter     = "footer"
)

// mutation is one write: call goes to the API, apply updates the mirror,
// seed optionally re-caches the written record after invalidation.
type mutation struct {
	collection string
	ns         cache.Namespace
	topic      notify.Topic
	call       func(ctx context.Context) error
	apply      func()
	seed       func(ctx context.Context)
}

// mutate runs w in order: API, mirror, invalidation, seed, announcement.
// A failed API call changes nothing and announces nothing.
func (m *DataManager) mutate(ctx context.Context, w mutation) error {
	if m.closed.Load() {
		return ErrClosed
	}

	if err := w.call(ctx); err != nil {
		m.metrics.RecordMutation(w.collection, false)
		m.logger.Warn("mutation rejected", zap.String("collection", w.collection), zap.Error(err))
		return fmt.Errorf("datamanager: %s: %w", w.collection, err)
	}
	m.metrics.RecordMutation(w.collection, true)

	m.gen.Add(1)
	w.apply()
	m.invalidate(ctx, w.ns)
	if w.seed != nil {
		w.seed(ctx)
	}
	m.publish(ctx, w.topic)
	return nil
}

// AddGame creates g. A missing id is derived from the name; counters are
// zeroed and the added date is stamped. The record as stored is returned.
func (m *DataManager) AddGame(ctx context.Context, g catalog.Game) (catalog.Game, error) {
	record := catalog.NewGameRecord(g, m.clock.Now())
	if record.ID == "" {
		return catalog.Game{}, ErrInvalidGame
	}

	var created catalog.Game
	err := m.mutate(ctx, mutation{
		collection: collectionGames,
		ns:         gamesNamespace,
		topic:      notify.GamesUpdated,
		call: func(ctx context.Context) (err error) {
			created, err = m.api.CreateGame(ctx, record)
			return err
		},
		apply: func() {
			if created.ID == "" {
				created = record
			}
			m.upsertGame(created)
		},
		seed: func(ctx context.Context) { m.seedGame(ctx, created) },
	})
	if err != nil {
		return catalog.Game{}, err
	}
	return created, nil
}

// UpdateGame applies patch to game id. The updated record is visible to
// LookupGame and GetGameByID as soon as UpdateGame returns.
func (m *DataManager) UpdateGame(ctx context.Context, id string, patch catalog.GamePatch) (catalog.Game, error) {
	if patch.IsEmpty() {
		return catalog.Game{}, ErrEmptyPatch
	}

	var updated catalog.Game
	err := m.mutate(ctx, mutation{
		collection: collectionGames,
		ns:         gamesNamespace,
		topic:      notify.GamesUpdated,
		call: func(ctx context.Context) (err error) {
			updated, err = m.api.UpdateGame(ctx, id, patch)
			return err
		},
		apply: func() {
			if updated.ID == "" {
				current, _ := m.LookupGame(id)
				current.ID = id
				updated = patch.Apply(current)
			}
			m.upsertGame(updated)
		},
		seed: func(ctx context.Context) { m.seedGame(ctx, updated) },
	})
	if err != nil {
		return catalog.Game{}, err
	}
	return updated, nil
}

// seedGame caches g under its id key, so a read right after a write does
// not go back to the API. Inactive records are not served by id.
func (m *DataManager) seedGame(ctx context.Context, g catalog.Game) {
	if !g.IsActive {
		return
	}
	m.populate(ctx, cache.Key(opGame, g.ID), g, m.config.TTL.Game, m.gen.Load())
}

// DeleteGame soft-deletes game id: the record stays with IsActive false.
func (m *DataManager) DeleteGame(ctx context.Context, id string) error {
	_, err := m.UpdateGame(ctx, id, catalog.Deactivate())
	return err
}

// SaveCategories replaces the categories collection.
func (m *DataManager) SaveCategories(ctx context.Context, categories []catalog.Category) error {
	return m.mutate(ctx, mutation{
		collection: collectionCategories,
		ns:         categoriesNamespace,
		topic:      notify.CategoriesUpdated,
		call: func(ctx context.Context) error {
			return m.api.SaveCategories(ctx, categories)
		},
		apply: func() {
			m.mu.Lock()
			m.categories = append([]catalog.Category(nil), categories...)
			m.mu.Unlock()
		},
	})
}

// SaveFeaturedEntries replaces the curated homepage entries.
func (m *DataManager) SaveFeaturedEntries(ctx context.Context, entries []catalog.FeaturedGame) error {
	return m.mutate(ctx, mutation{
		collection: collectionFeatured,
		ns:         featuredNamespace,
		topic:      notify.FeaturedGamesUpdated,
		call: func(ctx context.Context) error {
			return m.api.SaveFeaturedEntries(ctx, entries)
		},
		apply: func() {
			m.mu.Lock()
			m.featured = append([]catalog.FeaturedGame(nil), entries...)
			m.mu.Unlock()
		},
	})
}

// SaveHomepageContent replaces the homepage sections.
func (m *DataManager) SaveHomepageContent(ctx context.Context, content catalog.HomepageContent) error {
	return m.mutate(ctx, mutation{
		collection: collectionHomepage,
		ns:         homepageNamespace,
		topic:      notify.HomepageUpdated,
		call: func(ctx context.Context) error {
			return m.api.SaveHomepageContent(ctx, content)
		},
		apply: func() {
			m.mu.Lock()
			m.homepage = content
			m.mu.Unlock()
		},
	})
}

// SaveSeoSettings replaces the SEO settings.
func (m *DataManager) SaveSeoSettings(ctx context.Context, settings catalog.SeoSettings) error {
	doc := catalog.SeoDocument{SeoSettings: settings}
	return m.mutate(ctx, mutation{
		collection: collectionSeo,
		ns:         seoNamespace,
		topic:      notify.SeoSettingsUpdated,
		call: func(ctx context.Context) error {
			return m.api.SaveSeoSettings(ctx, doc)
		},
		apply: func() {
			m.mu.Lock()
			m.seo = &doc
			m.mu.Unlock()
		},
	})
}

// SaveFooterContent replaces the site footer.
func (m *DataManager) SaveFooterContent(ctx context.Context, footer catalog.FooterContent) error {
	return m.mutate(ctx, mutation{
		collection: collectionFooter,
		ns:         footerNamespace,
		topic:      notify.FooterUpdated,
		call: func(ctx context.Context) error {
			return m.api.SaveFooterContent(ctx, footer)
		},
		apply: func() {
			m.mu.Lock()
			m.footer = &footer
			m.mu.Unlock()
		},
	})
}
