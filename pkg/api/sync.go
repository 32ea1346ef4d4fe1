package api

import (
	"context"

	"gamehub/pkg/notify"
	"gamehub/pkg/store"
)

var topicCollections = map[notify.Topic]store.Collection{
	notify.GamesUpdated:         store.Games,
	notify.CategoriesUpdated:    store.Categories,
	notify.FeaturedGamesUpdated: store.FeaturedGames,
	notify.HomepageUpdated:      store.Homepage,
	notify.SeoSettingsUpdated:   store.SeoSettings,
	notify.FooterUpdated:        store.Footer,
}

// CollectionFor returns the collection a topic announces.
func CollectionFor(topic notify.Topic) (store.Collection, bool) {
	c, ok := topicCollections[topic]
	return c, ok
}

// InvalidateOnEvents drops st's cached read of a collection whenever its
// topic is published, so API instances sharing a backend stay coherent.
func InvalidateOnEvents(n notify.Notifier, st *store.Store) (unsubscribe func()) {
	unsubs := make([]func(), 0, len(topicCollections))
	for topic, c := range topicCollections {
		c := c
		unsubs = append(unsubs, n.Subscribe(topic, func(ctx context.Context, e notify.Event) {
			st.Invalidate(ctx, c)
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
