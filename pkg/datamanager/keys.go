package datamanager

import (
	"strings"

	"gamehub/pkg/cache"
	"gamehub/pkg/notify"
)

// Cache key operations. Keys are built with cache.Key(op, params...).
const (
	opAllGames      = "all-games"
	opGame          = "game"
	opHotGames      = "hot-games"
	opNewGames      = "new-games"
	opCategoryGames = "games-category"
	opTagGames      = "games-tag"
	opFeaturedGames = "featured-games"
	opSearchGames   = "search-games"
	opRelatedGames  = "related-games"

	opAllCategories   = "all-categories"
	opCategory        = "category"
	opFeaturedEntries = "featured-entries"
	opHomepage        = "homepage-content"
	opSeoSettings     = "seo-settings"
	opSiteConfig      = "site-config"
	opFooter          = "footer-content"
)

func prefix(op string) string {
	return op + cache.KeySeparator
}

var (
	gamesNamespace = cache.Namespace{
		Name: "games",
		Keys: []string{opAllGames},
		Prefixes: []string{
			prefix(opGame),
			prefix(opHotGames),
			prefix(opNewGames),
			prefix(opCategoryGames),
			prefix(opTagGames),
			prefix(opFeaturedGames),
			prefix(opSearchGames),
			prefix(opRelatedGames),
		},
	}
	categoriesNamespace = cache.Namespace{
		Name:     "categories",
		Keys:     []string{opAllCategories},
		Prefixes: []string{prefix(opCategory)},
	}
	featuredNamespace = cache.Namespace{Name: "featured-entries", Keys: []string{opFeaturedEntries}}
	homepageNamespace = cache.Namespace{Name: "homepage", Keys: []string{opHomepage}}
	seoNamespace      = cache.Namespace{Name: "seo", Keys: []string{opSeoSettings, opSiteConfig}}
	footerNamespace   = cache.Namespace{Name: "footer", Keys: []string{opFooter}}
)

var topicNamespaces = map[notify.Topic]cache.Namespace{
	notify.GamesUpdated:         gamesNamespace,
	notify.CategoriesUpdated:    categoriesNamespace,
	notify.FeaturedGamesUpdated: featuredNamespace,
	notify.HomepageUpdated:      homepageNamespace,
	notify.SeoSettingsUpdated:   seoNamespace,
	notify.FooterUpdated:        footerNamespace,
}

// NamespaceFor returns the cache keys a change on topic invalidates.
func NamespaceFor(topic notify.Topic) (cache.Namespace, bool) {
	ns, ok := topicNamespaces[topic]
	return ns, ok
}

// searchKey folds the query so "Puzzle" and "PUZZLE" share an entry.
func searchKey(query string, limit int) string {
	return cache.Key(opSearchGames, strings.ToLower(strings.TrimSpace(query)), limit)
}
