package datamanager

import (
	"context"

	"gamehub/pkg/cache"
	"gamehub/pkg/catalog"
)

func (m *DataManager) allCategoriesLoader() loader[[]catalog.Category] {
	return loader[[]catalog.Category]{
		op:  opAllCategories,
		key: opAllCategories,
		ttl: m.config.TTL.Categories,
		fetch: func(ctx context.Context, gen uint64) ([]catalog.Category, error) {
			categories, err := m.api.ListCategories(ctx)
			if err != nil {
				return nil, err
			}
			m.remember(gen, func() {
				m.categories = append([]catalog.Category(nil), categories...)
			})
			return catalog.ActiveCategories(categories), nil
		},
		fallback: func() []catalog.Category {
			m.mu.RLock()
			defer m.mu.RUnlock()
			return catalog.ActiveCategories(m.categories)
		},
	}
}

// GetAllCategories returns the active categories in stored order.
func (m *DataManager) GetAllCategories(ctx context.Context) []catalog.Category {
	return load(ctx, m, m.allCategoriesLoader())
}

// GetCategoryByID returns the active category with id.
func (m *DataManager) GetCategoryByID(ctx context.Context, id string) (catalog.Category, bool) {
	derive := func(categories []catalog.Category) catalog.Category {
		c, _ := catalog.CategoryByID(categories, id)
		return c
	}
	all := m.allCategoriesLoader()

	c := load(ctx, m, loader[catalog.Category]{
		op:  opCategory,
		key: cache.Key(opCategory, id),
		ttl: m.config.TTL.Categories,
		fetch: func(ctx context.Context, gen uint64) (catalog.Category, error) {
			categories, err := all.fetch(ctx, gen)
			if err != nil {
				return catalog.Category{}, err
			}
			return derive(categories), nil
		},
		fallback: func() catalog.Category {
			return derive(all.fallback())
		},
	})
	return c, c.ID != ""
}

// GetFeaturedEntries returns the active curated homepage entries by order.
func (m *DataManager) GetFeaturedEntries(ctx context.Context) []catalog.FeaturedGame {
	return load(ctx, m, loader[[]catalog.FeaturedGame]{
		op:  opFeaturedEntries,
		key: opFeaturedEntries,
		ttl: m.config.TTL.FeaturedGames,
		fetch: func(ctx context.Context, gen uint64) ([]catalog.FeaturedGame, error) {
			entries, err := m.api.ListFeaturedEntries(ctx)
			if err != nil {
				return nil, err
			}
			m.remember(gen, func() {
				m.featured = append([]catalog.FeaturedGame(nil), entries...)
			})
			return catalog.ActiveFeatured(entries), nil
		},
		fallback: func() []catalog.FeaturedGame {
			m.mu.RLock()
			defer m.mu.RUnlock()
			return catalog.ActiveFeatured(m.featured)
		},
	})
}

// GetHomepageContent returns the homepage sections, or the default content
// when nothing was ever loaded.
func (m *DataManager) GetHomepageContent(ctx context.Context) catalog.HomepageContent {
	return load(ctx, m, loader[catalog.HomepageContent]{
		op:  opHomepage,
		key: opHomepage,
		ttl: m.config.TTL.Documents,
		fetch: func(ctx context.Context, gen uint64) (catalog.HomepageContent, error) {
			content, err := m.api.HomepageContent(ctx)
			if err != nil {
				return nil, err
			}
			m.remember(gen, func() { m.homepage = content })
			return content, nil
		},
		fallback: func() catalog.HomepageContent {
			m.mu.RLock()
			defer m.mu.RUnlock()
			if m.homepage == nil {
				return catalog.DefaultHomepageContent()
			}
			return m.homepage
		},
	})
}

func (m *DataManager) seoDocument(ctx context.Context, gen uint64) (catalog.SeoDocument, error) {
	doc, err := m.api.SeoSettings(ctx)
	if err != nil {
		return catalog.SeoDocument{}, err
	}
	m.remember(gen, func() { m.seo = &doc })
	return doc, nil
}

func (m *DataManager) fallbackSeo() catalog.SeoDocument {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.seo == nil {
		return catalog.DefaultSeoDocument()
	}
	return *m.seo
}

// GetSeoSettings returns the site-wide SEO settings.
func (m *DataManager) GetSeoSettings(ctx context.Context) catalog.SeoSettings {
	return load(ctx, m, loader[catalog.SeoSettings]{
		op:  opSeoSettings,
		key: opSeoSettings,
		ttl: m.config.TTL.Documents,
		fetch: func(ctx context.Context, gen uint64) (catalog.SeoSettings, error) {
			doc, err := m.seoDocument(ctx, gen)
			return doc.SeoSettings, err
		},
		fallback: func() catalog.SeoSettings {
			return m.fallbackSeo().SeoSettings
		},
	})
}

// GetSiteConfig returns the render-time projection of the SEO settings.
func (m *DataManager) GetSiteConfig(ctx context.Context) catalog.SiteConfig {
	return load(ctx, m, loader[catalog.SiteConfig]{
		op:  opSiteConfig,
		key: opSiteConfig,
		ttl: m.config.TTL.Documents,
		fetch: func(ctx context.Context, gen uint64) (catalog.SiteConfig, error) {
			doc, err := m.seoDocument(ctx, gen)
			return doc.SeoSettings.SiteConfig(), err
		},
		fallback: func() catalog.SiteConfig {
			return m.fallbackSeo().SeoSettings.SiteConfig()
		},
	})
}

// GetFooterContent returns the site footer.
func (m *DataManager) GetFooterContent(ctx context.Context) catalog.FooterContent {
	return load(ctx, m, loader[catalog.FooterContent]{
		op:  opFooter,
		key: opFooter,
		ttl: m.config.TTL.Documents,
		fetch: func(ctx context.Context, gen uint64) (catalog.FooterContent, error) {
			footer, err := m.api.FooterContent(ctx)
			if err != nil {
				return catalog.FooterContent{}, err
			}
			m.remember(gen, func() { m.footer = &footer })
			return footer, nil
		},
		fallback: func() catalog.FooterContent {
			m.mu.RLock()
			defer m.mu.RUnlock()
			if m.footer == nil {
				return catalog.DefaultFooterContent()
			}
			return *m.footer
		},
	})
}
