package store

import (
	"context"

	"gamehub/pkg/catalog"
)

func noCategories() []catalog.Category   { return []catalog.Category{} }
func noFeatured() []catalog.FeaturedGame { return []catalog.FeaturedGame{} }

// Categories returns every category, active or not.
func (s *Store) Categories(ctx context.Context) ([]catalog.Category, error) {
	categories, err := readDocument(ctx, s, Categories, noCategories, false)
	if categories == nil {
		categories = noCategories()
	}
	return categories, err
}

// SaveCategories replaces the categories document.
func (s *Store) SaveCategories(ctx context.Context, categories []catalog.Category) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeDocument(ctx, s, Categories, categories)
}

// FeaturedGames returns every featured entry in stored order.
func (s *Store) FeaturedGames(ctx context.Context) ([]catalog.FeaturedGame, error) {
	entries, err := readDocument(ctx, s, FeaturedGames, noFeatured, false)
	if entries == nil {
		entries = noFeatured()
	}
	return entries, err
}

// SaveFeaturedGames replaces the featured entries document.
func (s *Store) SaveFeaturedGames(ctx context.Context, entries []catalog.FeaturedGame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeDocument(ctx, s, FeaturedGames, entries)
}

// HomepageContent returns the homepage document.
func (s *Store) HomepageContent(ctx context.Context) (catalog.HomepageContent, error) {
	content, err := readDocument(ctx, s, Homepage, catalog.DefaultHomepageContent, false)
	if content == nil {
		content = catalog.DefaultHomepageContent()
	}
	return content, err
}

// SaveHomepageContent replaces the homepage document.
func (s *Store) SaveHomepageContent(ctx context.Context, content catalog.HomepageContent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeDocument(ctx, s, Homepage, content)
}

// SeoDocument returns the SEO settings document.
func (s *Store) SeoDocument(ctx context.Context) (catalog.SeoDocument, error) {
	return readDocument(ctx, s, SeoSettings, catalog.DefaultSeoDocument, false)
}

// SaveSeoDocument replaces the SEO settings document.
func (s *Store) SaveSeoDocument(ctx context.Context, doc catalog.SeoDocument) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeDocument(ctx, s, SeoSettings, doc)
}

// SiteConfig projects the SEO settings to the render-time site config.
func (s *Store) SiteConfig(ctx context.Context) (catalog.SiteConfig, error) {
	doc, err := s.SeoDocument(ctx)
	return doc.SeoSettings.SiteConfig(), err
}

// FooterContent returns the footer document.
func (s *Store) FooterContent(ctx context.Context) (catalog.FooterContent, error) {
	return readDocument(ctx, s, Footer, catalog.DefaultFooterContent, false)
}

// SaveFooterContent replaces the footer document.
func (s *Store) SaveFooterContent(ctx context.Context, content catalog.FooterContent) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return writeDocument(ctx, s, Footer, content)
}
