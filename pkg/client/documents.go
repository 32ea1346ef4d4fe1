package client

import (
	"context"
	"net/http"

	"gamehub/pkg/catalog"
)

// ListCategories returns every category, active or not.
func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	return getList[catalog.Category](ctx, c, request{method: http.MethodGet, path: "/api/categories"})
}

// SaveCategories replaces the categories collection.
func (c *Client) SaveCategories(ctx context.Context, categories []catalog.Category) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/api/admin/categories", body: categories, auth: true}, nil)
}

// ListFeaturedEntries returns the featured entries. With a token inactive
// entries are included.
func (c *Client) ListFeaturedEntries(ctx context.Context) ([]catalog.FeaturedGame, error) {
	if c.Admin() {
		return getList[catalog.FeaturedGame](ctx, c, request{method: http.MethodGet, path: "/api/admin/featured-games", auth: true})
	}
	return getList[catalog.FeaturedGame](ctx, c, request{method: http.MethodGet, path: "/api/featured-games"})
}

// SaveFeaturedEntries replaces the featured entries.
func (c *Client) SaveFeaturedEntries(ctx context.Context, entries []catalog.FeaturedGame) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/api/admin/featured-games", body: entries, auth: true}, nil)
}

// HomepageContent returns the homepage document.
func (c *Client) HomepageContent(ctx context.Context) (catalog.HomepageContent, error) {
	var content catalog.HomepageContent
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/homepage"}, &content)
	return content, err
}

// SaveHomepageContent replaces the homepage document.
func (c *Client) SaveHomepageContent(ctx context.Context, content catalog.HomepageContent) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/api/admin/homepage", body: content, auth: true}, nil)
}

// SeoSettings returns the SEO document.
func (c *Client) SeoSettings(ctx context.Context) (catalog.SeoDocument, error) {
	var doc catalog.SeoDocument
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/seo-settings"}, &doc)
	return doc, err
}

// SaveSeoSettings replaces the SEO document.
func (c *Client) SaveSeoSettings(ctx context.Context, doc catalog.SeoDocument) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/api/admin/seo-settings", body: doc, auth: true}, nil)
}

// FooterContent returns the footer document.
func (c *Client) FooterContent(ctx context.Context) (catalog.FooterContent, error) {
	var footer catalog.FooterContent
	err := c.do(ctx, request{method: http.MethodGet, path: "/api/footer"}, &footer)
	return footer, err
}

// SaveFooterContent replaces the footer document.
func (c *Client) SaveFooterContent(ctx context.Context, footer catalog.FooterContent) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/api/admin/footer", body: footer, auth: true}, nil)
}
