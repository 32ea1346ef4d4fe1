package catalog

import "sort"

// Category groups games under a listing page.
type Category struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	IsActive    bool   `json:"isActive"`
}

// ActiveCategories returns the active categories in stored order.
func ActiveCategories(categories []Category) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

// CategoryByID returns the active category with id.
func CategoryByID(categories []Category, id string) (Category, bool) {
	for _, c := range categories {
		if c.ID == id && c.IsActive {
			return c, true
		}
	}
	return Category{}, false
}

// FeaturedGame is a curated hero entry on the homepage.
type FeaturedGame struct {
	ID                string `json:"id" validate:"required"`
	Title             string `json:"title" validate:"required"`
	Description       string `json:"description"`
	Image             string `json:"image"`
	GameURL           string `json:"gameUrl"`
	IsActive          bool   `json:"isActive"`
	Order             int    `json:"order"`
	CreatedAt         string `json:"createdAt"`
	UpdatedAt         string `json:"updatedAt"`
	HasLargeImage     bool   `json:"hasLargeImage,omitempty"`
	OriginalImageSize int    `json:"originalImageSize,omitempty"`
}

// ActiveFeatured returns the active entries ordered by Order, keeping the
// stored order between equal values.
func ActiveFeatured(entries []FeaturedGame) []FeaturedGame {
	out := make([]FeaturedGame, 0, len(entries))
	for _, e := range entries {
		if e.IsActive {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}

// HomepageContent is the free-form homepage section document.
// Known section keys are listed in DefaultHomepageContent.
type HomepageContent map[string]any

// Sections returns a content holding only the named sections present in c.
func (c HomepageContent) Sections(names ...string) HomepageContent {
	out := make(HomepageContent, len(names))
	for _, name := range names {
		if v, ok := c[name]; ok {
			out[name] = v
		}
	}
	return out
}

// DefaultHomepageContent is served while no homepage document exists.
func DefaultHomepageContent() HomepageContent {
	return HomepageContent{
		"hero": map[string]any{
			"isVisible":          false,
			"title":              "GAMES",
			"subtitle":           "Best Online Gaming Platform",
			"backgroundGradient": "from-blue-500 to-purple-600",
		},
		"featuredGame": map[string]any{"isVisible": true, "showPlayButton": true},
		"newGames": map[string]any{
			"isVisible":         true,
			"title":             "New Games",
			"limit":             8,
			"showViewAllButton": true,
		},
		"features":    map[string]any{"isVisible": false, "title": "Why Play With Us", "sections": map[string]any{}},
		"whatIs":      map[string]any{"isVisible": false, "title": "What is Our Gaming Platform?", "content": map[string]any{}},
		"howToPlay":   map[string]any{"isVisible": false, "title": "How to Get Started", "steps": map[string]any{}},
		"whyChooseUs": map[string]any{"isVisible": false, "title": "Why Choose Our Platform?", "premiumSection": map[string]any{}, "communitySection": map[string]any{}},
		"faq":         map[string]any{"isVisible": false, "title": "Frequently Asked Questions", "questions": []any{}},
		"youMightAlsoLike":   map[string]any{"isVisible": true},
		"customHtmlSections": []any{},
		"sectionOrder": map[string]any{
			"featuredGame":     0,
			"newGames":         1,
			"features":         2,
			"whatIs":           3,
			"howToPlay":        4,
			"whyChooseUs":      5,
			"faq":              6,
			"youMightAlsoLike": 7,
		},
	}
}

// SeoDocument is the stored shape of the SEO settings collection.
type SeoDocument struct {
	SeoSettings SeoSettings `json:"seoSettings"`
}

// SeoSettings carries the site-wide metadata.
type SeoSettings struct {
	SiteName        string            `json:"siteName" validate:"required"`
	SiteDescription string            `json:"siteDescription"`
	SiteURL         string            `json:"siteUrl" validate:"omitempty,url"`
	SiteLogo        string            `json:"siteLogo"`
	Favicon         string            `json:"favicon"`
	Keywords        []string          `json:"keywords"`
	Author          string            `json:"author"`
	TwitterHandle   string            `json:"twitterHandle,omitempty"`
	OgImage         string            `json:"ogImage"`
	OgTitle         string            `json:"ogTitle,omitempty"`
	OgDescription   string            `json:"ogDescription,omitempty"`
	TitleSuffix     string            `json:"titleSuffix,omitempty"`
	MetaTags        map[string]string `json:"metaTags"`
}

// DefaultSeoDocument is served while no SEO document exists.
func DefaultSeoDocument() SeoDocument {
	return SeoDocument{SeoSettings: SeoSettings{
		SiteName:        "GAMES",
		SiteDescription: "Best Online Gaming Platform - Play hundreds of free browser games",
		SiteURL:         "https://yourgamesite.com",
		SiteLogo:        "/placeholder-logo.png",
		Favicon:         "/favicon.ico",
		Keywords:        []string{"online games", "browser games", "free games"},
		Author:          "Gaming Platform",
		TwitterHandle:   "@yourgames",
		OgImage:         "/og-image.png",
		OgTitle:         "GAMES - Best Free Online Games",
		OgDescription:   "Play the best free online games. No download required!",
		MetaTags: map[string]string{
			"viewport":   "width=device-width, initial-scale=1.0",
			"themeColor": "#475569",
		},
	}}
}

// SiteConfig is the subset of SEO settings pages need at render time.
type SiteConfig struct {
	SiteName        string            `json:"siteName"`
	SiteDescription string            `json:"siteDescription"`
	SiteURL         string            `json:"siteUrl"`
	Author          string            `json:"author"`
	TwitterHandle   string            `json:"twitterHandle,omitempty"`
	OgImage         string            `json:"ogImage"`
	Favicon         string            `json:"favicon"`
	SiteLogo        string            `json:"siteLogo"`
	Keywords        []string          `json:"keywords"`
	TitleSuffix     string            `json:"titleSuffix,omitempty"`
	MetaTags        map[string]string `json:"metaTags"`
}

// SiteConfig projects the settings to a SiteConfig.
func (s SeoSettings) SiteConfig() SiteConfig {
	return SiteConfig{
		SiteName:        s.SiteName,
		SiteDescription: s.SiteDescription,
		SiteURL:         s.SiteURL,
		Author:          s.Author,
		TwitterHandle:   s.TwitterHandle,
		OgImage:         s.OgImage,
		Favicon:         s.Favicon,
		SiteLogo:        s.SiteLogo,
		Keywords:        cloneStrings(s.Keywords),
		TitleSuffix:     s.TitleSuffix,
		MetaTags:        s.MetaTags,
	}
}

// FooterLink is one footer link.
type FooterLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CompanyInfo is the footer's company block.
type CompanyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
}

// FooterContent is the site footer document.
type FooterContent struct {
	SocialLinks []FooterLink `json:"socialLinks"`
	LegalLinks  []FooterLink `json:"legalLinks"`
	CompanyInfo CompanyInfo  `json:"companyInfo"`
	CustomHTML  string       `json:"customHtml"`
	IsVisible   bool         `json:"isVisible"`
}

// DefaultFooterContent is served while no footer document exists.
func DefaultFooterContent() FooterContent {
	return FooterContent{
		SocialLinks: []FooterLink{},
		LegalLinks:  []FooterLink{},
		CompanyInfo: CompanyInfo{
			Name:        "GAMES",
			Description: "Best Online Gaming Platform",
			Email:       "contact@yourgamesite.com",
		},
		IsVisible: true,
	}
}
