// Package catalog holds the game catalog model and the pure algorithms
// that derive listing views from it.
package catalog

import "time"

// GameType says how a game is played.
type GameType string

const (
	GameTypeIframe   GameType = "iframe"
	GameTypeExternal GameType = "external"
	GameTypeEmbed    GameType = "embed"
)

// DateLayout is the calendar-date form of AddedDate and ReleaseDate.
const DateLayout = "2006-01-02"

// Game is one record of the games collection.
// Records are never removed; deletion clears IsActive.
type Game struct {
	ID                  string   `json:"id" validate:"omitempty,max=128"`
	Name                string   `json:"name" validate:"required,max=200"`
	Description         string   `json:"description"`
	GradientDescription string   `json:"gradientDescription,omitempty"`
	ThumbnailURL        string   `json:"thumbnailUrl"`
	Category            string   `json:"category" validate:"required"`
	Tags                []string `json:"tags"`
	Rating              float64  `json:"rating" validate:"gte=0,lte=5"`
	PlayCount           int64    `json:"playCount" validate:"gte=0"`
	ViewCount           int64    `json:"viewCount" validate:"gte=0"`
	Developer           string   `json:"developer,omitempty"`
	ReleaseDate         string   `json:"releaseDate"`
	AddedDate           string   `json:"addedDate"`
	IsActive            bool     `json:"isActive"`
	IsFeatured          bool     `json:"isFeatured"`
	GameType            GameType `json:"gameType" validate:"omitempty,oneof=iframe external embed"`
	GameURL             string   `json:"gameUrl,omitempty"`
	ExternalURL         string   `json:"externalUrl,omitempty"`
	EmbedCode           string   `json:"embedCode,omitempty"`
	Controls            []string `json:"controls"`
	Platforms           []string `json:"platforms"`
	Languages           []string `json:"languages"`
	Features            []string `json:"features"`
}

// Added parses AddedDate. Unparseable dates sort as the zero time.
func (g Game) Added() time.Time {
	if t, err := time.Parse(DateLayout, g.AddedDate); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, g.AddedDate); err == nil {
		return t
	}
	return time.Time{}
}

// HasTag reports whether the game carries tag exactly.
func (g Game) HasTag(tag string) bool {
	for _, t := range g.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with g.
func (g Game) Clone() Game {
	g.Tags = cloneStrings(g.Tags)
	g.Controls = cloneStrings(g.Controls)
	g.Platforms = cloneStrings(g.Platforms)
	g.Languages = cloneStrings(g.Languages)
	g.Features = cloneStrings(g.Features)
	return g
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// NewGameRecord prepares a record for creation: the id is derived from the
// name when absent, counters are zeroed and AddedDate is stamped.
func NewGameRecord(g Game, now time.Time) Game {
	g = g.Clone()
	if g.ID == "" {
		g.ID = Slugify(g.Name)
	}
	g.AddedDate = now.Format(DateLayout)
	g.ViewCount = 0
	g.PlayCount = 0
	return g
}

// GamePatch is a partial update. Nil fields are left unchanged.
type GamePatch struct {
	Name                *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description         *string   `json:"description,omitempty"`
	GradientDescription *string   `json:"gradientDescription,omitempty"`
	ThumbnailURL        *string   `json:"thumbnailUrl,omitempty"`
	Category            *string   `json:"category,omitempty" validate:"omitempty,min=1"`
	Tags                *[]string `json:"tags,omitempty"`
	Rating              *float64  `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	PlayCount           *int64    `json:"playCount,omitempty" validate:"omitempty,gte=0"`
	ViewCount           *int64    `json:"viewCount,omitempty" validate:"omitempty,gte=0"`
	Developer           *string   `json:"developer,omitempty"`
	ReleaseDate         *string   `json:"releaseDate,omitempty"`
	IsActive            *bool     `json:"isActive,omitempty"`
	IsFeatured          *bool     `json:"isFeatured,omitempty"`
	GameType            *GameType `json:"gameType,omitempty" validate:"omitempty,oneof=iframe external embed"`
	GameURL             *string   `json:"gameUrl,omitempty"`
	ExternalURL         *string   `json:"externalUrl,omitempty"`
	EmbedCode           *string   `json:"embedCode,omitempty"`
	Controls            *[]string `json:"controls,omitempty"`
	Platforms           *[]string `json:"platforms,omitempty"`
	Languages           *[]string `json:"languages,omitempty"`
	Features            *[]string `json:"features,omitempty"`
}

// Deactivate is the patch of a soft delete.
func Deactivate() GamePatch {
	inactive := false
	return GamePatch{IsActive: &inactive}
}

// IsEmpty reports whether the patch changes nothing.
func (p GamePatch) IsEmpty() bool {
	return p == GamePatch{}
}

// Apply returns g with the patch applied. The id is never patched.
func (p GamePatch) Apply(g Game) Game {
	g = g.Clone()
	setString(&g.Name, p.Name)
	setString(&g.Description, p.Description)
	setString(&g.GradientDescription, p.GradientDescription)
	setString(&g.ThumbnailURL, p.ThumbnailURL)
	setString(&g.Category, p.Category)
	setString(&g.Developer, p.Developer)
	setString(&g.ReleaseDate, p.ReleaseDate)
	setString(&g.GameURL, p.GameURL)
	setString(&g.ExternalURL, p.ExternalURL)
	setString(&g.EmbedCode, p.EmbedCode)
	setStrings(&g.Tags, p.Tags)
	setStrings(&g.Controls, p.Controls)
	setStrings(&g.Platforms, p.Platforms)
	setStrings(&g.Languages, p.Languages)
	setStrings(&g.Features, p.Features)

	if p.Rating != nil {
		g.Rating = *p.Rating
	}
	if p.PlayCount != nil {
		g.PlayCount = *p.PlayCount
	}
	if p.ViewCount != nil {
		g.ViewCount = *p.ViewCount
	}
	if p.IsActive != nil {
		g.IsActive = *p.IsActive
	}
	if p.IsFeatured != nil {
		g.IsFeatured = *p.IsFeatured
	}
	if p.GameType != nil {
		g.GameType = *p.GameType
	}
	return g
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setStrings(dst *[]string, v *[]string) {
	if v != nil {
		*dst = cloneStrings(*v)
	}
}

// HotGame is the projection used by the hot games list.
type HotGame struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ThumbnailURL string  `json:"thumbnailUrl"`
	Rating       float64 `json:"rating"`
	ViewCount    int64   `json:"viewCount"`
}

// NewGame is the projection used by the new games list.
type NewGame struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnailUrl"`
	AddedDate    string `json:"addedDate"`
}

// LightGame is the reduced record served by lightweight listings.
type LightGame struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
	Rating       float64  `json:"rating"`
	ViewCount    int64    `json:"viewCount"`
	AddedDate    string   `json:"addedDate"`
	IsActive     bool     `json:"isActive"`
	IsFeatured   bool     `json:"isFeatured"`
}

// lightTagLimit caps the tags carried by a LightGame.
const lightTagLimit = 3

// Light projects g to a LightGame.
func (g Game) Light() LightGame {
	tags := g.Tags
	if len(tags) > lightTagLimit {
		tags = tags[:lightTagLimit]
	}
	return LightGame{
		ID:           g.ID,
		Name:         g.Name,
		ThumbnailURL: g.ThumbnailURL,
		Category:     g.Category,
		Tags:         cloneStrings(tags),
		Rating:       g.Rating,
		ViewCount:    g.ViewCount,
		AddedDate:    g.AddedDate,
		IsActive:     g.IsActive,
		IsFeatured:   g.IsFeatured,
	}
}

// Game widens a LightGame back to a Game with the fields it carries.
func (l LightGame) Game() Game {
	return Game{
		ID:           l.ID,
		Name:         l.Name,
		ThumbnailURL: l.ThumbnailURL,
		Category:     l.Category,
		Tags:         cloneStrings(l.Tags),
		Rating:       l.Rating,
		ViewCount:    l.ViewCount,
		AddedDate:    l.AddedDate,
		IsActive:     l.IsActive,
		IsFeatured:   l.IsFeatured,
	}
}
