package catalog

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives a game id from a name: lower-cased, characters outside
// [a-z0-9], whitespace and hyphen dropped, whitespace runs and repeated
// hyphens collapsed to one hyphen, outer hyphens trimmed.
// Distinct names may share a slug; uniqueness is the caller's concern.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FormatPlayCount renders a counter as 999, 1.5K, 2.0M or 1.1B.
func FormatPlayCount(count int64) string {
	switch {
	case count >= 1_000_000_000:
		return strconv.FormatFloat(float64(count)/1_000_000_000, 'f', 1, 64) + "B"
	case count >= 1_000_000:
		return strconv.FormatFloat(float64(count)/1_000_000, 'f', 1, 64) + "M"
	case count >= 1_000:
		return strconv.FormatFloat(float64(count)/1_000, 'f', 1, 64) + "K"
	}
	return strconv.FormatInt(count, 10)
}

// largeInlineImage is the size above which an inline data: image is
// swapped for a placeholder in listing payloads.
const largeInlineImage = 10000

// IsLargeInlineImage reports whether src is a data: image worth stripping.
func IsLargeInlineImage(src string) bool {
	return strings.HasPrefix(src, "data:image") && len(src) > largeInlineImage
}

// placeholderImage renders a light SVG carrying label.
func placeholderImage(width, height int, label string) string {
	svg := fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`+
		`<rect width="100%%" height="100%%" fill="#f3f4f6"/>`+
		`<text x="50%%" y="50%%" text-anchor="middle" dy=".3em" fill="#9ca3af" font-family="system-ui" font-size="14">%s</text>`+
		`</svg>`, width, height, escapeXML(label))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// SummaryGame is the homepage projection of a game, with oversized inline
// thumbnails replaced by a placeholder.
type SummaryGame struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	ThumbnailURL      string  `json:"thumbnailUrl"`
	Category          string  `json:"category"`
	Rating            float64 `json:"rating"`
	ViewCount         int64   `json:"viewCount"`
	AddedDate         string  `json:"addedDate"`
	HasLargeImage     bool    `json:"hasLargeImage,omitempty"`
	OriginalImageSize int     `json:"originalImageSize,omitempty"`
}

// Summary projects g to a SummaryGame.
func (g Game) Summary() SummaryGame {
	s := SummaryGame{
		ID:           g.ID,
		Name:         g.Name,
		ThumbnailURL: g.ThumbnailURL,
		Category:     g.Category,
		Rating:       g.Rating,
		ViewCount:    g.ViewCount,
		AddedDate:    g.AddedDate,
	}
	if IsLargeInlineImage(g.ThumbnailURL) {
		label := g.Name
		if label == "" {
			label = "Loading..."
		}
		s.ThumbnailURL = placeholderImage(285, 202, label)
		s.HasLargeImage = true
		s.OriginalImageSize = len(g.ThumbnailURL) / 1024
	}
	return s
}

// Optimized returns e with an oversized inline image replaced by a placeholder.
func (e FeaturedGame) Optimized() FeaturedGame {
	if !IsLargeInlineImage(e.Image) {
		return e
	}
	label := e.Title
	if label == "" {
		label = "Featured Game"
	}
	e.OriginalImageSize = len(e.Image) / 1024
	e.Image = placeholderImage(400, 225, label)
	e.HasLargeImage = true
	return e
}
