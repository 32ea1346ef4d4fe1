package catalog

import "strings"

// Search returns active games whose name, description, category, developer
// or any tag contains query, ignoring case. limit <= 0 returns every match.
func Search(games []Game, query string, limit int) []Game {
	term := strings.ToLower(query)
	matches := Filter(games, func(g Game) bool {
		return g.IsActive && g.matches(term)
	})
	return limitTo(matches, limit)
}

func (g Game) matches(term string) bool {
	if strings.Contains(strings.ToLower(g.Name), term) ||
		strings.Contains(strings.ToLower(g.Description), term) ||
		strings.Contains(strings.ToLower(g.Category), term) {
		return true
	}
	if g.Developer != "" && strings.Contains(strings.ToLower(g.Developer), term) {
		return true
	}
	for _, tag := range g.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// ByCategory returns active games in category, compared exactly.
func ByCategory(games []Game, category string, limit int) []Game {
	return limitTo(Filter(games, func(g Game) bool {
		return g.IsActive && g.Category == category
	}), limit)
}

// ByCategoryFold is ByCategory with a case-insensitive comparison.
func ByCategoryFold(games []Game, category string) []Game {
	return Filter(games, func(g Game) bool {
		return g.IsActive && strings.EqualFold(g.Category, category)
	})
}

// ByTag returns active games carrying tag.
func ByTag(games []Game, tag string, limit int) []Game {
	return limitTo(Filter(games, func(g Game) bool {
		return g.IsActive && g.HasTag(tag)
	}), limit)
}

// Featured returns active games flagged featured, in stored order.
func Featured(games []Game, limit int) []Game {
	return limitTo(Filter(games, func(g Game) bool {
		return g.IsActive && g.IsFeatured
	}), limit)
}

// FindByID returns the game with id whether active or not.
func FindByID(games []Game, id string) (Game, bool) {
	for _, g := range games {
		if g.ID == id {
			return g, true
		}
	}
	return Game{}, false
}

// Lightweight projects every game to a LightGame.
func Lightweight(games []Game) []LightGame {
	out := make([]LightGame, len(games))
	for i, g := range games {
		out[i] = g.Light()
	}
	return out
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// DefaultPageSize applies when a page is requested without a limit.
const DefaultPageSize = 20

// Paginate returns the 1-based page of items. Non-positive page or limit
// fall back to 1 and DefaultPageSize.
func Paginate[T any](items []T, page, limit int) ([]T, Pagination) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}

	total := len(items)
	p := Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}

	start := (page - 1) * limit
	if start >= total {
		return []T{}, p
	}
	end := start + limit
	if end > total {
		end = total
	}
	return items[start:end], p
}
