package catalog

import "sort"

// Related-game score weights.
const (
	sameCategoryScore = 50
	sharedTagScore    = 10
	popularityScore   = 3
)

// Active returns the active games in stored order.
func Active(games []Game) []Game {
	return Filter(games, func(g Game) bool { return g.IsActive })
}

// Filter returns the games matching keep in stored order.
func Filter(games []Game, keep func(Game) bool) []Game {
	out := make([]Game, 0, len(games))
	for _, g := range games {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

func limitTo[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// MostViewed returns the n most viewed active games, highest first.
// Equal view counts keep their stored order.
func MostViewed(games []Game, n int) []Game {
	active := Active(games)
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].ViewCount > active[j].ViewCount
	})
	return limitTo(active, n)
}

// MostRecent returns the n most recently added active games. Games added on
// the same day keep their stored order.
func MostRecent(games []Game, n int) []Game {
	active := Active(games)
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Added().After(active[j].Added())
	})
	return limitTo(active, n)
}

// HotGames projects MostViewed.
func HotGames(games []Game, n int) []HotGame {
	ranked := MostViewed(games, n)
	out := make([]HotGame, len(ranked))
	for i, g := range ranked {
		out[i] = HotGame{
			ID:           g.ID,
			Name:         g.Name,
			ThumbnailURL: g.ThumbnailURL,
			Rating:       g.Rating,
			ViewCount:    g.ViewCount,
		}
	}
	return out
}

// NewGames projects MostRecent.
func NewGames(games []Game, n int) []NewGame {
	ranked := MostRecent(games, n)
	out := make([]NewGame, len(ranked))
	for i, g := range ranked {
		out[i] = NewGame{
			ID:           g.ID,
			Name:         g.Name,
			ThumbnailURL: g.ThumbnailURL,
			AddedDate:    g.AddedDate,
		}
	}
	return out
}

// RelatedScore scores candidate against source:
// 50 for the same category, 10 per shared tag, the candidate's rating, and
// up to 3 for popularity relative to maxViews.
func RelatedScore(source, candidate Game, maxViews int64) float64 {
	score := 0.0
	if candidate.Category == source.Category {
		score += sameCategoryScore
	}
	for _, tag := range candidate.Tags {
		if source.HasTag(tag) {
			score += sharedTagScore
		}
	}
	score += candidate.Rating
	if maxViews > 0 {
		score += float64(candidate.ViewCount) / float64(maxViews) * popularityScore
	}
	return score
}

// RelatedGames returns up to n active games related to source, best first.
// Games scoring zero or less are excluded. maxViews is taken over all of
// games, inactive included.
func RelatedGames(games []Game, source Game, n int) []Game {
	var maxViews int64
	for _, g := range games {
		if g.ViewCount > maxViews {
			maxViews = g.ViewCount
		}
	}

	type scored struct {
		game  Game
		score float64
	}
	candidates := make([]scored, 0, len(games))
	for _, g := range games {
		if g.ID == source.ID || !g.IsActive {
			continue
		}
		if s := RelatedScore(source, g, maxViews); s > 0 {
			candidates = append(candidates, scored{game: g, score: s})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	candidates = limitTo(candidates, n)

	out := make([]Game, len(candidates))
	for i, c := range candidates {
		out[i] = c.game
	}
	return out
}
