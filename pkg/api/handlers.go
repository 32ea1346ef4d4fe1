package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"gamehub/pkg/catalog"
	"gamehub/pkg/store"
)

// Homepage summary list sizes.
const (
	summaryHotGames = 8
	summaryNewGames = 8
)

// summarySections are the homepage sections shipped with the summary.
var summarySections = []string{"newGames", "features", "gameGallery", "youMightAlsoLike"}

// handleListGames lists active games. category filters case-insensitively;
// limit or page switch to a paginated {games, pagination} answer.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ctx := r.Context()

	games, err := s.store.Games(ctx)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	games = catalog.Active(games)
	if category := q.Get("category"); category != "" {
		games = catalog.ByCategoryFold(games, category)
	}

	var items any = games
	if q.Get("lightweight") == "true" {
		items = catalog.Lightweight(games)
	}

	if !q.Has("limit") && !q.Has("page") {
		writeJSON(w, http.StatusOK, items)
		return
	}

	limit, err := intParam(q.Get("limit"), catalog.DefaultPageSize)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	switch list := items.(type) {
	case []catalog.LightGame:
		pageItems, p := catalog.Paginate(list, page, limit)
		writeJSON(w, http.StatusOK, map[string]any{"games": pageItems, "pagination": p})
	case []catalog.Game:
		pageItems, p := catalog.Paginate(list, page, limit)
		writeJSON(w, http.StatusOK, map[string]any{"games": pageItems, "pagination": p})
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errorf("%q is not a positive integer", raw)
	}
	return n, nil
}

// handleGetGame answers 404 for inactive games.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	g, err := s.store.GameByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !g.IsActive {
		writeError(w, http.StatusNotFound, "game not found")
		return
	}
	writeJSON(w, http.StatusOK, g)
}

type statsRequest struct {
	Views int64 `json:"views" validate:"gte=0"`
	Plays int64 `json:"plays" validate:"gte=0"`
}

func (s *Server) handleRecordStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req statsRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}

	g, err := s.store.RecordStats(r.Context(), id, req.Views, req.Plays)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

// handleFeaturedGames serves the active entries by order with oversized
// inline images replaced.
func (s *Server) handleFeaturedGames(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.FeaturedGames(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	active := catalog.ActiveFeatured(entries)
	for i := range active {
		active[i] = active[i].Optimized()
	}
	writeJSON(w, http.StatusOK, active)
}

func (s *Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	content, err := s.store.HomepageContent(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

type summaryStats struct {
	TotalGames      int `json:"totalGames"`
	OptimizedImages int `json:"optimizedImages"`
}

type homepageSummary struct {
	HotGames        []catalog.SummaryGame   `json:"hotGames"`
	NewGames        []catalog.SummaryGame   `json:"newGames"`
	FeaturedGame    *catalog.FeaturedGame   `json:"featuredGame"`
	HomepageContent catalog.HomepageContent `json:"homepageContent"`
	Stats           summaryStats            `json:"stats"`
}

// handleHomepageSummary loads the three collections the homepage needs in
// parallel and returns a compact payload.
func (s *Server) handleHomepageSummary(w http.ResponseWriter, r *http.Request) {
	var (
		games    []catalog.Game
		entries  []catalog.FeaturedGame
		homepage catalog.HomepageContent
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		games, err = s.store.Games(ctx)
		return err
	})
	g.Go(func() (err error) {
		entries, err = s.store.FeaturedGames(ctx)
		return err
	})
	g.Go(func() (err error) {
		homepage, err = s.store.HomepageContent(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}

	active := catalog.Active(games)
	summary := homepageSummary{
		HotGames:        summaries(catalog.MostViewed(active, summaryHotGames)),
		NewGames:        summaries(catalog.MostRecent(active, summaryNewGames)),
		HomepageContent: homepage.Sections(summarySections...),
		Stats:           summaryStats{TotalGames: len(active)},
	}
	if featured := catalog.ActiveFeatured(entries); len(featured) > 0 {
		first := featured[0].Optimized()
		summary.FeaturedGame = &first
	}
	for _, game := range active {
		if catalog.IsLargeInlineImage(game.ThumbnailURL) {
			summary.Stats.OptimizedImages++
		}
	}

	writeJSON(w, http.StatusOK, summary)
}

func summaries(games []catalog.Game) []catalog.SummaryGame {
	out := make([]catalog.SummaryGame, len(games))
	for i, g := range games {
		out[i] = g.Summary()
	}
	return out
}

func (s *Server) handleSeoSettings(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.SeoDocument(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSiteConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.store.SiteConfig(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleFooter(w http.ResponseWriter, r *http.Request) {
	footer, err := s.store.FooterContent(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, footer)
}

var _ Store = (*store.Store)(nil)
