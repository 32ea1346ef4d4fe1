package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"gamehub/pkg/catalog"
	"gamehub/pkg/notify"
)

func validateAll[T any](v *validator.Validate, items []T) error {
	for i := range items {
		if err := v.Struct(items[i]); err != nil {
			return err
		}
	}
	return nil
}

// handleAdminListGames lists every game including inactive ones.
func (s *Server) handleAdminListGames(w http.ResponseWriter, r *http.Request) {
	games, err := s.store.Games(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var g catalog.Game
	if err := decode(w, r, &g); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validate.Struct(g); err != nil {
		s.fail(w, r, err)
		return
	}

	created, err := s.store.CreateGame(r.Context(), g)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.GamesUpdated)
	writeJSON(w, http.StatusCreated, created)
}

type updateGameRequest struct {
	GameID  string            `json:"gameId" validate:"required"`
	Updates catalog.GamePatch `json:"updates"`
}

func (s *Server) handleUpdateGame(w http.ResponseWriter, r *http.Request) {
	var req updateGameRequest
	if err := decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Updates.IsEmpty() {
		s.fail(w, r, errorf("updates must change at least one field"))
		return
	}

	updated, err := s.store.UpdateGame(r.Context(), req.GameID, req.Updates)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.GamesUpdated)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteGame soft-deletes ?id=.
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.fail(w, r, errorf("id is required"))
		return
	}

	deleted, err := s.store.DeactivateGame(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.GamesUpdated)
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleSaveCategories(w http.ResponseWriter, r *http.Request) {
	var categories []catalog.Category
	if err := decode(w, r, &categories); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateAll(s.validate, categories); err != nil {
		s.fail(w, r, err)
		return
	}
	if categories == nil {
		categories = []catalog.Category{}
	}

	if err := s.store.SaveCategories(r.Context(), categories); err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.CategoriesUpdated)
	writeJSON(w, http.StatusOK, categories)
}

// handleAdminFeaturedGames lists every entry including inactive ones.
func (s *Server) handleAdminFeaturedGames(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.FeaturedGames(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSaveFeaturedGames(w http.ResponseWriter, r *http.Request) {
	var entries []catalog.FeaturedGame
	if err := decode(w, r, &entries); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := validateAll(s.validate, entries); err != nil {
		s.fail(w, r, err)
		return
	}
	if entries == nil {
		entries = []catalog.FeaturedGame{}
	}

	if err := s.store.SaveFeaturedGames(r.Context(), entries); err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.FeaturedGamesUpdated)
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSaveHomepage(w http.ResponseWriter, r *http.Request) {
	var content catalog.HomepageContent
	if err := decode(w, r, &content); err != nil {
		s.fail(w, r, err)
		return
	}
	if content == nil {
		s.fail(w, r, errorf("homepage content must be an object"))
		return
	}

	if err := s.store.SaveHomepageContent(r.Context(), content); err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.HomepageUpdated)
	writeJSON(w, http.StatusOK, content)
}

func (s *Server) handleSaveSeoSettings(w http.ResponseWriter, r *http.Request) {
	var doc catalog.SeoDocument
	if err := decode(w, r, &doc); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validate.Struct(doc); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.store.SaveSeoDocument(r.Context(), doc); err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.SeoSettingsUpdated)
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSaveFooter(w http.ResponseWriter, r *http.Request) {
	var footer catalog.FooterContent
	if err := decode(w, r, &footer); err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.store.SaveFooterContent(r.Context(), footer); err != nil {
		s.fail(w, r, err)
		return
	}
	s.publish(r.Context(), notify.FooterUpdated)
	writeJSON(w, http.StatusOK, footer)
}
