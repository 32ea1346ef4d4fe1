package client

import (
	"context"
	"net/http"
	"net/url"

	"gamehub/pkg/catalog"
)

type updateGameRequest struct {
	GameID  string            `json:"gameId"`
	Updates catalog.GamePatch `json:"updates"`
}

type statsRequest struct {
	Views int64 `json:"views"`
	Plays int64 `json:"plays"`
}

// ListGames returns the games collection. With a token the admin listing is
// used, which includes inactive records; otherwise only active ones come back.
func (c *Client) ListGames(ctx context.Context) ([]catalog.Game, error) {
	if c.Admin() {
		return getList[catalog.Game](ctx, c, request{method: http.MethodGet, path: "/api/admin/games", auth: true})
	}
	return getList[catalog.Game](ctx, c, request{method: http.MethodGet, path: "/api/games"})
}

// ListLightweightGames returns the reduced active listing.
func (c *Client) ListLightweightGames(ctx context.Context) ([]catalog.LightGame, error) {
	return getList[catalog.LightGame](ctx, c, request{
		method: http.MethodGet,
		path:   "/api/games",
		query:  url.Values{"lightweight": {"true"}},
	})
}

// GetGame returns one active game or ErrNotFound.
func (c *Client) GetGame(ctx context.Context, id string) (catalog.Game, error) {
	var g catalog.Game
	err := c.do(ctx, request{method: http.MethodGet, path: gamePath(id)}, &g)
	return g, err
}

// CreateGame stores a new game and returns the record as persisted.
func (c *Client) CreateGame(ctx context.Context, g catalog.Game) (catalog.Game, error) {
	var created catalog.Game
	err := c.do(ctx, request{method: http.MethodPost, path: "/api/admin/games", body: g, auth: true}, &created)
	return created, err
}

// UpdateGame applies patch to game id and returns the updated record.
func (c *Client) UpdateGame(ctx context.Context, id string, patch catalog.GamePatch) (catalog.Game, error) {
	var updated catalog.Game
	err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/api/admin/games",
		body:   updateGameRequest{GameID: id, Updates: patch},
		auth:   true,
	}, &updated)
	return updated, err
}

// DeleteGame soft-deletes game id.
func (c *Client) DeleteGame(ctx context.Context, id string) (catalog.Game, error) {
	var deleted catalog.Game
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/api/admin/games",
		query:  url.Values{"id": {id}},
		auth:   true,
	}, &deleted)
	return deleted, err
}

// RecordStats adds view and play increments to game id.
func (c *Client) RecordStats(ctx context.Context, id string, views, plays int64) error {
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   gamePath(id) + "/stats",
		body:   statsRequest{Views: views, Plays: plays},
	}, nil)
}
