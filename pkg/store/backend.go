// Package store persists the site's JSON documents, one document per
// collection, behind a pluggable backend.
package store

import (
	"context"
	"errors"
)

// Collection names one stored document.
type Collection string

const (
	Games         Collection = "games"
	Categories    Collection = "categories"
	FeaturedGames Collection = "featured-games"
	Homepage      Collection = "homepage-content"
	SeoSettings   Collection = "seo-settings"
	Footer        Collection = "footer-content"
)

// Collections lists every known collection.
func Collections() []Collection {
	return []Collection{Games, Categories, FeaturedGames, Homepage, SeoSettings, Footer}
}

// FileName is the document's file name in a FileBackend directory.
func (c Collection) FileName() string {
	return string(c) + ".json"
}

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool {
	for _, known := range Collections() {
		if c == known {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound is returned when a document or a record does not exist
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when creating a record whose id is taken
	ErrConflict = errors.New("store: conflict")

	// ErrInvalid is returned for records that cannot be stored
	ErrInvalid = errors.New("store: invalid record")

	// ErrCorrupt is returned by strict reads of a document that does not decode
	ErrCorrupt = errors.New("store: corrupt document")
)

// IsNotFound reports whether err means a missing document or record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Backend loads and saves raw documents. Save must either fully apply or fail.
type Backend interface {
	// Load returns the document body, or ErrNotFound when it was never saved.
	Load(ctx context.Context, c Collection) ([]byte, error)

	// Save replaces the document body.
	Save(ctx context.Context, c Collection, body []byte) error

	// Name identifies the backend in logs.
	Name() string

	Close() error
}
