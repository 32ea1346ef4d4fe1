// Package notify propagates "collection changed" signals between independently
// running data-layer instances. Payloads are empty: receivers re-fetch.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Topic names one collection's change event.
type Topic string

const (
	GamesUpdated         Topic = "gamesUpdated"
	CategoriesUpdated    Topic = "categoriesUpdated"
	FeaturedGamesUpdated Topic = "featuredGamesUpdated"
	HomepageUpdated      Topic = "homepageUpdated"
	SeoSettingsUpdated   Topic = "seoSettingsUpdated"
	FooterUpdated        Topic = "footerUpdated"
)

// Topics lists every known topic.
func Topics() []Topic {
	return []Topic{
		GamesUpdated,
		CategoriesUpdated,
		FeaturedGamesUpdated,
		HomepageUpdated,
		SeoSettingsUpdated,
		FooterUpdated,
	}
}

// Valid reports whether t is a known topic.
func (t Topic) Valid() bool {
	for _, known := range Topics() {
		if t == known {
			return true
		}
	}
	return false
}

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("notify: closed")

// Event is what travels between instances.
type Event struct {
	Topic  Topic     `json:"topic"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Marshal encodes the event for a transport.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEvent parses an event received from a transport.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("notify: decode event: %w", err)
	}
	if e.Topic == "" {
		return Event{}, fmt.Errorf("notify: decode event: missing topic")
	}
	return e, nil
}

// Handler reacts to an event. Handlers run synchronously on the publishing
// goroutine and should not block.
type Handler func(ctx context.Context, e Event)

// Notifier is the publish/subscribe contract the data layer depends on.
type Notifier interface {
	Publish(ctx context.Context, topic Topic) error
	Subscribe(topic Topic, h Handler) (unsubscribe func())
}

// Transport carries events to other processes.
type Transport interface {
	// Name identifies the transport in logs
	Name() string

	// Send delivers e to remote listeners. Best effort.
	Send(ctx context.Context, e Event) error

	// Listen starts receiving remote events and passes each to deliver.
	// It returns once the subscription is established.
	Listen(ctx context.Context, deliver func(Event)) error

	Close() error
}
