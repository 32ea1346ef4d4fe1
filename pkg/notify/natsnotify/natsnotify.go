// Package natsnotify carries notify events over core NATS subjects.
package natsnotify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gamehub/pkg/logging"
	"gamehub/pkg/notify"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "gamehub.events"

// Transport publishes events on one subject and subscribes to it.
// Core NATS is fire-and-forget, which matches the delivery contract of
// the notifier.
type Transport struct {
	nc      *nats.Conn
	subject string
	owned   bool
	logger  *logging.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// New wraps an existing connection. The caller keeps ownership of nc.
func New(nc *nats.Conn, subject string, logger *logging.Logger) *Transport {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Transport{
		nc:      nc,
		subject: subject,
		logger:  logging.OrNop(logger).Named("natsnotify"),
	}
}

// Connect dials url and returns a transport that closes the connection on Close.
func Connect(url, subject string, logger *logging.Logger) (*Transport, error) {
	nc, err := nats.Connect(url, nats.Name("gamehub-notify"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	t := New(nc, subject, logger)
	t.owned = true
	t.logger.Info("nats connected", zap.String("url", url), zap.String("subject", t.subject))
	return t, nil
}

// Name implements notify.Transport.
func (t *Transport) Name() string {
	return "nats"
}

// Subject returns the subject events travel on.
func (t *Transport) Subject() string {
	return t.subject
}

// Send publishes e.
func (t *Transport) Send(ctx context.Context, e notify.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	if err := t.nc.Publish(t.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", t.subject, err)
	}
	return nil
}

// Listen subscribes to the subject. The subscription is confirmed by a
// round trip to the server before returning.
func (t *Transport) Listen(ctx context.Context, deliver func(notify.Event)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sub != nil {
		return errors.New("natsnotify: already listening")
	}

	sub, err := t.nc.Subscribe(t.subject, func(msg *nats.Msg) {
		e, err := notify.DecodeEvent(msg.Data)
		if err != nil {
			t.logger.Warn("dropping malformed event", zap.Error(err))
			return
		}
		deliver(e)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", t.subject, err)
	}
	if err := t.nc.FlushWithContext(ctx); err != nil {
		_ = sub.Unsubscribe()
		return fmt.Errorf("nats flush: %w", err)
	}

	t.sub = sub
	return nil
}

// Close drops the subscription and, for connected transports, the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	var err error
	if sub != nil && t.nc.IsConnected() {
		err = sub.Unsubscribe()
	}
	if t.owned {
		t.nc.Close()
	}
	return err
}

var _ notify.Transport = (*Transport)(nil)
