// Package redisnotify carries notify events over Redis pub/sub.
package redisnotify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"gamehub/pkg/cache/redis"
	"gamehub/pkg/logging"
	"gamehub/pkg/notify"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "gamehub:events"

const (
	subscribeTimeout = 5 * time.Second
	retryDelay       = time.Second
)

// Transport publishes events to one Redis channel and listens on it.
type Transport struct {
	client  rueidis.Client
	channel string
	owned   bool
	logger  *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client rueidis.Client, channel string, logger *logging.Logger) *Transport {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Transport{
		client:  client,
		channel: channel,
		logger:  logging.OrNop(logger).Named("redisnotify"),
	}
}

// Dial connects to addr and returns a transport that closes the client on Close.
func Dial(addr, channel string, logger *logging.Logger) (*Transport, error) {
	config := redis.DefaultRedisCacheConfig()
	config.Addr = addr

	client, err := redis.NewClient(config)
	if err != nil {
		return nil, err
	}

	t := New(client, channel, logger)
	t.owned = true
	return t, nil
}

// Name implements notify.Transport.
func (t *Transport) Name() string {
	return "redis"
}

// Channel returns the pub/sub channel.
func (t *Transport) Channel() string {
	return t.channel
}

// Send publishes e on the channel.
func (t *Transport) Send(ctx context.Context, e notify.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}
	cmd := t.client.B().Publish().Channel(t.channel).Message(string(data)).Build()
	if err := t.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis publish %s: %w", t.channel, err)
	}
	return nil
}

// Listen subscribes to the channel and waits for the subscription to be
// confirmed. A dropped subscription is re-established until Close.
func (t *Transport) Listen(ctx context.Context, deliver func(notify.Event)) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return errors.New("redisnotify: already listening")
	}
	loopCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})
	t.mu.Unlock()

	subscribed := make(chan struct{})
	var once sync.Once
	hookCtx := rueidis.WithOnSubscriptionHook(loopCtx, func(s rueidis.PubSubSubscription) {
		if s.Kind == "subscribe" {
			once.Do(func() { close(subscribed) })
		}
	})

	go t.receive(hookCtx, deliver)

	timer := time.NewTimer(subscribeTimeout)
	defer timer.Stop()

	select {
	case <-subscribed:
		t.logger.Info("subscribed", zap.String("channel", t.channel))
		return nil
	case <-ctx.Done():
		t.stop()
		return ctx.Err()
	case <-timer.C:
		t.stop()
		return fmt.Errorf("redisnotify: subscribe %s: timed out", t.channel)
	}
}

func (t *Transport) receive(ctx context.Context, deliver func(notify.Event)) {
	defer close(t.done)

	cmd := t.client.B().Subscribe().Channel(t.channel).Build()
	for {
		err := t.client.Receive(ctx, cmd, func(msg rueidis.PubSubMessage) {
			e, err := notify.DecodeEvent([]byte(msg.Message))
			if err != nil {
				t.logger.Warn("dropping malformed event", zap.Error(err))
				return
			}
			deliver(e)
		})
		if ctx.Err() != nil {
			return
		}
		t.logger.Warn("subscription lost, retrying",
			zap.String("channel", t.channel),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}

func (t *Transport) stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops listening and, for dialed transports, closes the client.
func (t *Transport) Close() error {
	t.stop()
	if t.owned {
		t.client.Close()
	}
	return nil
}

var _ notify.Transport = (*Transport)(nil)
