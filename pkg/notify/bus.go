package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gamehub/pkg/cache"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"
)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an in-process Notifier with optional transports to other processes.
// Handlers for a topic run in subscription order. A panicking handler is
// logged and does not stop delivery to the others.
type Bus struct {
	origin  string
	clock   cache.Clock
	logger  *logging.Logger
	metrics metrics.MetricsCollector

	mu         sync.RWMutex
	subs       map[Topic][]subscription
	nextID     uint64
	transports []Transport
	closed     bool
}

// Option configures a Bus.
type Option func(*Bus)

// WithOrigin overrides the generated instance id.
func WithOrigin(origin string) Option {
	return func(b *Bus) { b.origin = origin }
}

// WithClock sets the clock stamping events.
func WithClock(clock cache.Clock) Option {
	return func(b *Bus) { b.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Bus) { b.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector metrics.MetricsCollector) Option {
	return func(b *Bus) { b.metrics = collector }
}

// NewBus creates a bus with no transports.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		origin: uuid.NewString(),
		clock:  cache.SystemClock{},
		subs:   make(map[Topic][]subscription),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.OrNop(b.logger).Named("notify")
	b.metrics = metrics.OrNoOp(b.metrics)
	return b
}

// Origin returns the id stamped on events published by this bus.
func (b *Bus) Origin() string {
	return b.origin
}

// Attach starts listening on t and forwards future publishes to it.
func (b *Bus) Attach(ctx context.Context, t Transport) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if err := t.Listen(ctx, b.receive); err != nil {
		return fmt.Errorf("notify: attach %s: %w", t.Name(), err)
	}

	b.mu.Lock()
	b.transports = append(b.transports, t)
	b.mu.Unlock()

	b.logger.Info("transport attached", zap.String("transport", t.Name()))
	return nil
}

// Publish delivers topic to local subscribers, then sends it over every
// transport. Local delivery always happens; transport errors are joined.
func (b *Bus) Publish(ctx context.Context, topic Topic) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	transports := append([]Transport(nil), b.transports...)
	b.mu.RUnlock()

	e := Event{Topic: topic, Origin: b.origin, At: b.clock.Now().UTC()}
	b.metrics.RecordPublish(string(topic))
	b.Deliver(ctx, e)

	var errs []error
	for _, t := range transports {
		if err := t.Send(ctx, e); err != nil {
			b.logger.Warn("transport send failed",
				zap.String("transport", t.Name()),
				zap.String("topic", string(topic)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("notify: %s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers h for topic. The returned func removes it and is safe
// to call more than once.
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, handler: h})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
}

func (b *Bus) unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s.id == id {
			// copy so in-flight Deliver calls keep their snapshot
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, topic)
			} else {
				b.subs[topic] = next
			}
			return
		}
	}
}

// Subscribers returns the number of handlers registered for topic.
func (b *Bus) Subscribers(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Deliver runs the local handlers for e without touching transports.
func (b *Bus) Deliver(ctx context.Context, e Event) {
	b.mu.RLock()
	subs := b.subs[e.Topic]
	b.mu.RUnlock()

	for _, s := range subs {
		b.call(ctx, s.handler, e)
	}
}

func (b *Bus) call(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("topic", string(e.Topic)),
				zap.Any("panic", r))
		}
	}()
	h(ctx, e)
}

// receive handles an event arriving from a transport.
func (b *Bus) receive(e Event) {
	if e.Origin == b.origin {
		return
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	b.logger.Debug("remote event",
		zap.String("topic", string(e.Topic)),
		zap.String("origin", e.Origin))
	b.Deliver(context.Background(), e)
}

// Close closes every attached transport. Publish fails afterwards.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	transports := b.transports
	b.transports = nil
	b.mu.Unlock()

	var errs []error
	for _, t := range transports {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notify: close %s: %w", t.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ Notifier = (*Bus)(nil)
