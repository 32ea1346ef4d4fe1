package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"gamehub/pkg/logging"
	"gamehub/pkg/notify"
)

// Client receives events from a Hub. Send is a no-op: a remote data manager
// mutates through the HTTP API, and the server publishes on success.
type Client struct {
	url    string
	conn   *websocket.Conn
	logger *logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Dial connects to the hub's endpoint, e.g. ws://host:8080/api/events.
func Dial(ctx context.Context, url string, logger *logging.Logger) (*Client, error) {
	c, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial %s: %w", url, err)
	}
	return &Client{
		url:    url,
		conn:   c,
		logger: logging.OrNop(logger).Named("ws-client"),
	}, nil
}

// Name implements notify.Transport.
func (c *Client) Name() string {
	return "ws"
}

// Send implements notify.Transport.
func (c *Client) Send(ctx context.Context, e notify.Event) error {
	return nil
}

// Listen starts the read loop.
func (c *Client) Listen(ctx context.Context, deliver func(notify.Event)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return errors.New("ws: already listening")
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.read(loopCtx, deliver)
	return nil
}

func (c *Client) read(ctx context.Context, deliver func(notify.Event)) {
	defer close(c.done)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("event stream closed", zap.String("url", c.url), zap.Error(err))
			}
			return
		}

		e, err := notify.DecodeEvent(data)
		if err != nil {
			c.logger.Warn("dropping malformed event", zap.Error(err))
			continue
		}
		deliver(e)
	}
}

// Close ends the connection and waits for the read loop.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	_ = c.conn.Close(websocket.StatusNormalClosure, "")
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

var _ notify.Transport = (*Client)(nil)
