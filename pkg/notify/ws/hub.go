// Package ws pushes notify events to browsers and remote data managers over
// WebSocket connections.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"gamehub/pkg/logging"
	"gamehub/pkg/notify"
)

const writeTimeout = 5 * time.Second

// conn wraps a single WebSocket connection.
type conn struct {
	ws     *websocket.Conn
	cancel context.CancelFunc
}

// Hub is the server side: every event sent through it is broadcast to all
// connected clients. Clients never originate events.
type Hub struct {
	logger  *logging.Logger
	origins []string

	mu     sync.RWMutex
	conns  map[*conn]struct{}
	closed bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithOriginPatterns lets browsers on hosts matching patterns connect
// across origins (path.Match syntax, e.g. "*.example.com"). Same-origin
// requests and clients sending no Origin header are always accepted.
func WithOriginPatterns(patterns ...string) HubOption {
	return func(h *Hub) { h.origins = append(h.origins, patterns...) }
}

// NewHub creates a hub with no connections.
func NewHub(logger *logging.Logger, opts ...HubOption) *Hub {
	h := &Hub{
		logger: logging.OrNop(logger).Named("ws"),
		conns:  make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleWS upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn("websocket accept failed",
			zap.String("origin", r.Header.Get("Origin")),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &conn{ws: ws, cancel: cancel}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		_ = ws.Close(websocket.StatusGoingAway, "shutting down")
		return
	}
	h.conns[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("websocket connected", zap.String("remote", r.RemoteAddr))

	defer func() {
		h.remove(c)
		_ = ws.Close(websocket.StatusNormalClosure, "")
	}()

	// reads only detect disconnects and consume control frames
	for {
		if _, _, err := ws.Read(ctx); err != nil {
			return
		}
	}
}

// Name implements notify.Transport.
func (h *Hub) Name() string {
	return "ws-hub"
}

// Send broadcasts e to every connection. Failed connections are dropped.
func (h *Hub) Send(ctx context.Context, e notify.Event) error {
	data, err := e.Marshal()
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := c.ws.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			h.remove(c)
		}
	}
	return nil
}

// Listen is a no-op: browsers report changes through the HTTP API.
func (h *Hub) Listen(ctx context.Context, deliver func(notify.Event)) error {
	return nil
}

// ConnectionCount returns the number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c]; ok {
		c.cancel()
		delete(h.conns, c)
		h.logger.Debug("websocket disconnected")
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	conns := h.conns
	h.conns = make(map[*conn]struct{})
	h.mu.Unlock()

	for c := range conns {
		_ = c.ws.Close(websocket.StatusGoingAway, "shutting down")
		c.cancel()
	}
	return nil
}

var _ notify.Transport = (*Hub)(nil)
