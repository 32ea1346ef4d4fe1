// Package client talks to the gamehub HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"
	"gamehub/pkg/resilience"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. http://localhost:8080
	BaseURL string

	// Token is the admin bearer token. Without it mutations are rejected
	// by the server and listings only cover active records.
	Token string

	Resilience resilience.ResilientConfig
}

// Client is an API client. Every call runs through a circuit breaker with a
// per-call deadline; 4xx answers do not count as failures.
type Client struct {
	base   string
	token  string
	http   *http.Client
	guard  *resilience.Guard
	logger *logging.Logger
}

type options struct {
	httpClient *http.Client
	logger     *logging.Logger
	collector  metrics.MetricsCollector
}

// Option customizes a Client.
type Option func(*options)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics reports breaker state changes to collector.
func WithMetrics(collector metrics.MetricsCollector) Option {
	return func(o *options) { o.collector = collector }
}

// New creates a client for config.BaseURL.
func New(config Config, opts ...Option) (*Client, error) {
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q must be an absolute http(s) url", ErrInvalidConfig, config.BaseURL)
	}

	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrNop(o.logger).Named("client")

	return &Client{
		base:  strings.TrimSuffix(u.String(), "/"),
		token: config.Token,
		http:  o.httpClient,
		guard: resilience.NewGuard("api", config.Resilience,
			resilience.WithExcluded(IsRejected),
			resilience.WithMetrics(o.collector),
			resilience.WithLogger(logger)),
		logger: logger,
	}, nil
}

// Admin reports whether the client carries a token.
func (c *Client) Admin() bool {
	return c.token != ""
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	auth   bool
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	var payload []byte
	if r.body != nil {
		var err error
		if payload, err = json.Marshal(r.body); err != nil {
			return fmt.Errorf("encode %s %s: %w", r.method, r.path, err)
		}
	}

	target := c.base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	err := c.guard.Do(ctx, func(ctx context.Context) error {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, target, body)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if r.auth && c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s %s: %w", r.method, r.path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError(resp, r.method, r.path)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
		}
		return nil
	})
	if err != nil && !IsRejected(err) {
		c.logger.Debug("request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Error(err))
	}
	return err
}

// decodeList accepts a bare array, {"games": [...]} or {"items": [...]}.
func decodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var wrapped struct {
		Games []T `json:"games"`
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}
	switch {
	case wrapped.Games != nil:
		return wrapped.Games, nil
	case wrapped.Items != nil:
		return wrapped.Items, nil
	}
	return []T{}, nil
}

func getList[T any](ctx context.Context, c *Client, r request) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, r, &raw); err != nil {
		return nil, err
	}
	list, err := decodeList[T](raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return list, nil
}

func gamePath(id string) string {
	return "/api/games/" + url.PathEscape(id)
}
