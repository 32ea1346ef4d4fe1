// Package api serves the gamehub collections over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gamehub/pkg/catalog"
	"gamehub/pkg/config"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"
	"gamehub/pkg/notify"
	"gamehub/pkg/notify/ws"
)

// Store is the persistence the API fronts. *store.Store implements it.
type Store interface {
	Games(ctx context.Context) ([]catalog.Game, error)
	LightweightGames(ctx context.Context) ([]catalog.LightGame, error)
	GameByID(ctx context.Context, id string) (catalog.Game, error)
	CreateGame(ctx context.Context, g catalog.Game) (catalog.Game, error)
	UpdateGame(ctx context.Context, id string, patch catalog.GamePatch) (catalog.Game, error)
	DeactivateGame(ctx context.Context, id string) (catalog.Game, error)
	RecordStats(ctx context.Context, id string, views, plays int64) (catalog.Game, error)

	Categories(ctx context.Context) ([]catalog.Category, error)
	SaveCategories(ctx context.Context, categories []catalog.Category) error
	FeaturedGames(ctx context.Context) ([]catalog.FeaturedGame, error)
	SaveFeaturedGames(ctx context.Context, entries []catalog.FeaturedGame) error
	HomepageContent(ctx context.Context) (catalog.HomepageContent, error)
	SaveHomepageContent(ctx context.Context, content catalog.HomepageContent) error
	SeoDocument(ctx context.Context) (catalog.SeoDocument, error)
	SaveSeoDocument(ctx context.Context, doc catalog.SeoDocument) error
	SiteConfig(ctx context.Context) (catalog.SiteConfig, error)
	FooterContent(ctx context.Context) (catalog.FooterContent, error)
	SaveFooterContent(ctx context.Context, content catalog.FooterContent) error
}

// Config holds configuration for the API server.
type Config struct {
	// Address to listen on (e.g., ":8080")
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RateLimit is the sustained requests per second allowed on admin and
	// stats routes. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Admin routes answer 403 unless AdminEnabled, and 401 without AdminToken.
	AdminEnabled bool
	AdminToken   string
}

// DefaultConfig returns a local development configuration.
func DefaultConfig() Config {
	return ConfigFrom(config.Defaults())
}

// ConfigFrom extracts the server settings from the application config.
func ConfigFrom(cfg config.Config) Config {
	return Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
		AdminEnabled: cfg.Admin.Enabled,
		AdminToken:   cfg.Admin.Token,
	}
}

// Dependencies are the collaborators of a Server. Store is required.
type Dependencies struct {
	Store Store

	// Notifier receives one publish per successful mutation
	Notifier notify.Notifier

	// Hub serves /api/events when set
	Hub *ws.Hub

	// Registry collects HTTP metrics and backs /metrics. A private
	// registry is created when nil.
	Registry *prometheus.Registry

	Metrics metrics.MetricsCollector
	Logger  *logging.Logger
}

// Server is the HTTP API.
type Server struct {
	config   Config
	store    Store
	notifier notify.Notifier
	hub      *ws.Hub
	validate *validator.Validate
	limiter  *rate.Limiter
	metrics  metrics.MetricsCollector
	logger   *logging.Logger

	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec

	router *mux.Router
	server *http.Server
}

// NewServer builds the router and the underlying http.Server.
func NewServer(config Config, deps Dependencies) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("api: store is required")
	}

	registry := deps.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	s := &Server{
		config:   config,
		store:    deps.Store,
		notifier: deps.Notifier,
		hub:      deps.Hub,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limiter:  rate.NewLimiter(limit, config.RateBurst),
		metrics:  metrics.OrNoOp(deps.Metrics),
		logger:   logging.OrNop(deps.Logger).Named("api"),
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gamehub_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gamehub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}

	for _, c := range []prometheus.Collector{s.requests, s.durations} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	s.router = s.routes()
	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog, s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/games", s.handleListGames).Methods(http.MethodGet)
	api.HandleFunc("/games/{id}", s.handleGetGame).Methods(http.MethodGet)
	api.Handle("/games/{id}/stats", s.rateLimit(http.HandlerFunc(s.handleRecordStats))).Methods(http.MethodPost)
	api.HandleFunc("/categories", s.handleCategories).Methods(http.MethodGet)
	api.HandleFunc("/featured-games", s.handleFeaturedGames).Methods(http.MethodGet)
	api.HandleFunc("/homepage", s.handleHomepage).Methods(http.MethodGet)
	api.HandleFunc("/homepage/summary", s.handleHomepageSummary).Methods(http.MethodGet)
	api.HandleFunc("/seo-settings", s.handleSeoSettings).Methods(http.MethodGet)
	api.HandleFunc("/config", s.handleSiteConfig).Methods(http.MethodGet)
	api.HandleFunc("/footer", s.handleFooter).Methods(http.MethodGet)
	if s.hub != nil {
		api.HandleFunc("/events", s.hub.HandleWS).Methods(http.MethodGet)
	}

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminOnly, s.rateLimit)
	admin.HandleFunc("/games", s.handleAdminListGames).Methods(http.MethodGet)
	admin.HandleFunc("/games", s.handleCreateGame).Methods(http.MethodPost)
	admin.HandleFunc("/games", s.handleUpdateGame).Methods(http.MethodPut)
	admin.HandleFunc("/games", s.handleDeleteGame).Methods(http.MethodDelete)
	admin.HandleFunc("/categories", s.handleSaveCategories).Methods(http.MethodPut)
	admin.HandleFunc("/featured-games", s.handleAdminFeaturedGames).Methods(http.MethodGet)
	admin.HandleFunc("/featured-games", s.handleSaveFeaturedGames).Methods(http.MethodPut)
	admin.HandleFunc("/homepage", s.handleSaveHomepage).Methods(http.MethodPut)
	admin.HandleFunc("/seo-settings", s.handleSaveSeoSettings).Methods(http.MethodPut)
	admin.HandleFunc("/footer", s.handleSaveFooter).Methods(http.MethodPut)

	// Set per subrouter; a mismatch inside one would otherwise answer 404.
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	api.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	admin.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return r
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in a goroutine. Serve errors other than shutdown are logged.
func (s *Server) Start() error {
	go func() {
		s.logger.Info("listening", zap.String("addr", s.config.Addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// publish announces a committed mutation. Transport failures are logged;
// the mutation itself already succeeded.
func (s *Server) publish(ctx context.Context, topic notify.Topic) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, topic); err != nil {
		s.logger.Warn("publish failed", zap.String("topic", string(topic)), zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}
