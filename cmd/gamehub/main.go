// Command gamehub serves the game catalog API over a file or SQL document
// store and announces every change on the configured sync transports.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"gamehub/pkg/api"
	"gamehub/pkg/config"
	"gamehub/pkg/logging"
	promcollector "gamehub/pkg/metrics/prometheus"
	"gamehub/pkg/notify"
	"gamehub/pkg/notify/natsnotify"
	"gamehub/pkg/notify/redisnotify"
	"gamehub/pkg/notify/ws"
	"gamehub/pkg/store"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigFile, "path to the YAML configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "gamehub: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := promcollector.NewPrometheusCollector("gamehub")
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Store ---
	backend, err := openBackend(ctx, cfg.Store)
	if err != nil {
		return err
	}
	st := store.New(backend, store.Options{
		ReadCacheTTL: cfg.Store.ReadCacheTTL,
		Logger:       logger,
		Metrics:      collector,
	})
	defer st.Close()
	logger.Info("store ready", zap.String("backend", backend.Name()))

	// --- Sync ---
	bus := notify.NewBus(notify.WithLogger(logger), notify.WithMetrics(collector))
	defer bus.Close()

	hub := ws.NewHub(logger, ws.WithOriginPatterns(cfg.Sync.AllowedOrigins...))
	if err := bus.Attach(ctx, hub); err != nil {
		return err
	}
	if err := attachTransports(ctx, bus, cfg.Sync, logger); err != nil {
		return err
	}
	unsubscribe := api.InvalidateOnEvents(bus, st)
	defer unsubscribe()

	// --- HTTP ---
	server, err := api.NewServer(api.ConfigFrom(*cfg), api.Dependencies{
		Store:    st,
		Notifier: bus,
		Hub:      hub,
		Registry: registry,
		Metrics:  collector,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Stop(shutdownCtx)
}

func openBackend(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return store.OpenSQL(ctx, store.SQLite, cfg.DSN)
	case config.DriverPostgres:
		return store.OpenSQL(ctx, store.Postgres, cfg.DSN)
	default:
		return store.NewFileBackend(cfg.Dir), nil
	}
}

// attachTransports connects the bus to the configured brokers. A broker
// that cannot be reached fails startup.
func attachTransports(ctx context.Context, bus *notify.Bus, cfg config.SyncConfig, logger *logging.Logger) error {
	if cfg.Has(config.TransportRedis) {
		t, err := redisnotify.Dial(cfg.RedisAddr, cfg.RedisChannel, logger)
		if err != nil {
			return fmt.Errorf("redis transport: %w", err)
		}
		if err := bus.Attach(ctx, t); err != nil {
			t.Close()
			return err
		}
	}

	if cfg.Has(config.TransportNATS) {
		t, err := natsnotify.Connect(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return fmt.Errorf("nats transport: %w", err)
		}
		if err := bus.Attach(ctx, t); err != nil {
			t.Close()
			return err
		}
	}
	return nil
}
