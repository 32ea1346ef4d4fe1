// Package config loads gamehub configuration with the hierarchy
// defaults < YAML file < GAMEHUB_* environment variables.
package config

import (
	"time"

	"gamehub/pkg/logging"
	"gamehub/pkg/resilience"
	"gamehub/pkg/writer"
)

// Config is the root configuration of a gamehub process.
type Config struct {
	Server  ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Store   StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	Cache   CacheConfig    `yaml:"cache" envPrefix:"CACHE_"`
	Sync    SyncConfig     `yaml:"sync" envPrefix:"SYNC_"`
	Client  ClientConfig   `yaml:"client" envPrefix:"CLIENT_"`
	Admin   AdminConfig    `yaml:"admin" envPrefix:"ADMIN_"`
	Logging logging.Config `yaml:"logging" envPrefix:"LOG_"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// RateLimit is the sustained requests per second allowed on admin and
	// stats endpoints; RateBurst the bucket size. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"RATE_BURST"`
}

// Store drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	// Driver is one of file, sqlite or postgres
	Driver string `yaml:"driver" env:"DRIVER"`

	// Dir holds one JSON file per collection (file driver)
	Dir string `yaml:"dir" env:"DIR"`

	// DSN is the database connection string (sql drivers)
	DSN string `yaml:"dsn" env:"DSN"`

	// ReadCacheTTL bounds how long a document read is reused
	ReadCacheTTL time.Duration `yaml:"read_cache_ttl" env:"READ_CACHE_TTL"`
}

// CacheConfig configures the data-manager cache chain.
type CacheConfig struct {
	// RedisAddr enables a shared L2 layer when set
	RedisAddr      string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisKeyPrefix string `yaml:"redis_key_prefix" env:"REDIS_KEY_PREFIX"`

	// CleanupInterval is the L1 purge period (0 = purge on read only)
	CleanupInterval time.Duration `yaml:"cleanup_interval" env:"CLEANUP_INTERVAL"`

	Resilience resilience.ResilientConfig `yaml:"resilience" envPrefix:"RESILIENCE_"`
}

// Sync transports.
const (
	TransportRedis = "redis"
	TransportNATS  = "nats"
)

// SyncConfig configures cross-instance change notification.
type SyncConfig struct {
	// Transports lists the extra transports to attach (redis, nats)
	Transports []string `yaml:"transports" env:"TRANSPORTS"`

	RedisAddr    string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisChannel string `yaml:"redis_channel" env:"REDIS_CHANNEL"`

	NATSURL     string `yaml:"nats_url" env:"NATS_URL"`
	NATSSubject string `yaml:"nats_subject" env:"NATS_SUBJECT"`

	// AllowedOrigins are the cross-origin hosts browsers may open
	// /api/events from; same-origin pages need no entry
	AllowedOrigins []string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// Has reports whether transport is enabled.
func (c SyncConfig) Has(transport string) bool {
	for _, t := range c.Transports {
		if t == transport {
			return true
		}
	}
	return false
}

// ClientConfig configures data managers talking to a remote API.
type ClientConfig struct {
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	Token   string `yaml:"token" env:"TOKEN"`

	Resilience resilience.ResilientConfig `yaml:"resilience" envPrefix:"RESILIENCE_"`
	Stats      writer.AsyncWriterConfig   `yaml:"stats" envPrefix:"STATS_"`
}

// AdminConfig configures the admin surface. Admin routes answer 403 while disabled.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Token   string `yaml:"token" env:"TOKEN"`
}

// Defaults returns a configuration usable for local development.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Store: StoreConfig{
			Driver:       DriverFile,
			Dir:          "data",
			ReadCacheTTL: 5 * time.Minute,
		},
		Cache: CacheConfig{
			RedisKeyPrefix:  "gamehub:cache:",
			CleanupInterval: time.Minute,
			Resilience:      resilience.DefaultResilientConfig().WithTimeout(time.Second),
		},
		Sync: SyncConfig{
			RedisChannel: "gamehub:events",
			NATSSubject:  "gamehub.events",
		},
		Client: ClientConfig{
			BaseURL:    "http://localhost:8080",
			Resilience: resilience.DefaultResilientConfig(),
			Stats: writer.AsyncWriterConfig{
				QueueSize:   256,
				Workers:     1,
				MaxWaitTime: -1,
				OpTimeout:   5 * time.Second,
			},
		},
		Logging: logging.DefaultConfig(),
	}
}
