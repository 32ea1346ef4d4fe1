package datamanager

import (
	"time"

	"gamehub/pkg/cache"
	"gamehub/pkg/cache/memory"
	"gamehub/pkg/cache/redis"
	"gamehub/pkg/chain"
	"gamehub/pkg/config"
	"gamehub/pkg/logging"
	"gamehub/pkg/metrics"
	"gamehub/pkg/resilience"
)

// ConfigFrom returns DefaultConfig with the stats writer taken from cfg.
func ConfigFrom(cfg config.Config) Config {
	c := DefaultConfig()
	c.Stats = cfg.Client.Stats
	return c
}

// NewCache builds the layer chain a DataManager reads through: an
// in-memory L1 and, when cfg.RedisAddr is set, a shared Redis L2.
// The caller owns the returned layer.
func NewCache(cfg config.CacheConfig, clock cache.Clock, logger *logging.Logger, collector metrics.MetricsCollector) (*chain.Chain, error) {
	layers := []cache.CacheLayer{
		memory.NewMemoryCache(memory.MemoryCacheConfig{
			Name:            "L1-memory",
			CleanupInterval: cfg.CleanupInterval,
			Clock:           clock,
		}),
	}

	if cfg.RedisAddr != "" {
		rc := redis.DefaultRedisCacheConfig()
		rc.Name = "L2-redis"
		rc.Addr = cfg.RedisAddr
		if cfg.RedisKeyPrefix != "" {
			rc.KeyPrefix = cfg.RedisKeyPrefix
		}

		l2, err := redis.NewRedisCache(rc)
		if err != nil {
			layers[0].Close()
			return nil, err
		}
		layers = append(layers, l2)
	}

	return chain.NewWithConfig(chain.ChainConfig{
		Resilience: func(i int) resilience.ResilientConfig {
			if i == 0 {
				return resilience.DefaultResilientConfig().WithTimeout(100 * time.Millisecond)
			}
			return cfg.Resilience
		},
		Metrics: collector,
		Logger:  logger,
	}, layers...)
}
