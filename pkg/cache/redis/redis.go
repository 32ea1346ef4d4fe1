package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamehub/pkg/cache"

	"github.com/redis/rueidis"
)

// RedisCache is a shared cache layer backed by Redis. Values are stored as
// JSON and come back from Get as json.RawMessage; callers decode them into
// their own types. Every key is namespaced under KeyPrefix so Clear and
// DeletePrefix never touch foreign data.
type RedisCache struct {
	client rueidis.Client
	name   string
	config RedisCacheConfig
}

type RedisCacheConfig struct {
	Name string
	// Addr is the Redis server address for single node/sentinel mode.
	// For cluster mode, use ClusterAddrs instead.
	// Examples: "localhost:6379", "redis.example.com:6379"
	Addr string
	// ClusterAddrs is a list of Redis cluster node addresses.
	// If set, cluster mode is enabled automatically.
	ClusterAddrs []string
	Username     string
	Password     string
	// DB is the Redis database number (0-15).
	// Note: In cluster mode, only DB 0 is supported.
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// ScanCount is the COUNT hint used when walking keys for prefix deletes.
	ScanCount int64
	// Sentinel configuration for high availability
	SentinelMasterSet string
	// SentinelAddrs is a list of Redis Sentinel addresses.
	// If set, sentinel mode is enabled.
	SentinelAddrs    []string
	SentinelUsername string
	SentinelPassword string
}

func DefaultRedisCacheConfig() RedisCacheConfig {
	return RedisCacheConfig{
		Name:         "Redis",
		Addr:         "localhost:6379",
		DB:           0,
		KeyPrefix:    "gamehub:cache:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		ScanCount:    200,
	}
}

// ClusterCacheConfig returns a configuration for Redis Cluster mode.
// clusterAddrs should contain multiple Redis cluster node addresses.
func ClusterCacheConfig(name string, clusterAddrs []string, password string) RedisCacheConfig {
	config := DefaultRedisCacheConfig()
	config.Name = name
	config.ClusterAddrs = clusterAddrs
	config.Password = password
	config.Addr = "" // Clear single node address
	config.DB = 0    // Cluster only supports DB 0
	return config
}

// SentinelCacheConfig returns a configuration for Redis Sentinel mode.
// sentinelAddrs should contain Redis Sentinel addresses.
// masterSet is the name of the master set to connect to.
func SentinelCacheConfig(name string, sentinelAddrs []string, masterSet, password string) RedisCacheConfig {
	config := DefaultRedisCacheConfig()
	config.Name = name
	config.SentinelAddrs = sentinelAddrs
	config.SentinelMasterSet = masterSet
	config.Password = password
	config.Addr = "" // Clear single node address
	return config
}

// NewClient builds and pings a rueidis client for config. It is shared by
// the cache layer and the pub/sub notifier.
func NewClient(config RedisCacheConfig) (rueidis.Client, error) {
	var initAddress []string
	switch {
	case len(config.ClusterAddrs) > 0:
		initAddress = config.ClusterAddrs
	case len(config.SentinelAddrs) > 0:
		initAddress = config.SentinelAddrs
	case config.Addr != "":
		initAddress = []string{config.Addr}
	default:
		return nil, fmt.Errorf("redis: no addresses configured (set Addr, ClusterAddrs, or SentinelAddrs)")
	}

	clientOpts := rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		MaxFlushDelay:    100 * time.Microsecond,
	}

	if len(config.SentinelAddrs) > 0 {
		clientOpts.Sentinel = rueidis.SentinelOption{
			MasterSet: config.SentinelMasterSet,
			Username:  config.SentinelUsername,
			Password:  config.SentinelPassword,
		}
	}

	client, err := rueidis.NewClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("redis: failed to create client: %w", err)
	}

	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}

	return client, nil
}

func NewRedisCache(config RedisCacheConfig) (*RedisCache, error) {
	if config.Name == "" {
		config.Name = "Redis"
	}
	if config.ScanCount <= 0 {
		config.ScanCount = 200
	}

	client, err := NewClient(config)
	if err != nil {
		return nil, err
	}

	return &RedisCache{
		client: client,
		name:   config.Name,
		config: config,
	}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (interface{}, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, err
	}

	resp := r.client.Do(ctx, r.client.B().Get().Key(r.config.KeyPrefix+key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, cache.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	data, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("redis get: failed to read response: %w", err)
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("redis get: failed to unmarshal: invalid JSON under %s", key)
	}

	return json.RawMessage(data), nil
}

// Set stores value as JSON with a millisecond-precision expiry.
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}
	if ttl < time.Millisecond {
		return fmt.Errorf("%w: ttl %v below redis resolution", cache.ErrInvalidValue, ttl)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis set: failed to marshal: %w", err)
	}

	cmd := r.client.B().Set().Key(r.config.KeyPrefix + key).Value(rueidis.BinaryString(data)).Px(ttl).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := cache.ValidateKey(key); err != nil {
		return err
	}

	cmd := r.client.B().Del().Key(r.config.KeyPrefix + key).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}

	return nil
}

// DeletePrefix walks the keyspace with SCAN and deletes every match.
// Keys are deleted one per command so the walk also works on a cluster
// where matches hash to different slots.
func (r *RedisCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := r.scan(ctx, escapeGlob(r.config.KeyPrefix+prefix)+"*")
	if err != nil {
		return 0, fmt.Errorf("redis delete prefix: %w", err)
	}
	return r.deleteAll(ctx, keys)
}

// Clear deletes every key under KeyPrefix. Other data in the database is left alone.
func (r *RedisCache) Clear(ctx context.Context) error {
	keys, err := r.scan(ctx, escapeGlob(r.config.KeyPrefix)+"*")
	if err != nil {
		return fmt.Errorf("redis clear: %w", err)
	}
	_, err = r.deleteAll(ctx, keys)
	return err
}

func (r *RedisCache) scan(ctx context.Context, pattern string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		cmd := r.client.B().Scan().Cursor(cursor).Match(pattern).Count(r.config.ScanCount).Build()
		entry, err := r.client.Do(ctx, cmd).AsScanEntry()
		if err != nil {
			return nil, err
		}
		keys = append(keys, entry.Elements...)
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (r *RedisCache) deleteAll(ctx context.Context, fullKeys []string) (int, error) {
	if len(fullKeys) == 0 {
		return 0, nil
	}

	cmds := make(rueidis.Commands, 0, len(fullKeys))
	for _, k := range fullKeys {
		cmds = append(cmds, r.client.B().Del().Key(k).Build())
	}

	var (
		removed int
		errs    []error
	)
	for i, resp := range r.client.DoMulti(ctx, cmds...) {
		n, err := resp.AsInt64()
		if err != nil {
			errs = append(errs, fmt.Errorf("key %s: %w", fullKeys[i], err))
			continue
		}
		removed += int(n)
	}

	if len(errs) > 0 {
		return removed, fmt.Errorf("redis delete: %w", errors.Join(errs...))
	}
	return removed, nil
}

func (r *RedisCache) Name() string {
	return r.name
}

func (r *RedisCache) Close() error {
	r.client.Close()
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	cmd := r.client.B().Ping().Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// TTL reports the remaining lifetime of key with millisecond precision.
func (r *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	cmd := r.client.B().Pttl().Key(r.config.KeyPrefix + key).Build()
	ms, err := r.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}

	switch {
	case ms == -2:
		return 0, cache.ErrCacheMiss
	case ms == -1:
		// No expiry set; treat as unknown so callers fall back to their default.
		return 0, nil
	}

	return time.Duration(ms) * time.Millisecond, nil
}

// escapeGlob quotes the glob metacharacters SCAN MATCH understands.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
