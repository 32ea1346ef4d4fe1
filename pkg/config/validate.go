package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		errs = append(errs, errors.New("server rate limit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		errs = append(errs, errors.New("server.rate_burst must be positive when rate_limit is set"))
	}

	switch c.Store.Driver {
	case DriverFile:
		if c.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the file driver"))
		}
	case DriverSQLite, DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for the %s driver", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of file, sqlite, postgres", c.Store.Driver))
	}
	if c.Store.ReadCacheTTL < 0 {
		errs = append(errs, errors.New("store.read_cache_ttl must not be negative"))
	}

	for _, t := range c.Sync.Transports {
		switch t {
		case TransportRedis:
			if c.Sync.RedisAddr == "" {
				errs = append(errs, errors.New("sync.redis_addr is required for the redis transport"))
			}
		case TransportNATS:
			if c.Sync.NATSURL == "" {
				errs = append(errs, errors.New("sync.nats_url is required for the nats transport"))
			}
		default:
			errs = append(errs, fmt.Errorf("sync transport %q is not one of redis, nats", t))
		}
	}

	if c.Admin.Enabled && c.Admin.Token == "" {
		errs = append(errs, errors.New("admin.token is required when admin is enabled"))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
