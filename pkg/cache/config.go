package cache

import "time"

// LayerConfig holds TTL policy for a cache layer.
type LayerConfig struct {
	// Name is the identifier for this layer (e.g., "L1", "redis")
	Name string

	// DefaultTTL applies when a caller passes a non-positive TTL
	DefaultTTL time.Duration

	// MaxTTL caps caller-supplied TTLs. Zero means no cap.
	MaxTTL time.Duration
}

// Validate checks if the configuration is valid.
func (c *LayerConfig) Validate() error {
	if c.Name == "" {
		return ErrInvalidValue
	}

	if c.DefaultTTL < 0 || c.MaxTTL < 0 {
		return ErrInvalidValue
	}

	if c.MaxTTL > 0 && c.DefaultTTL > c.MaxTTL {
		return ErrInvalidValue
	}

	return nil
}

// EffectiveTTL returns the TTL a layer should store for a requested duration.
// If ttl is not positive, returns DefaultTTL.
// If ttl exceeds MaxTTL, returns MaxTTL.
func (c *LayerConfig) EffectiveTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return c.DefaultTTL
	}

	if c.MaxTTL > 0 && ttl > c.MaxTTL {
		return c.MaxTTL
	}

	return ttl
}
