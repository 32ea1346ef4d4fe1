package chain

import (
	"math"
	"time"
)

// TTLStrategy determines TTL for each layer in the chain.
type TTLStrategy interface {
	// GetTTL returns the TTL for the layer at layerIndex out of layerCount layers.
	GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration
}

// UniformTTLStrategy uses the same TTL for all layers.
type UniformTTLStrategy struct{}

// GetTTL returns the base TTL for all layers.
func (s *UniformTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	return baseTTL
}

// DecayingTTLStrategy reduces TTL for upper (faster) layers.
// A process-local L1 then drops a value before the shared layer does.
type DecayingTTLStrategy struct {
	DecayFactor float64 // e.g., 0.5 means each layer has half the TTL of the next
}

// GetTTL returns decaying TTL based on layer index.
// The last layer keeps baseTTL; with 3 layers and factor 0.5 the TTLs are
// base/4, base/2, base.
func (s *DecayingTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	if s.DecayFactor <= 0 || s.DecayFactor >= 1 || layerCount <= 0 {
		return baseTTL
	}

	exponent := float64(layerCount - layerIndex - 1)
	if exponent <= 0 {
		return baseTTL
	}

	return time.Duration(float64(baseTTL) * math.Pow(s.DecayFactor, exponent))
}

// CustomTTLStrategy uses explicit TTL values for each layer.
// A value never exceeds the caller's TTL: a shared cache must not keep a
// derived list longer than the operation tolerates.
type CustomTTLStrategy struct {
	TTLs []time.Duration
}

// GetTTL returns the custom TTL for a layer capped at baseTTL, or baseTTL if not specified.
func (s *CustomTTLStrategy) GetTTL(layerIndex, layerCount int, baseTTL time.Duration) time.Duration {
	if layerIndex < len(s.TTLs) && s.TTLs[layerIndex] > 0 && s.TTLs[layerIndex] < baseTTL {
		return s.TTLs[layerIndex]
	}
	return baseTTL
}
