package cache

import (
	"fmt"
	"strings"
	"unicode"
)

// KeySeparator joins an operation name and its parameters.
const KeySeparator = "-"

// ValidateKey checks if a cache key is valid according to the library's rules.
// Returns nil if the key is valid, or an error describing the problem.
//
// Rules:
// - Non-empty string
// - Maximum length of 250 characters
// - No control characters (0x00-0x1F and 0x7F-0x9F)
// - No leading or trailing whitespace
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}

	if len(key) > 250 {
		return fmt.Errorf("%w: key too long (max 250 characters)", ErrInvalidKey)
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: key contains control character", ErrInvalidKey)
		}
	}

	if strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: key has leading or trailing whitespace", ErrInvalidKey)
	}

	return nil
}

// Key builds a cache key following the {operation}-{param1}-{param2} convention.
// Distinct operation names keep keys collision-free across operations.
//
//	Key("hot-games", 8)             -> "hot-games-8"
//	Key("games-category", "io", 0)  -> "games-category-io-0"
func Key(operation string, params ...interface{}) string {
	if len(params) == 0 {
		return operation
	}

	var b strings.Builder
	b.WriteString(operation)
	for _, p := range params {
		b.WriteString(KeySeparator)
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// KeyPattern represents a pattern for generating cache keys.
// Useful for creating consistent key naming conventions.
type KeyPattern struct {
	prefix    string
	separator string
}

// NewKeyPattern creates a new key pattern with the given prefix and separator.
func NewKeyPattern(prefix, separator string) *KeyPattern {
	if separator == "" {
		separator = KeySeparator
	}
	return &KeyPattern{
		prefix:    prefix,
		separator: separator,
	}
}

// Build creates a cache key from the pattern and provided parts.
// Example: NewKeyPattern("game", "").Build("tetris") -> "game-tetris"
func (kp *KeyPattern) Build(parts ...string) string {
	if len(parts) == 0 {
		return kp.prefix
	}
	return kp.prefix + kp.separator + strings.Join(parts, kp.separator)
}

// Prefix returns the string every key built by this pattern (with at least
// one part) starts with. Suitable for DeletePrefix.
func (kp *KeyPattern) Prefix() string {
	return kp.prefix + kp.separator
}
