package cache

import (
	"context"
	"errors"
	"strings"
)

// Namespace groups the cache keys derived from one underlying collection.
// Any write to the collection must invalidate the whole namespace so no
// stale derivative outlives the write.
type Namespace struct {
	// Name identifies the namespace in logs and metrics
	Name string

	// Keys are removed by exact match
	Keys []string

	// Prefixes remove every key starting with them
	Prefixes []string
}

// Invalidate removes every key of the namespace from layer.
// All keys and prefixes are attempted even if one fails; the errors are joined.
func (n Namespace) Invalidate(ctx context.Context, layer CacheLayer) (int, error) {
	var (
		removed int
		errs    []error
	)

	for _, key := range n.Keys {
		if err := layer.Delete(ctx, key); err != nil {
			errs = append(errs, WrapError(err, layer.Name(), "delete "+key))
			continue
		}
		removed++
	}

	for _, prefix := range n.Prefixes {
		count, err := layer.DeletePrefix(ctx, prefix)
		removed += count
		if err != nil {
			errs = append(errs, WrapError(err, layer.Name(), "delete prefix "+prefix))
		}
	}

	return removed, errors.Join(errs...)
}

// Owns reports whether key belongs to the namespace.
func (n Namespace) Owns(key string) bool {
	for _, k := range n.Keys {
		if k == key {
			return true
		}
	}
	for _, p := range n.Prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}
