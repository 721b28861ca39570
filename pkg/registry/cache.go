package registry

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingOracle remembers successful lookups and packages the registry does
// not know. Transient failures are never cached.
type CachingOracle struct {
	inner Oracle
	cache *lru.Cache[string, lookup]
}

// NewCachingOracle wraps inner with an LRU cache holding up to size entries.
func NewCachingOracle(inner Oracle, size int) (*CachingOracle, error) {
	cache, err := lru.New[string, lookup](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}
	return &CachingOracle{inner: inner, cache: cache}, nil
}

func (o *CachingOracle) DependencyCount(ctx context.Context, name, declared string) (int, error) {
	key := name + "@" + declared
	if hit, ok := o.cache.Get(key); ok {
		return hit.count, hit.err
	}
	n, err := o.inner.DependencyCount(ctx, name, declared)
	switch {
	case err == nil:
		o.cache.Add(key, lookup{count: n})
	case errors.Is(err, ErrPackageNotFound):
		o.cache.Add(key, lookup{err: err})
	}
	return n, err
}

// Len reports the number of cached lookups.
func (o *CachingOracle) Len() int {
	return o.cache.Len()
}
