package storage

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// CachedFileSystem memoizes Exists and Glob results in front of a slower
// backend. Entries expire after the configured TTL; InvalidateCache evicts
// immediately, which datasets rely on after every save so the next
// resolution sees what was just written.
type CachedFileSystem struct {
	inner  FileSystem
	exists *ttlcache.Cache[string, bool]
	globs  *ttlcache.Cache[string, []string]
}

// NewCached wraps inner with a stat/glob cache. A non-positive ttl means
// entries only leave the cache through invalidation.
func NewCached(inner FileSystem, ttl time.Duration) *CachedFileSystem {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	return &CachedFileSystem{
		inner: inner,
		exists: ttlcache.New(
			ttlcache.WithTTL[string, bool](ttl),
			ttlcache.WithDisableTouchOnHit[string, bool](),
		),
		globs: ttlcache.New(
			ttlcache.WithTTL[string, []string](ttl),
			ttlcache.WithDisableTouchOnHit[string, []string](),
		),
	}
}

func (c *CachedFileSystem) Exists(ctx context.Context, path string) (bool, error) {
	if item := c.exists.Get(path); item != nil {
		return item.Value(), nil
	}
	ok, err := c.inner.Exists(ctx, path)
	if err != nil {
		return false, err
	}
	c.exists.Set(path, ok, ttlcache.DefaultTTL)
	return ok, nil
}

func (c *CachedFileSystem) Glob(ctx context.Context, pattern string) ([]string, error) {
	if item := c.globs.Get(pattern); item != nil {
		return item.Value(), nil
	}
	matches, err := c.inner.Glob(ctx, pattern)
	if err != nil {
		return nil, err
	}
	c.globs.Set(pattern, matches, ttlcache.DefaultTTL)
	return matches, nil
}

func (c *CachedFileSystem) Open(ctx context.Context, path string, opts OpenOptions) (File, error) {
	return c.inner.Open(ctx, path, opts)
}

// InvalidateCache drops the existence entry for path and every memoized
// glob, since any of them could have matched it. An empty path clears
// everything.
func (c *CachedFileSystem) InvalidateCache(path string) {
	if path == "" {
		c.exists.DeleteAll()
	} else {
		c.exists.Delete(path)
	}
	c.globs.DeleteAll()
	c.inner.InvalidateCache(path)
}
