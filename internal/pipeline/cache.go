package pipeline

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/seenimoa/fxforward/internal/infra"
	"github.com/seenimoa/fxforward/internal/metrics"
)

// SeriesCache memoises extractions for the process lifetime. Concurrent
// cold misses on one key share a single load.
type SeriesCache struct {
	store   *infra.Cache[Extraction]
	group   singleflight.Group
	metrics *metrics.Metrics
}

// NewSeriesCache returns an empty cache. m may be nil.
func NewSeriesCache(m *metrics.Metrics) *SeriesCache {
	return &SeriesCache{
		store:   infra.NewCache[Extraction](),
		metrics: m,
	}
}

// CacheKey builds the memoisation key "<source>:<pair-slug>".
func CacheKey(source, slug string) string {
	return source + ":" + slug
}

// GetOrLoad returns the cached extraction for key, running load on a miss.
// Concurrent misses on one key share a single load. The shared load is
// detached from the caller's cancellation, so a caller that gives up neither
// fails the others nor leaves the key unloaded; it only stops waiting and
// gets its own ctx error. Every caller receives its own copy of the series.
func (c *SeriesCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) Extraction) (Extraction, error) {
	if ex, ok := c.store.Get(key); ok {
		c.metrics.CacheLookup(true)
		return cachedCopy(ex, true), nil
	}
	c.metrics.CacheLookup(false)
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if ex, ok := c.store.Get(key); ok {
			return cachedCopy(ex, true), nil
		}
		ex := load(loadCtx)
		c.store.Set(key, ex)
		return ex, nil
	})

	select {
	case <-ctx.Done():
		return Extraction{}, ctx.Err()
	case r := <-ch:
		ex := r.Val.(Extraction)
		return cachedCopy(ex, ex.Cached), nil
	}
}

// cachedCopy detaches ex from the stored entry.
func cachedCopy(ex Extraction, cached bool) Extraction {
	ex.Series = ex.Series.Clone()
	ex.Cached = cached
	return ex
}

// Invalidate drops one key and reports whether it was cached.
func (c *SeriesCache) Invalidate(key string) bool {
	return c.store.Invalidate(key)
}

// Flush drops every entry and returns how many there were.
func (c *SeriesCache) Flush() int {
	return c.store.Flush()
}

// Len returns the number of cached series.
func (c *SeriesCache) Len() int {
	return c.store.Len()
}

// Keys lists the cached keys, sorted.
func (c *SeriesCache) Keys() []string {
	return c.store.Keys()
}
