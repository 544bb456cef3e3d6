package cache

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"chatpdf/internal/metrics"
	"chatpdf/internal/port"
)

// BuildFunc builds the index for one document.
type BuildFunc func(ctx context.Context) (port.VectorIndex, error)

// IndexCache maps document ids to built indexes for the life of the
// process. Concurrent misses for the same id share a single build.
type IndexCache struct {
	mu       sync.RWMutex
	entries  map[string]port.VectorIndex
	building map[string]struct{}
	evicted  map[string]uint64 // eviction count per id
	epoch    uint64            // Clear count
	group    singleflight.Group
}

func NewIndexCache() *IndexCache {
	return &IndexCache{
		entries:  make(map[string]port.VectorIndex),
		building: make(map[string]struct{}),
		evicted:  make(map[string]uint64),
	}
}

func (c *IndexCache) Get(id string) (port.VectorIndex, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ix, ok := c.entries[id]
	return ix, ok
}

// GetOrBuild returns the cached index for id, or runs build exactly once
// across all concurrent callers and caches its result. A failed build is not
// cached. The build is detached from the cancellation of whichever caller
// started it; a caller whose ctx ends stops waiting and gets ctx.Err().
func (c *IndexCache) GetOrBuild(ctx context.Context, id string, build BuildFunc) (port.VectorIndex, error) {
	if ix, ok := c.Get(id); ok {
		metrics.IndexCacheLookups.WithLabelValues("hit").Inc()
		return ix, nil
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		// a build may have finished between Get and DoChan
		c.mu.Lock()
		cached, ok := c.entries[id]
		gen, epoch := c.evicted[id], c.epoch
		if !ok {
			c.building[id] = struct{}{}
		}
		c.mu.Unlock()
		if ok {
			return cached, nil
		}

		ix, err := build(buildCtx)
		if err == nil && ix == nil {
			err = fmt.Errorf("build for %s returned no index", id)
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		// an index started before Evict or Clear must not be cached after it
		stale := c.evicted[id] != gen || c.epoch != epoch
		if !stale {
			delete(c.building, id)
		}
		if err != nil {
			return nil, err
		}
		if !stale {
			c.entries[id] = ix
		}
		return ix, nil
	})

	select {
	case res := <-ch:
		outcome := "miss"
		if res.Shared {
			outcome = "shared"
		}
		metrics.IndexCacheLookups.WithLabelValues(outcome).Inc()
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(port.VectorIndex), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Evict drops the cached index for id. It reports whether one was present.
func (c *IndexCache) Evict(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	delete(c.entries, id)
	delete(c.building, id)
	c.evicted[id]++
	c.group.Forget(id)
	return ok
}

// Clear drops every cached index. Builds still running are forgotten so
// later callers start fresh ones instead of joining them.
func (c *IndexCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.entries {
		c.group.Forget(id)
	}
	for id := range c.building {
		c.group.Forget(id)
	}
	c.epoch++
	c.entries = make(map[string]port.VectorIndex)
	c.building = make(map[string]struct{})
}

func (c *IndexCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
