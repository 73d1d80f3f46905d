package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// FetchFunc returns a fresh status mapping. An empty result means the fetch
// failed and the current snapshot must be kept.
type FetchFunc func(ctx context.Context) map[string]interface{}

// Cache holds the last successful snapshot of one router and throttles how
// often it is refreshed.
type Cache struct {
	fetch   FetchFunc
	limiter *rate.Limiter
	group   singleflight.Group
	now     func() time.Time

	mutex    sync.RWMutex
	snapshot Snapshot
}

// New returns a cache that refreshes at most about once per interval. The
// window is a tenth shorter than interval so that a caller ticking at the
// same interval is never throttled by jitter. An interval of zero disables
// throttling.
func New(fetch FetchFunc, interval time.Duration) *Cache {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval - interval/10)
	}
	return &Cache{
		fetch:   fetch,
		limiter: rate.NewLimiter(limit, 1),
		now:     time.Now,
	}
}

// Snapshot returns the current snapshot without touching the network.
func (c *Cache) Snapshot() Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.snapshot
}

// Refresh fetches a new snapshot unless one was fetched within the
// interval, in which case the cached snapshot is returned right away.
func (c *Cache) Refresh(ctx context.Context) Snapshot {
	if !c.limiter.AllowN(c.now(), 1) {
		return c.Snapshot()
	}
	return c.fetchShared(ctx)
}

// ForceRefresh ignores the throttle. Callers arriving while a fetch is in
// flight share its result.
func (c *Cache) ForceRefresh(ctx context.Context) Snapshot {
	// opens a new throttle window when none is running
	c.limiter.AllowN(c.now(), 1)
	return c.fetchShared(ctx)
}

func (c *Cache) fetchShared(ctx context.Context) Snapshot {
	v, _, _ := c.group.Do("refresh", func() (interface{}, error) {
		values := c.fetch(ctx)
		if len(values) == 0 {
			return c.Snapshot(), nil
		}

		snapshot := newSnapshot(values, c.now())
		c.mutex.Lock()
		c.snapshot = snapshot
		c.mutex.Unlock()
		return snapshot, nil
	})
	return v.(Snapshot)
}
