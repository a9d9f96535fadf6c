// Package cache keeps short-lived copies of read-only reference data.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/jakechorley/carpool/pkg/db"
)

const (
	DefaultActivityCacheSize = 512
	DefaultActivityCacheTTL  = time.Minute
)

// ActivityCache wraps an ActivityCatalog and remembers successful lookups for a short TTL.
// Misses and errors are never cached.
type ActivityCache struct {
	catalog db.ActivityCatalog
	lru     *expirable.LRU[string, db.Activity]
}

// NewActivityCache creates a cache in front of catalog
func NewActivityCache(catalog db.ActivityCatalog, size int, ttl time.Duration) *ActivityCache {
	if size <= 0 {
		size = DefaultActivityCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultActivityCacheTTL
	}
	return &ActivityCache{
		catalog: catalog,
		lru:     expirable.NewLRU[string, db.Activity](size, nil, ttl),
	}
}

func cacheKey(activityID, orgID string) string {
	return orgID + "/" + activityID
}

// GetActivity implements db.ActivityCatalog
func (c *ActivityCache) GetActivity(ctx context.Context, activityID, orgID string) (*db.Activity, error) {
	key := cacheKey(activityID, orgID)
	if a, ok := c.lru.Get(key); ok {
		return &a, nil
	}

	a, err := c.catalog.GetActivity(ctx, activityID, orgID)
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, *a)
	return a, nil
}

// Invalidate drops a cached activity
func (c *ActivityCache) Invalidate(activityID, orgID string) {
	c.lru.Remove(cacheKey(activityID, orgID))
}

// Len returns the number of cached activities
func (c *ActivityCache) Len() int {
	return c.lru.Len()
}
