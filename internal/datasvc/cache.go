package datasvc

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/2beens/gymbook/internal/telemetry/metrics"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

// DefaultCacheSize is used when no cache size is given. freecache refuses
// entries bigger than 1/1024 of the cache size, so a whole listing has to
// stay under ~10 KB to be cached with it.
const DefaultCacheSize = 10 * 1024 * 1024 // 10 MB

var _ Accessor = (*CachedAccessor)(nil)

// CachedAccessor serves plain (unfiltered) listings of the configured
// resources from an in-memory cache. Any write to a cached resource made
// through it evicts that resource.
type CachedAccessor struct {
	next           Accessor
	cache          *freecache.Cache
	ttl            time.Duration
	cached         map[string]bool
	metricsManager *metrics.Manager
}

func NewCachedAccessor(
	next Accessor,
	ttl time.Duration,
	cacheSize int,
	metricsManager *metrics.Manager,
	resources ...string,
) *CachedAccessor {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cached := make(map[string]bool, len(resources))
	for _, r := range resources {
		cached[r] = true
	}
	return &CachedAccessor{
		next:           next,
		cache:          freecache.NewCache(cacheSize),
		ttl:            ttl,
		cached:         cached,
		metricsManager: metricsManager,
	}
}

func (c *CachedAccessor) GetAll(ctx context.Context, resource string) ([]json.RawMessage, error) {
	if !c.cached[resource] {
		return c.next.GetAll(ctx, resource)
	}

	if cachedBytes, err := c.cache.Get([]byte(resource)); err == nil {
		var records []json.RawMessage
		if err := json.Unmarshal(cachedBytes, &records); err == nil {
			c.count("hit")
			return records, nil
		}
		log.Warnf("datasvc cache: corrupt entry for [%s], refetching", resource)
	} else if !errors.Is(err, freecache.ErrNotFound) {
		log.Errorf("datasvc cache: get [%s]: %s", resource, err)
	}
	c.count("miss")

	records, err := c.next.GetAll(ctx, resource)
	if err != nil {
		return nil, err
	}

	recordsBytes, err := json.Marshal(records)
	if err != nil {
		log.Errorf("datasvc cache: marshal [%s]: %s", resource, err)
		return records, nil
	}
	if err := c.cache.Set([]byte(resource), recordsBytes, int(c.ttl.Seconds())); err != nil {
		if errors.Is(err, freecache.ErrLargeEntry) {
			log.Debugf("datasvc cache: [%s] listing of %d bytes too large to cache", resource, len(recordsBytes))
			c.count("skip")
		} else {
			log.Errorf("datasvc cache: set [%s]: %s", resource, err)
		}
	}

	return records, nil
}

func (c *CachedAccessor) Create(ctx context.Context, resource string, body any) (json.RawMessage, error) {
	defer c.Invalidate(resource)
	return c.next.Create(ctx, resource, body)
}

func (c *CachedAccessor) UpdateByID(ctx context.Context, resource string, id int, body any) (json.RawMessage, error) {
	defer c.Invalidate(resource)
	return c.next.UpdateByID(ctx, resource, id, body)
}

func (c *CachedAccessor) DeleteByID(ctx context.Context, resource string, id int) error {
	defer c.Invalidate(resource)
	return c.next.DeleteByID(ctx, resource, id)
}

func (c *CachedAccessor) Invalidate(resources ...string) {
	for _, r := range resources {
		if c.cached[r] {
			c.cache.Del([]byte(r))
		}
	}
}

func (c *CachedAccessor) count(result string) {
	if c.metricsManager != nil {
		c.metricsManager.CounterReferenceCache.WithLabelValues(result).Inc()
	}
}
