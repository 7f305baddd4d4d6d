package scorer

import (
	"time"

	"github.com/gregjones/httpcache"
	gocache "github.com/patrickmn/go-cache"
)

// Limits for the classifier response cache.
const (
	DefaultCacheTTL        = 30 * time.Minute
	DefaultCacheMaxEntries = 10000
)

// Compile-time interface satisfaction check.
var _ httpcache.Cache = (*boundedCache)(nil)

// boundedCache is an httpcache.Cache whose entries expire after ttl and
// which stops admitting new entries once maxEntries are live.
type boundedCache struct {
	items      *gocache.Cache
	maxEntries int
}

func newBoundedCache(ttl time.Duration, maxEntries int) *boundedCache {
	return &boundedCache{
		items:      gocache.New(ttl, 2*ttl),
		maxEntries: maxEntries,
	}
}

func (c *boundedCache) Get(key string) ([]byte, bool) {
	v, ok := c.items.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (c *boundedCache) Set(key string, resp []byte) {
	if _, exists := c.items.Get(key); !exists && c.items.ItemCount() >= c.maxEntries {
		return
	}
	c.items.SetDefault(key, resp)
}

func (c *boundedCache) Delete(key string) {
	c.items.Delete(key)
}
