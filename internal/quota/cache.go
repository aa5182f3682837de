package quota

import (
	"time"

	"github.com/abduss/mediahost/internal/storage"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediahost_quota_cache_hits_total",
		Help: "Quota usage cache hits.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mediahost_quota_cache_misses_total",
		Help: "Quota usage cache misses.",
	})
)

// UsageCache stores usage snapshots per provider. Implementations must be safe for concurrent use.
type UsageCache interface {
	Get(provider storage.Provider) (Usage, bool)
	Set(provider storage.Provider, usage Usage)
	Invalidate(provider storage.Provider)
	InvalidateAll()
}

// LRUCache is the in-process UsageCache. Each API instance holds its own copy.
type LRUCache struct {
	cache *expirable.LRU[storage.Provider, Usage]
}

// NewLRUCache creates a cache holding up to size providers for ttl.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if size <= 0 {
		size = 16
	}
	return &LRUCache{cache: expirable.NewLRU[storage.Provider, Usage](size, nil, ttl)}
}

func (c *LRUCache) Get(provider storage.Provider) (Usage, bool) {
	usage, ok := c.cache.Get(provider)
	if ok {
		cacheHitsTotal.Inc()
		return usage, true
	}
	cacheMissesTotal.Inc()
	return Usage{}, false
}

func (c *LRUCache) Set(provider storage.Provider, usage Usage) {
	c.cache.Add(provider, usage)
}

func (c *LRUCache) Invalidate(provider storage.Provider) {
	c.cache.Remove(provider)
}

func (c *LRUCache) InvalidateAll() {
	c.cache.Purge()
}
