package service

import (
	"time"

	"patient-management/internal/domain/entity"
	"patient-management/pkg/metrics"

	"github.com/patrickmn/go-cache"
)

const rosterCacheKey = "roster"

// DefaultRosterCacheTTL applies when the configured TTL is zero or negative.
const DefaultRosterCacheTTL = 30 * time.Second

// RosterCache keeps the last roster read from the backing store for a short time so
// repeated searches do not reload it. Mutations invalidate it.
type RosterCache struct {
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func NewRosterCache(ttl time.Duration, m *metrics.Metrics) *RosterCache {
	if ttl <= 0 {
		ttl = DefaultRosterCacheTTL
	}
	return &RosterCache{
		cache:   cache.New(ttl, 2*ttl),
		metrics: m,
	}
}

// Get returns a copy of the cached roster.
func (c *RosterCache) Get() ([]entity.Patient, bool) {
	value, found := c.cache.Get(rosterCacheKey)
	if !found {
		c.count("miss")
		return nil, false
	}
	c.count("hit")
	patients := value.([]entity.Patient)
	return append([]entity.Patient(nil), patients...), true
}

func (c *RosterCache) Set(patients []entity.Patient) {
	c.cache.SetDefault(rosterCacheKey, append([]entity.Patient(nil), patients...))
}

func (c *RosterCache) Invalidate() {
	c.cache.Delete(rosterCacheKey)
}

func (c *RosterCache) count(result string) {
	if c.metrics != nil {
		c.metrics.RosterCache.WithLabelValues(result).Inc()
	}
}
