package service

import (
	"testing"
	"time"

	"patient-management/internal/domain/entity"
	"patient-management/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterCache(t *testing.T) {
	m := metrics.New("test")
	c := NewRosterCache(time.Minute, m)

	_, found := c.Get()
	assert.False(t, found)

	patients := []entity.Patient{{ID: "1", FirstName: "John"}}
	c.Set(patients)
	patients[0].FirstName = "Changed"

	got, found := c.Get()
	require.True(t, found)
	assert.Equal(t, "John", got[0].FirstName)

	got[0].FirstName = "Mutated"
	again, _ := c.Get()
	assert.Equal(t, "John", again[0].FirstName)

	c.Invalidate()
	_, found = c.Get()
	assert.False(t, found)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RosterCache.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RosterCache.WithLabelValues("miss")))
}

func TestRosterCache_Expires(t *testing.T) {
	c := NewRosterCache(10*time.Millisecond, nil)
	c.Set([]entity.Patient{{ID: "1"}})

	assert.Eventually(t, func() bool {
		_, found := c.Get()
		return !found
	}, time.Second, 5*time.Millisecond)
}

func TestRosterCache_NonPositiveTTLUsesDefault(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		c := NewRosterCache(ttl, nil)
		before := time.Now()
		c.Set([]entity.Patient{{ID: "1"}})

		_, expiresAt, found := c.cache.GetWithExpiration(rosterCacheKey)
		require.True(t, found)
		require.False(t, expiresAt.IsZero(), "roster must not be cached forever")
		assert.WithinDuration(t, before.Add(DefaultRosterCacheTTL), expiresAt, time.Second)
	}
}
