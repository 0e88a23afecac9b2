package weather

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Cache key namespaces. City lookups and forecast payloads share one cache
// but must never collide.
const (
	cityKeyPrefix    = "city_"
	weatherKeyPrefix = "weather_"
)

// CityKey namespaces a city-lookup cache key.
func CityKey(name string) string { return cityKeyPrefix + name }

// WeatherKey namespaces a forecast cache key.
func WeatherKey(cityID string) string { return weatherKeyPrefix + cityID }

type cacheEntry struct {
	value    interface{}
	storedAt time.Time
}

// Cache is a TTL key/value cache in front of the weather provider. Reads
// are lazy: an expired entry reads as absent but stays in memory until
// ClearExpired reclaims it.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clockwork.Clock
	entries map[string]cacheEntry
}

// NewCache creates a Cache with a fixed TTL.
func NewCache(ttl time.Duration, clock clockwork.Clock) *Cache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for key, or ok=false when the key is missing
// or its entry has outlived the TTL.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Since(e.storedAt) > c.ttl {
		return nil, false
	}
	return e.value, true
}

// Set stores value under key, restarting its TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, storedAt: c.clock.Now()}
}

// Clear removes one key.
func (c *Cache) Clear(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// ClearAll removes every entry.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// ClearExpired reclaims entries past the TTL and returns how many were
// removed.
func (c *Cache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if c.clock.Since(e.storedAt) > c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
