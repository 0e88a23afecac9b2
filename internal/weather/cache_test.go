package weather

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestCache_GetSet(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(2*time.Hour, clock)

	_, ok := c.Get(WeatherKey("101010100"))
	assert.False(t, ok)

	c.Set(WeatherKey("101010100"), "forecast")
	v, ok := c.Get(WeatherKey("101010100"))
	assert.True(t, ok)
	assert.Equal(t, "forecast", v)
}

func TestCache_ExpiryIsLazy(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(2*time.Hour, clock)
	c.Set("k", 1)

	clock.Advance(2*time.Hour + time.Second)

	// Expired entries read as absent but are not evicted on read.
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.ClearExpired())
	assert.Equal(t, 0, c.ClearExpired())
}

func TestCache_ValueFreshAtTTLBoundary(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := NewCache(time.Hour, clock)
	c.Set("k", 1)

	clock.Advance(time.Hour)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry exactly at TTL is still valid")
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(time.Hour, clockwork.NewFakeClock())
	c.Set(CityKey("北京"), "101010100")
	c.Set(WeatherKey("101010100"), "forecast")

	c.Clear(CityKey("北京"))
	_, ok := c.Get(CityKey("北京"))
	assert.False(t, ok)
	_, ok = c.Get(WeatherKey("101010100"))
	assert.True(t, ok)

	c.ClearAll()
	_, ok = c.Get(WeatherKey("101010100"))
	assert.False(t, ok)
}

func TestCache_KeyNamespacesDoNotCollide(t *testing.T) {
	c := NewCache(time.Hour, clockwork.NewFakeClock())
	c.Set(CityKey("X"), "city")
	c.Set(WeatherKey("X"), "weather")

	v, _ := c.Get(CityKey("X"))
	assert.Equal(t, "city", v)
	v, _ = c.Get(WeatherKey("X"))
	assert.Equal(t, "weather", v)
}
