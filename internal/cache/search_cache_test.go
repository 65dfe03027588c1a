package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewTTLCache[[]string](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("app", []string{"AAPL", "APP"})
	got, ok := c.Get("app")
	assert.True(t, ok)
	assert.Equal(t, []string{"AAPL", "APP"}, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("app")
	assert.False(t, ok)
	assert.Empty(t, c.entries)
}

func TestTTLCacheDisabled(t *testing.T) {
	c := NewTTLCache[int](0)
	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
}
