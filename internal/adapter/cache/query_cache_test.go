package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheGetPut(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	_, ok := c.Get("m", "q1")
	assert.False(t, ok)

	c.Put("m", "q1", []float32{1, 0})
	v, ok := c.Get("m", "q1")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 0}, v)

	_, ok = c.Get("other-model", "q1")
	assert.False(t, ok, "entries are scoped by model")
}

func TestQueryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Put("m", "a", []float32{1})
	c.Put("m", "b", []float32{2})

	_, ok := c.Get("m", "a")
	require.True(t, ok)

	c.Put("m", "c", []float32{3})

	_, ok = c.Get("m", "b")
	assert.False(t, ok)
	_, ok = c.Get("m", "a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
}

func TestQueryCacheTTL(t *testing.T) {
	c := NewQueryCache(4, time.Second)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Put("m", "q", []float32{1})
	now = now.Add(2 * time.Second)

	_, ok := c.Get("m", "q")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestQueryCacheInvalidate(t *testing.T) {
	c := NewQueryCache(4, time.Minute)
	c.Put("m", "q", []float32{1})
	c.Invalidate()

	_, ok := c.Get("m", "q")
	assert.False(t, ok)
}

func TestHashHexStable(t *testing.T) {
	assert.Equal(t, HashHex("a", "bc"), HashHex("a", "bc"))
	assert.NotEqual(t, HashHex("ab", "c"), HashHex("a", "bc"))
	assert.Len(t, HashHex("x"), 16)
}
