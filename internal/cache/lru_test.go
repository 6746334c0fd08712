package cache

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU(t *testing.T) {
	c := NewLRU[int, string](2)

	c.Set(1, "a")
	c.Set(2, "b")

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", v)

	// 2 is now the least recently used.
	c.Set(3, "c")
	_, ok = c.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Set(1, "a2")
	v, _ = c.Get(1)
	assert.Equal(t, "a2", v)
	assert.Equal(t, 2, c.Len())

	hits, misses := c.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRU_RemoveAndInvalidate(t *testing.T) {
	c := NewLRU[int, int](10)
	for i := range 6 {
		c.Set(i, i*i)
	}

	c.Remove(0)
	c.Remove(42)
	assert.Equal(t, 5, c.Len())

	c.Invalidate(func(k int) bool { return k%2 == 1 })
	assert.Equal(t, 2, c.Len())

	v, ok := c.Get(4)
	require.True(t, ok)
	assert.Equal(t, 16, v)
	_, ok = c.Get(3)
	assert.False(t, ok)
}

func TestLRU_Disabled(t *testing.T) {
	c := NewLRU[string, int](0)
	c.Set("x", 1)
	_, ok := c.Get("x")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int, int](16)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				c.Set(g*100+i, i)
				c.Get(g*100 + i/2)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 16)
}
