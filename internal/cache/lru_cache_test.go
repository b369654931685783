package cache

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_Basic(t *testing.T) {
	cache := NewLRUCache(2)

	// Test Set and Get
	cache.Set("key1", []int{3, 17, 42})
	value, exists := cache.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, []int{3, 17, 42}, value)

	// Test non-existent key
	_, exists = cache.Get("non-existent")
	assert.False(t, exists)
}

func TestLRUCache_Capacity(t *testing.T) {
	cache := NewLRUCache(2)

	// Fill cache
	cache.Set("key1", "value1")
	cache.Set("key2", "value2")

	// Add one more item, should evict key1
	cache.Set("key3", "value3")

	// key1 should be evicted
	_, exists := cache.Get("key1")
	assert.False(t, exists)

	// key2 and key3 should exist
	value, exists := cache.Get("key2")
	assert.True(t, exists)
	assert.Equal(t, "value2", value)

	value, exists = cache.Get("key3")
	assert.True(t, exists)
	assert.Equal(t, "value3", value)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	cache := NewLRUCache(2)

	// Set initial value
	cache.Set("key1", "value1")

	// Update value
	cache.Set("key1", "newvalue1")

	// Check updated value
	value, exists := cache.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "newvalue1", value)
}

func TestLRUCache_LRUOrder(t *testing.T) {
	cache := NewLRUCache(2)

	// Add two items
	cache.Set("key1", "value1")
	cache.Set("key2", "value2")

	// Access key1, making it most recently used
	cache.Get("key1")

	// Add new item, should evict key2 instead of key1
	cache.Set("key3", "value3")

	// key1 should still exist (most recently used)
	value, exists := cache.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "value1", value)

	// key2 should be evicted
	_, exists = cache.Get("key2")
	assert.False(t, exists)

	// key3 should exist
	value, exists = cache.Get("key3")
	assert.True(t, exists)
	assert.Equal(t, "value3", value)
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	cache := NewLRUCache(3)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Set("c", 3)

	cache.Delete("b")
	cache.Delete("missing")
	assert.Equal(t, 2, cache.Len())
	_, exists := cache.Get("b")
	assert.False(t, exists)

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
	_, exists = cache.Get("a")
	assert.False(t, exists)
}

func TestLRUCache_Disabled(t *testing.T) {
	cache := NewLRUCache(0)
	cache.Set("key1", "value1")
	_, exists := cache.Get("key1")
	assert.False(t, exists)
	assert.Equal(t, 0, cache.Len())
}

func TestLRUCache_Stats(t *testing.T) {
	cache := NewLRUCache(2)
	cache.Set("key1", "value1")
	cache.Get("key1")
	cache.Get("key1")
	cache.Get("key2")

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestLRUCache_Concurrent(t *testing.T) {
	cache := NewLRUCache(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := strconv.Itoa((g*200 + i) % 100)
				cache.Set(key, i)
				cache.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, cache.Len(), 64)
}

func TestQueryKey(t *testing.T) {
	base := QueryKey("sift", 1, []float64{0.5, 1}, 10, 4)
	assert.Len(t, base, 32)
	assert.Equal(t, base, QueryKey("sift", 1, []float64{0.5, 1}, 10, 4))

	assert.NotEqual(t, base, QueryKey("sift", 2, []float64{0.5, 1}, 10, 4))
	assert.NotEqual(t, base, QueryKey("glove", 1, []float64{0.5, 1}, 10, 4))
	assert.NotEqual(t, base, QueryKey("sift", 1, []float64{0.5, 1.5}, 10, 4))
	assert.NotEqual(t, base, QueryKey("sift", 1, []float64{0.5, 1}, 11, 4))
	assert.NotEqual(t, base, QueryKey("sift", 1, []float64{0.5, 1}, 10, 5))
}
