package cache

import (
	"container/list"
	"sync"
)

// entry represents a key-value pair in the cache
type entry struct {
	key   string
	value interface{}
}

// LRUCache is a size-bounded Least Recently Used cache safe for concurrent use.
// A cache with maxSize <= 0 stores nothing.
type LRUCache struct {
	mu         sync.Mutex
	maxSize    int
	cache      map[string]*list.Element
	doubleList *list.List

	hits, misses uint64
}

// NewLRUCache creates a new LRU cache with the given maximum size
func NewLRUCache(maxSize int) *LRUCache {
	return &LRUCache{
		maxSize:    maxSize,
		cache:      make(map[string]*list.Element),
		doubleList: list.New(),
	}
}

// Set adds or updates a key-value pair, evicting the least recently used entry when full.
func (l *LRUCache) Set(key string, value interface{}) {
	if l.maxSize <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if element, exists := l.cache[key]; exists {
		l.doubleList.MoveToFront(element)
		element.Value.(*entry).value = value
		return
	}

	l.cache[key] = l.doubleList.PushFront(&entry{key: key, value: value})
	if l.doubleList.Len() > l.maxSize {
		l.removeElement(l.doubleList.Back())
	}
}

// Get retrieves a value and marks it most recently used.
func (l *LRUCache) Get(key string) (interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	element, exists := l.cache[key]
	if !exists {
		l.misses++
		return nil, false
	}
	l.hits++
	l.doubleList.MoveToFront(element)
	return element.Value.(*entry).value, true
}

// Delete drops key if present.
func (l *LRUCache) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if element, exists := l.cache[key]; exists {
		l.removeElement(element)
	}
}

// Purge empties the cache.
func (l *LRUCache) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*list.Element)
	l.doubleList.Init()
}

func (l *LRUCache) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.doubleList.Len()
}

// Stats returns the hit and miss counters since creation.
func (l *LRUCache) Stats() (hits, misses uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hits, l.misses
}

func (l *LRUCache) removeElement(element *list.Element) {
	l.doubleList.Remove(element)
	delete(l.cache, element.Value.(*entry).key)
}
