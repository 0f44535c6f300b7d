package work

import (
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache memoises lists fetched per parent id, keyed by a hash of the noun
// and the parent.
type Cache[T any] struct {
	mu    sync.RWMutex
	items map[uint64][]T
}

func NewCache[T any]() *Cache[T] {
	return &Cache[T]{items: make(map[uint64][]T)}
}

func cacheKey(noun, parent string) uint64 {
	var b strings.Builder
	b.WriteString(noun)
	b.WriteByte(0)
	b.WriteString(parent)
	return xxhash.Sum64String(b.String())
}

func (c *Cache[T]) Get(noun, parent string) ([]T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[cacheKey(noun, parent)]
	return v, ok
}

func (c *Cache[T]) Put(noun, parent string, list []T) {
	c.mu.Lock()
	c.items[cacheKey(noun, parent)] = list
	c.mu.Unlock()
}

// Len returns the number of memoised lists.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
