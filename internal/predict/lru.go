package predict

import (
	"container/list"
	"sync"
)

// lruCache is a least-recently-used cache bounding the predictor's memory.
// Safe for concurrent use.
type lruCache[K comparable, V any] struct {
	items    map[K]*list.Element
	order    *list.List
	capacity int
	mu       sync.Mutex
}

type lruEntry[K comparable, V any] struct {
	key K
	val V
}

func newLRUCache[K comparable, V any](capacity int) *lruCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &lruCache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get retrieves a value and marks it as recently used.
func (l *lruCache[K, V]) Get(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		l.order.MoveToFront(elem)
		return elem.Value.(*lruEntry[K, V]).val, true
	}
	var zero V
	return zero, false
}

// Put adds or updates a value, evicting the least recently used entry when
// the cache is at capacity.
func (l *lruCache[K, V]) Put(key K, val V) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if elem, ok := l.items[key]; ok {
		elem.Value.(*lruEntry[K, V]).val = val
		l.order.MoveToFront(elem)
		return
	}

	for l.order.Len() >= l.capacity {
		back := l.order.Back()
		if back == nil {
			break
		}
		l.order.Remove(back)
		delete(l.items, back.Value.(*lruEntry[K, V]).key)
	}

	elem := l.order.PushFront(&lruEntry[K, V]{key: key, val: val})
	l.items[key] = elem
}

// Len returns the number of cached entries.
func (l *lruCache[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}

// Clear drops all entries. Used when the underlying history changes out
// from under the cache (imports, rebuilds).
func (l *lruCache[K, V]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make(map[K]*list.Element, l.capacity)
	l.order.Init()
}
