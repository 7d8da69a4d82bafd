package store

import "sync"

// Memo caches derived values by comparable key. Keys embed snapshot
// versions, so a new snapshot is a new key; the map is cleared once it
// reaches its limit.
type Memo[K comparable, V any] struct {
	mu    sync.Mutex
	limit int
	items map[K]V
}

// NewMemo returns a memo holding at most limit entries.
func NewMemo[K comparable, V any](limit int) *Memo[K, V] {
	if limit <= 0 {
		limit = 64
	}
	return &Memo[K, V]{limit: limit, items: make(map[K]V, limit)}
}

// Get returns the cached value for key, computing it on a miss. The second
// result reports a hit.
func (m *Memo[K, V]) Get(key K, compute func() V) (V, bool) {
	m.mu.Lock()
	if v, ok := m.items[key]; ok {
		m.mu.Unlock()
		return v, true
	}
	m.mu.Unlock()

	v := compute()

	m.mu.Lock()
	if len(m.items) >= m.limit {
		m.items = make(map[K]V, m.limit)
	}
	m.items[key] = v
	m.mu.Unlock()
	return v, false
}

// Len returns the number of cached entries.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
