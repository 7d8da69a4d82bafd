// Package store holds the live, versioned snapshots of the record
// collections a workspace is subscribed to, and the machinery to derive
// values from them without ever observing a stale snapshot.
package store

import (
	"sync"
	"sync/atomic"
)

// Snapshot is an immutable view of a collection. Items must not be mutated.
type Snapshot[T any] struct {
	Items   []T
	Version uint64
}

// Source is anything that can signal changes.
type Source interface {
	OnChange(fn func()) (unsubscribe func())
}

// Collection is a versioned snapshot holder with push subscriptions.
type Collection[T any] struct {
	name string

	mu     sync.RWMutex
	snap   Snapshot[T]
	subs   map[uint64]*subscriber[T]
	nextID uint64
}

type subscriber[T any] struct {
	fn     func(Snapshot[T])
	mu     sync.Mutex
	last   uint64
	seen   bool
	closed atomic.Bool
}

// NewCollection returns an empty collection at version 0.
func NewCollection[T any](name string) *Collection[T] {
	return &Collection[T]{name: name, subs: make(map[uint64]*subscriber[T])}
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.name }

// Snapshot returns the latest snapshot.
func (c *Collection[T]) Snapshot() Snapshot[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Version returns the latest snapshot version.
func (c *Collection[T]) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.Version
}

// Publish replaces the snapshot and notifies subscribers. It returns the new version.
func (c *Collection[T]) Publish(items []T) uint64 {
	c.mu.Lock()
	c.snap = Snapshot[T]{Items: items, Version: c.snap.Version + 1}
	snap := c.snap
	subs := make([]*subscriber[T], 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s.deliver(snap)
	}
	return snap.Version
}

// Subscribe delivers the current snapshot immediately and every later one.
// A subscriber never receives a version older than one it already saw.
// The returned function is idempotent; no delivery starts after it returns.
func (c *Collection[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	s := &subscriber[T]{fn: fn}

	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = s
	snap := c.snap
	c.mu.Unlock()

	s.deliver(snap)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.closed.Store(true)
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

// OnChange registers a payload-free change signal.
func (c *Collection[T]) OnChange(fn func()) (unsubscribe func()) {
	first := true
	return c.Subscribe(func(Snapshot[T]) {
		if first {
			first = false
			return
		}
		fn()
	})
}

func (s *subscriber[T]) deliver(snap Snapshot[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return
	}
	if s.seen && snap.Version <= s.last {
		return
	}
	s.seen = true
	s.last = snap.Version
	s.fn(snap)
}
