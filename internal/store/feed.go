package store

import (
	"fmt"
	"sync"
)

// Document is a raw record delivered by a record source.
type Document interface {
	ID() string
	DataTo(dest interface{}) error
}

// SnapshotFunc receives every full snapshot of a listened query.
type SnapshotFunc func(docs []Document) error

// Record is implemented by every stored model.
type Record interface {
	RecordID() string
}

type recordPtr[T any] interface {
	*T
	Record
	SetID(id string)
}

// Binding accepts listener snapshots for one collection. Each scope
// generation owns a fixed number of parts, one per query filter.
type Binding interface {
	Name() string
	// Reset starts a new generation with the given number of parts and
	// returns its number. Deliveries tagged with an older generation are dropped.
	Reset(parts int) uint64
	Apply(generation uint64, part int, docs []Document) error
}

// Feed merges the latest snapshot of every part into its collection:
// records are deduplicated by id, the first part wins.
type Feed[T any, PT recordPtr[T]] struct {
	coll *Collection[T]

	mu         sync.Mutex
	generation uint64
	parts      [][]T
	ready      []bool
}

// NewFeed binds a feed to a collection.
func NewFeed[T any, PT recordPtr[T]](coll *Collection[T]) *Feed[T, PT] {
	return &Feed[T, PT]{coll: coll}
}

func (f *Feed[T, PT]) Name() string { return f.coll.Name() }

func (f *Feed[T, PT]) Reset(parts int) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generation++
	f.parts = make([][]T, parts)
	f.ready = make([]bool, parts)
	if parts == 0 {
		f.coll.Publish(nil)
	}
	return f.generation
}

func (f *Feed[T, PT]) Apply(generation uint64, part int, docs []Document) error {
	items, err := Decode[T, PT](docs)
	if err != nil {
		return fmt.Errorf("%s: %w", f.coll.Name(), err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if generation != f.generation || part < 0 || part >= len(f.parts) {
		return nil
	}
	f.parts[part] = items
	f.ready[part] = true
	for _, ok := range f.ready {
		if !ok {
			return nil
		}
	}
	f.coll.Publish(union[T, PT](f.parts))
	return nil
}

// Decode converts raw documents into records, taking ids from the documents.
func Decode[T any, PT recordPtr[T]](docs []Document) ([]T, error) {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := doc.DataTo(&item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", doc.ID(), err)
		}
		PT(&item).SetID(doc.ID())
		items = append(items, item)
	}
	return items, nil
}

func union[T any, PT recordPtr[T]](parts [][]T) []T {
	if len(parts) == 1 {
		return parts[0]
	}
	seen := make(map[string]struct{})
	var out []T
	for _, part := range parts {
		for i := range part {
			id := PT(&part[i]).RecordID()
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, part[i])
		}
	}
	return out
}
