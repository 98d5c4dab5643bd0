// Package storage implements the pluggable persistence contract of
// spec.md §4.6: a memory adapter and a file adapter, both consuming a
// collection only through a non-owning Handle established at Init.
package storage

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/index"
)

// ListState is the ordered document sequence of a snapshot, in insertion
// order (spec.md §3's "list: document store iterable by insertion order").
type ListState struct {
	Docs []bson.M `bson:"docs"`
}

// Snapshot is the per-collection persisted/restorable state (spec.md §4.6,
// §6 "Per-collection snapshot").
type Snapshot struct {
	List      ListState             `bson:"list"`
	Indexes   map[string][]byte     `bson:"indexes"`
	IndexDefs map[string]index.Definition `bson:"indexDefs"`
	ID        string                `bson:"id"`
	TTL       *time.Duration        `bson:"ttl,omitempty"`
	Rotate    *string               `bson:"rotate,omitempty"`
}

// Empty reports whether the snapshot carries no documents and no indexes,
// the shape Restore returns on first load (spec.md §4.6/§7).
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.List.Docs) == 0 && len(s.Indexes) == 0)
}

// Clone performs a structural deep copy, matching §5's "clone operations
// perform structural deep-copy of indexes ... and the document map".
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{ID: s.ID}
	out.List.Docs = make([]bson.M, len(s.List.Docs))
	for i, d := range s.List.Docs {
		out.List.Docs[i] = deepCopyDoc(d)
	}
	if s.Indexes != nil {
		out.Indexes = make(map[string][]byte, len(s.Indexes))
		for name, data := range s.Indexes {
			cp := make([]byte, len(data))
			copy(cp, data)
			out.Indexes[name] = cp
		}
	}
	if s.IndexDefs != nil {
		out.IndexDefs = make(map[string]index.Definition, len(s.IndexDefs))
		for name, def := range s.IndexDefs {
			out.IndexDefs[name] = def
		}
	}
	if s.TTL != nil {
		ttl := *s.TTL
		out.TTL = &ttl
	}
	if s.Rotate != nil {
		r := *s.Rotate
		out.Rotate = &r
	}
	return out
}

func deepCopyDoc(doc bson.M) bson.M {
	if doc == nil {
		return nil
	}
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch x := v.(type) {
	case bson.M:
		return deepCopyDoc(x)
	case map[string]any:
		return deepCopyDoc(bson.M(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// Handle is the non-owning back-reference a collection passes to its
// adapter at Init (spec.md §9: "adapter/list receiving a non-owning handle
// back to the collection, established by init; the collection owns both").
type Handle interface {
	// CollectionName identifies the owning collection for layout purposes.
	CollectionName() string

	// Snapshot captures the collection's current in-memory state.
	Snapshot() *Snapshot

	// ApplySnapshot replaces the collection's in-memory state with snap.
	ApplySnapshot(snap *Snapshot) error
}
