package collection

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/index"
	"github.com/vedmalex/collection-store-sub005/storage"
)

// handle bridges Collection state to the storage.Handle contract that an
// Adapter is Init-ed with (spec.md §9: "the adapter receives a handle back
// to the collection, established by Init").
type handle struct{ c *Collection }

func (h *handle) CollectionName() string { return h.c.cfg.Name }

// Snapshot captures the collection's current state. Callers (Store,
// CreateCheckpoint) invoke this under c.mu.
func (h *handle) Snapshot() *storage.Snapshot {
	c := h.c
	docs := make([]bson.M, 0, len(c.order))
	for _, ref := range c.order {
		if stored, ok := c.docs[ref]; ok {
			docs = append(docs, cloneDoc(stored))
		}
	}

	indexDefs := make(map[string]index.Definition, len(c.manager.Indexes))
	for name, idx := range c.manager.Indexes {
		indexDefs[name] = idx.Def
	}

	snap := &storage.Snapshot{
		List:      storage.ListState{Docs: docs},
		IndexDefs: indexDefs,
		ID:        c.cfg.Name,
	}
	if c.cfg.TTL != nil {
		ttl := *c.cfg.TTL
		snap.TTL = &ttl
	}
	return snap
}

// ApplySnapshot replaces the collection's in-memory state with snap,
// rebuilding every index from the restored documents.
func (h *handle) ApplySnapshot(snap *storage.Snapshot) error {
	c := h.c
	c.docs = make(map[string]bson.M, len(snap.List.Docs))
	c.order = c.order[:0]
	for _, stored := range snap.List.Docs {
		ref := c.refOf(c.dataOf(stored))
		c.docs[ref] = stored
		c.order = append(c.order, ref)
	}
	for name, def := range snap.IndexDefs {
		if _, exists := c.manager.Indexes[name]; !exists {
			c.manager.Ensure(def)
		}
	}
	return c.manager.Rebuild(c.allDocsSlice(), c.refOf)
}
