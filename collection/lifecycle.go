package collection

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/storage"
)

// Reset clears every document and index entry, leaving the collection's
// configuration (id field, schema, adapter, ...) untouched. The id-field
// unique index (and TTL index, when configured) are rebuilt empty so the
// collection remains safe to reuse (spec.md §3's id-uniqueness invariant).
func (c *Collection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = make(map[string]bson.M)
	c.order = nil
	for name := range c.manager.Indexes {
		c.manager.Drop(name)
	}
	c.ensureCoreIndexes()
}

// Load restores the collection's state from its adapter. name selects an
// alternate snapshot identity when the adapter supports one (spec.md §4.5).
func (c *Collection) Load(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if name == "" {
		name = c.cfg.Name
	}
	snap, ok, err := c.cfg.Adapter.Restore(name)
	if err != nil {
		return err
	}
	if !ok || snap.Empty() {
		return nil
	}
	return (&handle{c: c}).ApplySnapshot(snap)
}

// Persist is an alias for Store (spec.md §4.5 lists both `persist(name?)`
// and `store()`).
func (c *Collection) Persist(name string) error { return c.Store(name) }

// Store writes the collection's current state through its adapter.
func (c *Collection) Store(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		name = c.cfg.Name
	}
	return c.cfg.Adapter.Store(name)
}

// FromList rebuilds the collection from an already-decoded document array,
// using idField as the primary key and registering adapter as the new
// storage root (spec.md §4.5: "fromList(array, idField, root)").
func (c *Collection) FromList(docs []bson.M, idField string, adapter storage.Adapter) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idField != "" {
		c.cfg.IDField = idField
	}
	if adapter != nil {
		c.cfg.Adapter = adapter
		if err := adapter.Init(&handle{c: c}); err != nil {
			return err
		}
	}

	c.docs = make(map[string]bson.M, len(docs))
	c.order = make([]string, 0, len(docs))
	for _, d := range docs {
		ref := c.refOf(d)
		c.docs[ref] = c.wrapForStore(ref, d, nil)
		c.order = append(c.order, ref)
	}
	return c.manager.Rebuild(c.allDocsSlice(), c.refOf)
}

// Rotate copies the collection's current contents into a fresh sibling
// Collection (named name), then resets and persists the source (spec.md
// §4.5: "copy-cloned to a timestamped sibling collection, then reset +
// persist on the source").
func (c *Collection) Rotate(name string, adapter storage.Adapter) (*Collection, error) {
	c.mu.Lock()
	cfg := c.cfg
	cfg.Name = name
	if adapter != nil {
		cfg.Adapter = adapter
	}
	docs := c.allDocsSlice()
	c.mu.Unlock()

	sibling, err := New(cfg)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if _, err := sibling.Create(cloneDoc(d)); err != nil {
			return nil, err
		}
	}
	if err := sibling.Store(""); err != nil {
		return nil, err
	}

	c.Reset()
	if err := c.Store(""); err != nil {
		return sibling, err
	}
	return sibling, nil
}
