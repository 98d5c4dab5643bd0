package collection

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/index"
)

// CreateIndex registers def (or, for a wildcard template, queues it for
// on-demand materialization) and, for a concrete definition, rebuilds it
// from every currently stored document (spec.md §4.4 "ensure/rebuild").
func (c *Collection) CreateIndex(name string, def index.Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	def.Name = name
	idx := c.manager.Ensure(def)
	if idx == nil {
		return nil // wildcard template: materializes lazily on insert
	}
	idx.Rebuild(c.allDocsSlice(), c.refOf)
	return nil
}

// DropIndex removes a named concrete index.
func (c *Collection) DropIndex(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manager.Drop(name)
}

// ListIndexes returns the names of every concrete index, or just name's
// definition status when name is non-empty.
func (c *Collection) ListIndexes(name string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		return c.manager.List()
	}
	for _, n := range c.manager.List() {
		if n == name {
			return []string{n}
		}
	}
	return nil
}

func (c *Collection) allDocsSlice() []bson.M {
	out := make([]bson.M, 0, len(c.order))
	for _, ref := range c.order {
		if stored, ok := c.docs[ref]; ok {
			out = append(out, c.dataOf(stored))
		}
	}
	return out
}
