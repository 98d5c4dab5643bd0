package collection

import "go.mongodb.org/mongo-driver/bson"

// Cursor is a lazy, one-shot, finite sequence over a collection's documents
// in insertion order (spec.md §4.5: "list.forward and list.backward expose
// a lazy, one-shot, finite, restartable-on-list sequence"). A Cursor is not
// safe for concurrent use, and reflects a snapshot of ref order taken when
// it was created — a restart requires calling Forward/Backward again.
type Cursor struct {
	coll *Collection
	refs []string
	pos  int
}

// Forward returns a Cursor walking the collection from the first document
// to the last.
func (c *Collection) Forward() *Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	refs := make([]string, len(c.order))
	copy(refs, c.order)
	return &Cursor{coll: c, refs: refs}
}

// Backward returns a Cursor walking the collection from the last document
// to the first.
func (c *Collection) Backward() *Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Cursor{coll: c, refs: reversed(c.order)}
}

// Next advances the cursor and returns the next document, or ok=false once
// the sequence is exhausted. A ref removed from the collection after the
// cursor was created is skipped rather than surfaced as a gap.
func (cur *Cursor) Next() (doc bson.M, ok bool) {
	cur.coll.mu.Lock()
	defer cur.coll.mu.Unlock()

	for cur.pos < len(cur.refs) {
		ref := cur.refs[cur.pos]
		cur.pos++
		if stored, found := cur.coll.docs[ref]; found {
			return cloneDoc(cur.coll.dataOf(stored)), true
		}
	}
	return nil, false
}
