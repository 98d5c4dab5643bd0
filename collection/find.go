package collection

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/query"
)

// FindById returns the document with the given id, if present.
func (c *Collection) FindById(id any) (bson.M, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	stored, ok := c.docs[toRef(id)]
	if !ok {
		return nil, false
	}
	return cloneDoc(c.dataOf(stored)), true
}

// FindBy returns every document whose key field equals v, in insertion
// order.
func (c *Collection) FindBy(key string, v any) []bson.M {
	return c.Find(bson.M{key: v})
}

// FindFirstBy returns the first document (insertion order) whose key field
// equals v.
func (c *Collection) FindFirstBy(key string, v any) (bson.M, bool) {
	return c.FindFirst(bson.M{key: v})
}

// FindLastBy returns the last document (insertion order) whose key field
// equals v.
func (c *Collection) FindLastBy(key string, v any) (bson.M, bool) {
	return c.FindLast(bson.M{key: v})
}

// Find returns every document matching filter, in insertion order.
func (c *Collection) Find(filter bson.M) []bson.M {
	pred, err := query.Compile(filter)
	if err != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()

	var out []bson.M
	for _, ref := range c.order {
		stored, ok := c.docs[ref]
		if !ok {
			continue
		}
		data := c.dataOf(stored)
		if pred(data) {
			out = append(out, cloneDoc(data))
		}
	}
	return out
}

// FindFirst returns the first document (insertion order) matching filter;
// traversal short-circuits on the first match (spec.md §4.5).
func (c *Collection) FindFirst(filter bson.M) (bson.M, bool) {
	pred, err := query.Compile(filter)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	for _, ref := range c.order {
		if stored, ok := c.docs[ref]; ok {
			if data := c.dataOf(stored); pred(data) {
				return cloneDoc(data), true
			}
		}
	}
	return nil, false
}

// FindLast returns the last document (insertion order) matching filter;
// traversal short-circuits on the first match scanning from the end.
func (c *Collection) FindLast(filter bson.M) (bson.M, bool) {
	pred, err := query.Compile(filter)
	if err != nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	for i := len(c.order) - 1; i >= 0; i-- {
		if stored, ok := c.docs[c.order[i]]; ok {
			if data := c.dataOf(stored); pred(data) {
				return cloneDoc(data), true
			}
		}
	}
	return nil, false
}

// First returns the first document in insertion order.
func (c *Collection) First() (bson.M, bool) { return c.edge(false) }

// Last returns the last document in insertion order.
func (c *Collection) Last() (bson.M, bool) { return c.edge(true) }

// Oldest is an alias for First.
func (c *Collection) Oldest() (bson.M, bool) { return c.First() }

// Latest is an alias for Last.
func (c *Collection) Latest() (bson.M, bool) { return c.Last() }

func (c *Collection) edge(fromEnd bool) (bson.M, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	if len(c.order) == 0 {
		return nil, false
	}
	idx := 0
	if fromEnd {
		idx = len(c.order) - 1
	}
	stored, ok := c.docs[c.order[idx]]
	if !ok {
		return nil, false
	}
	return cloneDoc(c.dataOf(stored)), true
}

// Lowest returns the document with the smallest value of key, found by a
// linear scan over the stored documents (an index on key is not used).
func (c *Collection) Lowest(key string) (bson.M, bool) { return c.extreme(key, false) }

// Greatest returns the document with the largest value of key.
func (c *Collection) Greatest(key string) (bson.M, bool) { return c.extreme(key, true) }

func (c *Collection) extreme(key string, greatest bool) (bson.M, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()

	var best bson.M
	for _, ref := range c.order {
		stored, ok := c.docs[ref]
		if !ok {
			continue
		}
		data := c.dataOf(stored)
		if best == nil {
			best = data
			continue
		}
		if isMoreExtreme(data[key], best[key], greatest) {
			best = data
		}
	}
	if best == nil {
		return nil, false
	}
	return cloneDoc(best), true
}

func isMoreExtreme(v, current any, greatest bool) bool {
	cmp := compareAny(v, current)
	if greatest {
		return cmp > 0
	}
	return cmp < 0
}

func compareAny(a, b any) int {
	af, aok := toFloatMaybe(a)
	bf, bok := toFloatMaybe(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := toStringMaybe(a), toStringMaybe(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloatMaybe(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func toStringMaybe(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return bsonToString(v)
}

// Count returns the number of documents matching filter.
func (c *Collection) Count(filter bson.M) int {
	return len(c.Find(filter))
}
