package collection

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vedmalex/collection-store-sub005/internal/query"
	"github.com/vedmalex/collection-store-sub005/schema"
	"github.com/vedmalex/collection-store-sub005/wal"
)

// Create inserts doc: assigns an id if absent, validates it against the
// configured schema, updates every index, then writes it to the list
// (spec.md §4.5: "created by push/create: inserts indexes then stores").
func (c *Collection) Create(doc bson.M) (bson.M, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.create(doc)
}

// Push is an alias for Create (spec.md §4.5 lists both names).
func (c *Collection) Push(doc bson.M) (bson.M, error) { return c.Create(doc) }

func (c *Collection) create(doc bson.M) (bson.M, error) {
	doc = cloneDoc(doc)
	c.assignID(doc)

	processed, err := c.validate(doc)
	if err != nil {
		return nil, err
	}
	if c.cfg.TTL != nil {
		processed[ttlFieldName] = nowMillis()
	}

	ref := c.refOf(processed)
	if err := c.manager.Insert(processed, ref); err != nil {
		return nil, err
	}

	stored := c.wrapForStore(ref, processed, nil)
	c.docs[ref] = stored
	c.order = append(c.order, ref)

	c.appendWAL(wal.OpStore, ref, processed)
	return cloneDoc(processed), nil
}

func (c *Collection) assignID(doc bson.M) {
	if _, ok := doc[c.cfg.IDField]; ok {
		return
	}
	if c.cfg.Auto {
		if c.cfg.Gen != nil {
			doc[c.cfg.IDField] = c.cfg.Gen(doc)
		} else {
			doc[c.cfg.IDField] = c.nextAutoID(doc)
		}
		return
	}
	doc[c.cfg.IDField] = primitive.NewObjectID()
}

func (c *Collection) validate(doc bson.M) (bson.M, error) {
	if c.cfg.Schema == nil {
		return doc, nil
	}
	res := c.cfg.Schema.Validate(doc)
	if !res.Valid {
		msg := "document failed schema validation"
		if len(res.Errors) > 0 {
			msg = res.Errors[0]
		}
		return nil, &schema.Error{Message: msg}
	}
	return res.ProcessedDoc, nil
}

// Save upserts doc by its id field: replaces the full stored document when
// it already exists (fields absent from doc are dropped), otherwise creates it.
func (c *Collection) Save(doc bson.M) (bson.M, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := c.refOf(doc)
	if _, exists := c.docs[ref]; !exists {
		return c.create(doc)
	}
	return c.replace(ref, doc)
}

func (c *Collection) replace(ref string, newDoc bson.M) (bson.M, error) {
	oldStored := c.docs[ref]
	oldData := c.dataOf(oldStored)

	merged := cloneDoc(newDoc)
	merged[c.cfg.IDField] = oldData[c.cfg.IDField]
	if c.cfg.TTL != nil {
		merged[ttlFieldName] = oldData[ttlFieldName]
	}

	processed, err := c.validate(merged)
	if err != nil {
		return nil, err
	}

	if err := c.manager.Update(oldData, processed, ref); err != nil {
		return nil, err
	}

	stored := c.wrapForStore(ref, processed, oldStored)
	c.docs[ref] = stored
	c.appendWAL(wal.OpUpdate, ref, processed)
	return cloneDoc(processed), nil
}

// UpdateWithId patches the document identified by id. merge=true performs a
// recursive deep-merge; merge=false performs a shallow assign (spec.md §4.5).
func (c *Collection) UpdateWithId(id any, patch bson.M, merge bool) (bson.M, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := refOfID(id)
	doc, err := c.updateRef(ref, patch, merge)
	if nf, ok := err.(*NotFoundError); ok {
		nf.ID = id
	}
	return doc, err
}

func (c *Collection) updateRef(ref string, patch bson.M, merge bool) (bson.M, error) {
	oldStored, ok := c.docs[ref]
	if !ok {
		return nil, &NotFoundError{ID: ref}
	}
	oldData := c.dataOf(oldStored)

	var merged bson.M
	if merge {
		merged = deepMerge(cloneDoc(oldData), patch)
	} else {
		merged = shallowAssign(cloneDoc(oldData), patch)
	}
	merged[c.cfg.IDField] = oldData[c.cfg.IDField]

	processed, err := c.validate(merged)
	if err != nil {
		return nil, err
	}

	if err := c.manager.Update(oldData, processed, ref); err != nil {
		return nil, err
	}

	stored := c.wrapForStore(ref, processed, oldStored)
	c.docs[ref] = stored
	c.appendWAL(wal.OpUpdate, ref, processed)
	return cloneDoc(processed), nil
}

// Update applies patch to every document matched by filter.
func (c *Collection) Update(filter bson.M, patch bson.M, merge bool) ([]bson.M, error) {
	return c.updateMatching(filter, patch, merge, false, false)
}

// UpdateFirst applies patch to the first document (insertion order) matched
// by filter.
func (c *Collection) UpdateFirst(filter bson.M, patch bson.M, merge bool) (bson.M, error) {
	out, err := c.updateMatching(filter, patch, merge, true, false)
	return firstOrNil(out), err
}

// UpdateLast applies patch to the last document (insertion order) matched by
// filter.
func (c *Collection) UpdateLast(filter bson.M, patch bson.M, merge bool) (bson.M, error) {
	out, err := c.updateMatching(filter, patch, merge, true, true)
	return firstOrNil(out), err
}

func (c *Collection) updateMatching(filter, patch bson.M, merge, single, fromEnd bool) ([]bson.M, error) {
	pred, err := query.Compile(filter)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	refs := c.matchingRefs(pred, fromEnd)
	var out []bson.M
	for _, ref := range refs {
		doc, err := c.updateRef(ref, patch, merge)
		if err != nil {
			return out, err
		}
		out = append(out, doc)
		if single {
			break
		}
	}
	return out, nil
}

// RemoveWithId deletes the document identified by id.
func (c *Collection) RemoveWithId(id any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.removeRef(refOfID(id))
	if nf, ok := err.(*NotFoundError); ok {
		nf.ID = id
	}
	return err
}

func (c *Collection) removeRef(ref string) error {
	stored, ok := c.docs[ref]
	if !ok {
		return &NotFoundError{ID: ref}
	}
	data := c.dataOf(stored)
	c.manager.Remove(data, ref)
	delete(c.docs, ref)
	c.order = removeRefFromOrder(c.order, ref)
	c.appendWAL(wal.OpDelete, ref, data)
	return nil
}

// Remove deletes every document matched by filter.
func (c *Collection) Remove(filter bson.M) (int, error) {
	return c.removeMatching(filter, false, false)
}

// RemoveFirst deletes the first document (insertion order) matched by filter.
func (c *Collection) RemoveFirst(filter bson.M) (int, error) { return c.removeMatching(filter, true, false) }

// RemoveLast deletes the last document (insertion order) matched by filter.
func (c *Collection) RemoveLast(filter bson.M) (int, error) { return c.removeMatching(filter, true, true) }

func (c *Collection) removeMatching(filter bson.M, single, fromEnd bool) (int, error) {
	pred, err := query.Compile(filter)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	refs := c.matchingRefs(pred, fromEnd)
	n := 0
	for _, ref := range refs {
		if err := c.removeRef(ref); err != nil {
			return n, err
		}
		n++
		if single {
			break
		}
	}
	return n, nil
}

// matchingRefs returns the refs of documents satisfying pred, in insertion
// order (or reverse, when fromEnd is set so a caller can take the "last"
// match first without scanning the whole list themselves).
func (c *Collection) matchingRefs(pred query.Predicate, fromEnd bool) []string {
	order := c.order
	if fromEnd {
		order = reversed(order)
	}
	var refs []string
	for _, ref := range order {
		stored, ok := c.docs[ref]
		if !ok {
			continue
		}
		if pred(c.dataOf(stored)) {
			refs = append(refs, ref)
		}
	}
	return refs
}

func refOfID(id any) string { return toRef(id) }

// toRef renders an id value to its string reference, used consistently for
// both raw id arguments (FindById, RemoveWithId, ...) and ids read back out
// of a stored document (refOf), so the two always agree on the same key.
func toRef(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func bsonToString(v any) string {
	b, err := bson.MarshalExtJSON(v, true, false)
	if err != nil {
		return ""
	}
	return string(b)
}

func firstOrNil(docs []bson.M) bson.M {
	if len(docs) == 0 {
		return nil
	}
	return docs[0]
}

func reversed(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}

func removeRefFromOrder(order []string, ref string) []string {
	for i, r := range order {
		if r == ref {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}

// deepMerge recursively merges patch into dst (spec.md §4.5: "merge=true
// performs recursive deep-merge of objects/arrays").
func deepMerge(dst, patch bson.M) bson.M {
	for k, v := range patch {
		if existing, ok := dst[k]; ok {
			if evm, eok := asDocMap(existing); eok {
				if pvm, pok := asDocMap(v); pok {
					dst[k] = deepMerge(cloneDoc(evm), pvm)
					continue
				}
			}
			if earr, eok := existing.([]any); eok {
				if parr, pok := v.([]any); pok {
					dst[k] = mergeArrays(earr, parr)
					continue
				}
			}
		}
		dst[k] = v
	}
	return dst
}

func mergeArrays(dst, patch []any) []any {
	out := make([]any, len(dst))
	copy(out, dst)
	for i, v := range patch {
		if i < len(out) {
			out[i] = v
		} else {
			out = append(out, v)
		}
	}
	return out
}

func asDocMap(v any) (bson.M, bool) {
	switch x := v.(type) {
	case bson.M:
		return x, true
	case map[string]any:
		return bson.M(x), true
	default:
		return nil, false
	}
}

// shallowAssign overwrites only the top-level keys present in patch.
func shallowAssign(dst, patch bson.M) bson.M {
	for k, v := range patch {
		dst[k] = v
	}
	return dst
}
