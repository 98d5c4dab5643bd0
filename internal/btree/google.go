package btree

import (
	"go.mongodb.org/mongo-driver/bson"

	googlebtree "github.com/google/btree"
)

// degree matches the degree used by other_examples/390ac2d9_asaidimu-go-store's
// fieldIndex (btree.New(32)).
const degree = 32

// googleTree implements Tree atop github.com/google/btree's generic
// BTreeG, using the caller-supplied Less to order entries by key.
type googleTree struct {
	less Less
	tree *googlebtree.BTreeG[entry]
}

// New constructs an empty Tree ordered by less.
func New(less Less) Tree {
	t := &googleTree{less: less}
	t.tree = googlebtree.NewG(degree, t.entryLess)
	return t
}

func (t *googleTree) entryLess(a, b entry) bool {
	return t.less(a.Key, b.Key)
}

func (t *googleTree) Insert(key any, ref string) {
	existing, found := t.tree.Get(entry{Key: key})
	if !found {
		t.tree.ReplaceOrInsert(entry{Key: key, Refs: []string{ref}})
		return
	}
	for _, r := range existing.Refs {
		if r == ref {
			return
		}
	}
	existing.Refs = append(existing.Refs, ref)
	t.tree.ReplaceOrInsert(existing)
}

func (t *googleTree) Remove(key any, ref string) bool {
	existing, found := t.tree.Get(entry{Key: key})
	if !found {
		return false
	}
	idx := -1
	for i, r := range existing.Refs {
		if r == ref {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}
	existing.Refs = append(existing.Refs[:idx], existing.Refs[idx+1:]...)
	if len(existing.Refs) == 0 {
		t.tree.Delete(entry{Key: key})
	} else {
		t.tree.ReplaceOrInsert(existing)
	}
	return true
}

func (t *googleTree) RemoveKey(key any) bool {
	_, found := t.tree.Delete(entry{Key: key})
	return found
}

func (t *googleTree) FindFirst(key any) (string, bool) {
	existing, found := t.tree.Get(entry{Key: key})
	if !found || len(existing.Refs) == 0 {
		return "", false
	}
	return existing.Refs[0], true
}

func (t *googleTree) FindLast(key any) (string, bool) {
	existing, found := t.tree.Get(entry{Key: key})
	if !found || len(existing.Refs) == 0 {
		return "", false
	}
	return existing.Refs[len(existing.Refs)-1], true
}

func (t *googleTree) Find(key any) ([]string, bool) {
	existing, found := t.tree.Get(entry{Key: key})
	if !found {
		return nil, false
	}
	out := make([]string, len(existing.Refs))
	copy(out, existing.Refs)
	return out, true
}

func (t *googleTree) Min() (any, []string, bool) {
	e, ok := t.tree.Min()
	if !ok {
		return nil, nil, false
	}
	return e.Key, e.Refs, true
}

func (t *googleTree) Max() (any, []string, bool) {
	e, ok := t.tree.Max()
	if !ok {
		return nil, nil, false
	}
	return e.Key, e.Refs, true
}

func (t *googleTree) Range(lo, hi any, forward bool, fn func(key any, refs []string) bool) {
	visit := func(e entry) bool {
		if lo != nil && t.less(e.Key, lo) {
			return true
		}
		if hi != nil && t.less(hi, e.Key) {
			return true
		}
		return fn(e.Key, e.Refs)
	}
	if forward {
		t.tree.Ascend(visit)
	} else {
		t.tree.Descend(visit)
	}
}

func (t *googleTree) Iterate(forward bool, fn func(key any, refs []string) bool) {
	visit := func(e entry) bool { return fn(e.Key, e.Refs) }
	if forward {
		t.tree.Ascend(visit)
	} else {
		t.tree.Descend(visit)
	}
}

func (t *googleTree) Len() int { return t.tree.Len() }

func (t *googleTree) Clone() Tree {
	data, err := t.Serialize()
	if err != nil {
		// Structural clone must not fail for an already-valid tree; fall
		// back to an empty tree with the same ordering rather than panic.
		return New(t.less)
	}
	clone := New(t.less)
	_ = clone.Deserialize(data)
	return clone
}

// serialForm is the wire shape for Serialize/Deserialize: an ordered list
// of entries, ascending by key.
type serialForm struct {
	Entries []entry `bson:"entries"`
}

func (t *googleTree) Serialize() ([]byte, error) {
	form := serialForm{Entries: make([]entry, 0, t.tree.Len())}
	t.tree.Ascend(func(e entry) bool {
		form.Entries = append(form.Entries, e)
		return true
	})
	return bson.Marshal(form)
}

func (t *googleTree) Deserialize(data []byte) error {
	var form serialForm
	if err := bson.Unmarshal(data, &form); err != nil {
		return err
	}
	t.tree = googlebtree.NewG(degree, t.entryLess)
	for _, e := range form.Entries {
		t.tree.ReplaceOrInsert(e)
	}
	return nil
}
