package index

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/btree"
)

// Index pairs an index Definition with its backing ordered tree.
type Index struct {
	Def  Definition
	Tree btree.Tree
}

// New constructs an Index for def, wiring up the comparator appropriate to
// a single-field or composite definition (spec.md §4.4).
func New(def Definition) *Index {
	return &Index{Def: def, Tree: btree.New(buildLess(def))}
}

func buildLess(def Definition) btree.Less {
	sep := def.separator()
	if def.Composite() {
		return func(a, b any) bool {
			pa := DecodeKey(a.(string), sep)
			pb := DecodeKey(b.(string), sep)
			for i, ks := range def.Keys {
				var va, vb any
				if i < len(pa) {
					va = decodeComponent(pa[i])
				}
				if i < len(pb) {
					vb = decodeComponent(pb[i])
				}
				c := compareComponent(va, vb)
				if ks.Order == Desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		}
	}
	order := def.Keys[0].Order
	return func(a, b any) bool {
		c := compareComponent(a, b)
		if order == Desc {
			c = -c
		}
		return c < 0
	}
}

// ExtractKey delegates to the definition.
func (idx *Index) ExtractKey(doc bson.M) (any, bool) { return idx.Def.ExtractKey(doc) }

// Rebuild clears and repopulates the index tree from docs.
func (idx *Index) Rebuild(docs []bson.M, refOf func(bson.M) string) {
	idx.Tree = btree.New(buildLess(idx.Def))
	for _, doc := range docs {
		key, ok := idx.ExtractKey(doc)
		if !ok {
			continue
		}
		idx.Tree.Insert(key, refOf(doc))
	}
}

// Clone performs a structural deep copy of the index, including its tree.
func (idx *Index) Clone() *Index {
	return &Index{Def: idx.Def, Tree: idx.Tree.Clone()}
}
