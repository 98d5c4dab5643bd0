// Package btree defines the ordered key->references contract the index
// engine (internal/index) consumes, per spec.md §1: the raw B+ tree
// algorithm itself is an external collaborator, reached only through this
// interface ("insert/remove/findFirst/findLast/find/min/max/range/
// iterate/serialize/deserialize/clone").
//
// The concrete implementation backs onto github.com/google/btree, the way
// other_examples/390ac2d9_asaidimu-go-store's fieldIndex wraps a
// *btree.BTree keyed by an ordering Less method and a docID set per key.
package btree

// Less reports whether key a sorts before key b. Index definitions
// (internal/index) supply this, since key ordering depends on the
// definition's field order(s), ignoreCase flag, and sparse/null handling.
type Less func(a, b any) bool

// Tree is a B+-tree-shaped ordered map from an index key to the set of
// primary-key references stored under that key (plural, to support
// non-unique indexes).
type Tree interface {
	// Insert adds ref under key, without removing any existing refs
	// already stored there (non-unique semantics). Duplicate refs for the
	// same key are not added twice.
	Insert(key any, ref string)

	// Remove drops ref from key's entry; if the entry becomes empty the
	// key itself is removed. Reports whether anything was removed.
	Remove(key any, ref string) bool

	// RemoveKey drops the entire entry for key, regardless of how many
	// refs it holds (used by unique-index maintenance).
	RemoveKey(key any) bool

	// FindFirst/FindLast return the first/last ref inserted under key, in
	// insertion order.
	FindFirst(key any) (string, bool)
	FindLast(key any) (string, bool)

	// Find returns every ref stored under key, in insertion order.
	Find(key any) ([]string, bool)

	// Min/Max return the lowest/highest key currently present (by Less)
	// along with its refs.
	Min() (key any, refs []string, ok bool)
	Max() (key any, refs []string, ok bool)

	// Range invokes fn for every entry with key in [lo, hi] (inclusive on
	// both ends when the corresponding bound is non-nil), in ascending
	// (forward=true) or descending order. fn returning false stops
	// iteration early.
	Range(lo, hi any, forward bool, fn func(key any, refs []string) bool)

	// Iterate invokes fn for every entry in ascending (forward=true) or
	// descending order. fn returning false stops iteration early.
	Iterate(forward bool, fn func(key any, refs []string) bool)

	// Len returns the number of distinct keys stored.
	Len() int

	// Clone performs a structural deep copy (spec.md §5: "Clone
	// operations perform structural deep-copy of indexes via
	// serialize+deserialize").
	Clone() Tree

	// Serialize/Deserialize round-trip the tree's contents (spec.md §8
	// property 5: deserialize(serialize(tree)) ≡ tree structurally). The
	// Less function is not part of the serialized form; Deserialize
	// replays entries into the receiver tree, which already carries its
	// own Less from construction.
	Serialize() ([]byte, error)
	Deserialize(data []byte) error
}

// entry is the serializable unit of a Tree: one key and its ordered refs.
type entry struct {
	Key  any      `bson:"key"`
	Refs []string `bson:"refs"`
}
