package btree_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedmalex/collection-store-sub005/internal/btree"
)

func stringLess(a, b any) bool { return a.(string) < b.(string) }

func TestInsertFindRemove(t *testing.T) {
	tr := btree.New(stringLess)
	tr.Insert("b", "doc2")
	tr.Insert("a", "doc1")
	tr.Insert("a", "doc3")

	refs, ok := tr.Find("a")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"doc1", "doc3"}, refs)

	first, ok := tr.FindFirst("a")
	require.True(t, ok)
	assert.Equal(t, "doc1", first)

	last, ok := tr.FindLast("a")
	require.True(t, ok)
	assert.Equal(t, "doc3", last)

	assert.True(t, tr.Remove("a", "doc1"))
	refs, _ = tr.Find("a")
	assert.Equal(t, []string{"doc3"}, refs)

	assert.True(t, tr.RemoveKey("a"))
	_, ok = tr.Find("a")
	assert.False(t, ok)
}

func TestMinMaxAndIterate(t *testing.T) {
	tr := btree.New(stringLess)
	for _, k := range []string{"c", "a", "b"} {
		tr.Insert(k, "ref-"+k)
	}
	minKey, _, ok := tr.Min()
	require.True(t, ok)
	assert.Equal(t, "a", minKey)

	maxKey, _, ok := tr.Max()
	require.True(t, ok)
	assert.Equal(t, "c", maxKey)

	var order []string
	tr.Iterate(true, func(key any, refs []string) bool {
		order = append(order, key.(string))
		return true
	})
	assert.Equal(t, []string{"a", "b", "c"}, order)

	order = nil
	tr.Iterate(false, func(key any, refs []string) bool {
		order = append(order, key.(string))
		return true
	})
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestRangeBounds(t *testing.T) {
	tr := btree.New(stringLess)
	for _, k := range []string{"a", "b", "c", "d"} {
		tr.Insert(k, "ref-"+k)
	}
	var keys []string
	tr.Range("b", "c", true, func(key any, refs []string) bool {
		keys = append(keys, key.(string))
		return true
	})
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestSerializeRoundTrip(t *testing.T) {
	tr := btree.New(stringLess)
	tr.Insert("a", "r1")
	tr.Insert("a", "r2")
	tr.Insert("b", "r3")

	data, err := tr.Serialize()
	require.NoError(t, err)

	tr2 := btree.New(stringLess)
	require.NoError(t, tr2.Deserialize(data))

	var out []string
	tr2.Iterate(true, func(key any, refs []string) bool {
		out = append(out, key.(string)+":"+strings.Join(refs, ","))
		return true
	})
	assert.Equal(t, []string{"a:r1,r2", "b:r3"}, out)
	assert.Equal(t, tr.Len(), tr2.Len())
}

func TestClone(t *testing.T) {
	tr := btree.New(stringLess)
	tr.Insert("a", "r1")
	clone := tr.Clone()
	clone.Insert("b", "r2")

	_, ok := tr.Find("b")
	assert.False(t, ok, "clone must be independent of the source tree")
	_, ok = clone.Find("a")
	assert.True(t, ok)
}
