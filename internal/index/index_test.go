package index_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/index"
)

// TestCompositeOrderForwardScan covers spec scenario S4: inserting
// {name:"A",age:30}, {name:"B",age:25}, {name:"A",age:25} into an index
// keyed (name asc, age desc) yields forward order [A/30, A/25, B/25].
func TestCompositeOrderForwardScan(t *testing.T) {
	def := index.Definition{
		Name: "name_age",
		Keys: []index.KeySpec{
			{Field: "name", Order: index.Asc},
			{Field: "age", Order: index.Desc},
		},
	}
	idx := index.New(def)

	docs := []bson.M{
		{"_id": "A30", "name": "A", "age": int32(30)},
		{"_id": "B25", "name": "B", "age": int32(25)},
		{"_id": "A25", "name": "A", "age": int32(25)},
	}
	for _, d := range docs {
		key, ok := idx.ExtractKey(d)
		require.True(t, ok)
		idx.Tree.Insert(key, d["_id"].(string))
	}

	var order []string
	idx.Tree.Iterate(true, func(_ any, refs []string) bool {
		order = append(order, refs...)
		return true
	})
	assert.Equal(t, []string{"A30", "A25", "B25"}, order)
}

func TestManagerUniqueViolationLeavesNoPartialMutation(t *testing.T) {
	m := index.NewManager(nil)
	m.Ensure(index.Definition{Name: "by_email", Keys: []index.KeySpec{{Field: "email"}}, Unique: true})
	m.Ensure(index.Definition{Name: "by_name", Keys: []index.KeySpec{{Field: "name"}}})

	require.NoError(t, m.Insert(bson.M{"_id": "1", "email": "a@x.com", "name": "first"}, "1"))

	err := m.Insert(bson.M{"_id": "2", "email": "a@x.com", "name": "second"}, "2")
	require.Error(t, err)
	var idxErr *index.Error
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, index.KindDuplicate, idxErr.Kind)

	// by_name must not have been mutated by the rejected insert.
	_, found := m.Indexes["by_name"].Tree.Find("second")
	assert.False(t, found)
}

func TestManagerSparseSkipsMissingField(t *testing.T) {
	m := index.NewManager(nil)
	m.Ensure(index.Definition{Name: "by_tag", Keys: []index.KeySpec{{Field: "tag"}}, Sparse: true})

	require.NoError(t, m.Insert(bson.M{"_id": "1"}, "1"))
	assert.Equal(t, 0, m.Indexes["by_tag"].Tree.Len())
}

func TestManagerRequiredRejectsMissingField(t *testing.T) {
	m := index.NewManager(nil)
	m.Ensure(index.Definition{Name: "by_tag", Keys: []index.KeySpec{{Field: "tag"}}, Required: true})

	err := m.Insert(bson.M{"_id": "1"}, "1")
	require.Error(t, err)
	var idxErr *index.Error
	require.ErrorAs(t, err, &idxErr)
	assert.Equal(t, index.KindMissing, idxErr.Kind)
}

func TestManagerWildcardMaterializesAndBackfills(t *testing.T) {
	docs := map[string]bson.M{
		"1": {"_id": "1", "color": "red"},
	}
	m := index.NewManager(func() map[string]bson.M { return docs })
	m.Ensure(index.Definition{Keys: []index.KeySpec{{Field: index.WildcardField}}})

	require.NoError(t, m.Insert(docs["1"], "1"))
	require.Contains(t, m.Indexes, "color")
	refs, ok := m.Indexes["color"].Tree.Find("red")
	require.True(t, ok)
	assert.Equal(t, []string{"1"}, refs)

	docs["2"] = bson.M{"_id": "2", "size": "m"}
	require.NoError(t, m.Insert(docs["2"], "2"))
	require.Contains(t, m.Indexes, "size")
}

func TestManagerUpdateMovesEntry(t *testing.T) {
	m := index.NewManager(nil)
	m.Ensure(index.Definition{Name: "by_status", Keys: []index.KeySpec{{Field: "status"}}})

	old := bson.M{"_id": "1", "status": "open"}
	require.NoError(t, m.Insert(old, "1"))

	newDoc := bson.M{"_id": "1", "status": "closed"}
	require.NoError(t, m.Update(old, newDoc, "1"))

	_, found := m.Indexes["by_status"].Tree.Find("open")
	assert.False(t, found)
	refs, found := m.Indexes["by_status"].Tree.Find("closed")
	require.True(t, found)
	assert.Equal(t, []string{"1"}, refs)
}
