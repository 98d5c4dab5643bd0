package collection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/collection"
	"github.com/vedmalex/collection-store-sub005/internal/index"
)

func newTestCollection(t *testing.T, cfg collection.Config) *collection.Collection {
	t.Helper()
	cfg.Name = "widgets"
	c, err := collection.New(cfg)
	require.NoError(t, err)
	return c
}

func TestCreateAssignsAutoID(t *testing.T) {
	c := newTestCollection(t, collection.Config{Auto: true})
	doc, err := c.Create(bson.M{"name": "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), doc["id"])

	doc2, err := c.Create(bson.M{"name": "b"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), doc2["id"])
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, err := c.Create(bson.M{"id": "x", "name": "a"})
	require.NoError(t, err)
	_, err = c.Create(bson.M{"id": "x", "name": "b"})
	require.Error(t, err)
}

func TestFindByIdAndFind(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, err := c.Create(bson.M{"id": "1", "category": "x"})
	require.NoError(t, err)
	_, err = c.Create(bson.M{"id": "2", "category": "y"})
	require.NoError(t, err)

	doc, ok := c.FindById("1")
	require.True(t, ok)
	assert.Equal(t, "x", doc["category"])

	found := c.Find(bson.M{"category": "y"})
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0]["id"])
}

func TestUpdateWithIdMergeTrue(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, err := c.Create(bson.M{"id": "1", "profile": bson.M{"name": "a", "age": 10}})
	require.NoError(t, err)

	updated, err := c.UpdateWithId("1", bson.M{"profile": bson.M{"age": 11}}, true)
	require.NoError(t, err)
	profile := updated["profile"].(bson.M)
	assert.Equal(t, "a", profile["name"])
	assert.Equal(t, 11, profile["age"])
}

func TestUpdateWithIdMergeFalseShallow(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, err := c.Create(bson.M{"id": "1", "profile": bson.M{"name": "a", "age": 10}})
	require.NoError(t, err)

	updated, err := c.UpdateWithId("1", bson.M{"profile": bson.M{"age": 11}}, false)
	require.NoError(t, err)
	profile := updated["profile"].(bson.M)
	_, hasName := profile["name"]
	assert.False(t, hasName)
	assert.Equal(t, 11, profile["age"])
}

func TestRemoveWithIdDropsIndexEntries(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	require.NoError(t, c.CreateIndex("category", index.Definition{Keys: []index.KeySpec{{Field: "category"}}}))
	_, err := c.Create(bson.M{"id": "1", "category": "x"})
	require.NoError(t, err)

	require.NoError(t, c.RemoveWithId("1"))
	_, ok := c.FindById("1")
	assert.False(t, ok)

	_, err = c.Create(bson.M{"id": "1", "category": "x"})
	require.NoError(t, err) // re-insert must succeed: no stale unique entry left behind
}

func TestFirstLastLowestGreatest(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, _ = c.Create(bson.M{"id": "1", "score": 5})
	_, _ = c.Create(bson.M{"id": "2", "score": 1})
	_, _ = c.Create(bson.M{"id": "3", "score": 9})

	first, _ := c.First()
	assert.Equal(t, "1", first["id"])
	last, _ := c.Last()
	assert.Equal(t, "3", last["id"])

	lowest, _ := c.Lowest("score")
	assert.Equal(t, "2", lowest["id"])
	greatest, _ := c.Greatest("score")
	assert.Equal(t, "3", greatest["id"])
}

func TestApplyUpsertCreatesOnNoMatch(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	doc, info, err := c.Apply(bson.M{"id": "new"}, collection.Change{
		Update: bson.M{"name": "created"}, Merge: true, Upsert: true, ReturnNew: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", doc["id"])
	assert.Equal(t, "created", doc["name"])
	assert.Equal(t, "new", info.UpsertedId)
}

func TestApplyRemoveReturnsBeforeState(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, err := c.Create(bson.M{"id": "1", "name": "a"})
	require.NoError(t, err)

	doc, info, err := c.Apply(bson.M{"id": "1"}, collection.Change{Remove: true})
	require.NoError(t, err)
	assert.Equal(t, "a", doc["name"])
	assert.Equal(t, 1, info.Removed)
	_, ok := c.FindById("1")
	assert.False(t, ok)
}

func TestTTLEvictsExpiredOnRead(t *testing.T) {
	ttl := 10 * time.Millisecond
	c := newTestCollection(t, collection.Config{TTL: &ttl})
	_, err := c.Create(bson.M{"id": "1"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, ok := c.FindById("1")
	assert.False(t, ok)
}

func TestBulkRunOrderedStopsOnFirstError(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, err := c.Create(bson.M{"id": "1"})
	require.NoError(t, err)

	b := c.Bulk()
	b.Insert(bson.M{"id": "1"}, bson.M{"id": "2"}) // first insert duplicates id "1"
	_, err = b.Run()
	require.Error(t, err)

	_, ok := c.FindById("2")
	assert.False(t, ok, "ordered bulk must stop before queuing the second insert's effect")
}

func TestAuditRecordsHistory(t *testing.T) {
	c := newTestCollection(t, collection.Config{Audit: true})
	_, err := c.Create(bson.M{"id": "1", "v": 1})
	require.NoError(t, err)
	_, err = c.UpdateWithId("1", bson.M{"v": 2}, true)
	require.NoError(t, err)

	history := c.History("1")
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[1]["version"])
}

func TestForwardCursorYieldsInsertionOrder(t *testing.T) {
	c := newTestCollection(t, collection.Config{})
	_, _ = c.Create(bson.M{"id": "1"})
	_, _ = c.Create(bson.M{"id": "2"})

	cur := c.Forward()
	var ids []any
	for {
		doc, ok := cur.Next()
		if !ok {
			break
		}
		ids = append(ids, doc["id"])
	}
	assert.Equal(t, []any{"1", "2"}, ids)
}
