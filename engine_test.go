package collectionstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	collectionstore "github.com/vedmalex/collection-store-sub005"
	"github.com/vedmalex/collection-store-sub005/collection"
)

func TestEngineOpensAndReusesCollection(t *testing.T) {
	e, err := collectionstore.Open(collectionstore.Options{})
	require.NoError(t, err)

	widgets, err := e.Collection("widgets", collection.Config{Auto: true})
	require.NoError(t, err)
	_, err = widgets.Create(bson.M{"name": "a"})
	require.NoError(t, err)

	again, err := e.Collection("widgets", collection.Config{})
	require.NoError(t, err)
	assert.Same(t, widgets, again)
	assert.Equal(t, []string{"widgets"}, e.Collections())
}

func TestEngineFileBackedCollectionPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	e1, err := collectionstore.Open(collectionstore.Options{Root: dir})
	require.NoError(t, err)
	users, err := e1.Collection("users", collection.Config{})
	require.NoError(t, err)
	_, err = users.Create(bson.M{"id": "u1", "name": "ada"})
	require.NoError(t, err)
	require.NoError(t, e1.PersistAll())

	e2, err := collectionstore.Open(collectionstore.Options{Root: dir})
	require.NoError(t, err)
	reopened, err := e2.Collection("users", collection.Config{})
	require.NoError(t, err)

	doc, ok := reopened.FindById("u1")
	require.True(t, ok)
	assert.Equal(t, "ada", doc["name"])
}
