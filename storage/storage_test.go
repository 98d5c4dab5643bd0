package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/persistence"
	"github.com/vedmalex/collection-store-sub005/storage"
)

type fakeHandle struct {
	name string
	snap *storage.Snapshot
}

func (h *fakeHandle) CollectionName() string { return h.name }
func (h *fakeHandle) Snapshot() *storage.Snapshot { return h.snap }
func (h *fakeHandle) ApplySnapshot(s *storage.Snapshot) error {
	h.snap = s
	return nil
}

func TestMemoryAdapterRestoreAlwaysEmpty(t *testing.T) {
	a := storage.NewMemoryAdapter()
	require.NoError(t, a.Init(&fakeHandle{name: "widgets"}))

	snap, found, err := a.Restore("widgets")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, snap.Empty())
}

func TestMemoryAdapterTransactionCommitPublishes(t *testing.T) {
	h := &fakeHandle{name: "widgets", snap: &storage.Snapshot{}}
	a := storage.NewMemoryAdapter()
	require.NoError(t, a.Init(h))

	staged := &storage.Snapshot{List: storage.ListState{Docs: []bson.M{{"_id": "1"}}}}
	ok, err := a.PrepareCommit("tx1", staged)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.FinalizeCommit("tx1"))
	assert.Len(t, h.snap.List.Docs, 1)

	err = a.FinalizeCommit("tx1")
	assert.Error(t, err)
}

func TestMemoryAdapterRollbackDropsStage(t *testing.T) {
	h := &fakeHandle{name: "widgets", snap: &storage.Snapshot{}}
	a := storage.NewMemoryAdapter()
	require.NoError(t, a.Init(h))

	_, err := a.PrepareCommit("tx1", &storage.Snapshot{List: storage.ListState{Docs: []bson.M{{"_id": "1"}}}})
	require.NoError(t, err)
	require.NoError(t, a.Rollback("tx1"))

	assert.Len(t, h.snap.List.Docs, 0)
	err = a.FinalizeCommit("tx1")
	assert.Error(t, err)
}

func TestFileAdapterStoreRestoreRoundTrip(t *testing.T) {
	root := t.TempDir()
	h := &fakeHandle{
		name: "widgets",
		snap: &storage.Snapshot{
			ID:   "_id",
			List: storage.ListState{Docs: []bson.M{{"_id": "1", "name": "A"}}},
		},
	}
	a := storage.NewFileAdapter(root, storage.SingleFile, persistence.OSFiles{})
	require.NoError(t, a.Init(h))
	require.NoError(t, a.Store(""))

	snap, found, err := a.Restore("")
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, snap.List.Docs, 1)
	assert.Equal(t, "A", snap.List.Docs[0]["name"])
}

func TestFileAdapterTransactionRollbackLeavesDiskUnchanged(t *testing.T) {
	root := t.TempDir()
	h := &fakeHandle{name: "widgets", snap: &storage.Snapshot{}}
	a := storage.NewFileAdapter(root, storage.SingleFile, persistence.OSFiles{})
	require.NoError(t, a.Init(h))
	require.NoError(t, a.Store(""))

	_, err := a.PrepareCommit("tx1", &storage.Snapshot{List: storage.ListState{Docs: []bson.M{{"_id": "1"}}}})
	require.NoError(t, err)
	require.NoError(t, a.Rollback("tx1"))

	_, _, err = a.Restore("")
	require.NoError(t, err)
	data, ok, err := persistence.OSFiles{}.ReadFile(filepath.Join(root, "widgets.json"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, string(data), `"1"`)
}

func TestFileAdapterCheckpointRoundTrip(t *testing.T) {
	root := t.TempDir()
	h := &fakeHandle{
		name: "widgets",
		snap: &storage.Snapshot{List: storage.ListState{Docs: []bson.M{{"_id": "1"}}}},
	}
	a := storage.NewFileAdapter(root, storage.SingleFile, persistence.OSFiles{})
	require.NoError(t, a.Init(h))

	id, err := a.CreateCheckpoint("")
	require.NoError(t, err)

	h.snap = &storage.Snapshot{}
	require.NoError(t, a.RestoreFromCheckpoint(id))
	assert.Len(t, h.snap.List.Docs, 1)
}
