package txn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/persistence"
	"github.com/vedmalex/collection-store-sub005/storage"
	"github.com/vedmalex/collection-store-sub005/txn"
	"github.com/vedmalex/collection-store-sub005/wal"
)

type fakeHandle struct {
	snap *storage.Snapshot
}

func (h *fakeHandle) CollectionName() string           { return "widgets" }
func (h *fakeHandle) Snapshot() *storage.Snapshot       { return h.snap }
func (h *fakeHandle) ApplySnapshot(s *storage.Snapshot) error {
	h.snap = s
	return nil
}

// TestCommitFlow covers spec scenario S6's commit half: two inserts staged
// within a transaction, then commit leaves the WAL with PREPARE+DATA+COMMIT
// and the on-disk snapshot with both documents.
func TestCommitFlow(t *testing.T) {
	root := t.TempDir()
	h := &fakeHandle{snap: &storage.Snapshot{}}
	adapter := storage.NewFileAdapter(root, storage.SingleFile, persistence.OSFiles{})
	require.NoError(t, adapter.Init(h))
	require.NoError(t, adapter.Store(""))

	w := wal.NewManager(nil)
	coord, err := txn.NewCoordinator(w, 16)
	require.NoError(t, err)

	txID := coord.Begin()
	snap := &storage.Snapshot{List: storage.ListState{Docs: []bson.M{
		{"_id": "1"}, {"_id": "2"},
	}}}
	require.NoError(t, coord.Stage(txID, "widgets", adapter, snap))
	require.NoError(t, coord.Commit(txID))

	entries := w.EntriesFor(txID)
	require.Len(t, entries, 3)
	assert.Equal(t, wal.Prepare, entries[0].Type)
	assert.Equal(t, wal.DataType, entries[1].Type)
	assert.Equal(t, wal.Commit, entries[2].Type)

	assert.Len(t, h.snap.List.Docs, 2)
}

// TestRollbackFlow covers S6's abort half: WAL has PREPARE+ROLLBACK and the
// on-disk snapshot is unchanged.
func TestRollbackFlow(t *testing.T) {
	root := t.TempDir()
	h := &fakeHandle{snap: &storage.Snapshot{}}
	adapter := storage.NewFileAdapter(root, storage.SingleFile, persistence.OSFiles{})
	require.NoError(t, adapter.Init(h))
	require.NoError(t, adapter.Store(""))

	w := wal.NewManager(nil)
	coord, err := txn.NewCoordinator(w, 16)
	require.NoError(t, err)

	txID := coord.Begin()
	snap := &storage.Snapshot{List: storage.ListState{Docs: []bson.M{{"_id": "1"}, {"_id": "2"}}}}
	require.NoError(t, coord.Stage(txID, "widgets", adapter, snap))
	require.NoError(t, coord.Rollback(txID))

	entries := w.EntriesFor(txID)
	require.Len(t, entries, 2)
	assert.Equal(t, wal.Prepare, entries[0].Type)
	assert.Equal(t, wal.Rollback, entries[1].Type)

	assert.Len(t, h.snap.List.Docs, 0)

	restored, found, err := adapter.Restore("")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, restored.List.Docs, 0)
}

func TestUnknownTransactionAfterEviction(t *testing.T) {
	w := wal.NewManager(nil)
	coord, err := txn.NewCoordinator(w, 1)
	require.NoError(t, err)

	tx1 := coord.Begin()
	_ = coord.Begin() // evicts tx1 from a capacity-1 LRU

	err = coord.Commit(tx1)
	require.Error(t, err)
	var txErr *txn.Error
	require.ErrorAs(t, err, &txErr)
	assert.Equal(t, txn.KindUnknownTx, txErr.Kind)
}
