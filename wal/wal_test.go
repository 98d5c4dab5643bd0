package wal_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/wal"
)

func TestAppendAssignsSequenceAndChecksum(t *testing.T) {
	m := wal.NewManager(nil)

	e1, err := m.Append("tx1", wal.Prepare, "widgets", wal.OpStore, nil)
	require.NoError(t, err)
	e2, err := m.Append("tx1", wal.DataType, "widgets", wal.OpStore, bson.M{"_id": "1"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), e1.SequenceNumber)
	assert.Equal(t, int64(2), e2.SequenceNumber)
	assert.True(t, wal.Verify(e1))
	assert.True(t, wal.Verify(e2))

	tampered := e2
	tampered.Data = bson.M{"_id": "2"}
	assert.False(t, wal.Verify(tampered))
}

func TestStrictSequenceWithinTransaction(t *testing.T) {
	m := wal.NewManager(nil)
	_, err := m.Append("tx1", wal.Prepare, "widgets", wal.OpStore, nil)
	require.NoError(t, err)
	_, err = m.Append("tx1", wal.DataType, "widgets", wal.OpStore, bson.M{"_id": "1"})
	require.NoError(t, err)
	_, err = m.Append("tx1", wal.Commit, "widgets", wal.OpCommit, nil)
	require.NoError(t, err)

	entries := m.EntriesFor("tx1")
	require.Len(t, entries, 3)
	assert.Equal(t, []wal.Type{wal.Prepare, wal.DataType, wal.Commit}, []wal.Type{
		entries[0].Type, entries[1].Type, entries[2].Type,
	})
	assert.Empty(t, m.PendingTransactions())
}

func TestPendingTransactionsReportsUnfinished(t *testing.T) {
	m := wal.NewManager(nil)
	_, err := m.Append("tx1", wal.Prepare, "widgets", wal.OpStore, nil)
	require.NoError(t, err)
	_, err = m.Append("tx2", wal.Prepare, "widgets", wal.OpStore, nil)
	require.NoError(t, err)
	_, err = m.Append("tx2", wal.Rollback, "widgets", wal.OpDelete, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"tx1"}, m.PendingTransactions())
}

func TestRecoverReplaysPersistedEntries(t *testing.T) {
	var buf bytes.Buffer
	m := wal.NewManager(&buf)
	_, err := m.Append("tx1", wal.Prepare, "widgets", wal.OpStore, nil)
	require.NoError(t, err)
	_, err = m.Append("tx1", wal.Commit, "widgets", wal.OpCommit, nil)
	require.NoError(t, err)

	recovered, err := wal.Recover(&buf)
	require.NoError(t, err)
	assert.Len(t, recovered.Entries(), 2)

	_, err = recovered.Append("tx2", wal.Prepare, "widgets", wal.OpStore, nil)
	require.NoError(t, err)
	entries := recovered.Entries()
	assert.Equal(t, int64(3), entries[len(entries)-1].SequenceNumber)
}
