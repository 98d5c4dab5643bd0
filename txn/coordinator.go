// Package txn drives the prepare/finalize/rollback lifecycle across
// participating storage adapters, and checkpoint create/restore, per
// spec.md §4.7.
package txn

import (
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vedmalex/collection-store-sub005/logging"
	"github.com/vedmalex/collection-store-sub005/storage"
	"github.com/vedmalex/collection-store-sub005/wal"
)

// participant is one collection's staged write within a transaction.
type participant struct {
	adapter  storage.TransactionalAdapter
	prepared bool
}

// staging holds every participant a transaction has staged a write against.
type staging struct {
	mu           sync.Mutex
	participants map[string]*participant // collection name -> participant
}

// Coordinator is the database-level transaction driver of spec.md §4.7:
// "startTransaction -> startSession -> {staged writes} -> commitTransaction
// / abortTransaction". There is no multi-writer locking; concurrent
// transactions per collection are the caller's responsibility to serialize.
type Coordinator struct {
	mu     sync.Mutex
	wal    *wal.Manager
	active *lru.Cache[string, *staging]
}

// NewCoordinator constructs a Coordinator backed by w for durability
// ordering, bounding the number of concurrently prepared-but-uncommitted
// transactions to capacity. Eviction of the least recently used transaction
// drops only the coordinator's record of it (and logs a warning); a snapshot
// an adapter has already staged for that transaction stays in the adapter.
func NewCoordinator(w *wal.Manager, capacity int) (*Coordinator, error) {
	c := &Coordinator{wal: w}
	cache, err := lru.NewWithEvict[string, *staging](capacity, func(txID string, _ *staging) {
		logging.Warn("txn: evicting abandoned transaction", zap.String("transactionId", txID))
	})
	if err != nil {
		return nil, err
	}
	c.active = cache
	return c, nil
}

// Begin starts a new transaction and returns its id.
func (c *Coordinator) Begin() string {
	txID := uuid.NewString()
	c.active.Add(txID, &staging{participants: make(map[string]*participant)})
	return txID
}

func (c *Coordinator) lookup(txID string) (*staging, bool) {
	return c.active.Get(txID)
}

// Stage prepares adapter to commit snap under txID for collection, appending
// the PREPARE and DATA WAL markers in order. A PrepareCommit rejection
// aborts the whole transaction immediately (spec.md §7).
func (c *Coordinator) Stage(txID, collection string, adapter storage.TransactionalAdapter, snap *storage.Snapshot) error {
	st, ok := c.lookup(txID)
	if !ok {
		return newError(KindUnknownTx, "unknown transaction "+txID)
	}

	st.mu.Lock()
	p, exists := st.participants[collection]
	if !exists {
		p = &participant{adapter: adapter}
		st.participants[collection] = p
	}
	st.mu.Unlock()

	if !p.prepared {
		if _, err := c.wal.Append(txID, wal.Prepare, collection, wal.OpStore, nil); err != nil {
			return err
		}
		ok, err := adapter.PrepareCommit(txID, snap)
		if err != nil {
			return err
		}
		if !ok {
			_ = c.Rollback(txID)
			return newError(KindPrepareFailed, "adapter refused prepare for "+collection)
		}
		p.prepared = true
	}

	data, err := snapshotSummary(snap)
	if err != nil {
		return err
	}
	_, err = c.wal.Append(txID, wal.DataType, collection, wal.OpStore, data)
	return err
}

// Commit finalizes every staged participant and appends the COMMIT marker.
// Per spec.md §7, a FinalizeCommit failure after some resources have
// already committed is logged as a partial-commit diagnostic rather than
// attempted to be rolled back automatically.
func (c *Coordinator) Commit(txID string) error {
	st, ok := c.lookup(txID)
	if !ok {
		return newError(KindUnknownTx, "unknown transaction "+txID)
	}

	st.mu.Lock()
	participants := make(map[string]*participant, len(st.participants))
	for name, p := range st.participants {
		participants[name] = p
	}
	st.mu.Unlock()

	var firstErr error
	for collection, p := range participants {
		if err := p.adapter.FinalizeCommit(txID); err != nil {
			logging.Error("txn: partial commit failure",
				zap.String("transactionId", txID),
				zap.String("collection", collection),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	c.active.Remove(txID)
	if _, err := c.wal.Append(txID, wal.Commit, "", wal.OpCommit, nil); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Rollback discards every staged participant's write and appends ROLLBACK.
func (c *Coordinator) Rollback(txID string) error {
	st, ok := c.lookup(txID)
	if !ok {
		return newError(KindUnknownTx, "unknown transaction "+txID)
	}

	st.mu.Lock()
	participants := make(map[string]*participant, len(st.participants))
	for name, p := range st.participants {
		participants[name] = p
	}
	st.mu.Unlock()

	var firstErr error
	for _, p := range participants {
		if err := p.adapter.Rollback(txID); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.active.Remove(txID)
	if _, err := c.wal.Append(txID, wal.Rollback, "", wal.OpDelete, nil); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// CreateCheckpoint delegates to adapter, tagging the checkpoint with txID
// for traceability.
func (c *Coordinator) CreateCheckpoint(adapter storage.TransactionalAdapter, txID string) (string, error) {
	return adapter.CreateCheckpoint(txID)
}

// RestoreFromCheckpoint delegates to adapter.
func (c *Coordinator) RestoreFromCheckpoint(adapter storage.TransactionalAdapter, checkpointID string) error {
	return adapter.RestoreFromCheckpoint(checkpointID)
}

func snapshotSummary(snap *storage.Snapshot) (bson.M, error) {
	if snap == nil {
		return nil, nil
	}
	return bson.M{"docCount": len(snap.List.Docs)}, nil
}
