package storage

// Adapter is the pluggable persistence contract shared by MemoryAdapter and
// FileAdapter (spec.md §4.6): init against a collection handle, clone for
// rotation, restore on load, store on write.
type Adapter interface {
	Init(h Handle) error
	Clone() Adapter
	Restore(name string) (*Snapshot, bool, error)
	Store(name string) error
	Name() string
}

// TransactionalAdapter extends Adapter with the staged-write lifecycle a
// txn.Coordinator drives (spec.md §4.7).
type TransactionalAdapter interface {
	Adapter

	// PrepareCommit stages snap under txID, returning false if the adapter
	// cannot guarantee it could commit (e.g. a write-permission check).
	PrepareCommit(txID string, snap *Snapshot) (bool, error)

	// FinalizeCommit makes txID's staged snapshot durable and visible,
	// atomically from the perspective of any subsequent Restore/Snapshot.
	FinalizeCommit(txID string) error

	// Rollback discards txID's staged snapshot without effect.
	Rollback(txID string) error

	// CreateCheckpoint snapshots current state under a new checkpoint id.
	CreateCheckpoint(txID string) (string, error)

	// RestoreFromCheckpoint replaces current state with checkpointID's.
	RestoreFromCheckpoint(checkpointID string) error
}
