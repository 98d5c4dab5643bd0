package storage

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryAdapter is the no-op persistence adapter of spec.md §4.6: Restore
// always reports an empty snapshot, Store is a no-op. Transactional staging
// still works, because "publishing" a memory-adapter commit just means
// applying the staged snapshot to the collection's own in-memory Handle.
type MemoryAdapter struct {
	mu          sync.Mutex
	handle      Handle
	staged      map[string]*Snapshot
	checkpoints map[string]*Snapshot
}

var (
	_ Adapter              = (*MemoryAdapter)(nil)
	_ TransactionalAdapter = (*MemoryAdapter)(nil)
)

// NewMemoryAdapter constructs an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		staged:      make(map[string]*Snapshot),
		checkpoints: make(map[string]*Snapshot),
	}
}

func (a *MemoryAdapter) Name() string { return "memory" }

func (a *MemoryAdapter) Init(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handle = h
	return nil
}

func (a *MemoryAdapter) Clone() Adapter { return NewMemoryAdapter() }

func (a *MemoryAdapter) Restore(name string) (*Snapshot, bool, error) {
	return &Snapshot{}, false, nil
}

func (a *MemoryAdapter) Store(name string) error { return nil }

func (a *MemoryAdapter) PrepareCommit(txID string, snap *Snapshot) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.staged[txID] = snap
	return true, nil
}

func (a *MemoryAdapter) FinalizeCommit(txID string) error {
	a.mu.Lock()
	snap, ok := a.staged[txID]
	if ok {
		delete(a.staged, txID)
	}
	handle := a.handle
	a.mu.Unlock()

	if !ok {
		return newError(KindNotFound, "unknown transaction "+txID, nil)
	}
	if handle == nil {
		return newError(KindIO, "adapter not initialized", nil)
	}
	return handle.ApplySnapshot(snap)
}

func (a *MemoryAdapter) Rollback(txID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.staged, txID)
	return nil
}

func (a *MemoryAdapter) CreateCheckpoint(txID string) (string, error) {
	a.mu.Lock()
	handle := a.handle
	a.mu.Unlock()
	if handle == nil {
		return "", newError(KindIO, "adapter not initialized", nil)
	}
	id := uuid.NewString()
	snap := handle.Snapshot().Clone()

	a.mu.Lock()
	a.checkpoints[id] = snap
	a.mu.Unlock()
	return id, nil
}

func (a *MemoryAdapter) RestoreFromCheckpoint(checkpointID string) error {
	a.mu.Lock()
	snap, ok := a.checkpoints[checkpointID]
	handle := a.handle
	a.mu.Unlock()
	if !ok {
		return newError(KindNotFound, "unknown checkpoint "+checkpointID, nil)
	}
	if handle == nil {
		return newError(KindIO, "adapter not initialized", nil)
	}
	return handle.ApplySnapshot(snap)
}
