package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/google/uuid"

	"github.com/vedmalex/collection-store-sub005/persistence"
)

func newCheckpointID() string { return uuid.NewString() }

// Layout selects how a FileAdapter lays documents out on disk (spec.md
// §4.6/§6: single file vs. per-collection folder).
type Layout int

const (
	// SingleFile stores the whole snapshot as "<root>/<name>.json".
	SingleFile Layout = iota
	// FolderPerDocument stores "<root>/<name>/metadata.json" plus one
	// "<folder>/<key>.json" per document, as spec.md's file-storage list.
	FolderPerDocument
)

// FileAdapter is the file-backed persistence adapter of spec.md §4.6.
type FileAdapter struct {
	mu     sync.Mutex
	root   string
	layout Layout
	store  persistence.ByteStore
	handle Handle
	name   string

	staged map[string]*Snapshot
}

var (
	_ Adapter              = (*FileAdapter)(nil)
	_ TransactionalAdapter = (*FileAdapter)(nil)
)

// NewFileAdapter constructs a FileAdapter rooted at root, using store for
// all byte-level I/O (spec.md §1's byte-oriented persistence interface).
func NewFileAdapter(root string, layout Layout, store persistence.ByteStore) *FileAdapter {
	if store == nil {
		store = persistence.OSFiles{}
	}
	return &FileAdapter{
		root:   root,
		layout: layout,
		store:  store,
		staged: make(map[string]*Snapshot),
	}
}

func (a *FileAdapter) Name() string { return "file" }

func (a *FileAdapter) Init(h Handle) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handle = h
	a.name = h.CollectionName()
	return a.store.MkdirAll(a.root)
}

func (a *FileAdapter) Clone() Adapter {
	return NewFileAdapter(a.root, a.layout, a.store)
}

func (a *FileAdapter) resolveName(name string) string {
	if name != "" {
		return name
	}
	return a.name
}

func (a *FileAdapter) mainPath(name string) string {
	name = a.resolveName(name)
	if a.layout == FolderPerDocument {
		return filepath.Join(a.root, name, "metadata.json")
	}
	return filepath.Join(a.root, name+".json")
}

func (a *FileAdapter) checkpointPath(id string) string {
	return filepath.Join(a.root, "checkpoint_"+id+".json")
}

func (a *FileAdapter) Restore(name string) (*Snapshot, bool, error) {
	data, ok, err := a.store.ReadFile(a.mainPath(name))
	if err != nil {
		return nil, false, newError(KindIO, "reading snapshot", err)
	}
	if !ok {
		return &Snapshot{}, false, nil
	}
	var snap Snapshot
	if err := bson.UnmarshalExtJSON(data, false, &snap); err != nil {
		return nil, false, newError(KindCorrupt, "decoding snapshot", err)
	}
	return &snap, true, nil
}

func (a *FileAdapter) Store(name string) error {
	a.mu.Lock()
	handle := a.handle
	a.mu.Unlock()
	if handle == nil {
		return newError(KindIO, "adapter not initialized", nil)
	}
	return a.writeSnapshot(name, handle.Snapshot())
}

func (a *FileAdapter) writeSnapshot(name string, snap *Snapshot) error {
	data, err := bson.MarshalExtJSON(snap, false, false)
	if err != nil {
		return newError(KindIO, "encoding snapshot", err)
	}
	if err := a.store.WriteFile(a.mainPath(name), data); err != nil {
		return newError(KindIO, "writing snapshot", err)
	}
	if a.layout == FolderPerDocument {
		folder := filepath.Dir(a.mainPath(name))
		for _, doc := range snap.List.Docs {
			key := documentKey(doc)
			if key == "" {
				continue
			}
			docData, err := bson.MarshalExtJSON(doc, false, false)
			if err != nil {
				return newError(KindIO, "encoding document "+key, err)
			}
			if err := a.store.WriteFile(filepath.Join(folder, key+".json"), docData); err != nil {
				return newError(KindIO, "writing document "+key, err)
			}
		}
	}
	return nil
}

// documentKey renders a per-document filename for the FolderPerDocument
// layout. The snapshot itself does not carry the collection's configured id
// field name, so both of the engine's two conventional names are tried.
func documentKey(doc bson.M) string {
	for _, field := range [...]string{"id", "_id"} {
		if v, ok := doc[field]; ok {
			if s, ok := v.(string); ok {
				return s
			}
			return fmt.Sprint(v)
		}
	}
	return ""
}

func (a *FileAdapter) PrepareCommit(txID string, snap *Snapshot) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.staged[txID] = snap
	return true, nil
}

func (a *FileAdapter) FinalizeCommit(txID string) error {
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
	if err := a.writeSnapshot("", snap); err != nil {
		return err
	}
	if handle != nil {
		return handle.ApplySnapshot(snap)
	}
	return nil
}

func (a *FileAdapter) Rollback(txID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.staged, txID)
	return nil
}

func (a *FileAdapter) CreateCheckpoint(txID string) (string, error) {
	a.mu.Lock()
	handle := a.handle
	a.mu.Unlock()
	if handle == nil {
		return "", newError(KindIO, "adapter not initialized", nil)
	}
	id := newCheckpointID()
	data, err := bson.MarshalExtJSON(handle.Snapshot(), false, false)
	if err != nil {
		return "", newError(KindIO, "encoding checkpoint", err)
	}
	if err := a.store.WriteFile(a.checkpointPath(id), data); err != nil {
		return "", newError(KindIO, "writing checkpoint", err)
	}
	return id, nil
}

func (a *FileAdapter) RestoreFromCheckpoint(checkpointID string) error {
	a.mu.Lock()
	handle := a.handle
	a.mu.Unlock()

	data, ok, err := a.store.ReadFile(a.checkpointPath(checkpointID))
	if err != nil {
		return newError(KindIO, "reading checkpoint", err)
	}
	if !ok {
		return newError(KindNotFound, "unknown checkpoint "+checkpointID, nil)
	}
	var snap Snapshot
	if err := bson.UnmarshalExtJSON(data, false, &snap); err != nil {
		return newError(KindCorrupt, "decoding checkpoint", err)
	}
	if err := a.writeSnapshot("", &snap); err != nil {
		return err
	}
	if handle != nil {
		return handle.ApplySnapshot(&snap)
	}
	return nil
}
