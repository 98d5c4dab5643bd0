// Package collectionstore is the top-level facade wiring collection, storage,
// wal, txn, and schema into the embeddable document-store engine of
// spec.md §1/§9, replacing the teacher's live-driver session/dial surface
// (modern_session.go's DialModernMGO) with a local, adapter-backed Engine.
package collectionstore

import (
	"fmt"
	"sync"

	"github.com/vedmalex/collection-store-sub005/collection"
	"github.com/vedmalex/collection-store-sub005/persistence"
	"github.com/vedmalex/collection-store-sub005/storage"
	"github.com/vedmalex/collection-store-sub005/txn"
	"github.com/vedmalex/collection-store-sub005/wal"
)

// Engine owns a set of named collections sharing one on-disk root and one
// transaction coordinator, mirroring the teacher's ModernMGO acting as the
// single entry point a caller dials into (modern_types.go).
type Engine struct {
	mu          sync.Mutex
	root        string
	layout      storage.Layout
	store       persistence.ByteStore
	collections map[string]*collection.Collection
	coordinator *txn.Coordinator
	wal         *wal.Manager
}

// Options configures Open.
type Options struct {
	// Root is the filesystem directory collections persist under. Empty
	// means in-memory only (each collection gets a MemoryAdapter).
	Root   string
	Layout storage.Layout
	Store  persistence.ByteStore

	// WAL, when non-nil, is shared by every collection created through
	// this Engine and by its transaction coordinator.
	WAL *wal.Manager

	// TxnCapacity bounds the coordinator's concurrently-prepared
	// transactions (spec.md §4.7). Defaults to 64.
	TxnCapacity int
}

// Open constructs an Engine from opts.
func Open(opts Options) (*Engine, error) {
	if opts.TxnCapacity <= 0 {
		opts.TxnCapacity = 64
	}
	if opts.WAL == nil {
		opts.WAL = wal.NewManager(nil)
	}
	coordinator, err := txn.NewCoordinator(opts.WAL, opts.TxnCapacity)
	if err != nil {
		return nil, err
	}
	return &Engine{
		root:        opts.Root,
		layout:      opts.Layout,
		store:       opts.Store,
		collections: make(map[string]*collection.Collection),
		coordinator: coordinator,
		wal:         opts.WAL,
	}, nil
}

// Coordinator exposes the engine's shared transaction coordinator so callers
// can drive multi-collection commits (spec.md §4.7).
func (e *Engine) Coordinator() *txn.Coordinator { return e.coordinator }

// Collection returns the named collection, creating it (and its storage
// adapter) on first access. cfg.Name is overwritten with name; cfg.Adapter,
// when nil, defaults to a FileAdapter rooted under the Engine's root (or a
// MemoryAdapter when the Engine has no root).
func (e *Engine) Collection(name string, cfg collection.Config) (*collection.Collection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.collections[name]; ok {
		return existing, nil
	}

	cfg.Name = name
	if cfg.Adapter == nil {
		cfg.Adapter = e.defaultAdapter()
	}
	if cfg.WAL == nil {
		cfg.WAL = e.wal
	}

	c, err := collection.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("collectionstore: open collection %q: %w", name, err)
	}
	if err := c.Load(""); err != nil {
		return nil, fmt.Errorf("collectionstore: load collection %q: %w", name, err)
	}
	e.collections[name] = c
	return c, nil
}

func (e *Engine) defaultAdapter() storage.Adapter {
	if e.root == "" {
		return storage.NewMemoryAdapter()
	}
	return storage.NewFileAdapter(e.root, e.layout, e.store)
}

// Collections lists the names of every collection opened so far.
func (e *Engine) Collections() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.collections))
	for name := range e.collections {
		names = append(names, name)
	}
	return names
}

// PersistAll stores every opened collection through its adapter, used for
// orderly shutdown (spec.md §4.5's `persist(name?)` applied engine-wide).
func (e *Engine) PersistAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name, c := range e.collections {
		if err := c.Store(""); err != nil {
			return fmt.Errorf("collectionstore: persist collection %q: %w", name, err)
		}
	}
	return nil
}
