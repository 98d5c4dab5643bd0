// Package collection implements the document container of spec.md §4.5:
// CRUD with index and TTL maintenance, iteration, rotate, and findAndModify
// / bulk operations, serialized through a pluggable storage.Adapter.
package collection

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vedmalex/collection-store-sub005/internal/index"
	"github.com/vedmalex/collection-store-sub005/logging"
	"github.com/vedmalex/collection-store-sub005/schema"
	"github.com/vedmalex/collection-store-sub005/storage"
	"github.com/vedmalex/collection-store-sub005/wal"
)

// Config configures a Collection; it is a plain struct literal passed to
// New (there are no functional options).
type Config struct {
	Name string

	// IDField is the primary-key path. Defaults to "id" (spec.md §3).
	IDField string
	Auto    bool
	Gen     func(doc bson.M) any

	TTL    *time.Duration
	Rotate time.Duration // 0 disables rotation

	Audit bool

	Adapter storage.Adapter
	Schema  schema.Schema
	WAL     *wal.Manager
}

// Collection is the document container of spec.md §3/§4.5.
type Collection struct {
	mu  sync.Mutex
	cfg Config

	docs  map[string]bson.M // ref -> stored record (audit-wrapped or raw)
	order []string          // insertion order of refs

	manager *index.Manager

	seq int64 // auto-increment counter for the default id generator
}

const ttlFieldName = "__ttltime"

// New constructs an empty Collection from cfg.
func New(cfg Config) (*Collection, error) {
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	if cfg.Adapter == nil {
		cfg.Adapter = storage.NewMemoryAdapter()
	}

	c := &Collection{
		cfg:  cfg,
		docs: make(map[string]bson.M),
	}
	c.manager = index.NewManager(c.allDataDocs)
	c.ensureCoreIndexes()

	if err := cfg.Adapter.Init(&handle{c: c}); err != nil {
		return nil, err
	}
	return c, nil
}

// ensureCoreIndexes (re-)registers the id-field unique/required index and,
// when TTL eviction is configured, the hidden TTL index. Called from New and
// again from Reset so a reused collection never loses the id-uniqueness
// invariant of spec.md §3.
func (c *Collection) ensureCoreIndexes() {
	idDef := index.Definition{
		Name:     c.cfg.IDField,
		Keys:     []index.KeySpec{{Field: c.cfg.IDField}},
		Unique:   true,
		Required: true,
		Auto:     c.cfg.Auto,
		Gen:      c.cfg.Gen,
	}
	if idDef.Gen == nil && c.cfg.Auto {
		idDef.Gen = c.nextAutoID
	}
	c.manager.Ensure(idDef)

	if c.cfg.TTL != nil {
		c.manager.Ensure(index.Definition{Name: ttlFieldName, Keys: []index.KeySpec{{Field: ttlFieldName}}})
	}
}

func (c *Collection) nextAutoID(bson.M) any {
	c.seq++
	return c.seq
}

func (c *Collection) refOf(doc bson.M) string {
	return toRef(doc[c.cfg.IDField])
}

// allDataDocs exposes every currently stored document's data portion keyed
// by ref, used by index.Manager to backfill wildcard indexes.
func (c *Collection) allDataDocs() map[string]bson.M {
	out := make(map[string]bson.M, len(c.docs))
	for ref, stored := range c.docs {
		out[ref] = c.dataOf(stored)
	}
	return out
}

// dataOf extracts the logical document from a stored record, unwrapping the
// audit envelope when auditing is enabled (spec.md §3).
func (c *Collection) dataOf(stored bson.M) bson.M {
	if !c.cfg.Audit {
		return stored
	}
	if data, ok := stored["data"].(bson.M); ok {
		return data
	}
	return stored
}

func cloneDoc(doc bson.M) bson.M {
	if doc == nil {
		return nil
	}
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func logError(op string, err error) {
	if err != nil {
		logging.Error("collection: operation failed", zap.String("op", op), zap.Error(err))
	}
}
