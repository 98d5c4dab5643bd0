package index

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

// Manager owns the set of indexes for one collection: the named, concrete
// indexes plus any "*" wildcard templates that materialize new per-field
// indexes as previously-unseen field names are observed (spec.md §4.4).
type Manager struct {
	Indexes    map[string]*Index
	wildcards  []Definition
	seenFields map[string]bool

	// AllDocs returns every document currently stored, keyed by reference.
	// It is consulted to backfill a newly-materialized wildcard index so it
	// is not left stale relative to documents inserted before the field was
	// first observed.
	AllDocs func() map[string]bson.M
}

// NewManager constructs an empty Manager. allDocs may be nil if the caller
// never needs wildcard backfill (e.g. a collection with no wildcard index).
func NewManager(allDocs func() map[string]bson.M) *Manager {
	return &Manager{
		Indexes:    make(map[string]*Index),
		seenFields: make(map[string]bool),
		AllDocs:    allDocs,
	}
}

// Ensure registers def, returning the (possibly pre-existing) *Index. A "*"
// wildcard definition is stored as a template rather than a queryable index.
func (m *Manager) Ensure(def Definition) *Index {
	if def.IsWildcard() {
		m.wildcards = append(m.wildcards, def)
		return nil
	}
	if idx, ok := m.Indexes[def.Name]; ok {
		return idx
	}
	idx := New(def)
	m.Indexes[def.Name] = idx
	return idx
}

// Drop removes a named concrete index.
func (m *Manager) Drop(name string) bool {
	if _, ok := m.Indexes[name]; !ok {
		return false
	}
	delete(m.Indexes, name)
	return true
}

// List returns the names of all concrete (non-wildcard) indexes.
func (m *Manager) List() []string {
	names := make([]string, 0, len(m.Indexes))
	for name := range m.Indexes {
		names = append(names, name)
	}
	return names
}

// Insert adds doc (identified by ref) into every index, materializing any
// wildcard-templated indexes for newly-observed field names first. Unique
// and required violations are checked across all affected indexes before
// any index tree is mutated, so a rejected insert leaves every index
// byte-for-byte as it was (spec.md §4.4: "no partial index mutation").
func (m *Manager) Insert(doc bson.M, ref string) error {
	m.materializeWildcards(doc)

	type plannedWrite struct {
		idx *Index
		key any
	}
	var plan []plannedWrite

	for _, idx := range m.Indexes {
		key, ok := idx.ExtractKey(doc)
		if idx.Def.Required && (!ok || key == nil) {
			return newError(idx.Def.Name, KindMissing, fmt.Sprintf("required field(s) for index %q are absent", idx.Def.Name))
		}
		if !ok {
			continue
		}
		if idx.Def.Unique {
			if refs, found := idx.Tree.Find(key); found && len(refs) > 0 {
				return newError(idx.Def.Name, KindDuplicate, fmt.Sprintf("duplicate key for unique index %q", idx.Def.Name))
			}
		}
		plan = append(plan, plannedWrite{idx: idx, key: key})
	}

	for _, w := range plan {
		w.idx.Tree.Insert(w.key, ref)
	}
	return nil
}

// Update removes oldDoc's entries and inserts newDoc's, leaving every index
// unchanged if the insert half is rejected.
func (m *Manager) Update(oldDoc, newDoc bson.M, ref string) error {
	m.Remove(oldDoc, ref)
	if err := m.Insert(newDoc, ref); err != nil {
		// Re-establish the old entries so the index set reflects the
		// document that is still actually stored.
		for _, idx := range m.Indexes {
			if key, ok := idx.ExtractKey(oldDoc); ok {
				idx.Tree.Insert(key, ref)
			}
		}
		return err
	}
	return nil
}

// Remove deletes doc's entries from every index.
func (m *Manager) Remove(doc bson.M, ref string) {
	for _, idx := range m.Indexes {
		if key, ok := idx.ExtractKey(doc); ok {
			idx.Tree.Remove(key, ref)
		}
	}
}

// Rebuild replaces every index's tree with one built from scratch over docs.
func (m *Manager) Rebuild(docs []bson.M, refOf func(bson.M) string) error {
	for _, idx := range m.Indexes {
		idx.Rebuild(docs, refOf)
	}
	return nil
}

// materializeWildcards instantiates a concrete, single-field index for any
// field present at the top level of doc that has not been seen before and
// matches a registered wildcard template, then backfills it from AllDocs.
func (m *Manager) materializeWildcards(doc bson.M) {
	if len(m.wildcards) == 0 {
		return
	}
	for field := range doc {
		if m.seenFields[field] {
			continue
		}
		m.seenFields[field] = true
		for _, tmpl := range m.wildcards {
			concrete := tmpl.forField(field)
			if _, exists := m.Indexes[concrete.Name]; exists {
				continue
			}
			idx := New(concrete)
			m.Indexes[concrete.Name] = idx
			if m.AllDocs != nil {
				for docRef, existing := range m.AllDocs() {
					if key, ok := idx.ExtractKey(existing); ok {
						idx.Tree.Insert(key, docRef)
					}
				}
			}
		}
	}
}
