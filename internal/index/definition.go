package index

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/query"
)

// Order is an index field's sort direction.
type Order int

const (
	Asc Order = iota
	Desc
)

// KeySpec names one field participating in an (possibly composite) index.
type KeySpec struct {
	Field string `bson:"field"`
	Order Order  `bson:"order"`
}

// WildcardField is the reserved field name that marks a dynamic,
// per-field-name index template (spec.md §3/§4.4: "A wildcard definition
// `*` dynamically materializes per-field indexes on first sight of new
// field names").
const WildcardField = "*"

// Definition is an index definition, matching the wire shape in spec.md
// §6's IndexDef.
type Definition struct {
	Name string      `bson:"name"`
	Keys []KeySpec   `bson:"keys"`

	Separator string `bson:"separator,omitempty"` // defaults to DefaultSeparator when empty

	Unique     bool `bson:"unique,omitempty"`
	Sparse     bool `bson:"sparse,omitempty"`
	Required   bool `bson:"required,omitempty"`
	Auto       bool `bson:"auto,omitempty"`
	IgnoreCase bool `bson:"ignoreCase,omitempty"`

	// Gen generates a key for Auto indexes when the underlying field is
	// absent (spec.md's "gen?: (item, name, list) -> key"); list access is
	// provided by the caller via a closure over the collection. Not
	// serialized: reattached by the caller after a definition is restored.
	Gen func(doc bson.M) any `bson:"-"`

	// Process overrides per-document key extraction entirely (spec.md's
	// "process?: (item|value) -> key"). Not serialized, for the same
	// reason as Gen.
	Process func(doc bson.M) any `bson:"-"`
}

// Composite reports whether this definition spans more than one field.
func (d Definition) Composite() bool { return len(d.Keys) > 1 }

// IsWildcard reports whether this definition is a "*" template.
func (d Definition) IsWildcard() bool {
	return len(d.Keys) == 1 && d.Keys[0].Field == WildcardField
}

func (d Definition) separator() string {
	if d.Separator != "" {
		return d.Separator
	}
	return DefaultSeparator
}

// forField returns a concrete, single-field definition materialized from a
// wildcard template for the given field name (spec.md §4.4: "synthesize a
// non-unique, non-required, case-insensitive definition for that name").
func (d Definition) forField(field string) Definition {
	nd := d
	nd.Name = field
	nd.Keys = []KeySpec{{Field: field, Order: Asc}}
	nd.Unique = false
	nd.Required = false
	nd.Sparse = true
	nd.IgnoreCase = true
	nd.Process = nil
	nd.Auto = false
	return nd
}

// extractValues resolves the raw (pre-encoding) per-key values for doc,
// applying dotted-path traversal, ignoreCase, and sparse/null handling.
// ok is false when the whole key should be omitted (sparse + all-null).
func (d Definition) extractValues(doc bson.M) (values []any, ok bool) {
	values = make([]any, len(d.Keys))
	allNull := true
	for i, ks := range d.Keys {
		v := query.Get(doc, ks.Field)
		if query.IsUndefined(v) {
			v = nil
		}
		if d.IgnoreCase {
			if s, isStr := v.(string); isStr {
				v = strings.ToLower(s)
			}
		}
		if v != nil {
			allNull = false
		}
		values[i] = v
	}
	if allNull && d.Sparse {
		return values, false
	}
	return values, true
}

// ExtractKey computes the stored index key for doc, or ok=false when the
// document should be omitted from this (sparse) index.
func (d Definition) ExtractKey(doc bson.M) (key any, ok bool) {
	if d.Process != nil {
		v := d.Process(doc)
		if v == nil && d.Sparse {
			return nil, false
		}
		return v, true
	}

	if d.Composite() {
		values, ok := d.extractValues(doc)
		if !ok {
			return nil, false
		}
		return EncodeKey(values, d.separator()), true
	}

	ks := d.Keys[0]
	v := query.Get(doc, ks.Field)
	if query.IsUndefined(v) {
		v = nil
	}
	if v == nil && d.Auto && d.Gen != nil {
		v = d.Gen(doc)
	}
	if v == nil {
		if d.Sparse {
			return nil, false
		}
	}
	if d.IgnoreCase {
		if s, isStr := v.(string); isStr {
			v = strings.ToLower(s)
		}
	}
	return v, true
}
