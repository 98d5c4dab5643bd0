// Package schema implements the BSON-aligned document validator, coercer,
// operator/type compatibility table, and sample-based inference of
// spec.md §4.8.
package schema

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
	"github.com/vedmalex/collection-store-sub005/internal/query"
)

// FieldSpec describes the constraints on one dotted field path.
type FieldSpec struct {
	Type      []bsonvalue.Tag
	Required  bool
	Default   any
	Coerce    bool // consulted only when CoerceSet is true; otherwise coercion is on
	CoerceSet bool
	Strict    bool
	Validator func(v any) error
}

// coerceEnabled reports whether coercion applies to this field: spec.md
// §4.8 says "coercion applies when coerce≠false", i.e. defaults to on.
func (f FieldSpec) coerceEnabled() bool {
	if !f.CoerceSet {
		return true
	}
	return f.Coerce
}

// Schema maps dotted field paths to their FieldSpec.
type Schema map[string]FieldSpec

// Result is the outcome of validating one document (spec.md §4.8).
type Result struct {
	Valid        bool
	ProcessedDoc bson.M
	Errors       []string
	Warnings     []string
}

// Validate walks schema keys against doc: checks required, applies
// defaults, coerces as allowed, runs the custom validator, and returns a
// Result carrying the processed document.
func (s Schema) Validate(doc bson.M) Result {
	res := Result{Valid: true, ProcessedDoc: cloneDoc(doc)}

	for path, spec := range s {
		v := query.Get(res.ProcessedDoc, path)
		missing := query.IsUndefined(v)

		if missing {
			if spec.Default != nil {
				setPath(res.ProcessedDoc, path, spec.Default)
				v = spec.Default
				missing = false
			} else if spec.Required {
				res.Valid = false
				res.Errors = append(res.Errors, path+": required field is missing")
				continue
			} else {
				continue
			}
		}

		if len(spec.Type) > 0 {
			tag := bsonvalue.TagOf(v)
			if !tagAllowed(tag, spec.Type) {
				if spec.coerceEnabled() {
					coerced, ok := coerceTo(v, spec.Type)
					if ok {
						v = coerced
						setPath(res.ProcessedDoc, path, v)
					} else {
						res.Valid = false
						res.Errors = append(res.Errors, path+": value is not assignable to the declared type and could not be coerced")
						continue
					}
				} else {
					res.Valid = false
					res.Errors = append(res.Errors, path+": value does not match the declared type")
					continue
				}
			}
		}

		if spec.Validator != nil {
			if err := spec.Validator(v); err != nil {
				res.Valid = false
				res.Errors = append(res.Errors, path+": "+err.Error())
			}
		}
	}

	return res
}

func tagAllowed(tag bsonvalue.Tag, allowed []bsonvalue.Tag) bool {
	for _, t := range allowed {
		if t == tag {
			return true
		}
		// int/double/long are mutually assignable under a declared numeric
		// type, matching spec.md §3's numeric promotion family.
		if isNumericTag(t) && isNumericTag(tag) {
			return true
		}
	}
	return false
}

func isNumericTag(t bsonvalue.Tag) bool {
	return t == bsonvalue.TagInt || t == bsonvalue.TagDouble || t == bsonvalue.TagLong
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// setPath assigns v at a (possibly dotted) path within doc, creating
// intermediate bson.M levels as needed. Only the top-level document passed
// to Validate is ever mutated this way (never shared input).
func setPath(doc bson.M, path string, v any) {
	parts := strings.Split(path, ".")
	cur := doc
	for i, part := range parts {
		if i == len(parts)-1 {
			cur[part] = v
			return
		}
		next, ok := cur[part].(bson.M)
		if !ok {
			next = bson.M{}
			cur[part] = next
		}
		cur = next
	}
}
