package schema

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
)

// ValidateQuery recursively validates filter against s, following the same
// recursive grammar the C2 parser uses (spec.md §4.2): logical keys fan
// out, a field key carries either an implicit $eq or an operator map. In
// non-strict mode incompatibilities are reported as warnings only and the
// query still compiles; in strict mode they are returned as an error.
func (s Schema) ValidateQuery(filter bson.M) (warnings []string, err error) {
	s.walkQuery(filter, &warnings, &err)
	return warnings, err
}

func (s Schema) walkQuery(node any, warnings *[]string, err *error) {
	m, ok := node.(bson.M)
	if !ok {
		if asMap, isMap := node.(map[string]any); isMap {
			m = bson.M(asMap)
		} else {
			return
		}
	}

	for key, value := range m {
		switch key {
		case "$and", "$or", "$nor":
			if arr, ok := value.([]any); ok {
				for _, sub := range arr {
					s.walkQuery(sub, warnings, err)
				}
			}
		case "$not", "$where":
			// $not wraps a single sub-expression; $where has no field path
			// to validate against the schema.
			continue
		default:
			if strings.HasPrefix(key, "$") {
				continue // operator already being validated by its parent field
			}
			s.validateFieldExpr(key, value, warnings, err)
		}
	}
}

func (s Schema) validateFieldExpr(path string, expr any, warnings *[]string, err *error) {
	spec, known := s[path]

	exprMap, isOpMap := expr.(bson.M)
	if !isOpMap {
		if m, ok := expr.(map[string]any); ok {
			exprMap = bson.M(m)
			isOpMap = true
		}
	}

	if !isOpMap {
		s.checkOperator(path, spec, known, "$eq", warnings, err)
		return
	}

	for opKey := range exprMap {
		if strings.HasPrefix(opKey, "$") {
			s.checkOperator(path, spec, known, opKey, warnings, err)
		}
	}
}

func (s Schema) checkOperator(path string, spec FieldSpec, known bool, op string, warnings *[]string, errOut *error) {
	if !known || len(spec.Type) == 0 {
		return
	}
	for _, tag := range spec.Type {
		if CompatibleOperator(tag, op) {
			return
		}
	}
	msg := path + ": operator " + op + " is not compatible with the declared type " + typeNameList(spec.Type)
	if spec.Strict {
		if *errOut == nil {
			*errOut = &Error{Field: path, Message: msg}
		}
		return
	}
	*warnings = append(*warnings, msg)
}

// tagNames names each bsonvalue.Tag for the operator-compatibility
// diagnostic messages checkOperator builds.
var tagNames = map[bsonvalue.Tag]string{
	bsonvalue.TagNull:     "null",
	bsonvalue.TagInt:      "int",
	bsonvalue.TagDouble:   "double",
	bsonvalue.TagLong:     "long",
	bsonvalue.TagString:   "string",
	bsonvalue.TagObject:   "object",
	bsonvalue.TagArray:    "array",
	bsonvalue.TagBinary:   "binary",
	bsonvalue.TagObjectID: "objectId",
	bsonvalue.TagBool:     "bool",
	bsonvalue.TagDate:     "date",
	bsonvalue.TagRegex:    "regex",
}

// typeNameList renders a field's declared type tags for an error message,
// e.g. "[int, double]".
func typeNameList(tags []bsonvalue.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		if name, ok := tagNames[t]; ok {
			names[i] = name
		} else {
			names[i] = "unknown"
		}
	}
	return "[" + strings.Join(names, ", ") + "]"
}
