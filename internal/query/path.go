package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
)

// Get performs null-safe dotted field-path traversal over a document,
// mirroring spec.md §4.2: "any missing segment yields undefined". When the
// traversal passes through an array, the remaining path is resolved against
// every element and the results are collected into a new array value -
// this lets dotted paths like "items.value" reach into an array of
// sub-documents the way MongoDB itself does.
func Get(doc any, path string) any {
	segments := strings.Split(path, ".")
	return get(doc, segments)
}

func get(v any, segments []string) any {
	if len(segments) == 0 {
		return v
	}
	switch x := v.(type) {
	case bson.M:
		nv, ok := x[segments[0]]
		if !ok {
			return bsonvalue.Undefined{}
		}
		return get(nv, segments[1:])
	case map[string]any:
		nv, ok := x[segments[0]]
		if !ok {
			return bsonvalue.Undefined{}
		}
		return get(nv, segments[1:])
	case []any:
		out := make([]any, 0, len(x))
		for _, elem := range x {
			rv := get(elem, segments)
			if _, isUndef := rv.(bsonvalue.Undefined); isUndef {
				continue
			}
			out = append(out, rv)
		}
		return out
	default:
		return bsonvalue.Undefined{}
	}
}

// IsUndefined reports whether v is the Undefined sentinel produced by Get.
func IsUndefined(v any) bool {
	_, ok := v.(bsonvalue.Undefined)
	return ok
}
