package schema

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
)

// Infer collects the union of observed BSON tags per dotted field path
// across sample, producing a Schema with no Required/Default/Validator
// constraints — a starting point for the caller to refine (spec.md §4.8:
// "Schema inference from a data sample collects the union of observed tags
// per path").
func Infer(sample []bson.M) Schema {
	seen := make(map[string]map[bsonvalue.Tag]bool)
	for _, doc := range sample {
		collectTags("", doc, seen)
	}

	out := make(Schema, len(seen))
	for path, tags := range seen {
		types := make([]bsonvalue.Tag, 0, len(tags))
		for t := range tags {
			types = append(types, t)
		}
		out[path] = FieldSpec{Type: types}
	}
	return out
}

func collectTags(prefix string, v any, seen map[string]map[bsonvalue.Tag]bool) {
	if prefix != "" {
		tag := bsonvalue.TagOf(v)
		if seen[prefix] == nil {
			seen[prefix] = make(map[bsonvalue.Tag]bool)
		}
		seen[prefix][tag] = true
	}

	switch x := v.(type) {
	case bson.M:
		for k, sub := range x {
			collectTags(joinPath(prefix, k), sub, seen)
		}
	case map[string]any:
		for k, sub := range x {
			collectTags(joinPath(prefix, k), sub, seen)
		}
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
