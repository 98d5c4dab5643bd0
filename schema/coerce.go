package schema

import (
	"strconv"
	"time"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
)

// coerceTo attempts to convert v into one of the allowed tags, per the
// coercion table of spec.md §4.8: string<->number, bool<->number,
// string<->date, string<->bool, any->string, and scalar->singleton array.
func coerceTo(v any, allowed []bsonvalue.Tag) (any, bool) {
	for _, tag := range allowed {
		if out, ok := coerceToTag(v, tag); ok {
			return out, true
		}
	}
	return nil, false
}

func coerceToTag(v any, tag bsonvalue.Tag) (any, bool) {
	switch tag {
	case bsonvalue.TagInt, bsonvalue.TagLong:
		if f, ok := toFloat(v); ok {
			return int64(f), true
		}
	case bsonvalue.TagDouble:
		if f, ok := toFloat(v); ok {
			return f, true
		}
	case bsonvalue.TagBool:
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			b, err := strconv.ParseBool(x)
			if err == nil {
				return b, true
			}
		default:
			if f, ok := toFloat(v); ok {
				return f != 0, true
			}
		}
	case bsonvalue.TagString:
		return toCanonicalString(v), true
	case bsonvalue.TagDate:
		if s, ok := v.(string); ok {
			for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"} {
				if t, err := time.Parse(layout, s); err == nil {
					return t, true
				}
			}
		}
	case bsonvalue.TagArray:
		if _, isArray := v.([]any); isArray {
			return v, true
		}
		return []any{v}, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func toCanonicalString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return ""
	}
}
