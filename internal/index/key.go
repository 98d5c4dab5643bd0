package index

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
)

// DefaultSeparator is the composite-key field separator (spec.md §3:
// "default NUL, escaped with backslash").
const DefaultSeparator = "\x00"

// encodeComponent renders a single field value into a type-tagged,
// losslessly-decodable string, so the composite-key comparator can recover
// typed values for type-aware comparison (spec.md §4.4).
func encodeComponent(v any) string {
	switch x := v.(type) {
	case nil:
		return "n"
	case string:
		return "s" + x
	case bool:
		if x {
			return "b1"
		}
		return "b0"
	case time.Time:
		return "d" + strconv.FormatInt(x.UnixNano(), 10)
	case primitive.DateTime:
		return "d" + strconv.FormatInt(int64(x)*int64(time.Millisecond), 10)
	case primitive.ObjectID:
		return "o" + x.Hex()
	default:
		if f, ok := asFloat(v); ok {
			return "f" + strconv.FormatFloat(f, 'g', -1, 64)
		}
		return "s" + toString(v)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func decodeComponent(s string) any {
	if s == "" {
		return nil
	}
	tag, rest := s[0], s[1:]
	switch tag {
	case 'n':
		return nil
	case 's':
		return rest
	case 'b':
		return rest == "1"
	case 'd':
		ns, _ := strconv.ParseInt(rest, 10, 64)
		return time.Unix(0, ns)
	case 'f':
		f, _ := strconv.ParseFloat(rest, 64)
		return f
	case 'o':
		oid, _ := primitive.ObjectIDFromHex(rest)
		return oid
	}
	return rest
}

// escapeComponent backslash-escapes the separator and backslashes
// themselves, per spec.md §4.4.
func escapeComponent(s, sep string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, sep, `\`+sep)
	return s
}

// EncodeKey concatenates the per-field encoded+escaped components with
// sep, producing the canonical composite index key (spec.md §3/§4.4).
func EncodeKey(values []any, sep string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = escapeComponent(encodeComponent(v), sep)
	}
	return strings.Join(parts, sep)
}

// DecodeKey reverses EncodeKey, splitting on unescaped occurrences of sep.
func DecodeKey(encoded, sep string) []string {
	var parts []string
	var cur strings.Builder
	i := 0
	for i < len(encoded) {
		if encoded[i] == '\\' && i+1 < len(encoded) {
			cur.WriteByte(encoded[i+1])
			i += 2
			continue
		}
		if strings.HasPrefix(encoded[i:], sep) {
			parts = append(parts, cur.String())
			cur.Reset()
			i += len(sep)
			continue
		}
		cur.WriteByte(encoded[i])
		i++
	}
	parts = append(parts, cur.String())
	return parts
}

// compareComponent orders two decoded component values, with null sorting
// first (spec.md §4.4: "null sorts first in asc, last in desc" - achieved
// by always treating null as the minimum here, then the caller flips the
// sign for a descending field).
func compareComponent(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	switch bsonvalue.Compare(a, b) {
	case bsonvalue.Less:
		return -1
	case bsonvalue.Greater:
		return 1
	default:
		return 0
	}
}
