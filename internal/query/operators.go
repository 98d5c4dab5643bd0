package query

import (
	"math/big"
	"regexp"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/text/unicode/norm"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
)

// ----------------------------- comparison -----------------------------

type eqOp struct{ value any }

func (o eqOp) Broadcast() bool { return true }
func (o eqOp) Match(v any, _ bson.M) bool {
	if _, ok := o.value.(bsonvalue.Undefined); ok {
		return IsUndefined(v)
	}
	return bsonvalue.DeepEqual(v, o.value)
}

type neOp struct{ value any }

func (o neOp) Broadcast() bool { return true }
func (o neOp) Match(v any, _ bson.M) bool {
	if _, ok := o.value.(bsonvalue.Undefined); ok {
		return !IsUndefined(v)
	}
	return !bsonvalue.DeepEqual(v, o.value)
}

type ordOp struct {
	value any
	want  map[bsonvalue.Ordering]bool
}

func (o ordOp) Broadcast() bool { return true }
func (o ordOp) Match(v any, _ bson.M) bool {
	c := bsonvalue.Compare(v, o.value)
	return o.want[c]
}

func gt(value any) FieldOp { return ordOp{value, map[bsonvalue.Ordering]bool{bsonvalue.Greater: true}} }
func gte(value any) FieldOp {
	return ordOp{value, map[bsonvalue.Ordering]bool{bsonvalue.Greater: true, bsonvalue.Equal: true}}
}
func lt(value any) FieldOp { return ordOp{value, map[bsonvalue.Ordering]bool{bsonvalue.Less: true}} }
func lte(value any) FieldOp {
	return ordOp{value, map[bsonvalue.Ordering]bool{bsonvalue.Less: true, bsonvalue.Equal: true}}
}

// ------------------------------- $in/$nin -------------------------------

type inOp struct{ values []any }

func (o inOp) Broadcast() bool { return false }
func (o inOp) Match(v any, _ bson.M) bool {
	return matchAnyOf(v, o.values)
}

// matchAnyOf implements spec.md §4.2's $in contract: "match if field
// equals any element (or, for $in with an array field, any element of the
// field matches any element of the query); RegExp elements match strings".
func matchAnyOf(v any, candidates []any) bool {
	for _, c := range candidates {
		if matchOne(v, c) {
			return true
		}
	}
	if bsonvalue.TagOf(v) == bsonvalue.TagArray {
		arr, _ := v.([]any)
		for _, elem := range arr {
			for _, c := range candidates {
				if matchOne(elem, c) {
					return true
				}
			}
		}
	}
	return false
}

func matchOne(v, candidate any) bool {
	if re, ok := candidate.(primitive.Regex); ok {
		s, ok := v.(string)
		if !ok {
			return false
		}
		return matchesRegex(re, s)
	}
	return bsonvalue.DeepEqual(v, candidate)
}

type ninOp struct{ values []any }

func (o ninOp) Broadcast() bool          { return false }
func (o ninOp) Match(v any, _ bson.M) bool { return !matchAnyOf(v, o.values) }

// ------------------------------- $exists -------------------------------

type existsOp struct{ want bool }

func (o existsOp) Broadcast() bool { return false }
func (o existsOp) Match(v any, _ bson.M) bool { return !IsUndefined(v) == o.want }

// -------------------------------- $type --------------------------------

type typeOp struct{ tags map[bsonvalue.Tag]bool }

func (o typeOp) Broadcast() bool { return false }
func (o typeOp) Match(v any, _ bson.M) bool { return o.tags[bsonvalue.TagOf(v)] }

func parseTypeTags(value any) (map[bsonvalue.Tag]bool, error) {
	items := asList(value)
	out := make(map[bsonvalue.Tag]bool, len(items))
	for _, item := range items {
		switch x := item.(type) {
		case string:
			tag, ok := bsonvalue.BSONTypeName[x]
			if !ok {
				return nil, errf("$type", "unknown BSON type name", x)
			}
			out[tag] = true
		default:
			f, ok := asFloat(item)
			if !ok {
				return nil, errf("$type", "invalid $type value", item)
			}
			tag, ok := bsonvalue.BSONTypeAlias[f]
			if !ok {
				return nil, errf("$type", "unknown BSON type alias", f)
			}
			out[tag] = true
		}
	}
	return out, nil
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// -------------------------------- $all ---------------------------------

type allOp struct{ values []any }

func (o allOp) Broadcast() bool { return false }
func (o allOp) Match(v any, _ bson.M) bool {
	if bsonvalue.TagOf(v) == bsonvalue.TagArray {
		arr, _ := v.([]any)
		for _, want := range o.values {
			found := false
			for _, have := range arr {
				if bsonvalue.DeepEqual(have, want) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	}
	// Non-array field matches only when the query has exactly one
	// element equal to the field (spec.md §4.2).
	return len(o.values) == 1 && bsonvalue.DeepEqual(v, o.values[0])
}

// -------------------------------- $size ---------------------------------

type sizeOp struct{ n int }

func (o sizeOp) Broadcast() bool { return false }
func (o sizeOp) Match(v any, _ bson.M) bool {
	if bsonvalue.TagOf(v) != bsonvalue.TagArray {
		return false
	}
	arr, _ := v.([]any)
	return len(arr) == o.n
}

// ------------------------------ $elemMatch -------------------------------

type elemMatchOp struct{ sub Node }

func (o elemMatchOp) Broadcast() bool { return false }
func (o elemMatchOp) Match(v any, _ bson.M) bool {
	if bsonvalue.TagOf(v) != bsonvalue.TagArray {
		return false
	}
	arr, _ := v.([]any)
	for _, elem := range arr {
		var doc bson.M
		if m, ok := elem.(bson.M); ok {
			doc = m
		} else if m, ok := elem.(map[string]any); ok {
			doc = bson.M(m)
		} else {
			// scalar elements: wrap so field-less operator expressions
			// (e.g. {$gt: 10}) can still be evaluated via a synthetic
			// single-field document.
			doc = bson.M{"": elem}
		}
		if o.sub.Evaluate(doc) {
			return true
		}
	}
	return false
}

// -------------------------------- $mod ----------------------------------

type modOp struct {
	divisor, remainder *big.Int
}

func (o modOp) Broadcast() bool { return true }
func (o modOp) Match(v any, _ bson.M) bool {
	n, ok := toBigInt(v)
	if !ok {
		return false
	}
	rem := new(big.Int).Rem(n, o.divisor)
	return rem.Cmp(o.remainder) == 0
}

func toBigInt(v any) (*big.Int, bool) {
	switch x := v.(type) {
	case int:
		return big.NewInt(int64(x)), true
	case int32:
		return big.NewInt(int64(x)), true
	case int64:
		return big.NewInt(x), true
	case *big.Int:
		return x, true
	case float64:
		if x == float64(int64(x)) {
			return big.NewInt(int64(x)), true
		}
	}
	return nil, false
}

// -------------------------------- $regex --------------------------------

const validRegexFlags = "gimsuy"

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	for _, f := range flags {
		if !strings.ContainsRune(validRegexFlags, f) {
			return nil, errf("$regex", "invalid flag", string(f))
		}
	}
	var goFlags string
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			goFlags += string(f)
		}
	}
	expr := pattern
	if goFlags != "" {
		expr = "(?" + goFlags + ")" + pattern
	}
	return regexp.Compile(expr)
}

type regexOp struct{ re *regexp.Regexp }

func (o regexOp) Broadcast() bool { return true }
func (o regexOp) Match(v any, _ bson.M) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	return o.re.MatchString(s)
}

func matchesRegex(re primitive.Regex, s string) bool {
	compiled, err := compileRegex(re.Pattern, re.Options)
	if err != nil {
		return false
	}
	return compiled.MatchString(s)
}

// -------------------------------- $where --------------------------------
// $where is not a FieldOp: it runs once over the whole document, handled
// by whereNode/gateNode in ast.go and parse.go.

// ------------------------------- bitwise --------------------------------

type bitsKind int

const (
	bitsAllSet bitsKind = iota
	bitsAnySet
	bitsAllClear
	bitsAnyClear
)

type bitsOp struct {
	kind bitsKind
	mask int64
}

func (o bitsOp) Broadcast() bool { return true }
func (o bitsOp) Match(v any, _ bson.M) bool {
	n, ok := toInt64(v)
	if !ok {
		return false
	}
	switch o.kind {
	case bitsAllSet:
		return n&o.mask == o.mask
	case bitsAnySet:
		return n&o.mask != 0
	case bitsAllClear:
		return (^n)&o.mask == o.mask
	case bitsAnyClear:
		return (^n)&o.mask != 0
	}
	return false
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case float64:
		if x == float64(int64(x)) {
			return int64(x), true
		}
	}
	return 0, false
}

func bitsMaskFromValue(value any) (int64, error) {
	switch x := value.(type) {
	case int, int32, int64, float64:
		n, _ := toInt64(x)
		if n < 0 {
			return 0, errf("$bits", "mask must be non-negative", value)
		}
		return n, nil
	default:
		items := asList(value)
		var mask int64
		for _, item := range items {
			pos, ok := toInt64(item)
			if !ok || pos < 0 {
				return 0, errf("$bits", "bit position must be a non-negative integer", item)
			}
			mask |= 1 << uint(pos)
		}
		return mask, nil
	}
}

// -------------------------------- $text ---------------------------------

type textOp struct {
	tokens            []string
	caseSensitive     bool
	diacriticSensitve bool
}

func (o textOp) Broadcast() bool { return false }
func (o textOp) Match(v any, _ bson.M) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	hay := normalizeText(s, o.caseSensitive, o.diacriticSensitve)
	for _, tok := range o.tokens {
		if !strings.Contains(hay, tok) {
			return false
		}
	}
	return true
}

func normalizeText(s string, caseSensitive, diacriticSensitive bool) string {
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	if !diacriticSensitive {
		decomposed := norm.NFD.String(s)
		var b strings.Builder
		b.Grow(len(decomposed))
		for _, r := range decomposed {
			if unicode.Is(unicode.Mn, r) {
				continue
			}
			b.WriteRune(r)
		}
		s = b.String()
	}
	return s
}

func tokenizeSearch(search string, caseSensitive, diacriticSensitive bool) []string {
	normalized := normalizeText(search, caseSensitive, diacriticSensitive)
	fields := strings.Fields(normalized)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f)
	}
	return out
}

// ------------------------------ combinators ------------------------------

// andFieldOp ANDs several operators applied to the same field, each with
// its own broadcast behavior (spec.md allows e.g. {age: {$gte:1,$lte:10}}).
type andFieldOp struct{ ops []FieldOp }

func (o andFieldOp) Broadcast() bool { return false }
func (o andFieldOp) Match(v any, doc bson.M) bool {
	for _, op := range o.ops {
		if !evalFieldOp(op, v, doc) {
			return false
		}
	}
	return true
}

// notFieldOp negates an inner operator, including its broadcast behavior,
// implementing field-level $not (spec.md §4.2: "$not takes a sub-operator
// expression or RegExp").
type notFieldOp struct{ inner FieldOp }

func (o notFieldOp) Broadcast() bool { return false }
func (o notFieldOp) Match(v any, doc bson.M) bool {
	return !evalFieldOp(o.inner, v, doc)
}

// ------------------------------- helpers --------------------------------

func asList(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case bson.A:
		return []any(x)
	case primitive.A:
		return []any(x)
	default:
		return nil
	}
}
