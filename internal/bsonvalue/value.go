// Package bsonvalue implements BSON-style type tagging, total ordering and
// deep equality over the loosely-typed document values that flow through
// the collection, query and schema engines.
package bsonvalue

import (
	"math"
	"math/big"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tag identifies the logical BSON type of a value, independent of its Go
// runtime representation.
type Tag int

const (
	TagNull Tag = iota
	TagUndefined
	TagInt
	TagDouble
	TagLong
	TagString
	TagObject
	TagArray
	TagBinary
	TagObjectID
	TagBool
	TagDate
	TagRegex
)

// family groups numeric/comparable tags that sort together under the BSON
// type order (spec §3: "null < number-family < string < object < array <
// binary < objectId < bool < date < regex").
func family(t Tag) int {
	switch t {
	case TagNull:
		return 0
	case TagUndefined:
		return 0
	case TagInt, TagDouble, TagLong:
		return 1
	case TagString:
		return 2
	case TagObject:
		return 3
	case TagArray:
		return 4
	case TagBinary:
		return 5
	case TagObjectID:
		return 6
	case TagBool:
		return 7
	case TagDate:
		return 8
	case TagRegex:
		return 9
	}
	return -1
}

// TagOf classifies a runtime value into its BSON tag.
func TagOf(v any) Tag {
	switch x := v.(type) {
	case nil:
		return TagNull
	case Undefined:
		return TagUndefined
	case bool:
		return TagBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TagInt
	case float32, float64:
		return TagDouble
	case *big.Int:
		return TagLong
	case string:
		return TagString
	case time.Time:
		return TagDate
	case primitive.DateTime:
		return TagDate
	case primitive.ObjectID:
		return TagObjectID
	case primitive.Regex:
		return TagRegex
	case primitive.Binary:
		return TagBinary
	case []byte:
		return TagBinary
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			return TagArray
		case reflect.Map, reflect.Struct:
			return TagObject
		case reflect.Ptr:
			if rv.IsNil() {
				return TagNull
			}
			return TagOf(rv.Elem().Interface())
		}
	}
	return TagUndefined
}

// Undefined is a distinguishable sentinel used internally by the query
// engine to represent "field absent", separate from an explicit null.
type Undefined struct{}

// Ordering is the result of comparing two values.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Incomparable
	Greater
)

// asFloat promotes an int/double/long-family value to float64 for ordering
// purposes. ok is false for non-numeric inputs.
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
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case *big.Int:
		f := new(big.Float).SetInt(x)
		r, _ := f.Float64()
		return r, true
	}
	return 0, false
}

// Compare implements the total BSON ordering from spec.md §3/§4.1.
//
// Undefined operands (spec.md's "any operand is undefined") are
// Incomparable, except undefined-vs-undefined which is Equal (used
// internally by the comparison operators to decide on missing fields).
func Compare(a, b any) Ordering {
	_, aUndef := a.(Undefined)
	_, bUndef := b.(Undefined)
	if aUndef || bUndef {
		if aUndef && bUndef {
			return Equal
		}
		return Incomparable
	}

	ta, tb := TagOf(a), TagOf(b)
	if family(ta) != family(tb) {
		if family(ta) < family(tb) {
			return Less
		}
		return Greater
	}

	switch family(ta) {
	case 0: // null
		return Equal
	case 1: // numeric family
		fa, _ := asFloat(a)
		fb, _ := asFloat(b)
		if math.IsNaN(fa) || math.IsNaN(fb) {
			if math.IsNaN(fa) && math.IsNaN(fb) {
				return Equal
			}
			if math.IsNaN(fa) {
				return Less
			}
			return Greater
		}
		switch {
		case fa < fb:
			return Less
		case fa > fb:
			return Greater
		default:
			return Equal
		}
	case 2: // string
		sa, sb := a.(string), b.(string)
		switch {
		case sa < sb:
			return Less
		case sa > sb:
			return Greater
		default:
			return Equal
		}
	case 3: // object: equal for ordering purposes, not for equality
		return Equal
	case 4: // array: element-wise, shorter prefix first on tie
		return compareArrays(a, b)
	case 5: // binary
		ba := toBytes(a)
		bb := toBytes(b)
		return compareBytes(ba, bb)
	case 6: // objectId
		oa, _ := a.(primitive.ObjectID)
		ob, _ := b.(primitive.ObjectID)
		return compareBytes(oa[:], ob[:])
	case 7: // bool: false < true
		ba, bb := a.(bool), b.(bool)
		if ba == bb {
			return Equal
		}
		if !ba {
			return Less
		}
		return Greater
	case 8: // date
		da := toTime(a)
		db := toTime(b)
		switch {
		case da.Before(db):
			return Less
		case da.After(db):
			return Greater
		default:
			return Equal
		}
	case 9: // regex: compare by source then flags
		ra, _ := a.(primitive.Regex)
		rb, _ := b.(primitive.Regex)
		if ra.Pattern != rb.Pattern {
			if ra.Pattern < rb.Pattern {
				return Less
			}
			return Greater
		}
		if ra.Options == rb.Options {
			return Equal
		}
		if ra.Options < rb.Options {
			return Less
		}
		return Greater
	}
	return Incomparable
}

func toBytes(v any) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case primitive.Binary:
		return x.Data
	}
	return nil
}

func compareBytes(a, b []byte) Ordering {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return Less
			}
			return Greater
		}
	}
	switch {
	case len(a) < len(b):
		return Less
	case len(a) > len(b):
		return Greater
	default:
		return Equal
	}
}

func toTime(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case primitive.DateTime:
		return x.Time()
	}
	return time.Time{}
}

func toSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func compareArrays(a, b any) Ordering {
	sa, sb := toSlice(a), toSlice(b)
	n := len(sa)
	if len(sb) < n {
		n = len(sb)
	}
	for i := 0; i < n; i++ {
		if c := Compare(sa[i], sb[i]); c != Equal {
			return c
		}
	}
	switch {
	case len(sa) < len(sb):
		return Less
	case len(sa) > len(sb):
		return Greater
	default:
		return Equal
	}
}

// DeepEqual reports structural equality between two values.
//
// Two independently-constructed BSON objects (maps) or arrays (slices) ARE
// compared structurally here — see DESIGN.md's "Object-vs-object $eq" open
// question decision. Dates compare by instant, regexes by (source, flags).
func DeepEqual(a, b any) bool {
	ta, tb := TagOf(a), TagOf(b)
	if ta != tb {
		// int/double/long are cross-comparable for deep equality purposes,
		// matching MongoDB's "numbers of different subtype but equal value
		// are equal" semantics.
		if family(ta) == 1 && family(tb) == 1 {
			fa, _ := asFloat(a)
			fb, _ := asFloat(b)
			return fa == fb
		}
		return false
	}
	switch ta {
	case TagNull, TagUndefined:
		return true
	case TagDate:
		return toTime(a).Equal(toTime(b))
	case TagRegex:
		ra, _ := a.(primitive.Regex)
		rb, _ := b.(primitive.Regex)
		return ra.Pattern == rb.Pattern && ra.Options == rb.Options
	case TagBinary:
		return compareBytes(toBytes(a), toBytes(b)) == Equal
	case TagArray:
		sa, sb := toSlice(a), toSlice(b)
		if len(sa) != len(sb) {
			return false
		}
		for i := range sa {
			if !DeepEqual(sa[i], sb[i]) {
				return false
			}
		}
		return true
	case TagObject:
		ma, oka := toMap(a)
		mb, okb := toMap(b)
		if !oka || !okb {
			return reflect.DeepEqual(a, b)
		}
		if len(ma) != len(mb) {
			return false
		}
		for k, va := range ma {
			vb, ok := mb[k]
			if !ok || !DeepEqual(va, vb) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

func toMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	for _, k := range rv.MapKeys() {
		out[k.String()] = rv.MapIndex(k).Interface()
	}
	return out, true
}

// BSONTypeAlias maps the numeric BSON type aliases (spec.md §4.2's
// "$type accepts... BSON type number aliases 1..18") to Tag.
var BSONTypeAlias = map[float64]Tag{
	1:  TagDouble,
	2:  TagString,
	3:  TagObject,
	4:  TagArray,
	5:  TagBinary,
	6:  TagUndefined,
	7:  TagObjectID,
	8:  TagBool,
	9:  TagDate,
	10: TagNull,
	11: TagRegex,
	16: TagInt,
	18: TagLong,
}

// BSONTypeName maps the MongoDB string type-alias names to Tag.
var BSONTypeName = map[string]Tag{
	"double":    TagDouble,
	"string":    TagString,
	"object":    TagObject,
	"array":     TagArray,
	"binData":   TagBinary,
	"undefined": TagUndefined,
	"objectId":  TagObjectID,
	"bool":      TagBool,
	"date":      TagDate,
	"null":      TagNull,
	"regex":     TagRegex,
	"int":       TagInt,
	"long":      TagLong,
}
