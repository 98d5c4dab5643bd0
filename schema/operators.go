package schema

import "github.com/vedmalex/collection-store-sub005/internal/bsonvalue"

// CompatibleOperator restricts which query operators may apply to which
// BSON type, per spec.md §4.8 ("bitwise only on numeric, $regex only on
// strings, $size only on arrays").
func CompatibleOperator(tag bsonvalue.Tag, op string) bool {
	switch op {
	case "$bitsAllSet", "$bitsAnySet", "$bitsAllClear", "$bitsAnyClear", "$mod":
		return isNumericTag(tag)
	case "$regex", "$text":
		return tag == bsonvalue.TagString
	case "$size", "$all", "$elemMatch":
		return tag == bsonvalue.TagArray || tag == bsonvalue.TagUndefined
	case "$gt", "$gte", "$lt", "$lte":
		return true // ordering is defined across every tag (Incomparable degrades to false)
	case "$eq", "$ne", "$in", "$nin", "$exists", "$type", "$not", "$and", "$or", "$nor", "$where":
		return true
	default:
		return true
	}
}
