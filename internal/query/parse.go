package query

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Parse builds an evaluation tree from a MongoDB-compatible filter object,
// per the recursive grammar in spec.md §4.2.
func Parse(filter bson.M) (Node, error) {
	var subs []Node
	var where *whereNode

	for key, value := range filter {
		switch key {
		case "$where":
			w, err := parseWhere(value)
			if err != nil {
				return nil, err
			}
			where = w
		case "$and":
			n, err := parseLogicalArray(value, "$and", true)
			if err != nil {
				return nil, err
			}
			subs = append(subs, n)
		case "$or":
			n, err := parseLogicalArray(value, "$or", false)
			if err != nil {
				return nil, err
			}
			subs = append(subs, n)
		case "$nor":
			n, err := parseNor(value)
			if err != nil {
				return nil, err
			}
			subs = append(subs, n)
		case "$not":
			sub, ok := asFilterMap(value)
			if !ok {
				return nil, errf("$not", "expects an object", value)
			}
			inner, err := Parse(sub)
			if err != nil {
				return nil, err
			}
			subs = append(subs, &notNode{sub: inner})
		default:
			n, err := parseFieldExpr(key, value)
			if err != nil {
				return nil, err
			}
			subs = append(subs, n)
		}
	}

	var rest Node
	switch len(subs) {
	case 0:
		rest = trueNode{}
	case 1:
		rest = subs[0]
	default:
		rest = &andNode{subs: subs}
	}

	if where != nil {
		return &gateNode{rest: rest, where: where}, nil
	}
	return rest, nil
}

type trueNode struct{}

func (trueNode) Evaluate(bson.M) bool { return true }

func parseWhere(value any) (*whereNode, error) {
	switch fn := value.(type) {
	case string:
		// spec.md §9 open question: "implementations without dynamic
		// evaluation MUST reject string $where at parse time rather than
		// silently accept it."
		return nil, errf("$where", "string $where is not supported; pass a func(bson.M) bool", fn)
	case func(bson.M) bool:
		return &whereNode{fn: fn}, nil
	default:
		return nil, errf("$where", "unsupported $where value", value)
	}
}

func parseLogicalArray(value any, op string, vacuousTrue bool) (Node, error) {
	items, ok := asFilterList(value)
	if !ok {
		return nil, errf(op, "expects a non-empty array of filter objects", value)
	}
	if len(items) == 0 {
		if vacuousTrue {
			return trueNode{}, nil
		}
		return notTrueNode{}, nil
	}
	subs := make([]Node, 0, len(items))
	for _, item := range items {
		n, err := Parse(item)
		if err != nil {
			return nil, err
		}
		subs = append(subs, n)
	}
	if op == "$and" {
		return &andNode{subs: subs}, nil
	}
	return &orNode{subs: subs}, nil
}

type notTrueNode struct{}

func (notTrueNode) Evaluate(bson.M) bool { return false }

func parseNor(value any) (Node, error) {
	items, ok := asFilterList(value)
	if !ok {
		return nil, errf("$nor", "expects a non-empty array of filter objects", value)
	}
	if len(items) == 0 {
		return trueNode{}, nil
	}
	subs := make([]Node, 0, len(items))
	for _, item := range items {
		n, err := Parse(item)
		if err != nil {
			return nil, err
		}
		subs = append(subs, n)
	}
	return &norNode{subs: subs}, nil
}

func asFilterList(value any) ([]bson.M, bool) {
	items := asList(value)
	if items == nil {
		return nil, false
	}
	out := make([]bson.M, 0, len(items))
	for _, item := range items {
		m, ok := asFilterMap(item)
		if !ok {
			return nil, false
		}
		out = append(out, m)
	}
	return out, true
}

func asFilterMap(value any) (bson.M, bool) {
	switch x := value.(type) {
	case bson.M:
		return x, true
	case map[string]any:
		return bson.M(x), true
	case bson.D:
		m := bson.M{}
		for _, e := range x {
			m[e.Key] = e.Value
		}
		return m, true
	}
	return nil, false
}

// parseFieldExpr parses the value side of a single "field: value" entry,
// following spec.md §4.2's grammar: RegExp literal -> implicit $regex;
// non-object/array literal -> implicit $eq; object with operator keys ->
// operator node(s) ANDed together; otherwise the object is a literal
// sub-document equality match.
func parseFieldExpr(field string, value any) (Node, error) {
	switch v := value.(type) {
	case primitive.Regex:
		re, err := compileRegex(v.Pattern, v.Options)
		if err != nil {
			return nil, err
		}
		return &fieldNode{path: field, op: regexOp{re: re}}, nil
	case bson.M:
		return parseFieldMap(field, v)
	case map[string]any:
		return parseFieldMap(field, bson.M(v))
	default:
		return &fieldNode{path: field, op: eqOp{value: value}}, nil
	}
}

func parseFieldMap(field string, m bson.M) (Node, error) {
	if !isOperatorMap(m) {
		// literal sub-document equality
		return &fieldNode{path: field, op: eqOp{value: m}}, nil
	}

	var ops []FieldOp
	for key, value := range m {
		if key == "$options" {
			continue // consumed alongside $regex
		}
		op, err := buildOp(key, value, m)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if len(ops) == 1 {
		return &fieldNode{path: field, op: ops[0]}, nil
	}
	return &fieldNode{path: field, op: andFieldOp{ops: ops}}, nil
}

func isOperatorMap(m bson.M) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func buildOp(op string, value any, siblings bson.M) (FieldOp, error) {
	switch op {
	case "$eq":
		return eqOp{value: value}, nil
	case "$ne":
		return neOp{value: value}, nil
	case "$gt":
		return gt(value), nil
	case "$gte":
		return gte(value), nil
	case "$lt":
		return lt(value), nil
	case "$lte":
		return lte(value), nil
	case "$in":
		items := asList(value)
		if items == nil {
			return nil, errf("$in", "expects an array", value)
		}
		return inOp{values: items}, nil
	case "$nin":
		items := asList(value)
		if items == nil {
			return nil, errf("$nin", "expects an array", value)
		}
		return ninOp{values: items}, nil
	case "$exists":
		b, ok := value.(bool)
		if !ok {
			return nil, errf("$exists", "expects a bool", value)
		}
		return existsOp{want: b}, nil
	case "$type":
		tags, err := parseTypeTags(value)
		if err != nil {
			return nil, err
		}
		return typeOp{tags: tags}, nil
	case "$all":
		items := asList(value)
		if items == nil {
			return nil, errf("$all", "expects an array", value)
		}
		return allOp{values: items}, nil
	case "$size":
		n, ok := asFloat(value)
		if !ok {
			return nil, errf("$size", "expects an integer", value)
		}
		return sizeOp{n: int(n)}, nil
	case "$elemMatch":
		sub, ok := asFilterMap(value)
		if !ok {
			return nil, errf("$elemMatch", "expects an object", value)
		}
		// An operator-only sub-filter such as {$gt: 10} applies to scalar
		// elements, which elemMatchOp exposes under the empty field name.
		scalar := isOperatorMap(sub)
		for k := range sub {
			switch k {
			case "$and", "$or", "$nor", "$not", "$where":
				scalar = false
			}
		}
		var inner Node
		var err error
		if scalar {
			inner, err = parseFieldMap("", sub)
		} else {
			inner, err = Parse(sub)
		}
		if err != nil {
			return nil, err
		}
		return elemMatchOp{sub: inner}, nil
	case "$mod":
		items := asList(value)
		if len(items) != 2 {
			return nil, errf("$mod", "expects [divisor, remainder]", value)
		}
		d, ok1 := toBigInt(items[0])
		r, ok2 := toBigInt(items[1])
		if !ok1 || !ok2 {
			return nil, errf("$mod", "divisor and remainder must be integers", value)
		}
		if d.Sign() == 0 {
			return nil, errf("$mod", "divisor must not be zero", value)
		}
		return modOp{divisor: d, remainder: r}, nil
	case "$regex":
		pattern, options := "", ""
		switch x := value.(type) {
		case primitive.Regex:
			pattern, options = x.Pattern, x.Options
		case string:
			pattern = x
			if o, ok := siblings["$options"].(string); ok {
				options = o
			}
		default:
			return nil, errf("$regex", "unsupported $regex value", value)
		}
		re, err := compileRegex(pattern, options)
		if err != nil {
			return nil, err
		}
		return regexOp{re: re}, nil
	case "$not":
		return buildNotOp(value)
	case "$bitsAllSet":
		mask, err := bitsMaskFromValue(value)
		if err != nil {
			return nil, err
		}
		return bitsOp{kind: bitsAllSet, mask: mask}, nil
	case "$bitsAnySet":
		mask, err := bitsMaskFromValue(value)
		if err != nil {
			return nil, err
		}
		return bitsOp{kind: bitsAnySet, mask: mask}, nil
	case "$bitsAllClear":
		mask, err := bitsMaskFromValue(value)
		if err != nil {
			return nil, err
		}
		return bitsOp{kind: bitsAllClear, mask: mask}, nil
	case "$bitsAnyClear":
		mask, err := bitsMaskFromValue(value)
		if err != nil {
			return nil, err
		}
		return bitsOp{kind: bitsAnyClear, mask: mask}, nil
	case "$text":
		spec, ok := asFilterMap(value)
		if !ok {
			return nil, errf("$text", "expects an object", value)
		}
		search, _ := spec["$search"].(string)
		caseSensitive, _ := spec["$caseSensitive"].(bool)
		diacriticSensitive, _ := spec["$diacriticSensitive"].(bool)
		tokens := tokenizeSearch(search, caseSensitive, diacriticSensitive)
		return textOp{tokens: tokens, caseSensitive: caseSensitive, diacriticSensitve: diacriticSensitive}, nil
	default:
		return nil, errf(op, "unknown operator", value)
	}
}

func buildNotOp(value any) (FieldOp, error) {
	switch x := value.(type) {
	case primitive.Regex:
		re, err := compileRegex(x.Pattern, x.Options)
		if err != nil {
			return nil, err
		}
		return notFieldOp{inner: regexOp{re: re}}, nil
	case bson.M, map[string]any:
		m, _ := asFilterMap(x)
		var ops []FieldOp
		for k, v := range m {
			if k == "$options" {
				continue
			}
			op, err := buildOp(k, v, m)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
		if len(ops) == 1 {
			return notFieldOp{inner: ops[0]}, nil
		}
		return notFieldOp{inner: andFieldOp{ops: ops}}, nil
	default:
		return nil, errf("$not", "expects a sub-operator expression or RegExp", value)
	}
}
