package query

import "go.mongodb.org/mongo-driver/bson"

// Predicate is a closed-form, allocation-free-per-call filter predicate
// produced by Compile. It evaluates to the same boolean as the
// interpreted Node tree on every document (spec.md §4.3, testable
// property 1 in §8).
type Predicate func(doc bson.M) bool

// Compiled is the result of compiling a filter (spec.md §4.3's
// "compile(filter) -> { predicate, code?, error? }").
type Compiled struct {
	Predicate Predicate
	Error     error
}

// Compile parses filter and lowers it into a single closure tree, so that
// repeated evaluation (e.g. across a whole collection scan) does not walk
// interface-dispatched Node/FieldOp values per document: every regex,
// literal array, and type-tag set referenced by the filter is resolved
// once here and closed over by the returned Predicate.
//
// If parsing fails, Compile returns the structural error verbatim (spec.md
// §4.3: "invalid flags fail compilation") so callers can choose to
// fall back to the interpreter only for optimizer-side issues, never to
// mask a malformed filter.
func Compile(filter bson.M) (Predicate, error) {
	node, err := Parse(filter)
	if err != nil {
		return nil, err
	}
	return compileNode(node), nil
}

// compileNode lowers a Node into a closure, flattening the common
// combinators (and/or/nor/not/gate) directly into Go closures instead of
// leaving them as one more layer of interface dispatch per document.
func compileNode(n Node) Predicate {
	switch x := n.(type) {
	case trueNode:
		return func(bson.M) bool { return true }
	case notTrueNode:
		return func(bson.M) bool { return false }
	case *andNode:
		preds := compileAll(x.subs)
		return func(doc bson.M) bool {
			for _, p := range preds {
				if !p(doc) {
					return false
				}
			}
			return true
		}
	case *orNode:
		preds := compileAll(x.subs)
		return func(doc bson.M) bool {
			for _, p := range preds {
				if p(doc) {
					return true
				}
			}
			return false
		}
	case *norNode:
		preds := compileAll(x.subs)
		return func(doc bson.M) bool {
			for _, p := range preds {
				if p(doc) {
					return false
				}
			}
			return true
		}
	case *notNode:
		sub := compileNode(x.sub)
		return func(doc bson.M) bool { return !sub(doc) }
	case *gateNode:
		rest := compileNode(x.rest)
		where := x.where
		return func(doc bson.M) bool {
			if !rest(doc) {
				return false
			}
			return where.Evaluate(doc)
		}
	case *fieldNode:
		path := x.path
		op := x.op
		return func(doc bson.M) bool {
			value := Get(doc, path)
			return evalFieldOp(op, value, doc)
		}
	default:
		// Fallback for any Node type not specially flattened above: still
		// correct, just one extra interface dispatch.
		return n.Evaluate
	}
}

func compileAll(nodes []Node) []Predicate {
	out := make([]Predicate, len(nodes))
	for i, n := range nodes {
		out[i] = compileNode(n)
	}
	return out
}
