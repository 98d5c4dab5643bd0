// Package query parses MongoDB-compatible filter objects into a typed
// operator-node tree (spec.md §4.2), evaluates it with BSON-order
// semantics, and lowers it into a closed-form predicate (spec.md §4.3).
package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vedmalex/collection-store-sub005/internal/bsonvalue"
	"github.com/vedmalex/collection-store-sub005/logging"
)

// Node is a parsed filter expression: it evaluates to a boolean against a
// whole document.
type Node interface {
	Evaluate(doc bson.M) bool
}

// FieldOp is a single-field operator: it evaluates against the resolved
// value of one field path.
type FieldOp interface {
	// Match reports whether the resolved field value (or, for
	// whole-value operators, the field itself) satisfies this operator.
	// doc is passed through for operators that need document-level
	// context ($where is handled separately, never as a FieldOp).
	Match(value any, doc bson.M) bool
	// Broadcast reports whether this operator should be applied
	// element-wise when the field resolves to an array (spec.md §4.2's
	// array-existential broadcasting rule). Operators in the exclusion
	// set ($all, $size, $elemMatch, $type, $exists, $in, $nin) return
	// false and handle arrays themselves.
	Broadcast() bool
}

// andNode is also used for the implicit top-level $and over field keys.
type andNode struct{ subs []Node }

func (n *andNode) Evaluate(doc bson.M) bool {
	for _, s := range n.subs {
		if !s.Evaluate(doc) {
			return false
		}
	}
	return true
}

type orNode struct{ subs []Node }

func (n *orNode) Evaluate(doc bson.M) bool {
	for _, s := range n.subs {
		if s.Evaluate(doc) {
			return true
		}
	}
	return false
}

type norNode struct{ subs []Node }

func (n *norNode) Evaluate(doc bson.M) bool {
	for _, s := range n.subs {
		if s.Evaluate(doc) {
			return false
		}
	}
	return true
}

type notNode struct{ sub Node }

func (n *notNode) Evaluate(doc bson.M) bool { return !n.sub.Evaluate(doc) }

type whereNode struct{ fn func(bson.M) bool }

func (n *whereNode) Evaluate(doc bson.M) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("query: $where evaluation failed", zap.Any("panic", r))
			result = false
		}
	}()
	return n.fn(doc)
}

// gateNode applies $where as a final gate over the rest of the predicate,
// per spec.md §4.3: "$where is evaluated exactly once per document, after
// the rest of the predicate returns true."
type gateNode struct {
	rest  Node
	where *whereNode
}

func (n *gateNode) Evaluate(doc bson.M) bool {
	if !n.rest.Evaluate(doc) {
		return false
	}
	return n.where.Evaluate(doc)
}

// fieldNode resolves a dotted path and applies a FieldOp, with array
// broadcasting.
type fieldNode struct {
	path string
	op   FieldOp
}

func (n *fieldNode) Evaluate(doc bson.M) bool {
	value := Get(doc, n.path)
	return evalFieldOp(n.op, value, doc)
}

// evalFieldOp applies array-existential broadcasting (spec.md §4.2) before
// delegating to the operator itself.
func evalFieldOp(op FieldOp, value any, doc bson.M) bool {
	if op.Broadcast() && bsonvalue.TagOf(value) == bsonvalue.TagArray {
		arr, _ := value.([]any)
		for _, elem := range arr {
			if op.Match(elem, doc) {
				return true
			}
		}
		return false
	}
	return op.Match(value, doc)
}
