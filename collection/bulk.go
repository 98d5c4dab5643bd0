package collection

import (
	"bytes"

	"go.mongodb.org/mongo-driver/bson"
)

type bulkOpKind int

const (
	bulkInsert bulkOpKind = iota
	bulkUpdateOne
	bulkUpdateAll
	bulkUpsertOne
	bulkRemoveOne
	bulkRemoveAll
)

type bulkOp struct {
	kind     bulkOpKind
	doc      bson.M
	selector bson.M
	update   bson.M
}

// Bulk queues a batch of writes against a Collection for a single Run call,
// mirroring the teacher's ModernBulk queue-then-execute shape
// (modern_bulk.go).
type Bulk struct {
	coll    *Collection
	ordered bool
	ops     []bulkOp
}

// Bulk returns a new Bulk queued against this collection, ordered by
// default (mgo API compatible).
func (c *Collection) Bulk() *Bulk { return &Bulk{coll: c, ordered: true} }

// Unordered puts the bulk operation in unordered mode: a failed operation
// does not stop the remaining ones from running.
func (b *Bulk) Unordered() { b.ordered = false }

// Insert queues documents for insertion.
func (b *Bulk) Insert(docs ...bson.M) {
	for _, d := range docs {
		b.ops = append(b.ops, bulkOp{kind: bulkInsert, doc: d})
	}
}

// Update queues pairs of (selector, update); each pair updates at most one
// matching document.
func (b *Bulk) Update(pairs ...bson.M) {
	for i := 0; i+1 < len(pairs); i += 2 {
		b.ops = append(b.ops, bulkOp{kind: bulkUpdateOne, selector: pairs[i], update: pairs[i+1]})
	}
}

// UpdateAll queues pairs of (selector, update); each pair updates every
// matching document.
func (b *Bulk) UpdateAll(pairs ...bson.M) {
	for i := 0; i+1 < len(pairs); i += 2 {
		b.ops = append(b.ops, bulkOp{kind: bulkUpdateAll, selector: pairs[i], update: pairs[i+1]})
	}
}

// Upsert queues pairs of (selector, update); each pair upserts at most one
// document.
func (b *Bulk) Upsert(pairs ...bson.M) {
	for i := 0; i+1 < len(pairs); i += 2 {
		b.ops = append(b.ops, bulkOp{kind: bulkUpsertOne, selector: pairs[i], update: pairs[i+1]})
	}
}

// Remove queues selectors; each removes at most one matching document.
func (b *Bulk) Remove(selectors ...bson.M) {
	for _, s := range selectors {
		b.ops = append(b.ops, bulkOp{kind: bulkRemoveOne, selector: s})
	}
}

// RemoveAll queues selectors; each removes every matching document.
func (b *Bulk) RemoveAll(selectors ...bson.M) {
	for _, s := range selectors {
		b.ops = append(b.ops, bulkOp{kind: bulkRemoveAll, selector: s})
	}
}

// Run executes every queued operation against the collection, in order.
// In ordered mode the first failing operation stops the batch; in
// unordered mode every operation runs regardless of earlier failures and
// every failure is collected into the returned BulkError.
func (b *Bulk) Run() (*BulkResult, error) {
	result := &BulkResult{}
	var cases []BulkErrorCase

	for i, op := range b.ops {
		if err := b.runOne(op, result); err != nil {
			cases = append(cases, BulkErrorCase{Index: i, Err: err})
			if b.ordered {
				break
			}
		}
	}

	if len(cases) > 0 {
		return result, &BulkError{ecases: cases}
	}
	return result, nil
}

func (b *Bulk) runOne(op bulkOp, result *BulkResult) error {
	switch op.kind {
	case bulkInsert:
		if _, err := b.coll.Create(op.doc); err != nil {
			return err
		}
		result.Matched++
		result.Modified++
	case bulkUpdateOne:
		if _, err := b.coll.UpdateFirst(op.selector, op.update, true); err != nil {
			return err
		}
		result.Matched++
		result.Modified++
	case bulkUpdateAll:
		docs, err := b.coll.Update(op.selector, op.update, true)
		if err != nil {
			return err
		}
		result.Matched += len(docs)
		result.Modified += len(docs)
	case bulkUpsertOne:
		_, info, err := b.coll.Apply(op.selector, Change{Update: op.update, Merge: true, Upsert: true, ReturnNew: true})
		if err != nil {
			return err
		}
		result.Matched += info.Matched
		result.Modified += info.Updated
	case bulkRemoveOne:
		if _, err := b.coll.RemoveFirst(op.selector); err != nil {
			return err
		}
		result.Matched++
	case bulkRemoveAll:
		n, err := b.coll.Remove(op.selector)
		if err != nil {
			return err
		}
		result.Matched += n
	}
	return nil
}

// BulkResult reports the aggregate outcome of a Bulk.Run, matching the
// teacher's legacy_types.go BulkResult shape.
type BulkResult struct {
	Matched  int
	Modified int
}

// BulkErrorCase stores the error and the index (position) within a bulk
// operation that generated it (legacy_types.go).
type BulkErrorCase struct {
	Index int
	Err   error
}

// BulkError aggregates one or more BulkErrorCase instances.
type BulkError struct {
	ecases []BulkErrorCase
}

func (e *BulkError) Error() string {
	if len(e.ecases) == 0 {
		return "invalid BulkError instance: no errors"
	}
	if len(e.ecases) == 1 {
		return e.ecases[0].Err.Error()
	}
	var buf bytes.Buffer
	buf.WriteString("multiple errors in bulk operation:\n")
	seen := make(map[string]bool, len(e.ecases))
	for _, c := range e.ecases {
		msg := c.Err.Error()
		if !seen[msg] {
			seen[msg] = true
			buf.WriteString("  - ")
			buf.WriteString(msg)
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// Cases exposes the individual error cases contained in the BulkError.
func (e *BulkError) Cases() []BulkErrorCase { return e.ecases }
