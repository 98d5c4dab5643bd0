package collection

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/internal/query"
)

// Change describes a findAndModify-style mutation, mirroring the teacher's
// mgo.Change (legacy_types.go): Update is applied via merge when set,
// Remove deletes the match, Upsert inserts when no document matches, and
// ReturnNew selects whether the pre- or post-mutation document is returned.
type Change struct {
	Update    bson.M
	Merge     bool
	Remove    bool
	Upsert    bool
	ReturnNew bool
}

// ChangeInfo reports how many documents an Apply/Update/Remove affected,
// matching the teacher's legacy_types.go ChangeInfo shape.
type ChangeInfo struct {
	Updated    int
	Removed    int
	Matched    int
	UpsertedId any
}

// Apply performs a findAndModify-equivalent operation: the first document
// matching filter is removed or updated in place; on Upsert with no match,
// a new document is created from filter merged with change.Update.
func (c *Collection) Apply(filter bson.M, change Change) (bson.M, *ChangeInfo, error) {
	pred, err := query.Compile(filter)
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()

	var matchRef string
	found := false
	for _, ref := range c.order {
		stored, ok := c.docs[ref]
		if !ok {
			continue
		}
		if pred(c.dataOf(stored)) {
			matchRef, found = ref, true
			break
		}
	}

	info := &ChangeInfo{}
	if !found {
		if !change.Upsert {
			return nil, info, nil
		}
		seed := deepMerge(cloneDoc(filter), change.Update)
		created, err := c.create(seed)
		if err != nil {
			return nil, nil, err
		}
		info.UpsertedId = created[c.cfg.IDField]
		info.Matched = 1
		return created, info, nil
	}

	info.Matched = 1
	before := cloneDoc(c.dataOf(c.docs[matchRef]))

	if change.Remove {
		if err := c.removeRef(matchRef); err != nil {
			return nil, nil, err
		}
		info.Removed = 1
		return before, info, nil
	}

	after, err := c.updateRef(matchRef, change.Update, change.Merge)
	if err != nil {
		return nil, nil, err
	}
	info.Updated = 1

	if change.ReturnNew {
		return after, info, nil
	}
	return before, info, nil
}
