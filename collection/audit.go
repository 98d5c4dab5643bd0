package collection

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vedmalex/collection-store-sub005/wal"
)

func nowMillis() int64 { return time.Now().UnixMilli() }

// wrapForStore builds the record actually kept in c.docs for ref: the raw
// processed document, or — when auditing is enabled — an envelope
// {id, data, version, next_version, created, updated?, history?}. Each
// history entry is a full copy of an earlier version ({version, data, at}),
// not a delta; the envelope carries no deleted or schema field.
func (c *Collection) wrapForStore(ref string, processed bson.M, previous bson.M) bson.M {
	if !c.cfg.Audit {
		return processed
	}

	now := nowMillis()
	if previous == nil {
		return bson.M{
			"id":           processed[c.cfg.IDField],
			"data":         processed,
			"version":      1,
			"next_version": 2,
			"created":      now,
		}
	}

	version, _ := previous["version"].(int)
	history, _ := previous["history"].([]any)
	snapshot := bson.M{
		"version": version,
		"data":    previous["data"],
		"at":      previous["updated"],
	}
	if snapshot["at"] == nil {
		snapshot["at"] = previous["created"]
	}
	history = append(history, snapshot)

	return bson.M{
		"id":           processed[c.cfg.IDField],
		"data":         processed,
		"version":      version + 1,
		"next_version": version + 2,
		"created":      previous["created"],
		"updated":      now,
		"history":      history,
	}
}

// History returns the recorded versions for the document identified by id,
// oldest first, followed by the current version. Empty when auditing is
// disabled or the id is unknown.
func (c *Collection) History(id any) []bson.M {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.cfg.Audit {
		return nil
	}
	stored, ok := c.docs[toRef(id)]
	if !ok {
		return nil
	}
	var out []bson.M
	if history, ok := stored["history"].([]any); ok {
		for _, h := range history {
			if m, ok := h.(bson.M); ok {
				out = append(out, m)
			}
		}
	}
	if data, ok := stored["data"].(bson.M); ok {
		out = append(out, bson.M{"version": stored["version"], "data": data})
	}
	return out
}

func (c *Collection) appendWAL(op wal.Operation, ref string, data bson.M) {
	if c.cfg.WAL == nil {
		return
	}
	if _, err := c.cfg.WAL.Append("", wal.DataType, c.cfg.Name, op, data); err != nil {
		logError("wal-append:"+ref, err)
	}
}
