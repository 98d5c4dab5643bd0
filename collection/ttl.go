package collection

// evictExpiredLocked scans every stored document in insertion order for a
// TTL timestamp older than now-ttl and removes those documents, persisting afterwards when anything was evicted (spec.md
// §4.5: "after any read of already-stored documents, expired entries are
// lazily evicted"). Callers must already hold c.mu.
func (c *Collection) evictExpiredLocked() {
	if c.cfg.TTL == nil {
		return
	}
	cutoff := nowMillis() - c.cfg.TTL.Milliseconds()

	var expired []string
	for _, ref := range c.order {
		stored, ok := c.docs[ref]
		if !ok {
			continue
		}
		data := c.dataOf(stored)
		ts, ok := data[ttlFieldName].(int64)
		if !ok || ts >= cutoff {
			continue
		}
		expired = append(expired, ref)
	}
	if len(expired) == 0 {
		return
	}
	for _, ref := range expired {
		_ = c.removeRef(ref)
	}
	if c.cfg.Adapter != nil {
		if err := c.cfg.Adapter.Store(c.cfg.Name); err != nil {
			logError("ttl-evict-persist", err)
		}
	}
}
