package wal

import (
	"bufio"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/vedmalex/collection-store-sub005/logging"
)

// Manager appends strictly sequenced WAL entries and assigns their sequence
// numbers, per spec.md §4.7. Entries are kept in memory for recovery/replay
// and, when w is non-nil, additionally persisted as newline-delimited
// ExtJSON so an external tailer/cron-driven rotator (spec.md §1's "cron
// scheduling for log rotation... consumed as a ticking source") can observe
// them without depending on this package's in-memory state.
type Manager struct {
	mu      sync.Mutex
	w       io.Writer
	entries []Entry
	seq     int64
}

// NewManager constructs a Manager. w may be nil for an in-memory-only log
// (e.g. a MemoryAdapter-backed collection in tests).
func NewManager(w io.Writer) *Manager {
	return &Manager{w: w}
}

// Append assigns the next sequence number and checksum to a new entry and
// records it.
func (m *Manager) Append(txID string, typ Type, collection string, op Operation, data bson.M) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	entry := Entry{
		TransactionID:  txID,
		SequenceNumber: m.seq,
		Timestamp:      time.Now(),
		Type:           typ,
		CollectionName: collection,
		Operation:      op,
		Data:           data,
	}
	checksum, err := computeChecksum(entry)
	if err != nil {
		return Entry{}, err
	}
	entry.Checksum = checksum
	m.entries = append(m.entries, entry)

	if m.w != nil {
		line, err := bson.MarshalExtJSON(entry, false, false)
		if err != nil {
			logging.Error("wal: failed to encode entry", zap.String("transactionId", txID))
			return entry, err
		}
		if _, err := m.w.Write(append(line, '\n')); err != nil {
			logging.Error("wal: failed to persist entry", zap.String("transactionId", txID))
			return entry, err
		}
	}
	return entry, nil
}

// Entries returns a copy of every entry recorded so far, in append order.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// EntriesFor returns every entry recorded for txID, in append order.
func (m *Manager) EntriesFor(txID string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.TransactionID == txID {
			out = append(out, e)
		}
	}
	return out
}

// Recover replays newline-delimited ExtJSON entries from r into a fresh
// Manager, restoring the sequence counter so subsequent Append calls
// continue from the highest observed sequence number (spec.md §7: "recovery
// sees an in-progress transaction and rolls it back" relies on being able
// to replay the log first).
func Recover(r io.Reader) (*Manager, error) {
	m := NewManager(nil)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := bson.UnmarshalExtJSON(scanner.Bytes(), false, &entry); err != nil {
			return nil, err
		}
		m.entries = append(m.entries, entry)
		if entry.SequenceNumber > m.seq {
			m.seq = entry.SequenceNumber
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// PendingTransactions returns the ids of transactions whose last entry is a
// PREPARE or DATA marker with no following COMMIT/ROLLBACK — in-progress
// transactions that recovery must roll back (spec.md §7).
func (m *Manager) PendingTransactions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := make(map[string]Type)
	order := make([]string, 0)
	for _, e := range m.entries {
		if _, seen := state[e.TransactionID]; !seen {
			order = append(order, e.TransactionID)
		}
		state[e.TransactionID] = e.Type
	}
	var pending []string
	for _, txID := range order {
		if t := state[txID]; t == Prepare || t == DataType {
			pending = append(pending, txID)
		}
	}
	return pending
}
