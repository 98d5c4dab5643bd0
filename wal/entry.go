// Package wal implements the append-only, strictly sequenced write-ahead
// log of spec.md §4.7: PREPARE/DATA/COMMIT/ROLLBACK markers, checksummed
// with SHA-256 over each entry's remaining fields.
package wal

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Type is the WAL marker kind.
type Type string

const (
	Prepare  Type = "PREPARE"
	DataType Type = "DATA"
	Commit   Type = "COMMIT"
	Rollback Type = "ROLLBACK"
)

// Operation names the collection-level mutation an entry records.
type Operation string

const (
	OpStore  Operation = "STORE"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
	OpCommit Operation = "COMMIT"
)

// Entry is one WAL record (spec.md §4.7/§6).
type Entry struct {
	TransactionID  string    `bson:"transactionId"`
	SequenceNumber int64     `bson:"sequenceNumber"`
	Timestamp      time.Time `bson:"timestamp"`
	Type           Type      `bson:"type"`
	CollectionName string    `bson:"collectionName"`
	Operation      Operation `bson:"operation"`
	Data           bson.M    `bson:"data,omitempty"`
	Checksum       string    `bson:"checksum"`
}

// checksumFields is the field-ordered shape hashed to produce Checksum,
// matching spec.md §6: "SHA-256 of the remaining fields serialized
// canonically" (i.e. every field except Checksum itself).
type checksumFields struct {
	TransactionID  string    `bson:"transactionId"`
	SequenceNumber int64     `bson:"sequenceNumber"`
	Timestamp      time.Time `bson:"timestamp"`
	Type           Type      `bson:"type"`
	CollectionName string    `bson:"collectionName"`
	Operation      Operation `bson:"operation"`
	Data           bson.M    `bson:"data,omitempty"`
}

func computeChecksum(e Entry) (string, error) {
	canonical, err := bson.Marshal(checksumFields{
		TransactionID:  e.TransactionID,
		SequenceNumber: e.SequenceNumber,
		Timestamp:      e.Timestamp,
		Type:           e.Type,
		CollectionName: e.CollectionName,
		Operation:      e.Operation,
		Data:           e.Data,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Verify recomputes e's checksum and reports whether it still matches,
// detecting tampering or truncated writes (spec.md §7 "Corrupt" storage
// errors apply analogously to a WAL entry failing this check).
func Verify(e Entry) bool {
	sum, err := computeChecksum(e)
	if err != nil {
		return false
	}
	return sum == e.Checksum
}
