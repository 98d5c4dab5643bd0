// Package persistence provides the byte-oriented file I/O contract the
// storage adapters build on (spec.md §1: "JSON file I/O details consumed
// through a byte-oriented persistence interface").
package persistence

// ByteStore is the minimal file-system contract a storage adapter needs:
// read, write, list, and remove named byte blobs under some root. It exists
// so storage/file.go never touches os/io directly.
type ByteStore interface {
	// ReadFile returns the contents of path. ok is false when the file does
	// not exist; err is reserved for genuine I/O failures.
	ReadFile(path string) (data []byte, ok bool, err error)

	// WriteFile writes data to path, creating or truncating it, and
	// creating any missing parent directories.
	WriteFile(path string, data []byte) error

	// MkdirAll ensures path exists as a directory.
	MkdirAll(path string) error

	// Remove deletes path. Removing a non-existent path is not an error.
	Remove(path string) error

	// List returns the base names of entries directly under dir (not
	// recursive). Returns an empty slice, not an error, for a missing dir.
	List(dir string) ([]string, error)
}
