package collection

import "fmt"

// NotFoundError is returned when a by-id lookup/mutation targets a document
// that does not exist.
type NotFoundError struct {
	ID any
}

func (e *NotFoundError) Error() string {
	if e.ID == nil {
		return "collection: document not found"
	}
	return fmt.Sprintf("collection: document not found: %v", e.ID)
}
