package query

import "fmt"

// Error is the typed structural-query-error contract from spec.md §6:
// QueryError{operator, message, value}. Structural errors (bad $mod
// divisor, invalid $type, non-array $and, invalid regex flags, a string
// $where) are raised at parse time and propagate to the caller verbatim.
type Error struct {
	Operator string
	Message  string
	Value    any
}

func (e *Error) Error() string {
	return fmt.Sprintf("query: %s: %s (value=%v)", e.Operator, e.Message, e.Value)
}

func errf(op, msg string, value any) error {
	return &Error{Operator: op, Message: msg, Value: value}
}
