package section

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation names a section id that is not
// present in the store.
var ErrNotFound = errors.New("section not found")

// IntegrityError reports a structural violation in the tree: an unknown
// parent reference, a cycle, or inconsistent sibling ordering. Operations
// that detect one abort before mutating the store.
type IntegrityError struct {
	Op     string
	ID     string
	Reason string
}

func (e *IntegrityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: section %s: %s", e.Op, e.ID, e.Reason)
}

func integrityError(op, id, reason string) *IntegrityError {
	return &IntegrityError{Op: op, ID: id, Reason: reason}
}
