package types

import (
	"errors"
	"fmt"
)

// PreconditionError is returned when a caller violates an alignment contract
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %s", e.Op, e.Reason)
}

// IsPrecondition reports whether err wraps a PreconditionError
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
