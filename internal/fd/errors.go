package fd

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch is returned when a dependency or projection references
	// attributes absent from the working schema.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrPrecondition is returned when an operation cannot be evaluated on its
	// input, as opposed to producing a negative verdict.
	ErrPrecondition = errors.New("cannot evaluate")
)

// MismatchError names the attributes an operation required but did not find.
type MismatchError struct {
	Op      string
	Missing AttrSet
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: missing attributes %s", e.Op, e.Missing)
}

func (e *MismatchError) Unwrap() error { return ErrSchemaMismatch }

// PreconditionError explains why an operation could not be evaluated.
type PreconditionError struct {
	Op     string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// RequireSubset returns a *MismatchError when attrs is not contained in schema.
func RequireSubset(op string, attrs, schema AttrSet) error {
	if missing := attrs.Minus(schema); len(missing) > 0 {
		return &MismatchError{Op: op, Missing: missing}
	}
	return nil
}
