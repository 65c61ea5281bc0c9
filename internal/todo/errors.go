package todo

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateTitle = errors.New("todo: title already exists")
	ErrNotFound       = errors.New("todo: not found")
	ErrEmptyTitle     = errors.New("todo: title is empty")

	// ErrUnexpectedRowCount is wrapped in a StoreError when a mutation
	// affected more than one row.
	ErrUnexpectedRowCount = errors.New("unexpected number of affected rows")
)

// StoreError wraps a failure of the backing store during Op.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("todo: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// checkAffected enforces that a mutation touched exactly one row.
func checkAffected(op string, n int64) error {
	switch {
	case n == 1:
		return nil
	case n == 0 && op != "create":
		return ErrNotFound
	default:
		return storeError(op, fmt.Errorf("%w: %d", ErrUnexpectedRowCount, n))
	}
}
