package rowstore

import (
	"errors"
	"fmt"
)

// Failure kinds. Match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrTransient           = errors.New("transient failure")
)

// Error tags a store failure with its kind and the table it happened on.
// A nil Kind marks a failure that fits none of the kinds.
type Error struct {
	Kind  error
	Table string
	Op    string
	Err   error
}

func NewError(kind error, op, table string, err error) *Error {
	return &Error{Kind: kind, Op: op, Table: table, Err: err}
}

func (e *Error) Error() string {
	if e.Kind == nil {
		return fmt.Sprintf("rowstore %s %s: %v", e.Op, e.Table, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("rowstore %s %s: %v", e.Op, e.Table, e.Kind)
	}
	return fmt.Sprintf("rowstore %s %s: %v: %v", e.Op, e.Table, e.Kind, e.Err)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
