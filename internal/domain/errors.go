package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports a malformed request or argument.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a transition that is not allowed from the current state.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Msg }

func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// OracleError wraps a routing oracle failure. Fatal failures abort generation;
// recoverable ones only cost the optimised visit order.
type OracleError struct {
	Op    string
	Fatal bool
	Err   error
}

func (e *OracleError) Error() string {
	kind := "recoverable"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("oracle %s (%s): %v", e.Op, kind, e.Err)
}

func (e *OracleError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func AsOracleError(err error) (*OracleError, bool) {
	var oe *OracleError
	ok := errors.As(err, &oe)
	return oe, ok
}
