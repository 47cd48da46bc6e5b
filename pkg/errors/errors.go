// Package errors provides structured error types used across the application.
// We prefer these over raw fmt.Errorf strings to enable reliable checks with
// errors.As and to carry minimal context about the failure. One type exists
// per failure kind the lifecycle engine can surface.
package errors

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a referenced entity is absent.
type NotFoundError struct {
	Op     string // where it happened (package.Function)
	Entity string // "listing", "offer", "deal", ...
	ID     int64
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("not found: %s: %s %d", e.Op, e.Entity, e.ID)
}

func (e *NotFoundError) Operation() string { return e.Op }

func NewNotFound(op, entity string, id int64) error {
	return &NotFoundError{Op: op, Entity: entity, ID: id}
}

// ForbiddenError indicates the caller lacks authorization for the entity.
type ForbiddenError struct {
	Op  string
	Msg string
}

func (e *ForbiddenError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("forbidden: %s: %s", e.Op, e.Msg)
}

func (e *ForbiddenError) Operation() string { return e.Op }

func NewForbidden(op, msg string) error { return &ForbiddenError{Op: op, Msg: msg} }

// StateError indicates the entity is not in a state that permits the
// requested transition. Retrying reproduces the same outcome.
type StateError struct {
	Op  string
	Msg string
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid state: %s: %s", e.Op, e.Msg)
}

func (e *StateError) Operation() string { return e.Op }

func NewState(op, msg string) error { return &StateError{Op: op, Msg: msg} }

// ValidationError indicates malformed input provided by a caller.
type ValidationError struct {
	Op  string
	Msg string // human friendly message (no PII)
	Err error  // underlying cause (optional)
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("validation: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("validation: %s: %s", e.Op, e.Msg)
}

func (e *ValidationError) Unwrap() error     { return e.Err }
func (e *ValidationError) Operation() string { return e.Op }

func NewValidation(op, msg string, err error) error {
	return &ValidationError{Op: op, Msg: msg, Err: err}
}

// StoreError represents transient store failures: lock wait timeouts,
// connectivity loss, failed commits. The surrounding transaction has been
// rolled back in full, so callers may safely retry the same action.
type StoreError struct {
	Op  string
	Msg string
	Err error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("store: %s: %s", e.Op, e.Msg)
}

func (e *StoreError) Unwrap() error     { return e.Err }
func (e *StoreError) Operation() string { return e.Op }

func NewStore(op, msg string, err error) error { return &StoreError{Op: op, Msg: msg, Err: err} }

// Kind predicates: allow callers to check error kind without type assertions.

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsForbidden(err error) bool {
	var e *ForbiddenError
	return errors.As(err, &e)
}

func IsState(err error) bool {
	var e *StateError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsStore(err error) bool {
	var e *StoreError
	return errors.As(err, &e)
}
