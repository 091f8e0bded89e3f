// Package apperr holds the error kinds shared by services and the HTTP boundary.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks malformed or missing caller input.
	ErrInput = errors.New("invalid input")
	// ErrUnauthenticated covers missing, unknown, malformed or expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrWrongTokenType is returned when a token of the wrong tier is presented.
	ErrWrongTokenType = fmt.Errorf("%w: wrong token type", ErrUnauthenticated)
	// ErrInvalidCredentials is returned by login for unknown users or bad passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound marks a resource that is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a uniqueness violation.
	ErrConflict = errors.New("conflict")
)

// NotFoundError names the missing resource. It matches ErrNotFound.
type NotFoundError struct {
	Resource string
}

// NotFound returns a NotFoundError for resource.
func NotFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError carries a caller-facing reason. It matches ErrConflict.
type ConflictError struct {
	Reason string
}

// Conflict returns a ConflictError with reason.
func Conflict(reason string) error {
	return &ConflictError{Reason: reason}
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// InputError describes what is wrong with the caller's input. It matches ErrInput.
type InputError struct {
	Msg string
}

// Input returns an InputError with a formatted message.
func Input(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

func (e *InputError) Error() string {
	return e.Msg
}

func (e *InputError) Is(target error) bool {
	return target == ErrInput
}
