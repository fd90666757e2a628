// Package apperr defines the error kinds shared by the domain packages and
// translated to HTTP statuses at the API boundary.
package apperr

import (
	"errors"
	"strings"
)

// Kinds. Domain errors report one of these through errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrBlocked    = errors.New("operation blocked")
)

// Error is a domain error with a fixed kind and a caller-facing message.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Is reports kind membership. Blocked errors are also validation-class.
func (e *Error) Is(target error) bool {
	if target == e.kind {
		return true
	}
	return e.kind == ErrBlocked && target == ErrValidation
}

func Conflict(msg string) *Error { return &Error{kind: ErrConflict, msg: msg} }
func NotFound(msg string) *Error { return &Error{kind: ErrNotFound, msg: msg} }
func Blocked(msg string) *Error  { return &Error{kind: ErrBlocked, msg: msg} }
func Invalid(msg string) *Error  { return &Error{kind: ErrValidation, msg: msg} }

// FieldError is one violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem found in a single request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Add appends a problem for field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Merge appends the problems of other when it is a *ValidationError.
func (e *ValidationError) Merge(other error) {
	var ve *ValidationError
	if errors.As(other, &ve) {
		e.Fields = append(e.Fields, ve.Fields...)
	}
}

// OrNil returns e when it has problems, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
