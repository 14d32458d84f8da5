// Package domainerrors provides coded errors for the service layer. Stores
// return sentinel errors (pkg/platform/sentinel); services translate those
// facts into coded errors that transport layers can map to responses.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain failure. The set is closed: handlers switch on
// codes to pick HTTP statuses, so new codes need a mapping there too.
type Code string

const (
	// CodeValidation marks attribute-level failures: lifecycle chronology
	// violations, non-positive power figures, malformed enums.
	CodeValidation Code = "validation_error"
	// CodeInvalidInput marks malformed identifiers or request shapes.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks a unit or catalog reference that does not resolve.
	CodeNotFound Code = "not_found"
	// CodeConflict marks uniqueness violations (unit name within a site).
	CodeConflict Code = "conflict"
	// CodeDuplicateYear marks a second generation record for a (unit, year).
	CodeDuplicateYear Code = "duplicate_year"
	// CodeMissingCapacity marks a capacity-factor request with no usable
	// reference capacity.
	CodeMissingCapacity Code = "missing_capacity"
	// CodeInvariantViolation marks an aggregate constructor rejection.
	CodeInvariantViolation Code = "invariant_violation"
	CodeBadRequest         Code = "bad_request"
	CodeInternal           Code = "internal_error"
	CodeUnavailable        Code = "unavailable"
)

// Error carries a code, a caller-safe message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	for errors.As(err, &de) {
		if de.Code == code {
			return true
		}
		err = de.Err
		de = nil
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
