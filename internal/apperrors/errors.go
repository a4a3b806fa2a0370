// Package apperrors defines the error taxonomy shared by every layer of the
// service. Repositories and services return *Error values (or wrap plain
// errors into one) and the HTTP layer renders them through a single handler.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes. The HTTP status for each code is fixed by StatusCode.
const (
	EInvalid         = "invalid"
	EConflict        = "conflict"
	ENotFound        = "not found"
	EUnauthorized    = "unauthorized"
	EForbidden       = "forbidden"
	ETooManyRequests = "too many requests"
	EInternal        = "internal error"
	EConfig          = "configuration"
)

// FieldError is one entry of the JSON error envelope. Validation failures
// produce one FieldError per rejected field; every other error is rendered
// as a single entry with an empty path and location.
type FieldError struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Path     string `json:"path"`
	Location string `json:"location"`
}

// Error is the application error.
//
// Code drives the HTTP status and the envelope type. Msg is safe to show to
// clients. Op names the operation that failed and Err carries the cause, so
// that logs keep a logical trace, e.g.
//
//	&Error{Code: EInternal, Op: "repository.UserRepo.Create", Err: err}
type Error struct {
	Code   string
	Msg    string
	Op     string
	Err    error
	Fields []FieldError
}

// Error implements the error interface by writing out the recursive messages.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		b.WriteString(e.Msg)
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	default:
		fmt.Fprintf(&b, "<%s>", e.Code)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorCode returns the code of the first *Error in the chain that has one.
// Errors outside the taxonomy are internal.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return EInternal
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Err != nil {
		return ErrorCode(e.Err)
	}
	return EInternal
}

// ErrorMessage returns the first client-facing message found in the chain.
func ErrorMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "An internal error has occurred."
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return ErrorMessage(e.Err)
	}
	return "An internal error has occurred."
}

// ErrorFields returns the field errors of the first *Error that carries any.
func ErrorFields(err error) []FieldError {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return nil
		}
		if len(e.Fields) > 0 {
			return e.Fields
		}
		err = e.Err
	}
	return nil
}

var statusCodes = map[string]int{
	EInvalid:         http.StatusBadRequest,
	EConflict:        http.StatusBadRequest,
	ENotFound:        http.StatusBadRequest,
	EUnauthorized:    http.StatusUnauthorized,
	EForbidden:       http.StatusForbidden,
	ETooManyRequests: http.StatusTooManyRequests,
	EInternal:        http.StatusInternalServerError,
	EConfig:          http.StatusInternalServerError,
}

// StatusCode maps an error code to its HTTP status. A missing tenant or user
// is a 400 here, not a 404. Unknown codes are treated as internal.
func StatusCode(code string) int {
	if s, ok := statusCodes[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

var typeNames = map[string]string{
	EInvalid:         "ValidationError",
	EConflict:        "ConflictError",
	ENotFound:        "NotFoundError",
	EUnauthorized:    "AuthenticationError",
	EForbidden:       "AuthorizationError",
	ETooManyRequests: "RateLimitError",
	EInternal:        "StorageError",
	EConfig:          "ConfigurationError",
}

// TypeName is the envelope "type" for a code.
func TypeName(code string) string {
	if n, ok := typeNames[code]; ok {
		return n
	}
	return typeNames[EInternal]
}

// Field builds a body field error.
func Field(path, msg string) FieldError {
	return FieldError{Type: "field", Msg: msg, Path: path, Location: "body"}
}

// Param builds a path parameter error.
func Param(path, msg string) FieldError {
	return FieldError{Type: "field", Msg: msg, Path: path, Location: "params"}
}

// Invalid is a validation error carrying one entry per rejected field.
func Invalid(fields ...FieldError) *Error {
	msg := "Validation failed"
	if len(fields) > 0 {
		msg = fields[0].Msg
	}
	return &Error{Code: EInvalid, Msg: msg, Fields: fields}
}

func Conflict(msg string) *Error     { return &Error{Code: EConflict, Msg: msg} }
func NotFound(msg string) *Error     { return &Error{Code: ENotFound, Msg: msg} }
func Unauthorized(msg string) *Error { return &Error{Code: EUnauthorized, Msg: msg} }
func Forbidden(msg string) *Error    { return &Error{Code: EForbidden, Msg: msg} }

// Internal wraps an unexpected failure of a collaborator.
func Internal(op, msg string, err error) *Error {
	return &Error{Code: EInternal, Op: op, Msg: msg, Err: err}
}

// Config reports invalid or missing configuration. These are fatal at startup.
func Config(format string, args ...any) *Error {
	return &Error{Code: EConfig, Msg: fmt.Sprintf(format, args...)}
}
