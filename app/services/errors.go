// Package services holds the storefront's use cases. Services speak in
// models and repository contracts; controllers turn their results into
// HTTP responses.
package services

import (
	"errors"
	"net/http"

	"github.com/naturelovers/storefront/pkg/validate"
)

// Error is an expected failure with the HTTP status and message the caller
// should see.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a service Error from err.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func badRequest(msg string) *Error { return &Error{Status: http.StatusBadRequest, Message: msg} }
func notFound(msg string) *Error   { return &Error{Status: http.StatusNotFound, Message: msg} }
func conflict(msg string) *Error   { return &Error{Status: http.StatusConflict, Message: msg} }

func failure(msg string, err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Message: msg, Err: err}
}

// check normalizes in when it can and returns its first validation
// failure as a 400.
func check(in interface{}) error {
	if n, ok := in.(interface{ Normalize() }); ok {
		n.Normalize()
	}
	if msg := validate.Check(in); msg != "" {
		return badRequest(msg)
	}
	return nil
}
