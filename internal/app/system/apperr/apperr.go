// Package apperr defines the application error taxonomy and its mapping to
// HTTP status codes.
//
// The store layer returns sentinel errors (duplicate key, no documents);
// feature handlers translate those into apperr kinds so every response goes
// out with the right status and a human-readable {"message": ...} body.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping.
type Kind int

const (
	// Validation covers missing or malformed request fields. 400.
	Validation Kind = iota + 1
	// NotFound covers IDs that do not resolve to an existing document,
	// including the peer of a relationship operation. 404.
	NotFound
	// Conflict covers uniqueness violations (email, group/program name). 409.
	Conflict
	// Integrity covers detected relationship drift. Surfaces as 500; drift
	// is a server-side defect, never the caller's fault.
	Integrity
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
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

// New returns a classified error with the given message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, keeping it on the chain.
func Wrap(kind Kind, message string, err error) error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or 0 when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == Validation }
func IsNotFound(err error) bool   { return KindOf(err) == NotFound }
func IsConflict(err error) bool   { return KindOf(err) == Conflict }

// Message returns the client-facing message for err. Unclassified errors get
// a generic message so internals never leak to the caller.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "something went wrong"
}

// HTTPStatus maps an error to its response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
