package controller

import (
	"errors"
	"fmt"
)

// Kind classifies an error surfaced to the presentation layer.
type Kind string

const (
	// KindValidation rejects bad local input before any store call.
	KindValidation Kind = "validation"
	// KindNotFound means the targeted record is not in the current index.
	KindNotFound Kind = "not_found"
	// KindTransport wraps a failed store call; the operation is retryable.
	KindTransport Kind = "transport"
	// KindSetup means a precondition like the device identity is missing.
	KindSetup Kind = "setup"
)

var errNoEditInProgress = errors.New("no record is being edited")

// Error is the classified, user-displayable error descriptor the
// controller returns. Raw store errors never cross this boundary
// unwrapped.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the user can simply try the operation again.
func (e *Error) Retryable() bool { return e.Kind == KindTransport }

// KindOf extracts the classification from an error chain, defaulting to
// transport for anything unclassified.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransport
}

func validationError(err error) *Error {
	return &Error{Kind: KindValidation, Message: "invalid input", Err: err}
}

func notFoundError(id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("record %s not found", id)}
}

func transportError(op string, err error) *Error {
	return &Error{Kind: KindTransport, Message: op + " failed, please retry", Err: err}
}

func setupError(msg string) *Error {
	return &Error{Kind: KindSetup, Message: msg}
}
