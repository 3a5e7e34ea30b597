// Package apperr defines the failure taxonomy of the gateway pipeline.
// Every failure is eventually converted to a FunctionResponse by the
// response classifier; the Kind decides how.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	Unknown               Kind = "Unknown"
	BadRequest            Kind = "BadRequest"
	DetokenizationFailure Kind = "DetokenizationFailure"
	UpstreamFailure       Kind = "UpstreamFailure"
	MalformedPayload      Kind = "MalformedPayload"
	Internal              Kind = "Internal"
)

// Error is the error type returned by pipeline components.
//
// Status and Body are only meaningful for DetokenizationFailure and
// UpstreamFailure: they carry the remote party's HTTP status (0 when the
// remote never answered or did not report one) and its raw error body.
type Error struct {
	Kind   Kind
	Msg    string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error of the given kind wrapping err.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// Message returns the user-facing message of err: Msg for an *Error, the
// full error text otherwise.
func Message(err error) string {
	if e, ok := As(err); ok {
		if e.Err != nil {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Msg
	}
	return err.Error()
}
