// Package apperr defines the typed errors returned by the lost-and-found
// services. Every expected precondition failure is an *Error carrying a Kind,
// so callers can tell "your action was rejected" apart from internal faults.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
	KindAlreadyClaimed    Kind = "already_claimed"
	KindAlreadyProcessed  Kind = "already_processed"
	KindAlreadyScanned    Kind = "already_scanned"
	KindDisputeExists     Kind = "dispute_exists"
	KindSelfClaim         Kind = "self_claim"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalidCode       Kind = "invalid_code"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

// Sentinels for errors.Is matching. Two *Error values match when their kinds do.
var (
	ErrNotFound          = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized, Msg: "not authorized"}
	ErrAlreadyClaimed    = &Error{Kind: KindAlreadyClaimed, Msg: "this item has already been claimed by someone else"}
	ErrAlreadyProcessed  = &Error{Kind: KindAlreadyProcessed, Msg: "already processed"}
	ErrAlreadyScanned    = &Error{Kind: KindAlreadyScanned, Msg: "QR code already scanned"}
	ErrDisputeExists     = &Error{Kind: KindDisputeExists, Msg: "a dispute already exists for this claim"}
	ErrSelfClaim         = &Error{Kind: KindSelfClaim, Msg: "you cannot claim your own item"}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition, Msg: "invalid state transition"}
	ErrInvalidCode       = &Error{Kind: KindInvalidCode, Msg: "invalid QR code"}
	ErrValidation        = &Error{Kind: KindValidation, Msg: "validation error"}
)

// Error is a classified service error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an internal error wrapping err.
func Wrap(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// NotFound returns a not-found error naming the missing entity.
func NotFound(entity string) *Error {
	return New(KindNotFound, "%s not found", entity)
}

// Validation returns a validation error with a formatted message.
func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

// KindOf returns the kind of err, or KindInternal if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
