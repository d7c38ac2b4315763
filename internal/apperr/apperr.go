// Package apperr carries the bridge's error taxonomy. Backend failures are
// classified once, at the transport boundary, into an explicit Class; the
// rest of the code inspects classes instead of sniffing strings or status
// codes.
package apperr

import (
	"errors"
	"fmt"
)

type Class int

const (
	ClassUnavailable Class = iota
	ClassNotFound
	ClassBadRequest
	ClassConflict
	ClassAuthorizationDenied
	ClassOutOfRange
	ClassNotImplemented
)

func (c Class) String() string {
	switch c {
	case ClassNotFound:
		return "not_found"
	case ClassBadRequest:
		return "bad_request"
	case ClassConflict:
		return "conflict"
	case ClassAuthorizationDenied:
		return "authorization_denied"
	case ClassOutOfRange:
		return "out_of_range"
	case ClassNotImplemented:
		return "not_implemented"
	default:
		return "unavailable"
	}
}

type Error struct {
	Class Class
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return e.Msg + ": " + e.Err.Error()
		}
		return e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(class Class, msg string) error {
	return &Error{Class: class, Msg: msg}
}

func Errorf(class Class, format string, args ...any) error {
	return &Error{Class: class, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a class to err. A nil err returns nil.
func Wrap(class Class, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Class: class, Msg: msg, Err: err}
}

// ClassOf returns the classification of err, ClassUnavailable for untyped
// errors, and is safe to call with nil only via the Is* helpers.
func ClassOf(err error) Class {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Class
	}
	return ClassUnavailable
}

func is(err error, c Class) bool {
	if err == nil {
		return false
	}
	return ClassOf(err) == c
}

func IsNotFound(err error) bool            { return is(err, ClassNotFound) }
func IsBadRequest(err error) bool          { return is(err, ClassBadRequest) }
func IsConflict(err error) bool            { return is(err, ClassConflict) }
func IsAuthorizationDenied(err error) bool { return is(err, ClassAuthorizationDenied) }
func IsOutOfRange(err error) bool          { return is(err, ClassOutOfRange) }
func IsNotImplemented(err error) bool      { return is(err, ClassNotImplemented) }
