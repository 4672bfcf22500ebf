package protocol

import (
	"errors"
	"fmt"
)

const (
	// Envelope validation.
	ErrBadRequest = "E_BAD_REQUEST"

	// Rule layer.
	ErrNotFound     = "E_NOT_FOUND"
	ErrNoPermission = "E_NO_PERMISSION"
	ErrNoResource   = "E_NO_RESOURCE"
	ErrInvalidState = "E_INVALID_STATE"

	// External registry/ledger calls.
	ErrUpstream = "E_UPSTREAM"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:   {},
	ErrNotFound:     {},
	ErrNoPermission: {},
	ErrNoResource:   {},
	ErrInvalidState: {},
	ErrUpstream:     {},
	ErrInternal:     {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// Error is a request-terminal failure carrying a wire code.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error   { return newError(ErrBadRequest, format, args...) }
func NotFound(format string, args ...any) *Error     { return newError(ErrNotFound, format, args...) }
func NoPermission(format string, args ...any) *Error { return newError(ErrNoPermission, format, args...) }
func NoResource(format string, args ...any) *Error   { return newError(ErrNoResource, format, args...) }
func InvalidState(format string, args ...any) *Error { return newError(ErrInvalidState, format, args...) }

// Upstream wraps a failed or malformed external call.
func Upstream(err error, format string, args ...any) *Error {
	e := newError(ErrUpstream, format, args...)
	e.Err = err
	return e
}

// Internal wraps a store or codec failure.
func Internal(err error, format string, args ...any) *Error {
	e := newError(ErrInternal, format, args...)
	e.Err = err
	return e
}

// CodeOf returns the wire code of err. Unclassified errors are internal.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ErrInternal
}

// MessageOf returns the caller-facing message of err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}
