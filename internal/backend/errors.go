package backend

import (
	"context"
	"errors"
)

// unavailableError signals a missing credential or runtime so the HTTP layer
// can return 503 instead of attempting the call.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a misconfigured/absent backend.
func IsUnavailable(err error) bool {
	var e unavailableError
	return errors.As(err, &e)
}

// tooBusyError signals admission queue overflow or wait timeout (429).
type tooBusyError struct{ backend string }

func (e tooBusyError) Error() string { return "too busy: " + e.backend }

// ErrTooBusy constructs a tooBusyError for the named backend.
func ErrTooBusy(backend string) error { return tooBusyError{backend: backend} }

// IsTooBusy reports whether err indicates backpressure.
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// timeoutError distinguishes "try again later" from generic failures (504).
type timeoutError struct{ err error }

func (e timeoutError) Error() string { return "generation timeout: " + e.err.Error() }
func (e timeoutError) Unwrap() error { return e.err }

// ErrTimeout wraps err as a generation timeout.
func ErrTimeout(err error) error { return timeoutError{err: err} }

// IsTimeout reports whether err is a generation timeout, including a plain
// context deadline surfaced by a backend client.
func IsTimeout(err error) bool {
	var e timeoutError
	return errors.As(err, &e) || errors.Is(err, context.DeadlineExceeded)
}
