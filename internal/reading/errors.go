package reading

import (
	"errors"
	"fmt"
)

// invalidInputError covers unrecognized layouts and malformed or oversized
// queries. Mapped to a rejected request (400), never retried.
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err is a caller fault.
func IsInvalidInput(err error) bool {
	var e invalidInputError
	return errors.As(err, &e)
}

// catalogExhaustedError signals a catalog with fewer distinct cards than the
// layout requires. Catalogs are external data and may be malformed, so this
// is checked even though a well-formed catalog can never trigger it.
type catalogExhaustedError struct{ need, have int }

func (e catalogExhaustedError) Error() string {
	return fmt.Sprintf("catalog exhausted: layout needs %d cards, catalog has %d", e.need, e.have)
}

// ErrCatalogExhausted constructs a catalogExhaustedError.
func ErrCatalogExhausted(need, have int) error { return catalogExhaustedError{need: need, have: have} }

// IsCatalogExhausted reports whether err indicates an undersized catalog.
func IsCatalogExhausted(err error) bool {
	var e catalogExhaustedError
	return errors.As(err, &e)
}
