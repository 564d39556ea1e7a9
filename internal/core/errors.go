package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrTypeMismatch is returned when an engine value is not of the
	// tagged type a conversion requires.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDecode is returned when native bytes cannot be decoded into an
	// engine string.
	ErrDecode = errors.New("string decode failure")

	// ErrPrecondition is returned for invalid arguments (nil input, bad
	// length, non-object root).
	ErrPrecondition = errors.New("precondition violation")

	// ErrPathConflict is returned when a dotted path segment already
	// holds a value that is not object-like.
	ErrPathConflict = errors.New("path segment is not an object")

	// ErrPartialConversion marks a collection conversion that skipped or
	// stopped at a bad entry.
	ErrPartialConversion = errors.New("partial conversion")
)

// PartialError describes which entries a collection conversion could not
// convert. The converted value is still returned alongside it.
type PartialError struct {
	Op      string   // conversion that produced the error
	Skipped []string // keys or indices that were not converted
	Cause   error    // first underlying failure
}

func (e *PartialError) Error() string {
	msg := fmt.Sprintf("%s: %s: %s", e.Op, ErrPartialConversion, strings.Join(e.Skipped, ", "))
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Is matches ErrPartialConversion.
func (e *PartialError) Is(target error) bool {
	return target == ErrPartialConversion
}

func (e *PartialError) Unwrap() error {
	return e.Cause
}
