package storage

import (
	"github.com/cockroachdb/errors"

	"github.com/papercomputeco/meh/pkg/factpath"
)

// Error kinds. Check them with errors.Is from github.com/cockroachdb/errors.
var (
	// ErrInvalidPath is returned for malformed path input, before any store access.
	ErrInvalidPath = factpath.ErrInvalidPath

	// ErrNotFound is returned for id or path lookups that miss, and for status
	// transitions whose target is missing or in the wrong state.
	ErrNotFound = errors.New("not found")

	// ErrSerialization is returned when a tag or extends list cannot be encoded.
	ErrSerialization = errors.New("serialization error")

	// ErrBackend marks I/O and connection failures from the persistence layer.
	ErrBackend = errors.New("backend error")

	// ErrInvalidArgument is returned for out-of-range arguments such as a
	// negative retention period.
	ErrInvalidArgument = errors.New("invalid argument")
)

// NotFound reports a missing fact id.
func NotFound(id string) error {
	return errors.Wrapf(ErrNotFound, "fact %s", id)
}

// NotInState reports a status transition whose target is missing or not in
// the expected state.
func NotInState(id, state string) error {
	return errors.Wrapf(ErrNotFound, "fact %s not found or not %s", id, state)
}

// Backend wraps a persistence failure with context and marks it ErrBackend.
// A nil err stays nil.
func Backend(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrBackend)
}

// Serialization wraps an encoding failure and marks it ErrSerialization.
func Serialization(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(err, format, args...), ErrSerialization)
}
