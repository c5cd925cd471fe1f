package media

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptySource is returned when a reader has no entries to read.
	ErrEmptySource = errors.New("media: no media found")

	// ErrInvalidRange is returned when start is after the last readable frame.
	ErrInvalidRange = errors.New("media: invalid frame range")

	// ErrSourceMismatch is returned when a requested path is not in the reader's listing.
	ErrSourceMismatch = errors.New("media: source mismatch")

	// ErrUniqueViolation is returned when a unique media category is combined with other inputs.
	ErrUniqueViolation = errors.New("media: unique media type combined with other inputs")

	// ErrNotZip is returned by zip-only operations on other reader kinds.
	ErrNotZip = errors.New("media: reader is not backed by a zip file")
)

// MismatchError reports a path that is missing from a reader's listing.
type MismatchError struct {
	Path string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("media: %s is not part of the source listing", e.Path)
}

func (e *MismatchError) Unwrap() error {
	return ErrSourceMismatch
}
