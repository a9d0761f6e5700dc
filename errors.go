package wah

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when encoded data does not start with the
	// bitmap magic or is too short to hold a header.
	ErrInvalidFormat = errors.New("wah: invalid format")

	// ErrUnsupportedVersion is returned for encoded data of an unknown
	// format version.
	ErrUnsupportedVersion = errors.New("wah: unsupported format version")

	// ErrCorrupt is returned when a word store fails structural validation.
	ErrCorrupt = errors.New("wah: corrupt data")
)

// CorruptDataError describes where a word store failed validation.
//
// It matches ErrCorrupt with errors.Is.
type CorruptDataError struct {
	// Offset is the index of the offending word in the store, or -1 when the
	// problem concerns the bitmap header.
	Offset int
	Reason string
}

func (e *CorruptDataError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("wah: corrupt data: %s", e.Reason)
	}

	return fmt.Sprintf("wah: corrupt data at word %d: %s", e.Offset, e.Reason)
}

// Is reports whether target is ErrCorrupt.
func (e *CorruptDataError) Is(target error) bool { return target == ErrCorrupt }

func corruptf(offset int, format string, args ...any) error {
	return &CorruptDataError{Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
