package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for names absent from the catalog.
	ErrNotFound = errors.New("catalog: bitmap not found")

	// ErrInvalidName is returned for names that cannot be stored.
	ErrInvalidName = errors.New("catalog: invalid bitmap name")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("catalog: closed")

	// ErrEntryMismatch is returned when a loaded blob disagrees with its
	// manifest entry.
	ErrEntryMismatch = errors.New("catalog: blob does not match manifest entry")
)

// ParseError reports a malformed query expression.
type ParseError struct {
	Expr   string
	Pos    int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog: parse %q at %d: %s", e.Expr, e.Pos, e.Reason)
}
