// Package codec centralizes the encodings used to persist bitmaps.
//
// Two kinds of codecs live here: value codecs (Codec) used for catalog
// manifests, and block compressors (Compressor) applied to encoded bitmaps.
// Persisted frames record the compressor id so they can be decoded without
// out-of-band configuration.
package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCodec is returned for an unregistered codec name or id.
	ErrUnknownCodec = errors.New("codec: unknown codec")

	// ErrShortFrame is returned when a frame is too small for its header or
	// declared payload.
	ErrShortFrame = errors.New("codec: short frame")

	// ErrFrameTooLarge is returned when a frame declares a payload above the
	// decoding limit.
	ErrFrameTooLarge = errors.New("codec: frame too large")
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
//
// This is used for self-describing persistence formats (manifests) that store
// the codec name next to the data.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// MustMarshal is a helper for internal tests/benchmarks.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}

	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}

	return b
}
