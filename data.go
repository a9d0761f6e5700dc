package wah

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/hupe1980/wah/internal/bitops"
)

const (
	formatMagic   = "WAH1"
	formatVersion = 1

	// headerSize is magic, version, flags, reserved, len, active, pending
	// and the word count.
	headerSize = 4 + 1 + 1 + 2 + 8 + 8 + 4 + 4

	// maxStoreWords bounds the word count accepted when decoding.
	maxStoreWords = 1 << 28

	// MaxEncodedSize is the largest MarshalBinary output UnmarshalBinary
	// accepts.
	MaxEncodedSize = headerSize + 4*maxStoreWords
)

// FromWords builds a bitmap over a copy of a word store as returned by
// Words. pending and length describe the trailing partial word; length must
// cover the stored words and less than one more word.
func FromWords(words []uint32, pending uint32, length uint64) (*Bitmap, error) {
	b := &Bitmap{}
	if err := b.setWords(slices.Clone(words), pending, length); err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Bitmap) setWords(words []uint32, pending uint32, length uint64) error {
	s, err := scanStore(words)
	if err != nil {
		return err
	}

	if full := length - length%WordBits; full != s.words*WordBits {
		return corruptf(-1, "length %d does not match %d stored words", length, s.words)
	}

	if pending&^bitops.LowMask32(uint(length%WordBits)) != 0 {
		return corruptf(-1, "pending word %#08x has bits past length %d", pending, length)
	}

	b.data = words
	b.len = length
	b.pending = pending
	b.active = s.active + uint64(bitops.Count32(pending))
	b.lastRun = s.lastRun
	b.prevRun = s.prevRun

	return nil
}

// MarshalBinary encodes b in the versioned little-endian bitmap format.
func (b *Bitmap) MarshalBinary() ([]byte, error) {
	words := b.data
	if words == nil {
		words = []uint32{0, 0}
	}

	out := make([]byte, headerSize, headerSize+4*len(words))
	copy(out, formatMagic)
	out[4] = formatVersion

	binary.LittleEndian.PutUint64(out[8:], b.len)
	binary.LittleEndian.PutUint64(out[16:], b.active)
	binary.LittleEndian.PutUint32(out[24:], b.pending)
	binary.LittleEndian.PutUint32(out[28:], uint32(len(words)))

	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}

	return out, nil
}

// UnmarshalBinary replaces b with the bitmap encoded in data.
func (b *Bitmap) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize || string(data[:4]) != formatMagic {
		return ErrInvalidFormat
	}

	if data[4] != formatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}

	length := binary.LittleEndian.Uint64(data[8:])
	active := binary.LittleEndian.Uint64(data[16:])
	pending := binary.LittleEndian.Uint32(data[24:])
	n := binary.LittleEndian.Uint32(data[28:])

	if n > maxStoreWords || uint64(len(data)-headerSize) != uint64(n)*4 {
		return corruptf(-1, "store of %d words in %d payload bytes", n, len(data)-headerSize)
	}

	words := make([]uint32, n)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[headerSize+4*i:])
	}

	var tmp Bitmap
	if err := tmp.setWords(words, pending, length); err != nil {
		return err
	}

	if tmp.active != active {
		return corruptf(-1, "recorded active %d, counted %d", active, tmp.active)
	}

	*b = tmp

	return nil
}

// WriteTo writes the binary encoding of b to w.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	data, err := b.MarshalBinary()
	if err != nil {
		return 0, err
	}

	n, err := w.Write(data)

	return int64(n), err
}

// ReadFrom replaces b with a bitmap decoded from r. It reads exactly one
// encoded bitmap.
func (b *Bitmap) ReadFrom(r io.Reader) (int64, error) {
	head := make([]byte, headerSize)

	n, err := io.ReadFull(r, head)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return int64(n), ErrInvalidFormat
		}

		return int64(n), err
	}

	if string(head[:4]) != formatMagic {
		return int64(n), ErrInvalidFormat
	}

	words := binary.LittleEndian.Uint32(head[28:])
	if words > maxStoreWords {
		return int64(n), corruptf(-1, "store of %d words exceeds the limit", words)
	}

	buf := make([]byte, headerSize+4*int(words))
	copy(buf, head)

	m, err := io.ReadFull(r, buf[headerSize:])
	total := int64(n + m)

	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return total, corruptf(-1, "truncated store after %d bytes", total)
		}

		return total, err
	}

	return total, b.UnmarshalBinary(buf)
}
