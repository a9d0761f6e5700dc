package convert

import (
	"errors"
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/wah"
)

// ErrOutOfRange is returned when a source bitmap holds positions at or past
// the requested length, or past the target's address space.
var ErrOutOfRange = errors.New("convert: position out of range")

// ToRoaring returns the set bits of b as a 64-bit roaring bitmap.
func ToRoaring(b *wah.Bitmap) *roaring64.Bitmap {
	rb := roaring64.New()

	b.ForEachRange(func(start, end uint64) bool {
		rb.AddRange(start, end)
		return true
	})

	return rb
}

// ToRoaring32 returns the set bits of b as a 32-bit roaring bitmap.
// It fails if b has set bits beyond the 32-bit range.
func ToRoaring32(b *wah.Bitmap) (*roaring.Bitmap, error) {
	rb := roaring.New()

	var err error

	b.ForEachRange(func(start, end uint64) bool {
		if end > math.MaxUint32+1 {
			err = fmt.Errorf("%w: %d", ErrOutOfRange, end-1)
			return false
		}

		rb.AddRange(start, end)

		return true
	})

	if err != nil {
		return nil, err
	}

	return rb, nil
}

// FromRoaring builds a WAH bitmap of the given length holding the set bits of
// rb. A zero length means "just past the largest set bit".
func FromRoaring(rb *roaring64.Bitmap, length uint64) (*wah.Bitmap, error) {
	if rb.IsEmpty() {
		b := wah.New()
		b.Add0s(length)

		return b, nil
	}

	maxPos := rb.Maximum()
	if length == 0 {
		if maxPos == math.MaxUint64 {
			return nil, fmt.Errorf("%w: %d", ErrOutOfRange, maxPos)
		}

		length = maxPos + 1
	} else if maxPos >= length {
		return nil, fmt.Errorf("%w: %d >= %d", ErrOutOfRange, maxPos, length)
	}

	var r runBuilder

	it := rb.Iterator()
	for it.HasNext() {
		r.add(it.Next())
	}

	return r.finish(length), nil
}

// FromRoaring32 is FromRoaring for 32-bit roaring bitmaps.
func FromRoaring32(rb *roaring.Bitmap, length uint64) (*wah.Bitmap, error) {
	if rb.IsEmpty() {
		b := wah.New()
		b.Add0s(length)

		return b, nil
	}

	maxPos := uint64(rb.Maximum())
	if length == 0 {
		length = maxPos + 1
	} else if maxPos >= length {
		return nil, fmt.Errorf("%w: %d >= %d", ErrOutOfRange, maxPos, length)
	}

	var r runBuilder

	it := rb.Iterator()
	for it.HasNext() {
		r.add(uint64(it.Next()))
	}

	return r.finish(length), nil
}

// runBuilder coalesces ascending positions into runs of ones.
type runBuilder struct {
	b          *wah.Bitmap
	start, end uint64
	open       bool
}

func (r *runBuilder) add(pos uint64) {
	if r.b == nil {
		r.b = wah.New()
	}

	if r.open && pos == r.end {
		r.end++
		return
	}

	r.flush()
	r.start, r.end, r.open = pos, pos+1, true
}

func (r *runBuilder) flush() {
	if !r.open {
		return
	}

	r.b.Add0s(r.start - r.b.Len())
	r.b.Add1s(r.end - r.start)
	r.open = false
}

func (r *runBuilder) finish(length uint64) *wah.Bitmap {
	if r.b == nil {
		r.b = wah.New()
	}

	r.flush()
	r.b.Add0s(length - r.b.Len())

	return r.b
}
