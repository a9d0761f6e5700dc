package wah

import (
	"fmt"
	"slices"
)

const (
	// WordBits is the number of bits held by one store word.
	WordBits = 32

	// MaxRunWords is the longest run a single header can describe.
	MaxRunWords = 1<<31 - 1

	runBitMask = uint32(1) << 31
)

// runRef locates the header of a run in the word store. The zero value
// refers to no run.
type runRef struct {
	pos int
	ok  bool
}

// Bitmap is a WAH compressed bitmap.
//
// The zero value is an empty bitmap ready to use.
type Bitmap struct {
	len     uint64
	active  uint64
	pending uint32

	// lastRun is the index of the header of the run currently open for
	// extension. prevRun is the run opened before it, used to fold a one
	// word run back into the preceding literal block.
	lastRun int
	prevRun runRef

	data []uint32
}

// New returns an empty bitmap.
func New() *Bitmap {
	b := &Bitmap{}
	b.Reset()

	return b
}

// Reset empties the bitmap while keeping the allocated store.
func (b *Bitmap) Reset() {
	b.len = 0
	b.active = 0
	b.pending = 0
	b.lastRun = 0
	b.prevRun = runRef{}
	b.data = append(b.data[:0], 0, 0)
}

func (b *Bitmap) init() {
	if b.data == nil {
		b.Reset()
	}
}

// Clone returns a deep copy of b.
func (b *Bitmap) Clone() *Bitmap {
	c := &Bitmap{}
	c.CopyFrom(b)

	return c
}

// CopyFrom makes b a deep copy of src, reusing the store of b.
func (b *Bitmap) CopyFrom(src *Bitmap) {
	if b == src {
		return
	}

	if src.data == nil {
		b.Reset()
		return
	}

	b.len = src.len
	b.active = src.active
	b.pending = src.pending
	b.lastRun = src.lastRun
	b.prevRun = src.prevRun
	b.data = append(b.data[:0], src.data...)
}

// detach moves the content of b into a new bitmap and leaves b empty with a
// fresh store sized for a result of similar shape.
func (b *Bitmap) detach() *Bitmap {
	b.init()

	src := &Bitmap{}
	*src = *b

	b.data = make([]uint32, 0, max(len(src.data), 2))
	b.Reset()

	return src
}

// Len returns the number of bits in the bitmap.
func (b *Bitmap) Len() uint64 { return b.len }

// Count returns the number of set bits.
func (b *Bitmap) Count() uint64 { return b.active }

// IsEmpty reports whether no bit is set.
func (b *Bitmap) IsEmpty() bool { return b.active == 0 }

// Pending returns the trailing partial word. Its low Len()%32 bits are valid.
func (b *Bitmap) Pending() uint32 { return b.pending }

// Words returns a copy of the word store.
func (b *Bitmap) Words() []uint32 {
	if b.data == nil {
		return []uint32{0, 0}
	}

	return slices.Clone(b.data)
}

// SizeBytes returns the approximate in-memory footprint.
func (b *Bitmap) SizeBytes() int64 {
	return int64(cap(b.data))*4 + 64
}

// String returns a one-line summary of the bitmap.
func (b *Bitmap) String() string {
	return fmt.Sprintf("wah.Bitmap{len=%d, active=%d, words=%d}", b.len, b.active, max(len(b.data), 2))
}

func makeHeader(bit bool, words uint32) uint32 {
	if bit {
		return runBitMask | words
	}

	return words
}

func headerBit(h uint32) bool { return h&runBitMask != 0 }

func headerWords(h uint32) uint32 { return h &^ runBitMask }

func runWord(bit bool) uint32 {
	if bit {
		return ^uint32(0)
	}

	return 0
}

func isTrivial(w uint32) bool { return w == 0 || w == ^uint32(0) }
