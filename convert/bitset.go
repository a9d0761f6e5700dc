package convert

import (
	"encoding/binary"

	"github.com/bits-and-blooms/bitset"

	"github.com/hupe1980/wah"
)

// FromBitSet builds a WAH bitmap of bs.Len() bits. Whole 64-bit words are
// appended through the aligned Add path.
func FromBitSet(bs *bitset.BitSet) *wah.Bitmap {
	b := wah.New()

	n := uint64(bs.Len())
	words := bs.Words()

	var buf [8]byte

	for i := 0; n > 0 && i < len(words); i++ {
		binary.LittleEndian.PutUint64(buf[:], words[i])

		bits := min(n, 64)
		b.Add(buf[:], bits)
		n -= bits
	}

	// A bitset may report a length beyond its allocated words.
	b.Add0s(n)

	return b
}

// ToBitSet returns the set bits of b as a bitset of length b.Len().
func ToBitSet(b *wah.Bitmap) *bitset.BitSet {
	bs := bitset.New(uint(b.Len()))

	b.ForEachRange(func(start, end uint64) bool {
		bs.FlipRange(uint(start), uint(end))
		return true
	})

	return bs
}
