package wah

import (
	"encoding/binary"

	"github.com/hupe1980/wah/internal/bitops"
)

// Add0s appends n clear bits.
func (b *Bitmap) Add0s(n uint64) {
	b.init()
	b.add0s(n)
	b.checkInvariants()
}

func (b *Bitmap) add0s(n uint64) {
	if n == 0 {
		return
	}

	if used := b.len % WordBits; used != 0 {
		free := WordBits - used
		if n < free {
			b.len += n
			return
		}

		b.len += free
		n -= free
		b.pushPending(1)
	}

	b.pushRun(0, n/WordBits)
	b.len += n
}

// Add1s appends n set bits.
func (b *Bitmap) Add1s(n uint64) {
	b.init()
	b.add1s(n)
	b.checkInvariants()
}

func (b *Bitmap) add1s(n uint64) {
	if n == 0 {
		return
	}

	b.active += n

	if used := uint(b.len % WordBits); used != 0 {
		free := WordBits - uint64(used)
		if n < free {
			b.pending |= bitops.LowMask32(uint(n)) << used
			b.len += n

			return
		}

		b.pending |= bitops.HighMask32(used)
		b.len += free
		n -= free
		b.pushPending(1)
	}

	b.pushRun(^uint32(0), n/WordBits)
	b.pending = bitops.LowMask32(uint(n % WordBits))
	b.len += n
}

// Add1At sets the bit at pos. Positions past the end extend the bitmap with
// clear bits first.
func (b *Bitmap) Add1At(pos uint64) {
	b.init()

	if pos < b.len {
		if b.Get(pos) {
			return
		}

		one := New()
		one.add0s(pos)
		one.add1s(1)
		b.Or(one)

		return
	}

	b.add0s(pos - b.len)
	b.add1s(1)
	b.checkInvariants()
}

// Pad32 appends clear bits up to the next word boundary.
func (b *Bitmap) Pad32() {
	b.init()

	if used := b.len % WordBits; used != 0 {
		b.add0s(WordBits - used)
	}

	b.checkInvariants()
}

// Add appends the first bitcount bits of data. Bit i of data[j] becomes
// position j*8+i relative to the current end of the bitmap.
//
// Add panics if data holds fewer than bitcount bits.
func (b *Bitmap) Add(data []byte, bitcount uint64) {
	if bitcount > uint64(len(data))*8 {
		panic("wah: Add bit count exceeds data length")
	}

	b.init()

	if bitcount == 0 {
		return
	}

	if used := b.len % WordBits; used != 0 {
		free := WordBits - used
		if free >= bitcount || free%8 != 0 {
			b.addUnaligned(data, bitcount)
			b.checkInvariants()

			return
		}

		data = b.addUnaligned(data, free)
		bitcount -= free
	}

	b.addAligned(data, bitcount)
	b.checkInvariants()
}

// readWord reads up to 64 bits little-endian from data and returns the word,
// the number of bits read and the unread tail.
func readWord(data []byte, count uint64) (uint64, uint, []byte) {
	if count >= 64 {
		return binary.LittleEndian.Uint64(data), 64, data[8:]
	}

	n := (count + 7) / 8

	var w uint64
	for i := range n {
		w |= uint64(data[i]) << (8 * i)
	}

	return w & bitops.LowMask64(uint(count)), uint(count), data[n:]
}

// addUnaligned appends count bits by detecting runs of equal bits inside each
// 64-bit chunk.
func (b *Bitmap) addUnaligned(data []byte, count uint64) []byte {
	for count > 0 {
		word, n, rest := readWord(data, count)
		data = rest
		count -= uint64(n)

		zeros := true
		for n > 0 {
			if word == 0 {
				if zeros {
					b.add0s(uint64(n))
				} else {
					b.add1s(uint64(n))
				}

				break
			}

			first := min(uint(bitops.Bsf64(word)), n)
			if first != 0 {
				if zeros {
					b.add0s(uint64(first))
				} else {
					b.add1s(uint64(first))
				}

				n -= first
				word >>= first
			}

			word = ^word
			zeros = !zeros
		}
	}

	return data
}

// addAligned appends count bits to a word-aligned bitmap one 64-bit lane at a
// time.
func (b *Bitmap) addAligned(data []byte, count uint64) {
	b.len += count

	for count > 0 {
		word, n, rest := readWord(data, count)
		data = rest
		count -= uint64(n)

		b.active += uint64(bitops.Count64(word))

		low := uint32(word)
		high := uint32(word >> 32)

		switch {
		case n == 64 && low == high:
			b.pending = low
			b.pushPending(2)
		case n >= 32:
			b.pending = low
			b.pushPending(1)
			b.pending = high

			if n == 64 {
				b.pushPending(1)
			}
		default:
			b.pending = low
		}
	}
}
