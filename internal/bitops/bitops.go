// Package bitops provides the bit-scan and population-count primitives used
// by the WAH engine.
package bitops

import "math/bits"

// Bsf32 returns the index of the lowest set bit of w. The result is 32 for a
// zero word.
func Bsf32(w uint32) int { return bits.TrailingZeros32(w) }

// Bsf64 returns the index of the lowest set bit of w. The result is 64 for a
// zero word.
func Bsf64(w uint64) int { return bits.TrailingZeros64(w) }

// Bsr32 returns the index of the highest set bit of w, or -1 for a zero word.
func Bsr32(w uint32) int { return bits.Len32(w) - 1 }

// Bsr64 returns the index of the highest set bit of w, or -1 for a zero word.
func Bsr64(w uint64) int { return bits.Len64(w) - 1 }

// Count32 returns the number of set bits in w.
func Count32(w uint32) int { return bits.OnesCount32(w) }

// Count64 returns the number of set bits in w.
func Count64(w uint64) int { return bits.OnesCount64(w) }

// MemCount returns the number of set bits across words.
func MemCount(words []uint32) uint64 {
	var n uint64

	i := 0
	for ; i+1 < len(words); i += 2 {
		n += uint64(bits.OnesCount64(uint64(words[i]) | uint64(words[i+1])<<32))
	}

	if i < len(words) {
		n += uint64(bits.OnesCount32(words[i]))
	}

	return n
}

// LowMask32 returns a word with the n lowest bits set. n must be in [0, 32].
func LowMask32(n uint) uint32 {
	if n >= 32 {
		return ^uint32(0)
	}

	return uint32(1)<<n - 1
}

// HighMask32 returns a word with every bit at index >= n set. n must be in
// [0, 32].
func HighMask32(n uint) uint32 { return ^LowMask32(n) }

// LowMask64 returns a word with the n lowest bits set. n must be in [0, 64].
func LowMask64(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}

	return uint64(1)<<n - 1
}
