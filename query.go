package wah

import (
	"iter"

	"github.com/hupe1980/wah/internal/bitops"
)

// Get reports whether the bit at pos is set. Positions past the end are
// clear.
func (b *Bitmap) Get(pos uint64) bool {
	if pos >= b.len {
		return false
	}

	if full := b.len - b.len%WordBits; pos >= full {
		return b.pending&(1<<(pos%WordBits)) != 0
	}

	for i := 0; i < len(b.data); {
		h := b.data[i]

		span := uint64(headerWords(h)) * WordBits
		if pos < span {
			return headerBit(h)
		}

		pos -= span

		count := b.data[i+1]

		lits := uint64(count) * WordBits
		if pos < lits {
			return b.data[i+2+int(pos/WordBits)]&(1<<(pos%WordBits)) != 0
		}

		pos -= lits
		i += 2 + int(count)
	}

	return false
}

// BitIterator enumerates the positions holding one bit value in ascending
// order. It is not restartable; create a new one for each pass.
type BitIterator struct {
	words wordEnum

	// key is the position of bit 0 of current and remain the number of
	// positions left in the span starting at key. Inside a run of matching
	// bits remain exceeds a word and current stays all ones.
	key     uint64
	remain  uint64
	current uint32
	started bool
}

// Iterator returns an iterator over the positions whose bit equals bit.
func (b *Bitmap) Iterator(bit bool) *BitIterator {
	var flip uint32
	if !bit {
		flip = ^uint32(0)
	}

	it := &BitIterator{words: newWordEnum(b, flip)}

	if it.words.state != enumEnd {
		it.current = it.words.current
		it.remain = WordBits

		if it.words.state == enumPending {
			it.remain = b.len % WordBits
			it.current &= bitops.LowMask32(uint(it.remain))
		}

		it.scan()
	}

	return it
}

// Next returns the next position, or false once the iterator is exhausted.
func (it *BitIterator) Next() (uint64, bool) {
	if it.started {
		it.advance()
	} else {
		it.started = true
	}

	if it.words.state == enumEnd {
		return 0, false
	}

	return it.key, true
}

func (it *BitIterator) advance() {
	if it.words.state == enumEnd {
		return
	}

	it.key++
	if it.remain <= WordBits {
		it.current >>= 1
	}

	it.remain--
	it.scan()
}

func (it *BitIterator) scan() {
	if it.current == 0 && !it.scanWord() {
		return
	}

	if it.remain <= WordBits {
		bit := uint(bitops.Bsf32(it.current))
		it.key += uint64(bit)
		it.current >>= bit
		it.remain -= uint64(bit)
	}
}

// scanWord moves to the next word holding a matching bit. Non-matching runs
// are skipped as a whole.
func (it *BitIterator) scanWord() bool {
	it.key += it.remain

	for it.words.next() {
		it.current = it.words.current

		if it.words.state == enumRun {
			span := uint64(it.words.remain) * WordBits
			it.words.remain = 1

			if it.current != 0 {
				it.remain = span
				return true
			}

			it.key += span

			continue
		}

		it.remain = WordBits
		if it.words.state == enumPending {
			it.remain = it.words.m.len % WordBits
			it.current &= bitops.LowMask32(uint(it.remain))
		}

		if it.current != 0 {
			return true
		}

		it.key += WordBits
	}

	return false
}

// ForEach1 calls fn for each set position in ascending order until fn
// returns false.
func (b *Bitmap) ForEach1(fn func(pos uint64) bool) {
	b.forEach(true, fn)
}

// ForEach0 calls fn for each clear position below Len in ascending order
// until fn returns false.
func (b *Bitmap) ForEach0(fn func(pos uint64) bool) {
	b.forEach(false, fn)
}

func (b *Bitmap) forEach(bit bool, fn func(pos uint64) bool) {
	it := b.Iterator(bit)
	for pos, ok := it.Next(); ok; pos, ok = it.Next() {
		if !fn(pos) {
			return
		}
	}
}

// Ones returns an iterator over the set positions.
func (b *Bitmap) Ones() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		b.forEach(true, yield)
	}
}

// Zeros returns an iterator over the clear positions below Len.
func (b *Bitmap) Zeros() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		b.forEach(false, yield)
	}
}

// ToSlice returns the set positions.
func (b *Bitmap) ToSlice() []uint64 {
	out := make([]uint64, 0, b.active)
	b.ForEach1(func(pos uint64) bool {
		out = append(out, pos)
		return true
	})

	return out
}

// ForEachRange calls fn with each maximal half-open interval [start, end) of
// set bits in ascending order until fn returns false. Runs are reported
// without visiting their positions.
func (b *Bitmap) ForEachRange(fn func(start, end uint64) bool) {
	var (
		pos   uint64
		start uint64
		open  bool
	)

	en := newWordEnum(b, 0)

	for en.state != enumEnd {
		if en.state == enumRun {
			n := uint64(en.remain)

			switch {
			case en.current != 0 && !open:
				start, open = pos, true
			case en.current == 0 && open:
				if !fn(start, pos) {
					return
				}

				open = false
			}

			pos += n * WordBits
			en.skip(n)

			continue
		}

		w := en.current
		valid := uint(WordBits)

		if en.state == enumPending {
			valid = uint(b.len % WordBits)
			w &= bitops.LowMask32(valid)
		}

		for i := uint(0); i < valid; {
			if open {
				z := i + uint(bitops.Bsf32(^w>>i))
				if z >= valid {
					break
				}

				if !fn(start, pos+uint64(z)) {
					return
				}

				open, i = false, z

				continue
			}

			rest := w >> i
			if rest == 0 {
				break
			}

			i += uint(bitops.Bsf32(rest))
			start, open = pos+uint64(i), true
		}

		pos += uint64(valid)
		en.next()
	}

	if open {
		fn(start, pos)
	}
}
