package wah

import (
	"fmt"

	"github.com/hupe1980/wah/internal/bitops"
)

// storeScan summarizes a structural walk over a word store.
type storeScan struct {
	words   uint64
	active  uint64
	lastRun int
	prevRun runRef
}

// scanStore walks the blocks of data and checks that they tile it exactly.
func scanStore(data []uint32) (storeScan, error) {
	var s storeScan

	if len(data) < 2 {
		return s, corruptf(-1, "store holds %d words, need at least 2", len(data))
	}

	for pos := 0; pos < len(data); {
		if pos+2 > len(data) {
			return s, corruptf(pos, "truncated block header")
		}

		h := data[pos]
		count := data[pos+1]

		if pos > 0 && headerWords(h) == 0 {
			return s, corruptf(pos, "empty run outside the first block")
		}

		if uint64(count) > uint64(len(data)-pos-2) {
			return s, corruptf(pos+1, "literal count %d overflows the store", count)
		}

		if pos > 0 {
			s.prevRun = runRef{pos: s.lastRun, ok: true}
		}

		s.lastRun = pos

		lits := data[pos+2 : pos+2+int(count)]

		s.words += uint64(headerWords(h)) + uint64(count)
		if headerBit(h) {
			s.active += uint64(headerWords(h)) * WordBits
		}

		s.active += bitops.MemCount(lits)

		pos += 2 + int(count)
	}

	return s, nil
}

// Validate checks the structural and normalization invariants of b and the
// consistency of its cached length and population count.
func (b *Bitmap) Validate() error {
	if b.data == nil {
		if b.len != 0 || b.active != 0 || b.pending != 0 {
			return corruptf(-1, "uninitialized store with len=%d active=%d", b.len, b.active)
		}

		return nil
	}

	s, err := scanStore(b.data)
	if err != nil {
		return err
	}

	if err := b.validateState(s); err != nil {
		return err
	}

	return b.validateNormalized()
}

func (b *Bitmap) validateState(s storeScan) error {
	if b.lastRun != s.lastRun {
		return corruptf(b.lastRun, "open run at %d, last block starts at %d", b.lastRun, s.lastRun)
	}

	if uint64(b.data[b.lastRun+1])+uint64(b.lastRun)+2 != uint64(len(b.data)) {
		return corruptf(b.lastRun, "open run does not end the store")
	}

	if b.prevRun.ok && b.prevRun != s.prevRun {
		return corruptf(b.prevRun.pos, "previous run does not precede the open run")
	}

	if full := b.len - b.len%WordBits; full != s.words*WordBits {
		return corruptf(-1, "len %d does not match %d stored words", b.len, s.words)
	}

	if b.pending&^bitops.LowMask32(uint(b.len%WordBits)) != 0 {
		return corruptf(-1, "pending word %#08x has bits past len", b.pending)
	}

	if want := s.active + uint64(bitops.Count32(b.pending)); b.active != want {
		return corruptf(-1, "active %d, counted %d", b.active, want)
	}

	if b.active > b.len {
		return corruptf(-1, "active %d exceeds len %d", b.active, b.len)
	}

	return nil
}

// validateNormalized checks that no trivial word could have been folded into
// a neighboring run.
func (b *Bitmap) validateNormalized() error {
	prev := -1

	for pos := 0; pos < len(b.data); {
		h := b.data[pos]
		words := headerWords(h)
		count := int(b.data[pos+1])
		rw := runWord(headerBit(h))

		if pos > 0 && words < 2 && (pos != b.lastRun || count != 0) {
			return corruptf(pos, "closed run of %d words", words)
		}

		if words > 0 {
			// A saturated header cannot absorb the word folded after it.
			if count > 0 && b.data[pos+2] == rw && words < MaxRunWords {
				return corruptf(pos+2, "literal %#08x continues the run before it", rw)
			}

			if prev >= 0 {
				ph := b.data[prev]
				pcount := b.data[prev+1]

				if pcount > 0 && b.data[pos-1] == rw {
					return corruptf(pos-1, "literal %#08x precedes a run of the same value", rw)
				}

				if pcount == 0 && (headerWords(ph) == 0 || headerBit(ph) == headerBit(h)) && headerWords(ph) < MaxRunWords {
					return corruptf(pos, "run could have been merged with the run at %d", prev)
				}
			}
		}

		prev = pos
		pos += 2 + count
	}

	return nil
}

// checkInvariants panics when b fails validation in builds tagged wahdebug.
func (b *Bitmap) checkInvariants() {
	if !invariantChecks {
		return
	}

	if err := b.Validate(); err != nil {
		panic(err)
	}
}

// checkCombine verifies the length and population bounds of a boolean
// operation in builds tagged wahdebug.
func (b *Bitmap) checkCombine(src, other *Bitmap, op boolOp, flipSelf, flipOther uint32) {
	if !invariantChecks {
		return
	}

	total := max(src.len, other.len)
	if b.len != total {
		panic(fmt.Sprintf("wah: result len %d, operands %d and %d", b.len, src.len, other.len))
	}

	sa, oa := src.active, other.active
	if flipSelf != 0 {
		sa = total - sa
	}

	if flipOther != 0 {
		oa = total - oa
	}

	if op == opAnd && b.active > min(sa, oa) {
		panic(fmt.Sprintf("wah: and result active %d exceeds %d", b.active, min(sa, oa)))
	}

	if op == opOr && b.active < max(sa, oa) {
		panic(fmt.Sprintf("wah: or result active %d below %d", b.active, max(sa, oa)))
	}
}
