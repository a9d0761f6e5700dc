package wah

import "github.com/hupe1980/wah/internal/bitops"

type boolOp uint8

const (
	opAnd boolOp = iota
	opOr
)

func (op boolOp) apply(a, b uint32) uint32 {
	if op == opOr {
		return a | b
	}

	return a & b
}

// absorbing returns the run word that forces the result of op regardless of
// the other operand.
func (op boolOp) absorbing() uint32 {
	if op == opOr {
		return ^uint32(0)
	}

	return 0
}

// And sets b to b AND other. The shorter operand is treated as zero-extended
// and the result has the length of the longer one.
func (b *Bitmap) And(other *Bitmap) { b.combine(other, opAnd, 0, 0) }

// Or sets b to b OR other.
func (b *Bitmap) Or(other *Bitmap) { b.combine(other, opOr, 0, 0) }

// AndNot sets b to b AND NOT other.
func (b *Bitmap) AndNot(other *Bitmap) { b.combine(other, opAnd, 0, ^uint32(0)) }

// NotAnd sets b to NOT b AND other.
func (b *Bitmap) NotAnd(other *Bitmap) { b.combine(other, opAnd, ^uint32(0), 0) }

// Not complements every bit of b in place.
func (b *Bitmap) Not() {
	b.init()

	for pos := 0; pos < len(b.data); {
		b.data[pos] ^= runBitMask

		count := int(b.data[pos+1])
		lits := b.data[pos+2 : pos+2+count]

		for i := range lits {
			lits[i] = ^lits[i]
		}

		pos += 2 + count
	}

	b.pending = ^b.pending & bitops.LowMask32(uint(b.len%WordBits))
	b.active = b.len - b.active

	b.checkInvariants()
}

// combine rewrites b as op applied to b and other, with each side optionally
// complemented through its enumerator flip mask.
func (b *Bitmap) combine(other *Bitmap, op boolOp, flipSelf, flipOther uint32) {
	src := b.detach()
	if other == b {
		other = src
	}

	total := max(src.len, other.len)
	absorbing := op.absorbing()

	a := newWordEnum(src, flipSelf)
	o := newWordEnum(other, flipOther)

	for a.state != enumEnd || o.state != enumEnd {
		if a.state == enumEnd {
			a.remain = b.wordsLeft(total)
		} else if o.state == enumEnd {
			o.remain = b.wordsLeft(total)
		}

		switch {
		case a.state <= enumPending && o.state <= enumPending:
			b.len = total
			b.pending = op.apply(a.current, o.current) & bitops.LowMask32(uint(total%WordBits))
			b.active += uint64(bitops.Count32(b.pending))
			a.next()
			o.next()

		case a.runLike() && o.state == enumLiteral:
			b.runWithLiteral(&a, &o, absorbing)

		case a.state == enumLiteral && o.runLike():
			b.runWithLiteral(&o, &a, absorbing)

		case a.runLike() && o.runLike():
			if a.current == absorbing || o.current == absorbing {
				var n uint32
				if o.current == absorbing {
					n = o.remain
				}

				if a.current == absorbing {
					n = max(n, a.remain)
				}

				b.emitRun(absorbing, n, &a, &o)
			} else {
				b.emitRun(^absorbing, min(a.remain, o.remain), &a, &o)
			}

		default:
			b.pushWord(op.apply(a.current, o.current))
			b.len += WordBits
			a.next()
			o.next()
		}
	}

	b.checkInvariants()
	b.checkCombine(src, other, op, flipSelf, flipOther)
}

// wordsLeft returns the number of full words between the current end of b
// and total bits.
func (b *Bitmap) wordsLeft(total uint64) uint32 {
	return uint32(min((total-b.len)/WordBits, MaxRunWords))
}

func (b *Bitmap) runWithLiteral(run, lit *wordEnum, absorbing uint32) {
	if run.current == absorbing {
		b.emitRun(absorbing, run.remain, run, lit)
		return
	}

	b.copyRun(run, lit)
}

// emitRun appends n words of value word and advances both enumerators past
// them.
func (b *Bitmap) emitRun(word, n uint32, a, o *wordEnum) {
	b.len += uint64(n) * WordBits
	if word != 0 {
		b.active += uint64(n) * WordBits
	}

	b.pending = word
	b.pushPending(n)

	a.skip(uint64(n))
	o.skip(uint64(n))
}

// pushWord appends one full word. The caller accounts for len.
func (b *Bitmap) pushWord(w uint32) {
	b.pending = w
	b.active += uint64(bitops.Count32(w))
	b.pushPending(1)
}

// copyRun copies the literal words of data that overlap the neutral run.
func (b *Bitmap) copyRun(run, data *wordEnum) {
	count := min(run.remain, data.remain)
	run.skip(uint64(count))

	words := data.literals(count)
	flip := data.flip
	data.skip(uint64(count))

	b.len += uint64(count) * WordBits

	// Trivial words at either end of the block may extend or open a run.
	for len(words) > 0 && isTrivial(words[0]^flip) {
		b.pushWord(words[0] ^ flip)
		words = words[1:]
	}

	body := len(words)
	for body > 0 && isTrivial(words[body-1]^flip) {
		body--
	}

	if body > 0 {
		b.flattenLastRun()
		b.data[b.lastRun+1] += uint32(body)

		start := len(b.data)
		b.data = append(b.data, words[:body]...)

		if flip != 0 {
			lits := b.data[start:]
			for i := range lits {
				lits[i] ^= flip
			}
		}

		b.active += bitops.MemCount(b.data[start:])
	}

	for _, w := range words[body:] {
		b.pushWord(w ^ flip)
	}
}

// Equal reports whether b and other hold the same bits.
func (b *Bitmap) Equal(other *Bitmap) bool {
	if b.len != other.len || b.active != other.active {
		return false
	}

	x := newWordEnum(b, 0)
	y := newWordEnum(other, 0)

	for x.state != enumEnd && y.state != enumEnd {
		if x.current != y.current {
			return false
		}

		if x.state == enumRun && y.state == enumRun {
			n := uint64(min(x.remain, y.remain))
			x.skip(n)
			y.skip(n)

			continue
		}

		x.next()
		y.next()
	}

	return x.state == y.state
}
