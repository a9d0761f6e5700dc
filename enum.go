package wah

type enumState uint8

const (
	enumEnd enumState = iota
	enumPending
	enumLiteral
	enumRun
)

// wordEnum walks the logical 32-bit words of a bitmap without decompressing
// it. Every produced word is XORed with flip, so an enumerator with flip set
// to ^0 yields the complement of the bitmap. Past the end it keeps yielding
// flip, the zero extension of the walked value.
type wordEnum struct {
	m     *Bitmap
	state enumState

	// pos is the header index while in a run and the index one past the
	// current literal block while in literals.
	pos     int
	remain  uint32
	current uint32
	flip    uint32
}

func newWordEnum(m *Bitmap, flip uint32) wordEnum {
	en := wordEnum{m: m, flip: flip, current: flip}

	if m.len == 0 || m.data == nil {
		return en
	}

	en.openRun()

	return en
}

// openRun positions the enumerator on the block starting at en.pos.
func (en *wordEnum) openRun() bool {
	data := en.m.data

	if en.pos >= len(data) {
		if en.m.len%WordBits != 0 {
			en.state = enumPending
			en.remain = 1
			en.current = en.m.pending ^ en.flip

			return true
		}

		en.end()

		return false
	}

	h := data[en.pos]
	if headerWords(h) == 0 {
		return en.openLiterals()
	}

	en.state = enumRun
	en.remain = headerWords(h)
	en.current = runWord(headerBit(h)) ^ en.flip

	return true
}

// openLiterals moves from the run header at en.pos to its literal block.
func (en *wordEnum) openLiterals() bool {
	count := en.m.data[en.pos+1]
	en.pos += 2 + int(count)

	if count == 0 {
		return en.openRun()
	}

	en.state = enumLiteral
	en.remain = count
	en.current = en.m.data[en.pos-int(count)] ^ en.flip

	return true
}

func (en *wordEnum) end() {
	en.state = enumEnd
	en.remain = 0
	en.current = en.flip
}

// next advances by one word. It returns false once the enumerator is past
// the end of the bitmap.
func (en *wordEnum) next() bool {
	switch en.state {
	case enumEnd:
		return false
	case enumPending:
		en.end()
		return false
	}

	if en.remain > 1 {
		en.remain--

		if en.state == enumLiteral {
			en.current = en.m.data[en.pos-int(en.remain)] ^ en.flip
		}

		return true
	}

	if en.state == enumRun {
		return en.openLiterals()
	}

	return en.openRun()
}

// skip advances by n words.
func (en *wordEnum) skip(n uint64) bool {
	for n > 0 {
		switch en.state {
		case enumEnd:
			return false
		case enumPending:
			return en.next()
		}

		k := min(n, uint64(en.remain))
		n -= k
		en.remain -= uint32(k) - 1

		if !en.next() {
			return false
		}
	}

	return en.state != enumEnd
}

// literals returns the next n literal words of the current block, without
// the flip applied. n must not exceed en.remain.
func (en *wordEnum) literals(n uint32) []uint32 {
	start := en.pos - int(en.remain)
	return en.m.data[start : start+int(n)]
}

// runLike reports whether the enumerator yields the same word for
// en.remain more words. Past the end the caller sets remain.
func (en *wordEnum) runLike() bool {
	return en.state == enumRun || en.state == enumEnd
}
