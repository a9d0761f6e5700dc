package wah

import (
	"fmt"
	"io"
)

// Dump writes a listing of the runs, literal blocks and pending bits of b to
// w. With content set every literal word is printed.
func (b *Bitmap) Dump(w io.Writer, content bool) error {
	dw := &dumpWriter{w: w}

	var pos uint64

	for i := 0; i < len(b.data); {
		h := b.data[i]
		count := int(b.data[i+1])

		if words := uint64(headerWords(h)); words > 0 {
			dw.printf("[%08x] RUN %d %d words (%d bits)\n", pos, bitValue(headerBit(h)), words, words*WordBits)
			pos += words * WordBits
		}

		switch {
		case count == 0:
		case content:
			for _, lit := range b.data[i+2 : i+2+count] {
				dw.printf("[%08x] LITERAL %08x\n", pos, lit)
				pos += WordBits
			}
		default:
			dw.printf("[%08x] LITERAL %d words\n", pos, count)
			pos += uint64(count) * WordBits
		}

		i += 2 + count
	}

	if rem := b.len % WordBits; rem > 0 {
		dw.printf("[%08x] PENDING %d bits: %08x\n", pos, rem, b.pending)
	}

	return dw.err
}

// dumpWriter keeps the first write error so Dump can print unconditionally.
type dumpWriter struct {
	w   io.Writer
	err error
}

func (d *dumpWriter) printf(format string, args ...any) {
	if d.err != nil {
		return
	}

	_, d.err = fmt.Fprintf(d.w, format, args...)
}

func bitValue(bit bool) int {
	if bit {
		return 1
	}

	return 0
}
