package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/convert"
)

// Bitmap file formats accepted by import and written by export.
const (
	formatPositions = "positions" // whitespace separated set positions
	formatBits      = "bits"      // '0'/'1' characters, whitespace ignored
	formatRanges    = "ranges"    // export only: "start-end" per line, inclusive
	formatWAH       = "wah"       // wah.Bitmap binary form
	formatRoaring   = "roaring"   // portable 64-bit roaring serialization
)

var errUnknownFormat = errors.New("unknown format")

// readBitmap decodes r. length pads positions and roaring input; 0 ends the
// bitmap just past its last set bit.
func readBitmap(r io.Reader, format string, length uint64) (*wah.Bitmap, error) {
	switch format {
	case formatPositions:
		return readPositions(r, length)
	case formatBits:
		return readBits(r)
	case formatWAH:
		b := wah.New()
		if _, err := b.ReadFrom(r); err != nil {
			return nil, err
		}

		return b, nil
	case formatRoaring:
		rb := roaring64.New()
		if _, err := rb.ReadFrom(r); err != nil {
			return nil, fmt.Errorf("reading roaring bitmap: %w", err)
		}

		return convert.FromRoaring(rb, length)
	default:
		return nil, fmt.Errorf("%w %q for import", errUnknownFormat, format)
	}
}

func readPositions(r io.Reader, length uint64) (*wah.Bitmap, error) {
	rb := roaring64.New()

	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	for sc.Scan() {
		pos, err := strconv.ParseUint(sc.Text(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid position %q", sc.Text())
		}

		rb.Add(pos)
	}

	if err := sc.Err(); err != nil {
		return nil, err
	}

	return convert.FromRoaring(rb, length)
}

func readBits(r io.Reader) (*wah.Bitmap, error) {
	b := wah.New()
	br := bufio.NewReader(r)

	var (
		chunk [64]byte
		n     uint64
	)

	flush := func() {
		b.Add(chunk[:], n)
		chunk = [64]byte{}
		n = 0
	}

	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, err
		}

		switch {
		case c == '1':
			chunk[n/8] |= 1 << (n % 8)
		case c == '0':
		case unicode.IsSpace(rune(c)):
			continue
		default:
			return nil, fmt.Errorf("invalid bit character %q", c)
		}

		n++
		if n == uint64(len(chunk))*8 {
			flush()
		}
	}

	flush()

	return b, nil
}

func writeBitmap(w io.Writer, b *wah.Bitmap, format string) error {
	switch format {
	case formatWAH:
		_, err := b.WriteTo(w)
		return err
	case formatRoaring:
		_, err := convert.ToRoaring(b).WriteTo(w)
		return err
	}

	bw := bufio.NewWriter(w)

	switch format {
	case formatPositions:
		for pos := range b.Ones() {
			bw.WriteString(strconv.FormatUint(pos, 10))
			bw.WriteByte('\n')
		}
	case formatRanges:
		b.ForEachRange(func(start, end uint64) bool {
			if end-start == 1 {
				fmt.Fprintf(bw, "%d\n", start)
			} else {
				fmt.Fprintf(bw, "%d-%d\n", start, end-1)
			}

			return true
		})
	case formatBits:
		it := b.Iterator(true)
		next, ok := it.Next()

		for i := uint64(0); i < b.Len(); i++ {
			if ok && next == i {
				bw.WriteByte('1')
				next, ok = it.Next()
			} else {
				bw.WriteByte('0')
			}
		}

		bw.WriteByte('\n')
	default:
		return fmt.Errorf("%w %q for export", errUnknownFormat, format)
	}

	return bw.Flush()
}
