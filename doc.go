// Package wah implements Word-Aligned Hybrid compressed bitmaps over 32-bit
// words.
//
// A Bitmap is built by appending bits at its tail and supports point queries,
// ordered enumeration of set or clear positions and boolean algebra that works
// on the compressed form without materializing the uncompressed bitset.
//
// # Encoding
//
// The word store is a flat []uint32 made of consecutive blocks:
//
//	header | count | literal × count
//
// A header describes a run of identical trivial words (all zeros or all ones)
// with the run value in bit 31 and the run length, in words, in bits 0-30.
// The count gives the number of verbatim literal words that follow. The first
// block always starts at index 0 and its run may be empty. The newest
// len%32 bits live in a pending word outside the store.
//
// # Building
//
//	b := wah.New()
//	b.Add0s(1000)
//	b.Add1s(64)
//	b.Add([]byte{0x1f, 0x00, 0x00, 0x8c}, 32)
//
// # Algebra
//
// And, Or, AndNot and NotAnd mutate the receiver and read the argument; the
// shorter operand is treated as zero-extended. Not complements in place.
//
//	a.And(b)
//	a.Not()
//	for pos := range a.Ones() {
//		fmt.Println(pos)
//	}
//
// # Concurrency
//
// A Bitmap is not safe for concurrent mutation. Read-only methods may be used
// from multiple goroutines while no writer is active.
package wah
