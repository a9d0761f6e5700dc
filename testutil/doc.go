// Package testutil provides deterministic generators and boolean reference
// models for testing bitmaps.
//
// Example:
//
//	rng := testutil.NewRNG(42)
//	bits := rng.RunnyBits(10_000, 64)
//	data := testutil.Pack(bits)
//
// The reference models operate on []bool and treat the shorter operand as
// zero-extended, matching the semantics of the compressed operations.
package testutil
