package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackUnpack(t *testing.T) {
	bits := []bool{true, false, true, true, false, false, false, false, true}

	data := Pack(bits)

	assert.Equal(t, []byte{0x0d, 0x01}, data)
	assert.Equal(t, bits, Unpack(data, len(bits)))
}

func TestRunnyBits(t *testing.T) {
	rng := NewRNG(4711)

	bits := rng.RunnyBits(1000, 50)

	assert.Len(t, bits, 1000)

	rng.Reset()
	assert.Equal(t, bits, rng.RunnyBits(1000, 50), "reset must replay the sequence")
}

func TestRandomBitsDensity(t *testing.T) {
	rng := NewRNG(42)

	assert.Zero(t, Count(rng.RandomBits(500, 0)))
	assert.Equal(t, uint64(500), Count(rng.RandomBits(500, 1)))
}

func TestReferenceModels(t *testing.T) {
	a := []bool{true, true, false, false, true}
	b := []bool{true, false, true}

	assert.Equal(t, []bool{true, false, false, false, false}, AndBits(a, b))
	assert.Equal(t, []bool{true, true, true, false, true}, OrBits(a, b))
	assert.Equal(t, []bool{false, true, false, false, true}, AndNotBits(a, b))
	assert.Equal(t, []bool{false, false, true, false, false}, NotAndBits(a, b))
	assert.Equal(t, []bool{false, false, true, true, false}, NotBits(a))
	assert.Equal(t, []uint64{0, 1, 4}, Positions(a, true))
}
