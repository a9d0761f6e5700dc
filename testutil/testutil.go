package testutil

import (
	"math/rand"
	"sync"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// RandomBits returns n independent bits, each set with probability density.
func (r *RNG) RandomBits(n int, density float64) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]bool, n)
	for i := range out {
		out[i] = r.rand.Float64() < density
	}

	return out
}

// RunnyBits returns n bits made of alternating runs whose lengths are
// uniform in [1, 2*meanRun]. Some runs are replaced by random noise so the
// result mixes long runs with literal words.
func (r *RNG) RunnyBits(n, meanRun int) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]bool, 0, n)
	bit := r.rand.Intn(2) == 1

	for len(out) < n {
		run := 1 + r.rand.Intn(2*meanRun)
		noisy := r.rand.Intn(4) == 0

		for i := 0; i < run && len(out) < n; i++ {
			if noisy {
				out = append(out, r.rand.Intn(2) == 1)
			} else {
				out = append(out, bit)
			}
		}

		bit = !bit
	}

	return out
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]byte, n)
	_, _ = r.rand.Read(out)

	return out
}

// Pack encodes bits little-endian: bit i lands in byte i/8 at position i%8.
func Pack(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (i % 8)
		}
	}

	return out
}

// Unpack decodes the first n bits of data.
func Unpack(data []byte, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = data[i/8]&(1<<(i%8)) != 0
	}

	return out
}

// Count returns the number of set bits.
func Count(bits []bool) uint64 {
	var n uint64
	for _, b := range bits {
		if b {
			n++
		}
	}

	return n
}

// Positions returns the indexes of the bits equal to bit.
func Positions(bits []bool, bit bool) []uint64 {
	out := []uint64{}
	for i, b := range bits {
		if b == bit {
			out = append(out, uint64(i))
		}
	}

	return out
}

func at(bits []bool, i int) bool { return i < len(bits) && bits[i] }

func combine(a, b []bool, fn func(x, y bool) bool) []bool {
	out := make([]bool, max(len(a), len(b)))
	for i := range out {
		out[i] = fn(at(a, i), at(b, i))
	}

	return out
}

// AndBits returns a AND b with the shorter operand zero-extended.
func AndBits(a, b []bool) []bool {
	return combine(a, b, func(x, y bool) bool { return x && y })
}

// OrBits returns a OR b with the shorter operand zero-extended.
func OrBits(a, b []bool) []bool {
	return combine(a, b, func(x, y bool) bool { return x || y })
}

// AndNotBits returns a AND NOT b with the shorter operand zero-extended.
func AndNotBits(a, b []bool) []bool {
	return combine(a, b, func(x, y bool) bool { return x && !y })
}

// NotAndBits returns NOT a AND b with the shorter operand zero-extended.
func NotAndBits(a, b []bool) []bool {
	return combine(a, b, func(x, y bool) bool { return !x && y })
}

// NotBits returns the complement of a.
func NotBits(a []bool) []bool {
	out := make([]bool, len(a))
	for i, b := range a {
		out[i] = !b
	}

	return out
}
