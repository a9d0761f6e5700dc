package wah

import "sync"

// DefaultMaxPooledWords is the largest store capacity, in words, a Pool keeps
// by default.
const DefaultMaxPooledWords = 1 << 16

// Pool is a pool of reusable bitmaps. Thread-safe.
type Pool struct {
	pool     sync.Pool
	maxWords int
}

// NewPool creates a pool that drops bitmaps whose store grew beyond maxWords
// words instead of keeping them. A non-positive maxWords selects
// DefaultMaxPooledWords.
func NewPool(maxWords int) *Pool {
	if maxWords <= 0 {
		maxWords = DefaultMaxPooledWords
	}

	return &Pool{
		maxWords: maxWords,
		pool: sync.Pool{
			New: func() any {
				return New()
			},
		},
	}
}

// Get retrieves an empty bitmap from the pool.
func (p *Pool) Get() *Bitmap {
	b := p.pool.Get().(*Bitmap)
	b.Reset()

	return b
}

// Put returns a bitmap to the pool. The caller must not use b afterwards.
func (p *Pool) Put(b *Bitmap) {
	if b == nil || cap(b.data) > p.maxWords {
		return
	}

	b.Reset()
	p.pool.Put(b)
}
