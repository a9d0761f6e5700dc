package wah

import "slices"

// flattenLastRun folds the open run into the preceding literal block when it
// is exactly one word long: one literal costs a slot where a run costs two.
func (b *Bitmap) flattenLastRun() {
	h := b.data[b.lastRun]
	if headerWords(h) != 1 || b.data[b.lastRun+1] != 0 {
		return
	}

	if b.lastRun > 0 {
		if !b.prevRun.ok {
			return
		}

		b.data = b.data[:len(b.data)-2]
		b.lastRun = b.prevRun.pos
		b.prevRun = runRef{}
	} else {
		b.data[0] = makeHeader(false, 0)
	}

	b.data[b.lastRun+1]++
	b.data = append(b.data, runWord(headerBit(h)))
}

// pushPending appends words copies of the pending word to the store and
// clears it. The caller accounts for len and active.
func (b *Bitmap) pushPending(words uint32) {
	word := b.pending
	b.pending = 0

	if words == 0 {
		return
	}

	if !isTrivial(word) {
		b.flattenLastRun()
		b.data[b.lastRun+1] += words

		b.data = slices.Grow(b.data, int(words))
		for range words {
			b.data = append(b.data, word)
		}

		return
	}

	bit := word != 0

	head := b.data[b.lastRun]
	hw := headerWords(head)

	if b.data[b.lastRun+1] == 0 && (headerBit(head) == bit || hw == 0) {
		if hw <= MaxRunWords-words {
			b.data[b.lastRun] = makeHeader(bit, hw+words)
			return
		}

		b.data[b.lastRun] = makeHeader(bit, MaxRunWords)
		words -= MaxRunWords - hw
		hw = MaxRunWords
	}

	if hw < 2 {
		b.flattenLastRun()
	}

	b.prevRun = runRef{pos: b.lastRun, ok: true}
	b.lastRun = len(b.data)
	b.data = append(b.data, makeHeader(bit, words), 0)
}

// pushRun appends n full words of value word, splitting runs that exceed the
// header capacity.
func (b *Bitmap) pushRun(word uint32, n uint64) {
	for n > 0 {
		k := min(n, MaxRunWords)
		b.pending = word
		b.pushPending(uint32(k))
		n -= k
	}
}
