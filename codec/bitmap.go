package codec

import (
	"fmt"

	"github.com/hupe1980/wah"
)

// EncodeBitmap serializes b and frames it with c.
func EncodeBitmap(c Compressor, b *wah.Bitmap) ([]byte, error) {
	raw, err := b.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return Frame(c, raw)
}

// DecodeBitmap decodes a frame written by EncodeBitmap.
func DecodeBitmap(data []byte) (*wah.Bitmap, error) {
	raw, err := UnframeLimit(data, wah.MaxEncodedSize)
	if err != nil {
		return nil, err
	}

	b := &wah.Bitmap{}
	if err := b.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("codec: decode bitmap: %w", err)
	}

	return b, nil
}
