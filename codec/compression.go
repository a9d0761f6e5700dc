package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/wah"
)

// Compressor compresses whole blocks.
// Implementations must be safe for concurrent use.
type Compressor interface {
	// ID is the stable byte recorded in frames.
	ID() byte
	Name() string
	Compress(src []byte) ([]byte, error)
	// Decompress expands src, which must decode to exactly size bytes.
	Decompress(src []byte, size int) ([]byte, error)
}

const (
	// IDNone marks an uncompressed frame payload.
	IDNone byte = 0
	// IDLZ4 marks LZ4 block compression (fast, good for hot data).
	IDLZ4 byte = 1
	// IDZstd marks zstd compression (better ratio, good for cold data).
	IDZstd byte = 2
)

// MaxFrameSize is the payload limit Unframe enforces.
const MaxFrameSize = 1 << 30

// lz4MaxRatio bounds the expansion of one LZ4 block.
const lz4MaxRatio = 255

var errSizeMismatch = errors.New("codec: decompressed size mismatch")

// CompressorByName returns a built-in compressor by name.
func CompressorByName(name string) (Compressor, error) {
	switch name {
	case "none", "":
		return None{}, nil
	case "lz4":
		return LZ4{}, nil
	case "zstd":
		return Zstd{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
}

// CompressorByID returns a built-in compressor by frame id.
func CompressorByID(id byte) (Compressor, error) {
	switch id {
	case IDNone:
		return None{}, nil
	case IDLZ4:
		return LZ4{}, nil
	case IDZstd:
		return Zstd{}, nil
	default:
		return nil, fmt.Errorf("%w: id %d", ErrUnknownCodec, id)
	}
}

// None stores payloads as is.
type None struct{}

func (None) ID() byte     { return IDNone }
func (None) Name() string { return "none" }

func (None) Compress(src []byte) ([]byte, error) { return src, nil }

func (None) Decompress(src []byte, size int) ([]byte, error) {
	if len(src) != size {
		return nil, errSizeMismatch
	}

	return src, nil
}

// LZ4 uses LZ4 block compression.
type LZ4 struct{}

func (LZ4) ID() byte     { return IDLZ4 }
func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(src []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(src)))

	n, err := lz4.CompressBlock(src, compressed, nil)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, nil // Incompressible
	}

	return compressed[:n], nil
}

func (LZ4) Decompress(src []byte, size int) ([]byte, error) {
	if size > lz4MaxRatio*len(src)+16 {
		return nil, errSizeMismatch
	}

	out := make([]byte, size)

	n, err := lz4.UncompressBlock(src, out)
	if err != nil {
		return nil, err
	}

	if n != size {
		return nil, errSizeMismatch
	}

	return out, nil
}

// zstd encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}

	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}

	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(max(MaxFrameSize, wah.MaxEncodedSize)))

	return dec
}

// Zstd uses zstd compression at the default level.
type Zstd struct{}

func (Zstd) ID() byte     { return IDZstd }
func (Zstd) Name() string { return "zstd" }

func (Zstd) Compress(src []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)

	return enc.EncodeAll(src, nil), nil
}

func (Zstd) Decompress(src []byte, size int) ([]byte, error) {
	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)

	out, err := dec.DecodeAll(src, make([]byte, 0, size))
	if err != nil {
		return nil, err
	}

	if len(out) != size {
		return nil, errSizeMismatch
	}

	return out, nil
}

// frameHeaderSize is [id u8][uncompressed size u32].
const frameHeaderSize = 5

// Frame compresses payload with c and prefixes the result with the
// compressor id and the uncompressed size. Payloads that do not shrink below
// 90% of their size are stored uncompressed.
func Frame(c Compressor, payload []byte) ([]byte, error) {
	if c == nil {
		c = None{}
	}

	id := c.ID()

	body, err := c.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("codec: %s compress: %w", c.Name(), err)
	}

	if id != IDNone && (len(body) == 0 || float64(len(body)) > float64(len(payload))*0.9) {
		id, body = IDNone, payload
	}

	out := make([]byte, frameHeaderSize, frameHeaderSize+len(body))
	out[0] = id
	binary.LittleEndian.PutUint32(out[1:], uint32(len(payload)))

	return append(out, body...), nil
}

// Unframe decodes a frame written by Frame whose payload is at most
// MaxFrameSize bytes.
func Unframe(data []byte) ([]byte, error) {
	return UnframeLimit(data, MaxFrameSize)
}

// UnframeLimit decodes a frame, rejecting declared payloads above limit
// before allocating.
func UnframeLimit(data []byte, limit int) ([]byte, error) {
	if len(data) < frameHeaderSize {
		return nil, ErrShortFrame
	}

	c, err := CompressorByID(data[0])
	if err != nil {
		return nil, err
	}

	size := int(binary.LittleEndian.Uint32(data[1:]))
	if size > limit {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, size, limit)
	}

	out, err := c.Decompress(data[frameHeaderSize:], size)
	if err != nil {
		return nil, fmt.Errorf("codec: %s decompress: %w", c.Name(), err)
	}

	return out, nil
}

// FrameCompressor reports the compressor recorded in a frame header.
func FrameCompressor(data []byte) (Compressor, error) {
	if len(data) < frameHeaderSize {
		return nil, ErrShortFrame
	}

	return CompressorByID(data[0])
}
