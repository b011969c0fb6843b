// Copyright 2024 Matt Brandt. All Rights Reserved.

package pack

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor compresses a complete Pack message for storage or transport
// (§7's "stored/transmitted as an opaque blob" note). A Pack stream itself
// carries no compression marker; callers that want a self-describing
// compressed envelope should pair a Compressor with a type tag of their own
// choosing (e.g. a leading byte, or a Bin field holding the compressed
// payload).
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec compresses and decompresses with the same algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// lz4CompressorPool pools lz4.Compressor instances; they hold a match-finder
// table that is wasteful to reallocate per call.
var lz4CompressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

// LZ4Codec compresses with LZ4 block compression: low ratio, very fast,
// suited to latency-sensitive transport of Pack messages.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

// NewLZ4Codec returns an LZ4Codec.
func NewLZ4Codec() LZ4Codec { return LZ4Codec{} }

func (LZ4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)

	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("pack: lz4 compress: %w", err)
	}
	if n == 0 {
		// Incompressible block: lz4 declines to emit anything shorter than
		// the input, so fall back to storing it verbatim with a length
		// prefix the decompressor can recognize.
		return append(appendVarint([]byte{0}, uint64(len(data))), data...), nil
	}
	return append(appendVarint([]byte{1}, uint64(len(data))), dst[:n]...), nil
}

func (LZ4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	stored := data[0] == 0
	size, n, err := decodeVarint(data[1:])
	if err != nil || n == 0 {
		return nil, fmt.Errorf("pack: lz4 decompress: corrupt header")
	}
	body := data[1+n:]
	if stored {
		out := make([]byte, size)
		copy(out, body)
		return out, nil
	}
	dst := make([]byte, size)
	got, err := lz4.UncompressBlock(body, dst)
	if err != nil {
		return nil, fmt.Errorf("pack: lz4 decompress: %w", err)
	}
	return dst[:got], nil
}

// zstdEncoderPool and zstdDecoderPool hold warmed-up zstd encoders/decoders;
// the klauspost/compress library is explicitly designed for this reuse
// pattern (allocation-free after warmup).
var (
	zstdEncoderPool = sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
			if err != nil {
				panic(fmt.Sprintf("pack: zstd encoder init: %v", err))
			}
			return enc
		},
	}
	zstdDecoderPool = sync.Pool{
		New: func() any {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
			if err != nil {
				panic(fmt.Sprintf("pack: zstd decoder init: %v", err))
			}
			return dec
		},
	}
)

// ZstdCodec compresses with Zstandard: higher ratio than LZ4Codec, suited to
// cold storage or archival of Pack messages.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}

// NewZstdCodec returns a ZstdCodec.
func NewZstdCodec() ZstdCodec { return ZstdCodec{} }

func (ZstdCodec) Compress(data []byte) ([]byte, error) {
	enc, _ := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (ZstdCodec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec, _ := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(dec)
	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("pack: zstd decompress: %w", err)
	}
	return out, nil
}
