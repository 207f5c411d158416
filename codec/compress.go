package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression applied to large frames.
type Compression uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, modest ratio).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio, more CPU).
	CompressionZSTD Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// BlockHeaderSize is the size of the [rawLen][compressedLen] block header.
const BlockHeaderSize = 8

// MaxBlockBytes bounds the decompressed size of a block.
const MaxBlockBytes = 256 << 20

// lz4MaxRatio is the largest expansion an LZ4 block can encode.
const lz4MaxRatio = 255

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxBlockBytes))
	return dec
}

// CompressBlock compresses data and prepends the block header.
//
// Format: [uint32 rawLen][uint32 compressedLen][payload]. A compressedLen of
// zero means the payload is stored raw, which happens for CompressionNone and
// whenever compression saves less than 10%.
func CompressBlock(data []byte, c Compression) ([]byte, error) {
	var compressed []byte
	switch {
	case c == CompressionNone || len(data) == 0:
	case c == CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		compressed = buf[:n]
	case c == CompressionZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown compression %s", c)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, BlockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		copy(out[BlockHeaderSize:], data)
		return out, nil
	}

	out := make([]byte, BlockHeaderSize+len(compressed))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], uint32(len(compressed)))
	copy(out[BlockHeaderSize:], compressed)
	return out, nil
}

// DecompressBlock reverses CompressBlock. Malformed blocks yield a *DecodeError.
func DecompressBlock(block []byte, c Compression) ([]byte, error) {
	if len(block) < BlockHeaderSize {
		return nil, &DecodeError{What: "block header", Need: BlockHeaderSize, Have: len(block)}
	}
	rawLen := int(binary.LittleEndian.Uint32(block[0:]))
	compLen := int(binary.LittleEndian.Uint32(block[4:]))
	payload := block[BlockHeaderSize:]

	if compLen == 0 {
		if len(payload) != rawLen {
			return nil, &DecodeError{Offset: BlockHeaderSize, What: "raw block", Need: rawLen, Have: len(payload)}
		}
		return payload, nil
	}
	if len(payload) != compLen {
		return nil, &DecodeError{Offset: BlockHeaderSize, What: "compressed block", Need: compLen, Have: len(payload)}
	}
	if rawLen > MaxBlockBytes {
		return nil, NewDecodeError(0, "block header", fmt.Errorf("raw length %d exceeds %d", rawLen, MaxBlockBytes))
	}

	switch c {
	case CompressionLZ4:
		if rawLen > compLen*lz4MaxRatio {
			return nil, NewDecodeError(0, "lz4 block", fmt.Errorf("raw length %d impossible for %d compressed bytes", rawLen, compLen))
		}
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, NewDecodeError(BlockHeaderSize, "lz4 block", err)
		}
		if n != rawLen {
			return nil, NewDecodeError(BlockHeaderSize, "lz4 block", errors.New("decompressed size mismatch"))
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		// The decoder grows the output itself, bounded by MaxBlockBytes.
		decoded, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, NewDecodeError(BlockHeaderSize, "zstd block", err)
		}
		if len(decoded) != rawLen {
			return nil, NewDecodeError(BlockHeaderSize, "zstd block", errors.New("decompressed size mismatch"))
		}
		return decoded, nil
	default:
		return nil, NewDecodeError(BlockHeaderSize, "block", fmt.Errorf("unknown compression %s", c))
	}
}
