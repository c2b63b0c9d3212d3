package cas

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.trai.ch/incr/internal/core/domain"
)

// Compressed indexes start with a 4-byte magic so the codec can be detected
// on load regardless of the configured compression.
var (
	magicZstd = []byte("INZ1")
	magicLZ4  = []byte("INL1")
)

const (
	magicSize     = 4
	lz4HeaderSize = magicSize + 8
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

// encode wraps the JSON document data with the given compression.
func encode(data []byte, compression domain.Compression) ([]byte, error) {
	switch compression {
	case domain.CompressionZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, bytes.Clone(magicZstd)), nil

	case domain.CompressionLZ4:
		out := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(len(data)))
		copy(out, magicLZ4)
		binary.LittleEndian.PutUint64(out[magicSize:], uint64(len(data)))
		n, err := lz4.CompressBlock(data, out[lz4HeaderSize:], nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			// Incompressible, store plain.
			return data, nil
		}
		return out[:lz4HeaderSize+n], nil

	default:
		return data, nil
	}
}

// decode detects the codec from the magic prefix and returns the JSON document.
func decode(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, magicZstd):
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(data[magicSize:], nil)

	case bytes.HasPrefix(data, magicLZ4):
		if len(data) < lz4HeaderSize {
			return nil, errors.New("lz4 index too small for header")
		}
		size := binary.LittleEndian.Uint64(data[magicSize:])
		if size > uint64(maxIndexSize) {
			return nil, errors.New("lz4 index declares an implausible size")
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(data[lz4HeaderSize:], out)
		if err != nil {
			return nil, err
		}
		if uint64(n) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil

	default:
		return data, nil
	}
}

// maxIndexSize bounds the allocation made for a declared uncompressed size.
const maxIndexSize = 256 << 20
