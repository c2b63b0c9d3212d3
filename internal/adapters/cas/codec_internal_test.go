package cas

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/incr/internal/core/domain"
)

func lz4Header(size uint64) []byte {
	out := make([]byte, lz4HeaderSize, lz4HeaderSize+1)
	copy(out, magicLZ4)
	binary.LittleEndian.PutUint64(out[magicSize:], size)
	return append(out, 0)
}

func TestDecode_RejectsOversizedLZ4Header(t *testing.T) {
	tests := []struct {
		name string
		size uint64
	}{
		{"just above bound", maxIndexSize + 1},
		{"one gibibyte", 1 << 30},
		{"four gibibytes", 1 << 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode(lz4Header(tt.size))
			assert.ErrorContains(t, err, "implausible size")
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	doc := []byte(`{"version":1,"entries":{"a.css":{"digest":"00ff"},"b.css":{"digest":"00ff"}}}`)
	for _, compression := range []domain.Compression{domain.CompressionNone, domain.CompressionZstd, domain.CompressionLZ4} {
		t.Run(string(compression), func(t *testing.T) {
			data, err := encode(doc, compression)
			require.NoError(t, err)
			got, err := decode(data)
			require.NoError(t, err)
			assert.Equal(t, doc, got)
		})
	}
}
