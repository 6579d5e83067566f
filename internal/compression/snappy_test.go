package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnappyCompressor_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short text", []byte("forecast.completed")},
		{"repeating rows", bytes.Repeat([]byte(`{"product_name":"rice","forecast_qty":10}`), 200)},
		{"binary", []byte{0, 1, 2, 255, 254, 0, 0, 7}},
	}

	c := NewSnappyCompressor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := c.Compress(tt.data)
			require.NoError(t, err)

			decompressed, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, tt.data, decompressed)
		})
	}
}

func TestSnappyCompressor_EmptyData(t *testing.T) {
	c := NewSnappyCompressor()

	compressed, err := c.Compress([]byte{})
	require.NoError(t, err)
	assert.Empty(t, compressed)

	decompressed, err := c.Decompress([]byte{})
	require.NoError(t, err)
	assert.Empty(t, decompressed)
}

func TestSnappyCompressor_InvalidCompressedData(t *testing.T) {
	_, err := NewSnappyCompressor().Decompress([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	assert.Error(t, err)
}

func BenchmarkSnappyCompress(b *testing.B) {
	c := NewSnappyCompressor()
	data := bytes.Repeat([]byte("2024-06-01,12.0,2024,6,1,rice,kg,b2c,XGBOOST_RECURSIVE\n"), 1000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Compress(data)
	}
}
