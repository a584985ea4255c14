package compressors

import (
	"bytes"
	"io"
	"testing"

	"github.com/INLOpen/archiv/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectOuter(t *testing.T) {
	testCases := []struct {
		name  string
		peek  []byte
		want  core.CompressionType
		found bool
	}{
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, core.CompressionZSTD, true},
		{"gzip", []byte{0x1f, 0x8b, 0x08}, core.CompressionGzip, true},
		{"lz4", []byte{0x04, 0x22, 0x4d, 0x18, 0x64}, core.CompressionLZ4, true},
		{"snappy", []byte("\xff\x06\x00\x00sNaPpY"), core.CompressionSnappy, true},
		{"archive header", []byte{0x29, 0xb6, 'a', 'r', 'c', 0, 0, 1}, core.CompressionNone, false},
		{"truncated zstd magic", []byte{0x28, 0xb5, 0x2f}, core.CompressionNone, false},
		{"empty", nil, core.CompressionNone, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := DetectOuter(tc.peek)
			assert.Equal(t, tc.found, found)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOuterRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("outer layer payload "), 500)
	for _, ct := range []core.CompressionType{core.CompressionNone, core.CompressionZSTD, core.CompressionGzip, core.CompressionLZ4, core.CompressionSnappy} {
		t.Run(ct.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := WrapWriter(ct, &buf, core.DefaultCompressionLevel)
			require.NoError(t, err)
			_, err = w.Write(payload)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			peek := buf.Bytes()[:min(buf.Len(), MaxMagicLen)]
			detected, found := DetectOuter(peek)
			if ct == core.CompressionNone {
				assert.False(t, found)
			} else {
				require.True(t, found)
				assert.Equal(t, ct, detected)
				assert.Less(t, buf.Len(), len(payload))
			}

			r, err := NewOuterReader(ct, &buf, DefaultZstdCodec())
			require.NoError(t, err)
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			assert.Equal(t, payload, got)
		})
	}

	t.Run("unsupported type", func(t *testing.T) {
		_, err := WrapWriter(core.CompressionType(42), io.Discard, 3)
		assert.Error(t, err)
		_, err = NewOuterReader(core.CompressionType(42), bytes.NewReader(nil), DefaultZstdCodec())
		assert.Error(t, err)
	})
}
