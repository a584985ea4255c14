package compressors

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameEncoder_ContentSize(t *testing.T) {
	frames, err := DefaultZstdCodec().NewFrameEncoder()
	require.NoError(t, err)
	defer frames.Release()

	for _, payload := range [][]byte{[]byte("hello world"), bytes.Repeat([]byte("abc"), 10000)} {
		frame := frames.EncodeAll(payload, nil)
		var h zstd.Header
		require.NoError(t, h.Decode(frame))
		require.True(t, h.HasFCS, "independent frames carry their content size")
		assert.Equal(t, uint64(len(payload)), h.FrameContentSize)
	}

	t.Run("empty input still produces a frame", func(t *testing.T) {
		frame := frames.EncodeAll(nil, nil)
		require.NotEmpty(t, frame)
		r, err := DefaultZstdCodec().NewReader(bytes.NewReader(frame))
		require.NoError(t, err)
		defer r.Close()
		got, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestDecoder_Reset(t *testing.T) {
	codec := NewZstdCodec(1, NoDictionary())
	frames, err := codec.NewFrameEncoder()
	require.NoError(t, err)
	a := frames.EncodeAll([]byte("first"), nil)
	b := frames.EncodeAll([]byte("second"), nil)
	frames.Release()

	dec, err := codec.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	for _, tc := range []struct {
		frame []byte
		want  string
	}{{a, "first"}, {b, "second"}} {
		require.NoError(t, dec.Reset(bytes.NewReader(tc.frame)))
		got, err := io.ReadAll(dec)
		require.NoError(t, err)
		assert.Equal(t, tc.want, string(got))
	}
	require.NoError(t, dec.Close())
	require.NoError(t, dec.Close())
}

func BenchmarkFrameEncoder(b *testing.B) {
	doc := bytes.Join(sampleDocs(20), []byte("\n"))
	frames, err := DefaultZstdCodec().NewFrameEncoder()
	require.NoError(b, err)
	defer frames.Release()
	var dst []byte
	b.SetBytes(int64(len(doc)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dst = frames.EncodeAll(doc, dst[:0])
	}
}
