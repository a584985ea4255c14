package compressors

import (
	"bytes"
	"fmt"
	"io"

	"github.com/INLOpen/archiv/core"
)

// MaxMagicLen is the number of leading bytes DetectOuter needs to recognise
// every outer compression layer.
const MaxMagicLen = 10

type outerMagic struct {
	typ   core.CompressionType
	magic []byte
}

var outerMagics = []outerMagic{
	{core.CompressionZSTD, core.ZstdMagic},
	{core.CompressionGzip, core.GzipMagic},
	{core.CompressionLZ4, core.LZ4Magic},
	{core.CompressionSnappy, core.SnappyMagic},
}

// DetectOuter reports which outer compression layer, if any, the input
// starting with peek is wrapped in. peek may be shorter than MaxMagicLen when
// the input is short.
func DetectOuter(peek []byte) (core.CompressionType, bool) {
	for _, m := range outerMagics {
		if bytes.HasPrefix(peek, m.magic) {
			return m.typ, true
		}
	}
	return core.CompressionNone, false
}

// NewOuterReader unwraps one outer compression layer of type t. zstd layers
// are decoded through codec so that dictionary-compressed streams resolve.
// Closing the returned reader does not close r.
func NewOuterReader(t core.CompressionType, r io.Reader, codec ZstdCodec) (io.ReadCloser, error) {
	switch t {
	case core.CompressionZSTD:
		return codec.NewReader(r)
	case core.CompressionGzip:
		return newGzipReader(r)
	case core.CompressionLZ4:
		return newLZ4Reader(r), nil
	case core.CompressionSnappy:
		return newSnappyReader(r), nil
	case core.CompressionNone:
		return newNoneReader(r), nil
	default:
		return nil, fmt.Errorf("unsupported outer compression %v", t)
	}
}

// WrapWriter wraps w in one outer compression layer of type t. zstd layers
// use level without a dictionary. Close finishes the layer but does not close w.
func WrapWriter(t core.CompressionType, w io.Writer, level int) (io.WriteCloser, error) {
	switch t {
	case core.CompressionZSTD:
		return NewZstdCodec(level, NoDictionary()).NewWriter(w)
	case core.CompressionGzip:
		return newGzipWriter(w, level)
	case core.CompressionLZ4:
		return newLZ4Writer(w), nil
	case core.CompressionSnappy:
		return newSnappyWriter(w), nil
	case core.CompressionNone:
		return newNoneWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported outer compression %v", t)
	}
}
