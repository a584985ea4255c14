package compressors

import (
	"fmt"
	"io"

	"github.com/INLOpen/archiv/core"
	"github.com/klauspost/compress/zstd"
)

// ZstdCodec builds zstd compressors and decompressors for one level and
// dictionary choice. It holds no mutable state and may be copied and shared
// freely.
type ZstdCodec struct {
	Level int
	Dict  Dictionary
}

// NewZstdCodec returns a codec for the given level and dictionary.
func NewZstdCodec(level int, dict Dictionary) ZstdCodec {
	return ZstdCodec{Level: level, Dict: dict}
}

// DefaultZstdCodec uses the default level and no dictionary.
func DefaultZstdCodec() ZstdCodec {
	return ZstdCodec{Level: core.DefaultCompressionLevel}
}

func (c ZstdCodec) level() int {
	if c.Level <= 0 {
		return core.DefaultCompressionLevel
	}
	return c.Level
}

func encoderOptions(level int, dict []byte) []zstd.EOption {
	opts := []zstd.EOption{
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
		// Empty items still get a frame so every item region decodes the same way.
		zstd.WithZeroFrames(true),
	}
	if len(dict) > 0 {
		opts = append(opts, zstd.WithEncoderDict(dict))
	}
	return opts
}

func decoderOptions(dict []byte) []zstd.DOption {
	opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
	if len(dict) > 0 {
		opts = append(opts, zstd.WithDecoderDicts(dict))
	}
	return opts
}

// newEncoder returns an encoder and the function that gives it back.
func (c ZstdCodec) newEncoder() (*zstd.Encoder, func(*zstd.Encoder), error) {
	switch c.Dict.kind {
	case DictionaryPrepared:
		return c.Dict.prepared.getEncoder()
	default:
		enc, err := zstd.NewWriter(nil, encoderOptions(c.level(), c.Dict.raw)...)
		if err != nil {
			return nil, nil, err
		}
		return enc, func(*zstd.Encoder) {}, nil
	}
}

// Encoder is a streaming zstd compressor writing one frame to a sink.
type Encoder struct {
	*zstd.Encoder
	put    func(*zstd.Encoder)
	closed bool
}

var _ io.WriteCloser = (*Encoder)(nil)

// NewWriter returns a compressor writing to w. Close must be called to
// finish the frame; it does not close w.
func (c ZstdCodec) NewWriter(w io.Writer) (*Encoder, error) {
	enc, put, err := c.newEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	enc.Reset(w)
	return &Encoder{Encoder: enc, put: put}, nil
}

// Close finishes the frame and releases the encoder.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	err := e.Encoder.Close()
	e.put(e.Encoder)
	if err != nil {
		return fmt.Errorf("zstd compress close error: %w", err)
	}
	return nil
}

// FrameEncoder compresses independent in-memory frames. Every frame carries
// the size of its input so a decoder can size its output up front.
type FrameEncoder struct {
	enc *zstd.Encoder
	put func(*zstd.Encoder)
}

// NewFrameEncoder returns an encoder for EncodeAll calls. Release it when done.
func (c ZstdCodec) NewFrameEncoder() (*FrameEncoder, error) {
	enc, put, err := c.newEncoder()
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	return &FrameEncoder{enc: enc, put: put}, nil
}

// EncodeAll appends one complete frame holding src to dst.
func (f *FrameEncoder) EncodeAll(src, dst []byte) []byte {
	return f.enc.EncodeAll(src, dst)
}

// Release returns the encoder. The FrameEncoder must not be used afterwards.
func (f *FrameEncoder) Release() {
	if f.enc == nil {
		return
	}
	f.put(f.enc)
	f.enc = nil
}

// Decoder is a streaming zstd decompressor. It may be pointed at a new
// source with Reset.
type Decoder struct {
	*zstd.Decoder
	put    func(*zstd.Decoder)
	closed bool
}

var _ io.ReadCloser = (*Decoder)(nil)

// NewReader returns a decompressor reading from r. r may be nil, in which
// case Reset must be called before reading.
func (c ZstdCodec) NewReader(r io.Reader) (*Decoder, error) {
	var (
		dec *zstd.Decoder
		put func(*zstd.Decoder)
		err error
	)
	switch c.Dict.kind {
	case DictionaryPrepared:
		dec, put, err = c.Dict.prepared.getDecoder()
	default:
		dec, err = zstd.NewReader(nil, decoderOptions(c.Dict.raw)...)
		put = func(d *zstd.Decoder) { d.Close() }
	}
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	d := &Decoder{Decoder: dec, put: put}
	if r != nil {
		if err := dec.Reset(r); err != nil {
			d.Close()
			return nil, fmt.Errorf("zstd decoder reset error: %w", err)
		}
	}
	return d, nil
}

// Close releases the decoder. It never fails.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.put(d.Decoder)
	return nil
}
