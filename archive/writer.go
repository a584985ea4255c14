package archive

import (
	"fmt"
	"io"
	"log/slog"
	"math/bits"

	"github.com/INLOpen/archiv/compressors"
	"github.com/INLOpen/archiv/core"
)

// WriteOptions holds configuration for creating a new Writer.
type WriteOptions struct {
	Codec  compressors.ZstdCodec
	Logger *slog.Logger // Logger for debug messages, slog.Default() if nil
}

// DefaultWriteOptions compresses at the default level without a dictionary.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Codec: compressors.DefaultZstdCodec()}
}

// WithLevel returns a copy of o using the given zstd level.
func (o WriteOptions) WithLevel(level int) WriteOptions {
	o.Codec.Level = level
	return o
}

// WithDictionary returns a copy of o compressing with dict.
func (o WriteOptions) WithDictionary(dict compressors.Dictionary) WriteOptions {
	o.Codec.Dict = dict
	return o
}

func (o WriteOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Writer produces an archive on a sink. A Writer is either stream-compressed
// (KindPlain) or item-compressed (KindItemCompressed); the kind is fixed when
// the header is written.
//
// A Writer is not safe for concurrent use. Finish must be called exactly once
// to terminate the archive.
type Writer struct {
	kind core.Kind
	sink io.Writer
	off  uint64

	stream *compressors.Encoder      // KindPlain: one frame for the whole archive
	frames *compressors.FrameEncoder // KindItemCompressed: one frame per item
	frame  []byte                    // scratch for the compressed item
	joined []byte                    // scratch for vectored items in item mode

	finished bool
	err      error // sticky: set once a write to the sink failed
	logger   *slog.Logger
}

// StreamCompress starts a plain archive on w. The header, every item and the
// footer go through one long-lived compressor.
func (o WriteOptions) StreamCompress(w io.Writer) (*Writer, error) {
	stream, err := o.Codec.NewWriter(w)
	if err != nil {
		return nil, err
	}
	header := EncodeHeader(core.KindPlain)
	if _, err := stream.Write(header[:]); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("failed to write archive header: %w", err)
	}
	logger := o.logger()
	logger.Debug("Started stream-compressed archive", "level", o.Codec.Level, "dictionary", o.Codec.Dict.Kind())
	return &Writer{
		kind:   core.KindPlain,
		sink:   w,
		off:    core.MarkerSize,
		stream: stream,
		logger: logger,
	}, nil
}

// ItemCompress starts an item-compressed archive on w. The header, length
// prefixes and footer are written uncompressed; each item is an independent
// frame.
func (o WriteOptions) ItemCompress(w io.Writer) (*Writer, error) {
	frames, err := o.Codec.NewFrameEncoder()
	if err != nil {
		return nil, err
	}
	header := EncodeHeader(core.KindItemCompressed)
	if _, err := w.Write(header[:]); err != nil {
		frames.Release()
		return nil, fmt.Errorf("failed to write archive header: %w", err)
	}
	logger := o.logger()
	logger.Debug("Started item-compressed archive", "level", o.Codec.Level, "dictionary", o.Codec.Dict.Kind())
	return &Writer{
		kind:   core.KindItemCompressed,
		sink:   w,
		off:    core.MarkerSize,
		frames: frames,
		logger: logger,
	}, nil
}

// Create starts an archive of the given kind on w.
func (o WriteOptions) Create(w io.Writer, kind core.Kind) (*Writer, error) {
	switch kind {
	case core.KindPlain:
		return o.StreamCompress(w)
	case core.KindItemCompressed:
		return o.ItemCompress(w)
	default:
		return nil, fmt.Errorf("%w: %v", core.ErrMagicUnrecognised, kind)
	}
}

// Kind returns the archive layout being written.
func (w *Writer) Kind() core.Kind {
	return w.kind
}

// Offset returns the logical offset after the last item written.
func (w *Writer) Offset() uint64 {
	return w.off
}

// Sink returns the underlying writer. Writing to it directly corrupts the archive.
func (w *Writer) Sink() io.Writer {
	return w.sink
}

// WriteItem appends one item and returns the new logical offset: the header
// size plus every length prefix and payload written so far. In plain mode
// payloads count before compression; in item mode they count as written to
// the sink.
func (w *Writer) WriteItem(item []byte) (uint64, error) {
	return w.WriteItemVectored([][]byte{item})
}

// WriteItemVectored appends the concatenation of parts as a single item.
func (w *Writer) WriteItemVectored(parts [][]byte) (uint64, error) {
	if err := w.usable(); err != nil {
		return 0, err
	}
	length, err := itemLength(parts)
	if err != nil {
		return 0, err
	}
	if length >= core.AbsoluteMaxItemSize {
		return 0, &core.InvalidItemError{Length: length, Limit: core.AbsoluteMaxItemSize - 1}
	}

	switch w.kind {
	case core.KindPlain:
		return w.writeStreamItem(parts, length)
	default:
		return w.writeFrameItem(parts)
	}
}

func (w *Writer) writeStreamItem(parts [][]byte, length uint64) (uint64, error) {
	next, err := advance(w.off, length)
	if err != nil {
		return 0, err
	}
	prefix := encodeLength(length)
	if _, err := w.stream.Write(prefix[:]); err != nil {
		return 0, w.fail(fmt.Errorf("failed to write item length: %w", err))
	}
	for _, p := range parts {
		if _, err := w.stream.Write(p); err != nil {
			return 0, w.fail(fmt.Errorf("failed to write item data: %w", err))
		}
	}
	w.off = next
	return next, nil
}

func (w *Writer) writeFrameItem(parts [][]byte) (uint64, error) {
	src := w.join(parts)
	w.frame = w.frames.EncodeAll(src, w.frame[:0])
	frameLen := uint64(len(w.frame))
	next, err := advance(w.off, frameLen)
	if err != nil {
		return 0, err
	}
	prefix := encodeLength(frameLen)
	if _, err := w.sink.Write(prefix[:]); err != nil {
		return 0, w.fail(fmt.Errorf("failed to write item length: %w", err))
	}
	if _, err := w.sink.Write(w.frame); err != nil {
		return 0, w.fail(fmt.Errorf("failed to write item frame: %w", err))
	}
	w.off = next
	return next, nil
}

// join returns parts as one contiguous slice, copying only when there is
// more than one part.
func (w *Writer) join(parts [][]byte) []byte {
	switch len(parts) {
	case 0:
		return nil
	case 1:
		return parts[0]
	}
	w.joined = w.joined[:0]
	for _, p := range parts {
		w.joined = append(w.joined, p...)
	}
	return w.joined
}

// Finish writes the footer, finalises compression, flushes the sink if it
// supports Flush, and returns the sink. The Writer cannot be used afterwards.
func (w *Writer) Finish() (io.Writer, error) {
	if err := w.usable(); err != nil {
		if !w.finished {
			w.finished = true
			w.releaseCompressor()
		}
		return nil, err
	}
	w.finished = true
	footer := EncodeFooter()

	switch w.kind {
	case core.KindPlain:
		if _, err := w.stream.Write(footer[:]); err != nil {
			_ = w.stream.Close()
			return nil, fmt.Errorf("failed to write archive footer: %w", err)
		}
		if err := w.stream.Close(); err != nil {
			return nil, err
		}
	default:
		w.frames.Release()
		if _, err := w.sink.Write(footer[:]); err != nil {
			return nil, fmt.Errorf("failed to write archive footer: %w", err)
		}
	}

	if f, ok := w.sink.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return nil, fmt.Errorf("failed to flush archive sink: %w", err)
		}
	}
	w.logger.Debug("Finished archive", "kind", w.kind, "offset", w.off)
	return w.sink, nil
}

// releaseCompressor gives back the compressor of a Writer that failed.
func (w *Writer) releaseCompressor() {
	switch w.kind {
	case core.KindPlain:
		_ = w.stream.Close()
	default:
		w.frames.Release()
	}
}

func (w *Writer) usable() error {
	if w.finished {
		return fmt.Errorf("%w: writer already finished", core.ErrAPIMisuse)
	}
	return w.err
}

func (w *Writer) fail(err error) error {
	w.err = err
	return err
}

func itemLength(parts [][]byte) (uint64, error) {
	var total, carry uint64
	for _, p := range parts {
		total, carry = bits.Add64(total, uint64(len(p)), 0)
		if carry != 0 {
			return 0, core.ErrLengthOverflow
		}
	}
	return total, nil
}

// advance returns off plus one length prefix plus length.
func advance(off, length uint64) (uint64, error) {
	next, carry := bits.Add64(off, core.MarkerSize, 0)
	if carry != 0 {
		return 0, core.ErrLengthOverflow
	}
	next, carry = bits.Add64(next, length, 0)
	if carry != 0 {
		return 0, core.ErrLengthOverflow
	}
	return next, nil
}
