package archive

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/INLOpen/archiv/compressors"
	"github.com/INLOpen/archiv/core"
	"github.com/klauspost/compress/zstd"
)

// ReadOptions holds configuration for opening an archive.
type ReadOptions struct {
	// MaxItemSize is the ceiling on declared item lengths. Longer items fail
	// with core.ErrInvalidItem before anything is allocated for them. Zero
	// means core.DefaultMaxItemSize.
	MaxItemSize uint64
	// Codec decodes zstd layers and item frames; its dictionary must match
	// the one used for writing.
	Codec compressors.ZstdCodec
	// MaxOuterLayers bounds how many nested outer compression layers are unwrapped.
	MaxOuterLayers int
	Logger         *slog.Logger
}

// DefaultReadOptions allows items up to 2 GiB and no dictionary.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		MaxItemSize:    core.DefaultMaxItemSize,
		Codec:          compressors.DefaultZstdCodec(),
		MaxOuterLayers: core.DefaultMaxOuterLayers,
	}
}

// WithMaxItemSize returns a copy of o using the given ceiling.
func (o ReadOptions) WithMaxItemSize(n uint64) ReadOptions {
	o.MaxItemSize = n
	return o
}

// WithDictionary returns a copy of o decoding with dict.
func (o ReadOptions) WithDictionary(dict compressors.Dictionary) ReadOptions {
	o.Codec.Dict = dict
	return o
}

func (o ReadOptions) validate() error {
	if o.MaxItemSize >= core.AbsoluteMaxItemSize {
		return fmt.Errorf("max item size %d must be below %d", o.MaxItemSize, core.AbsoluteMaxItemSize)
	}
	return nil
}

// Reader enumerates the items of an archive in write order. The layout is
// taken from the archive header, not chosen by the caller.
//
// A Reader is not safe for concurrent use. Only one Item is live at a time:
// calling NextItem releases the previous one.
type Reader struct {
	kind    core.Kind
	body    *bufio.Reader // archive bytes after the header, outer layers removed
	layers  []core.CompressionType
	closers []io.Closer

	maxItemSize uint64
	codec       compressors.ZstdCodec
	decoder     *compressors.Decoder // KindItemCompressed: reused for every item

	current  *Item
	poisoned bool
	err      error // sticky: item boundaries are lost after a framing error
	done     bool
	logger   *slog.Logger
}

// Stream opens the archive on src. Outer compression layers (zstd, gzip, lz4
// frame, snappy framing) are detected from their magic and removed before
// the header is parsed.
func (o ReadOptions) Stream(src io.Reader) (*Reader, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxItemSize := o.MaxItemSize
	if maxItemSize == 0 {
		maxItemSize = core.DefaultMaxItemSize
	}
	maxLayers := o.MaxOuterLayers
	if maxLayers <= 0 {
		maxLayers = core.DefaultMaxOuterLayers
	}

	r := &Reader{
		maxItemSize: maxItemSize,
		codec:       o.Codec,
		logger:      logger,
	}
	body, ok := src.(*bufio.Reader)
	if !ok {
		body = bufio.NewReader(src)
	}

	for {
		peek, err := body.Peek(compressors.MaxMagicLen)
		if err != nil && !errors.Is(err, io.EOF) {
			r.Close()
			return nil, fmt.Errorf("failed to peek archive start: %w", err)
		}
		typ, found := compressors.DetectOuter(peek)
		if !found {
			break
		}
		if len(r.layers) >= maxLayers {
			r.Close()
			return nil, fmt.Errorf("%w: more than %d nested %v layers", core.ErrMagicMissing, maxLayers, typ)
		}
		inner, err := compressors.NewOuterReader(typ, body, o.Codec)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to open outer %v layer: %w", typ, err)
		}
		r.closers = append(r.closers, inner)
		r.layers = append(r.layers, typ)
		logger.Debug("Unwrapping outer compression layer", "type", typ, "depth", len(r.layers))
		body = bufio.NewReader(inner)
	}
	r.body = body

	var header [core.MarkerSize]byte
	if _, err := io.ReadFull(body, header[:]); err != nil {
		r.Close()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: input too short for a header: %w", core.ErrMagicMissing, err)
		}
		return nil, fmt.Errorf("failed to read archive header: %w", err)
	}
	kind, err := ParseHeader(header)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.kind = kind

	if kind == core.KindItemCompressed {
		dec, err := o.Codec.NewReader(nil)
		if err != nil {
			r.Close()
			return nil, err
		}
		r.decoder = dec
	}
	logger.Debug("Opened archive", "kind", kind, "outer_layers", len(r.layers), "max_item_size", maxItemSize)
	return r, nil
}

// Kind returns the archive layout read from the header.
func (r *Reader) Kind() core.Kind {
	return r.kind
}

// Layers returns the outer compression layers removed, outermost first.
func (r *Reader) Layers() []core.CompressionType {
	return r.layers
}

// NextItem returns the next item, or io.EOF once the footer has been read.
//
// In plain mode the previous item must have been read to its end: releasing
// it early (by Close or by calling NextItem) poisons the Reader and this and
// every later call fails with core.ErrAPIMisuse. In item mode the unread rest
// of the previous item is skipped.
//
// Once the framing cannot be followed (a rejected length prefix, a short
// read) every later call returns the same error. An item-mode frame rejected
// for its declared content size is skipped instead, so the following item
// can still be read.
func (r *Reader) NextItem() (*Item, error) {
	if r.current != nil {
		r.current.release()
	}
	if r.poisoned {
		return nil, fmt.Errorf("%w: a previous item was not fully read", core.ErrAPIMisuse)
	}
	if r.err != nil {
		return nil, r.err
	}
	if r.done {
		return nil, io.EOF
	}
	if r.kind == core.KindItemCompressed {
		if err := r.skipRemainder(); err != nil {
			return nil, r.fail(err)
		}
	}

	var prefix [core.MarkerSize]byte
	if _, err := io.ReadFull(r.body, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, r.fail(fmt.Errorf("failed to read item length (archive not terminated?): %w", err))
	}
	length := binary.LittleEndian.Uint64(prefix[:])
	if IsFooter(length) {
		r.done = true
		r.logger.Debug("Reached archive footer", "kind", r.kind)
		return nil, io.EOF
	}
	if length > r.maxItemSize {
		return nil, r.fail(&core.InvalidItemError{Length: length, Limit: r.maxItemSize})
	}

	switch r.kind {
	case core.KindPlain:
		r.current = &Item{r: r, length: length, remaining: length, src: r.body}
	default:
		item, err := r.openFrame(length)
		if err != nil {
			return nil, err
		}
		r.current = item
	}
	return r.current, nil
}

// openFrame bounds the next length bytes and puts the item decoder on them.
func (r *Reader) openFrame(length uint64) (*Item, error) {
	region := &io.LimitedReader{R: r.body, N: int64(length)}
	item := &Item{r: r, length: length, remaining: length, region: region}
	if length == 0 {
		item.src = region
		return item, nil
	}

	// The frame header carries the original size; a frame claiming more than
	// the ceiling is rejected before it is decoded.
	peekLen := min(int(length), zstd.HeaderMaxSize)
	if peek, err := r.body.Peek(peekLen); err == nil {
		var h zstd.Header
		if h.Decode(peek) == nil && h.HasFCS {
			if h.FrameContentSize > r.maxItemSize {
				rejected := &core.InvalidItemError{Length: h.FrameContentSize, Limit: r.maxItemSize}
				if _, err := io.Copy(io.Discard, region); err != nil || region.N != 0 {
					return nil, r.fail(rejected)
				}
				r.logger.Warn("Skipped item frame above the size limit", "content_size", h.FrameContentSize, "limit", r.maxItemSize)
				return nil, rejected
			}
			item.sizeHint = h.FrameContentSize
			item.hasHint = true
		}
	}

	if err := r.decoder.Reset(region); err != nil {
		return nil, r.fail(fmt.Errorf("zstd decoder reset error: %w", err))
	}
	item.src = r.decoder
	return item, nil
}

// skipRemainder discards whatever the caller left unread of the previous
// item-mode region.
func (r *Reader) skipRemainder() error {
	if r.current == nil || r.current.region == nil {
		r.current = nil
		return nil
	}
	region := r.current.region
	r.current = nil
	if region.N == 0 {
		return nil
	}
	if _, err := io.Copy(io.Discard, region); err != nil {
		return fmt.Errorf("failed to skip item remainder: %w", err)
	}
	if region.N != 0 {
		return fmt.Errorf("failed to skip item remainder: %w", io.ErrUnexpectedEOF)
	}
	return nil
}

func (r *Reader) fail(err error) error {
	r.err = err
	return err
}

// Close releases the decoders held by the Reader. It does not close the source.
func (r *Reader) Close() error {
	if r.current != nil {
		r.current.release()
	}
	if r.decoder != nil {
		_ = r.decoder.Close()
		r.decoder = nil
	}
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}
