package archive

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/INLOpen/archiv/core"
)

// Item is a view of one archive item. It reads the payload from the Reader
// that returned it and stays valid until it is closed or NextItem is called
// again.
//
// Close must be called (or NextItem must be reached) for the poisoning
// guard of plain archives to apply: a plain-mode Item released with unread
// bytes makes every later NextItem fail with core.ErrAPIMisuse.
type Item struct {
	r         *Reader
	length    uint64 // declared length of the framed region
	remaining uint64 // KindPlain: payload bytes not yet read
	src       io.Reader

	region   *io.LimitedReader // KindItemCompressed: the compressed frame
	sizeHint uint64
	hasHint  bool
	decoded  uint64

	released bool
}

var _ io.ReadCloser = (*Item)(nil)

// Len returns the declared length of the item region: the payload size in
// plain mode, the compressed frame size in item mode.
func (it *Item) Len() uint64 {
	return it.length
}

// SizeHint returns the payload size when it is known before reading: always
// in plain mode, and in item mode when the frame header carries it.
func (it *Item) SizeHint() (uint64, bool) {
	if it.r.kind == core.KindPlain {
		return it.length, true
	}
	return it.sizeHint, it.hasHint
}

// Read reads payload bytes. It returns io.EOF at the end of the item.
func (it *Item) Read(p []byte) (int, error) {
	if it.released {
		return 0, fmt.Errorf("%w: read from a released item", core.ErrAPIMisuse)
	}
	if it.r.kind == core.KindPlain {
		return it.readStream(p)
	}
	return it.readFrame(p)
}

func (it *Item) readStream(p []byte) (int, error) {
	if it.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > it.remaining {
		p = p[:it.remaining]
	}
	n, err := it.src.Read(p)
	it.remaining -= uint64(n)
	if errors.Is(err, io.EOF) {
		if it.remaining > 0 {
			return n, fmt.Errorf("failed to read item data: %w", io.ErrUnexpectedEOF)
		}
		err = nil
	}
	return n, err
}

func (it *Item) readFrame(p []byte) (int, error) {
	n, err := it.src.Read(p)
	it.decoded += uint64(n)
	if it.decoded > it.r.maxItemSize {
		return n, &core.InvalidItemError{Length: it.decoded, Limit: it.r.maxItemSize}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("zstd decompress error: %w", err)
	}
	return n, err
}

// ReadAll reads the rest of the item into a new slice. The buffer is sized
// from the item's known size, which never exceeds the reader's ceiling.
func (it *Item) ReadAll() ([]byte, error) {
	size, known := it.SizeHint()
	if it.r.kind == core.KindPlain {
		size = it.remaining
	}
	if !known || it.decoded > 0 {
		return io.ReadAll(it)
	}
	if size > uint64(math.MaxInt) {
		return nil, &core.InvalidItemError{Length: size, Limit: uint64(math.MaxInt)}
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(it, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if it.r.kind == core.KindItemCompressed {
		// The frame header promised size bytes; anything beyond is corruption.
		var extra [1]byte
		if n, err := it.Read(extra[:]); n != 0 || !errors.Is(err, io.EOF) {
			if err == nil || errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: frame longer than its declared content size", core.ErrInvalidItem)
			}
			return nil, err
		}
	}
	return buf, nil
}

// Discard reads and drops the rest of the item, which counts as fully
// reading it. It returns the number of payload bytes dropped.
func (it *Item) Discard() (int64, error) {
	return io.Copy(io.Discard, it)
}

// Close releases the item. In plain mode, closing an item with unread bytes
// poisons the Reader.
func (it *Item) Close() error {
	it.release()
	return nil
}

func (it *Item) release() {
	if it.released {
		return
	}
	it.released = true
	if it.r.kind == core.KindPlain && it.remaining != 0 {
		it.r.poisoned = true
		it.r.logger.Warn("Item released before it was fully read, reader poisoned", "length", it.length, "remaining", it.remaining)
	}
}
