package compressors

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

func newGzipReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	return zr, nil
}

// newGzipWriter maps zstd-style levels onto gzip's 1..9 range.
func newGzipWriter(w io.Writer, level int) (io.WriteCloser, error) {
	switch {
	case level <= 0:
		level = gzip.DefaultCompression
	case level > gzip.BestCompression:
		level = gzip.BestCompression
	}
	zw, err := gzip.NewWriterLevel(w, level)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	return zw, nil
}
