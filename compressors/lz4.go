package compressors

import (
	"io"

	lz4 "github.com/pierrec/lz4/v4"
)

// lz4ReadCloser adds a no-op Close to the lz4 frame reader, which holds no
// resources of its own.
type lz4ReadCloser struct {
	*lz4.Reader
}

func (lrc *lz4ReadCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*lz4ReadCloser)(nil)

func newLZ4Reader(r io.Reader) io.ReadCloser {
	return &lz4ReadCloser{Reader: lz4.NewReader(r)}
}

// newLZ4Writer writes the lz4 frame format; the block format used for
// independent buffers carries no magic and cannot be detected.
func newLZ4Writer(w io.Writer) io.WriteCloser {
	return lz4.NewWriter(w)
}
