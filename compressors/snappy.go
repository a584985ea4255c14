package compressors

import (
	"io"

	"github.com/golang/snappy"
)

// snappyReadCloser is a framed snappy stream reader with a no-op Close.
type snappyReadCloser struct {
	*snappy.Reader
}

// Close implements the io.Closer interface for snappyReadCloser.
// The framed reader only holds in-memory buffers, so there is nothing to release.
func (src *snappyReadCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*snappyReadCloser)(nil)

func newSnappyReader(r io.Reader) io.ReadCloser {
	return &snappyReadCloser{Reader: snappy.NewReader(r)}
}

// newSnappyWriter uses the framing format, which starts with the stream
// identifier chunk DetectOuter looks for.
func newSnappyWriter(w io.Writer) io.WriteCloser {
	return snappy.NewBufferedWriter(w)
}
