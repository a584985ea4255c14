package compressors

import "io"

// passthroughReader passes the input through unchanged.
type passthroughReader struct {
	io.Reader
}

func (p *passthroughReader) Close() error {
	return nil
}

type passthroughWriter struct {
	io.Writer
}

func (p *passthroughWriter) Close() error {
	return nil
}

func newNoneReader(r io.Reader) io.ReadCloser {
	return &passthroughReader{Reader: r}
}

func newNoneWriter(w io.Writer) io.WriteCloser {
	return &passthroughWriter{Writer: w}
}
