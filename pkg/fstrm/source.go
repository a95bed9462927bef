package fstrm

import (
	"errors"
	"io"
	"net"
	"os"
)

// ByteSource supplies the raw bytes of a stream.
//
// Pull returns between 1 and max bytes with a nil error, or ErrWouldBlock
// when nothing is ready, io.EOF at the end of the stream, or any other
// error on transport failure. Bytes returned together with an error are
// consumed before the error is acted on. The returned slice is only valid
// until the next call.
type ByteSource interface {
	Pull(max int) ([]byte, error)
}

// ResponseSink is the write side of a bidirectional connection. Each call
// carries one complete control frame.
type ResponseSink interface {
	Write(p []byte) (int, error)
}

// ReaderSource adapts an io.Reader to ByteSource. Read timeouts, such as an
// expired deadline on a net.Conn, are reported as ErrWouldBlock.
type ReaderSource struct {
	r   io.Reader
	buf []byte
}

// NewReaderSource returns a ByteSource reading from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

// Pull reads up to max bytes.
func (s *ReaderSource) Pull(max int) ([]byte, error) {
	if max <= 0 {
		return nil, nil
	}
	if cap(s.buf) < max {
		s.buf = make([]byte, max)
	}
	n, err := s.r.Read(s.buf[:max])
	p := s.buf[:n]
	switch {
	case err == nil && n == 0:
		return nil, ErrWouldBlock
	case err == nil, errors.Is(err, io.EOF):
		return p, err
	case isTimeout(err):
		return p, ErrWouldBlock
	default:
		return p, err
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

var _ ByteSource = (*ReaderSource)(nil)
