package fstrm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/fstrm-protocol/fstrm-go/pkg/control"
	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
)

// ErrEncoderClosed is returned by Encoder methods after Close.
var ErrEncoderClosed = errors.New("fstrm: encoder closed")

// Encoder writes a unidirectional Frame Streams file: START, data frames,
// then STOP on Close. It is safe for concurrent use, so several sessions
// may append to one capture file.
type Encoder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	buf    []byte
	closed bool
	frames uint64
}

// NewEncoder writes START to w and returns an Encoder. An empty
// contentType writes START without a content-type field.
func NewEncoder(w io.Writer, contentType []byte) (*Encoder, error) {
	start := control.Frame{Type: control.TypeStart}
	if len(contentType) > 0 {
		if len(contentType) > control.MaxContentTypeLength {
			return nil, fmt.Errorf("%w: %d bytes", control.ErrContentTypeTooLong, len(contentType))
		}
		start.ContentTypes = [][]byte{contentType}
	}

	e := &Encoder{w: bufio.NewWriter(w)}
	e.buf = start.AppendFrame(e.buf[:0])
	if _, err := e.w.Write(e.buf); err != nil {
		return nil, err
	}
	return e, nil
}

// Write appends one data frame. Empty payloads are rejected.
func (e *Encoder) Write(payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEncoderClosed
	}
	var err error
	e.buf, err = frame.AppendData(e.buf[:0], payload)
	if err != nil {
		return err
	}
	if _, err := e.w.Write(e.buf); err != nil {
		return err
	}
	e.frames++
	return nil
}

// Frames returns the number of data frames written.
func (e *Encoder) Frames() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frames
}

// Flush writes buffered frames to the underlying writer.
func (e *Encoder) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEncoderClosed
	}
	return e.w.Flush()
}

// Close writes STOP and flushes. It does not close the underlying writer.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if _, err := e.w.Write(control.New(control.TypeStop).AppendFrame(nil)); err != nil {
		return err
	}
	return e.w.Flush()
}
