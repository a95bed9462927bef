// Package streamtest provides Frame Streams builders, scripted byte
// sources and recording sinks for tests.
package streamtest

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"sync"

	"github.com/fstrm-protocol/fstrm-go/pkg/control"
	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
	"github.com/fstrm-protocol/fstrm-go/pkg/fstrm"
)

// Builder assembles a wire-format byte stream.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Control appends a control frame.
func (b *Builder) Control(t control.Type, contentTypes ...string) *Builder {
	b.buf = control.New(t, contentTypes...).AppendFrame(b.buf)
	return b
}

// Ready appends READY.
func (b *Builder) Ready(contentTypes ...string) *Builder {
	return b.Control(control.TypeReady, contentTypes...)
}

// Start appends START.
func (b *Builder) Start(contentTypes ...string) *Builder {
	return b.Control(control.TypeStart, contentTypes...)
}

// Stop appends STOP.
func (b *Builder) Stop() *Builder {
	return b.Control(control.TypeStop)
}

// Data appends one data frame per payload. Empty payloads panic.
func (b *Builder) Data(payloads ...string) *Builder {
	for _, p := range payloads {
		var err error
		b.buf, err = frame.AppendData(b.buf, []byte(p))
		if err != nil {
			panic(err)
		}
	}
	return b
}

// Raw appends bytes verbatim.
func (b *Builder) Raw(p ...byte) *Builder {
	b.buf = append(b.buf, p...)
	return b
}

// Bytes returns a copy of the stream.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf)
}

// Source serves a fixed byte stream through ByteSource with scripted chunk
// sizes, optional ErrWouldBlock interleaving and a final error.
type Source struct {
	data   []byte
	off    int
	chunks []int
	next   int

	// BlockEvery makes every n-th pull return ErrWouldBlock (0 disables).
	BlockEvery int
	// Final is returned once data is exhausted; defaults to io.EOF.
	Final error

	pulls   int
	blocked int
	maxReq  int
}

// NewSource serves data in chunks cycling through sizes. No sizes serves
// as much as each Pull allows.
func NewSource(data []byte, sizes ...int) *Source {
	return &Source{data: data, chunks: sizes}
}

// NewRandomSource serves data in random chunks of 1..maxChunk bytes,
// deterministically derived from seed.
func NewRandomSource(data []byte, seed int64, maxChunk int) *Source {
	r := rand.New(rand.NewSource(seed))
	sizes := make([]int, 64)
	for i := range sizes {
		sizes[i] = 1 + r.Intn(maxChunk)
	}
	return NewSource(data, sizes...)
}

// Pull implements fstrm.ByteSource.
func (s *Source) Pull(max int) ([]byte, error) {
	s.pulls++
	if max > s.maxReq {
		s.maxReq = max
	}
	if s.BlockEvery > 0 && s.pulls%s.BlockEvery == 0 {
		s.blocked++
		return nil, fstrm.ErrWouldBlock
	}
	if s.off >= len(s.data) {
		if s.Final != nil {
			return nil, s.Final
		}
		return nil, io.EOF
	}

	n := max
	if len(s.chunks) > 0 {
		n = min(n, s.chunks[s.next%len(s.chunks)])
		s.next++
	}
	n = min(n, len(s.data)-s.off)
	p := s.data[s.off : s.off+n]
	s.off += n
	return p, nil
}

// Consumed returns how many bytes have been handed out.
func (s *Source) Consumed() int {
	return s.off
}

// Pulls returns the number of Pull calls.
func (s *Source) Pulls() int {
	return s.pulls
}

// Blocked returns how many pulls reported ErrWouldBlock.
func (s *Source) Blocked() int {
	return s.blocked
}

// MaxRequest returns the largest max passed to Pull.
func (s *Source) MaxRequest() int {
	return s.maxReq
}

// Sink records every write.
type Sink struct {
	mu     sync.Mutex
	writes [][]byte

	// Err, if set, is returned by every Write.
	Err error
}

// Write implements fstrm.ResponseSink.
func (s *Sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	s.writes = append(s.writes, bytes.Clone(p))
	return len(p), nil
}

// Writes returns the recorded writes.
func (s *Sink) Writes() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Result is the outcome of draining a session.
type Result struct {
	Payloads [][]byte
	// Err is nil when the session ended with io.EOF.
	Err error
}

// Drain calls Next until the session ends, retrying on ErrWouldBlock.
func Drain(sess *fstrm.Session) Result {
	var res Result
	for {
		p, err := sess.Next()
		switch {
		case err == nil:
			res.Payloads = append(res.Payloads, p)
		case errors.Is(err, fstrm.ErrWouldBlock):
		case errors.Is(err, io.EOF):
			return res
		default:
			res.Err = err
			return res
		}
	}
}
