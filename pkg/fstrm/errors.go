package fstrm

import (
	"errors"
	"fmt"
	"io"

	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
)

var (
	// ErrWouldBlock is returned by a ByteSource with no bytes ready, and by
	// Session.Next in turn. It is a suspension signal, not a failure.
	ErrWouldBlock = errors.New("fstrm: operation would block")

	// ErrInvalidConfig is returned by NewSession for unusable configurations.
	ErrInvalidConfig = errors.New("fstrm: invalid config")

	// ErrClosed is returned by Next after Close.
	ErrClosed = errors.New("fstrm: session closed")

	// ErrSourceOverrun indicates a ByteSource returned more bytes than requested.
	ErrSourceOverrun = errors.New("fstrm: source returned more bytes than requested")
)

// Kind classifies fatal session errors.
type Kind uint8

const (
	// KindIO is a failure of the ByteSource or ResponseSink, or an
	// unexpected end of stream.
	KindIO Kind = iota + 1
	// KindFraming is a frame length over the configured limit.
	KindFraming
	// KindProtocol is a malformed control frame or a handshake violation.
	KindProtocol
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IO"
	case KindFraming:
		return "FRAMING"
	case KindProtocol:
		return "PROTOCOL"
	default:
		return "UNKNOWN"
	}
}

// Error is a fatal session error. Err wraps the package sentinel that
// caused it, e.g. frame.ErrDataFrameTooLarge or handshake.ErrUnexpectedDataFrame.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fstrm: %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err ends a session. ErrWouldBlock and io.EOF do not.
func IsFatal(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// kindOf classifies an error raised while processing a frame.
func kindOf(err error) Kind {
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return KindIO
	case errors.Is(err, frame.ErrDataFrameTooLarge), errors.Is(err, frame.ErrControlFrameTooLarge):
		return KindFraming
	default:
		return KindProtocol
	}
}
