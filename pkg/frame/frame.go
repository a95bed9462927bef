package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of a length field in bytes.
	LengthPrefixSize = 4

	// ControlHeaderSize is the escape plus the control length.
	ControlHeaderSize = 2 * LengthPrefixSize

	// DefaultMaxControlFrameSize matches the control frame limit used by
	// the reference fstrm implementation (512 bytes).
	DefaultMaxControlFrameSize = 512

	// DefaultMaxDataFrameSize is a suggested data frame limit (1 MiB).
	// It is never applied implicitly; callers must choose a bound.
	DefaultMaxDataFrameSize = 1 << 20
)

// Framing errors.
var (
	// ErrDataFrameTooLarge indicates a data frame length above the limit.
	ErrDataFrameTooLarge = errors.New("frame: data frame too large")

	// ErrControlFrameTooLarge indicates a control frame length above the limit.
	ErrControlFrameTooLarge = errors.New("frame: control frame too large")

	// ErrEmptyDataFrame is returned when encoding a zero-length data frame,
	// which the wire format cannot represent.
	ErrEmptyDataFrame = errors.New("frame: data frame is empty")
)

// Kind distinguishes control frames from data frames.
type Kind uint8

const (
	// KindData is a frame carrying an opaque application payload.
	KindData Kind = iota
	// KindControl is a frame introduced by the zero-length escape.
	KindControl
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "DATA"
	case KindControl:
		return "CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Frame is one raw frame. For control frames Payload holds the undecoded
// control payload (type code and fields).
type Frame struct {
	Kind    Kind
	Payload []byte
}

// IsControl reports whether f is a control frame.
func (f Frame) IsControl() bool {
	return f.Kind == KindControl
}

// Size returns the number of wire bytes the frame occupies.
func (f Frame) Size() int {
	return WireSize(f.Kind, len(f.Payload))
}

// WireSize returns the encoded size of a frame with the given payload length.
func WireSize(kind Kind, payloadLen int) int {
	if kind == KindControl {
		return ControlHeaderSize + payloadLen
	}
	return LengthPrefixSize + payloadLen
}

// Limits bounds the frame sizes a Decoder accepts.
type Limits struct {
	MaxDataFrameSize    uint32
	MaxControlFrameSize uint32
}

// Validate checks that both limits are set.
func (l Limits) Validate() error {
	if l.MaxDataFrameSize == 0 {
		return fmt.Errorf("frame: MaxDataFrameSize is required")
	}
	if l.MaxControlFrameSize == 0 {
		return fmt.Errorf("frame: MaxControlFrameSize is required")
	}
	return nil
}

// AppendData appends an encoded data frame to dst.
func AppendData(dst, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return dst, ErrEmptyDataFrame
	}
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// AppendControl appends an encoded control frame (escape, length, payload)
// to dst.
func AppendControl(dst, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, 0)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}
