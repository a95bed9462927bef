// Package control encodes and decodes Frame Streams control frame payloads.
//
// A control payload is a 4-byte big-endian type code followed by zero or
// more fields, each a 4-byte field type, a 4-byte length and that many bytes
// of content. The only defined field type is CONTENT_TYPE.
package control

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
)

// Type is a control frame type code.
type Type uint32

// Control frame types.
const (
	TypeAccept Type = 0x01
	TypeStart  Type = 0x02
	TypeStop   Type = 0x03
	TypeReady  Type = 0x04
	TypeFinish Type = 0x05
)

// String returns the control type name.
func (t Type) String() string {
	switch t {
	case TypeAccept:
		return "ACCEPT"
	case TypeStart:
		return "START"
	case TypeStop:
		return "STOP"
	case TypeReady:
		return "READY"
	case TypeFinish:
		return "FINISH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint32(t))
	}
}

// Valid reports whether t is a defined control type.
func (t Type) Valid() bool {
	return t >= TypeAccept && t <= TypeFinish
}

const (
	// FieldContentType is the CONTENT_TYPE field code.
	FieldContentType uint32 = 0x01

	// MaxContentTypeLength is the longest content type accepted in a field.
	MaxContentTypeLength = 256

	typeSize        = 4
	fieldHeaderSize = 8
)

// Control codec errors.
var (
	// ErrInvalidType indicates an unknown control frame type code.
	ErrInvalidType = errors.New("control: invalid control frame type")

	// ErrUnknownFieldType indicates a field type other than CONTENT_TYPE.
	ErrUnknownFieldType = errors.New("control: unknown field type")

	// ErrTruncatedField indicates trailing bytes or a field overrunning the payload.
	ErrTruncatedField = errors.New("control: trailing or truncated field")

	// ErrContentTypeTooLong indicates a content type field above MaxContentTypeLength.
	ErrContentTypeTooLong = errors.New("control: content type too long")
)

// Frame is a decoded control frame.
type Frame struct {
	Type Type

	// ContentTypes in wire order; the first is the most preferred.
	ContentTypes [][]byte
}

// Parse decodes a control frame payload. The returned content types are
// copies and do not alias payload.
func Parse(payload []byte) (Frame, error) {
	if len(payload) < typeSize {
		return Frame{}, fmt.Errorf("%w: payload of %d bytes has no type", ErrTruncatedField, len(payload))
	}

	t := Type(binary.BigEndian.Uint32(payload[:typeSize]))
	if !t.Valid() {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidType, uint32(t))
	}

	f := Frame{Type: t}
	rest := payload[typeSize:]
	for len(rest) > 0 {
		if len(rest) < fieldHeaderSize {
			return Frame{}, fmt.Errorf("%w: %d trailing bytes", ErrTruncatedField, len(rest))
		}
		fieldType := binary.BigEndian.Uint32(rest[0:4])
		fieldLen := binary.BigEndian.Uint32(rest[4:8])
		rest = rest[fieldHeaderSize:]

		if fieldType != FieldContentType {
			return Frame{}, fmt.Errorf("%w: %d", ErrUnknownFieldType, fieldType)
		}
		if uint64(fieldLen) > uint64(len(rest)) {
			return Frame{}, fmt.Errorf("%w: field length %d exceeds remaining %d", ErrTruncatedField, fieldLen, len(rest))
		}
		if fieldLen > MaxContentTypeLength {
			return Frame{}, fmt.Errorf("%w: %d > %d", ErrContentTypeTooLong, fieldLen, MaxContentTypeLength)
		}

		f.ContentTypes = append(f.ContentTypes, bytes.Clone(rest[:fieldLen]))
		rest = rest[fieldLen:]
	}
	return f, nil
}

// Size returns the encoded payload size.
func (f Frame) Size() int {
	n := typeSize
	for _, ct := range f.ContentTypes {
		n += fieldHeaderSize + len(ct)
	}
	return n
}

// Marshal encodes the control payload (type and fields, without the frame
// escape and length).
func (f Frame) Marshal() []byte {
	buf := make([]byte, 0, f.Size())
	buf = binary.BigEndian.AppendUint32(buf, uint32(f.Type))
	for _, ct := range f.ContentTypes {
		buf = binary.BigEndian.AppendUint32(buf, FieldContentType)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(ct)))
		buf = append(buf, ct...)
	}
	return buf
}

// AppendFrame appends the complete wire encoding of f, including the
// control escape and length, to dst.
func (f Frame) AppendFrame(dst []byte) []byte {
	return frame.AppendControl(dst, f.Marshal())
}

// ContentType returns the first content type, if any.
func (f Frame) ContentType() ([]byte, bool) {
	if len(f.ContentTypes) == 0 {
		return nil, false
	}
	return f.ContentTypes[0], true
}

// String returns a short human-readable description.
func (f Frame) String() string {
	if len(f.ContentTypes) == 0 {
		return f.Type.String()
	}
	return fmt.Sprintf("%s %q", f.Type, bytes.Join(f.ContentTypes, []byte(",")))
}

// New builds a control frame from string content types.
func New(t Type, contentTypes ...string) Frame {
	f := Frame{Type: t}
	for _, ct := range contentTypes {
		f.ContentTypes = append(f.ContentTypes, []byte(ct))
	}
	return f
}
