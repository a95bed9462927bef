package frame

import (
	"encoding/binary"
	"fmt"
)

// Status reports the outcome of a Decode call.
type Status uint8

const (
	// StatusNeedMore means the buffer holds an incomplete frame.
	StatusNeedMore Status = iota
	// StatusComplete means a whole frame was decoded.
	StatusComplete
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusNeedMore:
		return "NEED_MORE"
	case StatusComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Result is returned by Decoder.Decode.
type Result struct {
	Status Status

	// Need is the minimum number of additional bytes required before the
	// next Decode can make progress. Set when Status is StatusNeedMore.
	Need int

	// Frame is the decoded frame. Its payload aliases the buffer passed to
	// Decode. Set when Status is StatusComplete.
	Frame Frame

	// Consumed is the number of buffer bytes the frame occupied.
	Consumed int
}

// phase is the decoder's position within the current frame.
type phase uint8

const (
	phaseLength phase = iota
	phaseControlLength
	phaseBody
)

// Decoder incrementally splits a buffered byte stream into frames.
//
// Each call to Decode is given the bytes buffered from the start of the
// current frame. If they are not enough, Decode reports how many more bytes
// are required and remembers which header fields it has already validated;
// the caller appends bytes and calls Decode again with the extended buffer.
// After a complete frame the caller drops Consumed bytes from the front of
// its buffer.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	limits Limits

	phase     phase
	validated int // header bytes already checked
	kind      Kind
	bodyLen   int
}

// NewDecoder creates a decoder enforcing the given limits.
func NewDecoder(limits Limits) *Decoder {
	return &Decoder{limits: limits}
}

// Limits returns the decoder limits.
func (d *Decoder) Limits() Limits {
	return d.limits
}

// Validated returns how many header bytes of the current frame have been
// validated by earlier Decode calls.
func (d *Decoder) Validated() int {
	return d.validated
}

// Reset discards any partially decoded frame state.
func (d *Decoder) Reset() {
	d.phase = phaseLength
	d.validated = 0
	d.kind = KindData
	d.bodyLen = 0
}

// Decode parses the next frame from buf.
func (d *Decoder) Decode(buf []byte) (Result, error) {
	for {
		switch d.phase {
		case phaseLength:
			if len(buf) < LengthPrefixSize {
				return needMore(LengthPrefixSize - len(buf)), nil
			}
			length := binary.BigEndian.Uint32(buf[:LengthPrefixSize])
			if length == 0 {
				d.kind = KindControl
				d.validated = LengthPrefixSize
				d.phase = phaseControlLength
				continue
			}
			if length > d.limits.MaxDataFrameSize {
				d.Reset()
				return Result{}, fmt.Errorf("%w: %d > %d", ErrDataFrameTooLarge, length, d.limits.MaxDataFrameSize)
			}
			d.kind = KindData
			d.bodyLen = int(length)
			d.validated = LengthPrefixSize
			d.phase = phaseBody

		case phaseControlLength:
			if len(buf) < ControlHeaderSize {
				return needMore(ControlHeaderSize - len(buf)), nil
			}
			length := binary.BigEndian.Uint32(buf[LengthPrefixSize:ControlHeaderSize])
			if length > d.limits.MaxControlFrameSize {
				d.Reset()
				return Result{}, fmt.Errorf("%w: %d > %d", ErrControlFrameTooLarge, length, d.limits.MaxControlFrameSize)
			}
			d.bodyLen = int(length)
			d.validated = ControlHeaderSize
			d.phase = phaseBody

		case phaseBody:
			total := d.validated + d.bodyLen
			if len(buf) < total {
				return needMore(total - len(buf)), nil
			}
			f := Frame{Kind: d.kind, Payload: buf[d.validated:total:total]}
			d.Reset()
			return Result{Status: StatusComplete, Frame: f, Consumed: total}, nil

		default:
			d.Reset()
		}
	}
}

func needMore(n int) Result {
	return Result{Status: StatusNeedMore, Need: n}
}
