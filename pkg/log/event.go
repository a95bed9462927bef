package log

import (
	"time"

	"github.com/fstrm-protocol/fstrm-go/pkg/control"
)

// MaxFrameDataSize is the maximum payload size copied into a FrameEvent.
const MaxFrameDataSize = 4096

// Event is a protocol log event captured while consuming a stream.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the session (UUID for server connections).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates frame flow relative to the consumer.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address, if the stream has one.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// ContentType is the negotiated content type once known.
	ContentType string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Framing layer
	Control     *ControlEvent     `cbor:"11,keyasint,omitempty"` // Control layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Handshake/connection state
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of frame flow.
type Direction uint8

const (
	// DirectionIn indicates a frame read from the producer.
	DirectionIn Direction = 0
	// DirectionOut indicates a response written to the producer.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerFraming is the length-prefixed frame layer.
	LayerFraming Layer = 0
	// LayerControl is the decoded control frame layer.
	LayerControl Layer = 1
	// LayerSession is the handshake and connection layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerFraming:
		return "FRAMING"
	case LayerControl:
		return "CONTROL"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryData indicates a data frame.
	CategoryData Category = 0
	// CategoryControl indicates a control frame.
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryData:
		return "DATA"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures a frame at the framing layer.
type FrameEvent struct {
	// Size is the frame size on the wire, including all headers.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent builds a FrameEvent for a payload of wireSize bytes on the
// wire, copying at most MaxFrameDataSize bytes of payload.
func NewFrameEvent(wireSize int, payload []byte) *FrameEvent {
	fe := &FrameEvent{Size: wireSize}
	data := payload
	if len(data) > MaxFrameDataSize {
		data = data[:MaxFrameDataSize]
		fe.Truncated = true
	}
	fe.Data = append([]byte(nil), data...)
	return fe
}

// ControlEvent captures a decoded control frame.
type ControlEvent struct {
	// Type is the control frame type.
	Type control.Type `cbor:"1,keyasint"`

	// ContentTypes carried by the frame, in wire order.
	ContentTypes []string `cbor:"2,keyasint,omitempty"`
}

// NewControlEvent builds a ControlEvent from a decoded control frame.
func NewControlEvent(f control.Frame) *ControlEvent {
	ce := &ControlEvent{Type: f.Type}
	for _, ct := range f.ContentTypes {
		ce.ContentTypes = append(ce.ContentTypes, string(ct))
	}
	return ce
}

// StateChangeEvent captures handshake and connection lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntityHandshake indicates a handshake state change.
	StateEntityHandshake StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityHandshake:
		return "HANDSHAKE"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Kind is the error class (IO, FRAMING, PROTOCOL) if known.
	Kind string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
