package handshake

import (
	"bytes"
	"fmt"

	"github.com/fstrm-protocol/fstrm-go/pkg/control"
)

// Config configures a Machine.
type Config struct {
	Mode Mode

	// ContentTypes the consumer accepts, most preferred first.
	// Empty accepts any content type.
	ContentTypes [][]byte

	// AllowBareData lets unidirectional streams omit START.
	AllowBareData bool
}

// Step describes the outcome of feeding one input.
type Step struct {
	From   State
	To     State
	Input  Input
	Action Action

	// Response is the control frame to write for ActionAccept and
	// ActionFinish.
	Response *control.Frame
}

// Machine tracks the handshake of one session. It performs no I/O; the
// caller writes any Response and reports back via ResponseWritten.
type Machine struct {
	cfg   Config
	state State
	err   error

	// accepted is the ACCEPT set sent in reply to READY.
	accepted [][]byte

	contentType    []byte
	hasContentType bool
}

// NewMachine creates a machine in StateIdle.
func NewMachine(cfg Config) *Machine {
	return &Machine{cfg: cfg}
}

// Mode returns the configured mode.
func (m *Machine) Mode() Mode {
	return m.cfg.Mode
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Err returns the error that moved the machine to StateErrored.
func (m *Machine) Err() error {
	return m.err
}

// ContentType returns the negotiated content type once START was received.
func (m *Machine) ContentType() ([]byte, bool) {
	return m.contentType, m.hasContentType
}

// Accepted returns the content types sent in ACCEPT.
func (m *Machine) Accepted() [][]byte {
	return m.accepted
}

// Begin moves the machine out of StateIdle.
func (m *Machine) Begin() (Step, error) {
	return m.apply(InputBegin, nil)
}

// Control feeds a decoded control frame.
func (m *Machine) Control(f control.Frame) (Step, error) {
	return m.apply(inputFor(f.Type), &f)
}

// Data feeds a data frame.
func (m *Machine) Data() (Step, error) {
	return m.apply(InputData, nil)
}

// EOF reports a clean end of stream at a frame boundary.
func (m *Machine) EOF() (Step, error) {
	return m.apply(InputEOF, nil)
}

// ResponseWritten completes a FINISH response, moving AWAIT_STOP to CLOSED.
func (m *Machine) ResponseWritten() {
	if m.state == StateAwaitStop {
		m.state = StateClosed
	}
}

// Fail moves the machine to StateErrored because of an error detected
// outside it (I/O or framing).
func (m *Machine) Fail(err error) {
	if m.state == StateErrored {
		return
	}
	m.state = StateErrored
	m.err = err
}

func (m *Machine) apply(in Input, f *control.Frame) (Step, error) {
	step := Step{From: m.state, Input: in}

	t, err := Lookup(m.cfg.Mode, m.cfg.AllowBareData, m.state, in)
	if err != nil {
		// Rejections after termination leave the terminal state untouched.
		if !m.state.Terminal() {
			m.Fail(err)
		}
		step.To = m.state
		return step, err
	}

	switch in {
	case InputReady:
		accepted, err := m.negotiate(f.ContentTypes)
		if err != nil {
			m.Fail(err)
			step.To = m.state
			return step, err
		}
		m.accepted = accepted
		step.Response = &control.Frame{Type: control.TypeAccept, ContentTypes: accepted}

	case InputStart:
		if err := m.start(*f); err != nil {
			m.Fail(err)
			step.To = m.state
			return step, err
		}
	}

	if t.Action == ActionFinish {
		step.Response = &control.Frame{Type: control.TypeFinish}
	}

	m.state = t.Next
	step.To = t.Next
	step.Action = t.Action
	return step, nil
}

// negotiate intersects the offered content types with the configured ones,
// keeping offer order.
func (m *Machine) negotiate(offered [][]byte) ([][]byte, error) {
	if len(m.cfg.ContentTypes) == 0 {
		return offered, nil
	}
	var out [][]byte
	for _, ct := range offered {
		if containsType(m.cfg.ContentTypes, ct) {
			out = append(out, ct)
		}
	}
	if len(offered) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("%w: offered %q", ErrNoAcceptableContentType, bytes.Join(offered, []byte(",")))
	}
	return out, nil
}

// start records the content type carried by START. Only the first
// content-type field is considered.
func (m *Machine) start(f control.Frame) error {
	allowed := m.cfg.ContentTypes
	if m.cfg.Mode == Bidirectional && len(m.accepted) > 0 {
		allowed = m.accepted
	}

	if ct, ok := f.ContentType(); ok {
		if len(allowed) > 0 && !containsType(allowed, ct) {
			return fmt.Errorf("%w: START content type %q", ErrNoAcceptableContentType, ct)
		}
		m.contentType = ct
		m.hasContentType = true
		return nil
	}
	if len(allowed) == 1 {
		m.contentType = allowed[0]
		m.hasContentType = true
	}
	return nil
}

func inputFor(t control.Type) Input {
	switch t {
	case control.TypeReady:
		return InputReady
	case control.TypeStart:
		return InputStart
	case control.TypeStop:
		return InputStop
	case control.TypeAccept:
		return InputAccept
	default:
		return InputFinish
	}
}

func containsType(set [][]byte, ct []byte) bool {
	for _, s := range set {
		if bytes.Equal(s, ct) {
			return true
		}
	}
	return false
}
