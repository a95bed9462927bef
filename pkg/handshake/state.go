// Package handshake implements the consumer side of the Frame Streams
// control-frame handshake as an explicit state machine.
//
// Bidirectional sessions:
//
//	IDLE -> AWAIT_READY --READY/ACCEPT--> AWAIT_START --START--> STREAMING
//	STREAMING --DATA--> STREAMING
//	STREAMING --STOP--> AWAIT_STOP --FINISH--> CLOSED
//
// Unidirectional sessions exchange no READY/ACCEPT and never respond:
//
//	IDLE -> AWAIT_START --START--> STREAMING --STOP|EOF--> CLOSED
//
// Every (state, input) pair resolves either to a transition listed in the
// tables in table.go or to an error that moves the machine to ERRORED.
package handshake

// Mode selects which handshake a session runs.
type Mode uint8

const (
	// Unidirectional sessions read START, data and STOP; nothing is written.
	Unidirectional Mode = iota
	// Bidirectional sessions also read READY and respond with ACCEPT and FINISH.
	Bidirectional
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Unidirectional:
		return "UNIDIRECTIONAL"
	case Bidirectional:
		return "BIDIRECTIONAL"
	default:
		return "UNKNOWN"
	}
}

// State is the handshake state of a session.
type State uint8

const (
	StateIdle State = iota
	StateAwaitReady
	StateAwaitStart
	StateStreaming
	StateAwaitStop
	StateClosed
	StateErrored

	numStates
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitReady:
		return "AWAIT_READY"
	case StateAwaitStart:
		return "AWAIT_START"
	case StateStreaming:
		return "STREAMING"
	case StateAwaitStop:
		return "AWAIT_STOP"
	case StateClosed:
		return "CLOSED"
	case StateErrored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further input is processed in s.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateErrored
}

// Input is an event fed to the machine.
type Input uint8

const (
	InputBegin Input = iota
	InputReady
	InputStart
	InputStop
	InputAccept
	InputFinish
	InputData
	InputEOF

	numInputs
)

// String returns the input name.
func (i Input) String() string {
	switch i {
	case InputBegin:
		return "BEGIN"
	case InputReady:
		return "READY"
	case InputStart:
		return "START"
	case InputStop:
		return "STOP"
	case InputAccept:
		return "ACCEPT"
	case InputFinish:
		return "FINISH"
	case InputData:
		return "DATA"
	case InputEOF:
		return "EOF"
	default:
		return "UNKNOWN"
	}
}

// Action is what the caller must do after a transition.
type Action uint8

const (
	// ActionNone requires nothing; keep reading.
	ActionNone Action = iota
	// ActionAccept requires writing the ACCEPT response.
	ActionAccept
	// ActionYield hands the data payload to the application.
	ActionYield
	// ActionFinish requires writing the FINISH response, then calling
	// Machine.ResponseWritten.
	ActionFinish
	// ActionEnd ends the session cleanly.
	ActionEnd
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "NONE"
	case ActionAccept:
		return "ACCEPT"
	case ActionYield:
		return "YIELD"
	case ActionFinish:
		return "FINISH"
	case ActionEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}
