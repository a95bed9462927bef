package handshake

import (
	"errors"
	"fmt"
	"io"
)

// Handshake errors.
var (
	ErrUnexpectedControlFrame  = errors.New("handshake: unexpected control frame")
	ErrUnexpectedDataFrame     = errors.New("handshake: unexpected data frame")
	ErrNoAcceptableContentType = errors.New("handshake: no acceptable content type")
	ErrOutOfOrderHandshake     = errors.New("handshake: out of order handshake")
	ErrSessionClosed           = errors.New("handshake: session closed")
)

// Transition is one legal move of the machine.
type Transition struct {
	Next   State
	Action Action
}

type key struct {
	state State
	input Input
}

var bidirectionalTable = map[key]Transition{
	{StateIdle, InputBegin}:       {StateAwaitReady, ActionNone},
	{StateAwaitReady, InputReady}: {StateAwaitStart, ActionAccept},
	{StateAwaitStart, InputStart}: {StateStreaming, ActionNone},
	{StateStreaming, InputData}:   {StateStreaming, ActionYield},
	{StateStreaming, InputStop}:   {StateAwaitStop, ActionFinish},
}

var unidirectionalTable = map[key]Transition{
	{StateIdle, InputBegin}:       {StateAwaitStart, ActionNone},
	{StateAwaitStart, InputStart}: {StateStreaming, ActionNone},
	{StateStreaming, InputData}:   {StateStreaming, ActionYield},
	{StateStreaming, InputStop}:   {StateClosed, ActionEnd},
	{StateStreaming, InputEOF}:    {StateClosed, ActionEnd},
}

// bareDataTable extends unidirectionalTable when streams without START are
// allowed.
var bareDataTable = map[key]Transition{
	{StateAwaitStart, InputData}: {StateStreaming, ActionYield},
	{StateAwaitStart, InputEOF}:  {StateClosed, ActionEnd},
}

// Lookup resolves (state, input) for the given mode. Pairs with no legal
// transition return an error and a transition to StateErrored.
func Lookup(mode Mode, allowBareData bool, s State, in Input) (Transition, error) {
	table := unidirectionalTable
	if mode == Bidirectional {
		table = bidirectionalTable
	}
	if t, ok := table[key{s, in}]; ok {
		return t, nil
	}
	if mode == Unidirectional && allowBareData {
		if t, ok := bareDataTable[key{s, in}]; ok {
			return t, nil
		}
	}
	return Transition{Next: StateErrored}, illegal(s, in)
}

func illegal(s State, in Input) error {
	switch {
	case s.Terminal():
		return fmt.Errorf("%w: %s received in %s", ErrSessionClosed, in, s)
	case in == InputData:
		return fmt.Errorf("%w in %s", ErrUnexpectedDataFrame, s)
	case in == InputEOF:
		return fmt.Errorf("%w: end of stream in %s", io.ErrUnexpectedEOF, s)
	case in == InputBegin:
		return fmt.Errorf("%w: handshake already begun (%s)", ErrOutOfOrderHandshake, s)
	case (in == InputReady || in == InputStart) && s < StateStreaming:
		return fmt.Errorf("%w: %s in %s", ErrOutOfOrderHandshake, in, s)
	default:
		return fmt.Errorf("%w: %s in %s", ErrUnexpectedControlFrame, in, s)
	}
}
