package fstrm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/fstrm-protocol/fstrm-go/pkg/control"
	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
	"github.com/fstrm-protocol/fstrm-go/pkg/handshake"
	"github.com/fstrm-protocol/fstrm-go/pkg/log"
)

// maxEmptyPulls bounds consecutive pulls returning neither bytes nor error.
const maxEmptyPulls = 100

// Stats counts what a session has consumed.
type Stats struct {
	DataFrames    uint64
	ControlFrames uint64
	PayloadBytes  uint64
	WireBytes     uint64
	Responses     uint64
}

// Session consumes one Frame Streams connection.
type Session struct {
	src    ByteSource
	sink   ResponseSink
	cfg    Config
	logger log.Logger

	dec *frame.Decoder
	hs  *handshake.Machine

	// buf holds the bytes of the frame being decoded, never more.
	buf []byte
	out []byte

	// srcErr is an error returned by the source together with bytes; it is
	// acted on once those bytes are decoded.
	srcErr error

	err     error
	closed  bool
	started bool
	stats   Stats
}

// NewSession creates a session in state IDLE. No bytes are read until the
// first call to Next. sink may be nil in unidirectional mode.
func NewSession(src ByteSource, sink ResponseSink, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil ByteSource", ErrInvalidConfig)
	}
	if sink == nil && cfg.Mode == handshake.Bidirectional {
		return nil, fmt.Errorf("%w: bidirectional mode requires a ResponseSink", ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NoopLogger{}
	}

	return &Session{
		src:    src,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		dec:    frame.NewDecoder(cfg.limits()),
		hs: handshake.NewMachine(handshake.Config{
			Mode:          cfg.Mode,
			ContentTypes:  cfg.ContentTypes,
			AllowBareData: cfg.AllowBareData,
		}),
	}, nil
}

// State returns the handshake state.
func (s *Session) State() handshake.State {
	return s.hs.State()
}

// Mode returns the session's handshake mode.
func (s *Session) Mode() handshake.Mode {
	return s.cfg.Mode
}

// ID returns the configured session ID.
func (s *Session) ID() string {
	return s.cfg.SessionID
}

// ContentType returns the negotiated content type, if any.
func (s *Session) ContentType() ([]byte, bool) {
	return s.hs.ContentType()
}

// Started reports whether the stream reached STREAMING, through START or
// accepted bare data. It stays true after the session closes or fails.
func (s *Session) Started() bool {
	return s.started
}

// Err returns the fatal error that ended the session, if any.
func (s *Session) Err() error {
	return s.err
}

// Stats returns frame and byte counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// Close releases the session buffer. It never touches the source or sink.
func (s *Session) Close() error {
	s.closed = true
	s.buf = nil
	s.out = nil
	return nil
}

// Next returns the next data payload.
//
// It returns io.EOF once the session closed cleanly, ErrWouldBlock when
// the source has no bytes ready, or a fatal *Error. The payload is owned by
// the caller.
func (s *Session) Next() ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.hs.State() == handshake.StateIdle {
		step, err := s.hs.Begin()
		if err != nil {
			return nil, s.fail(KindProtocol, err)
		}
		s.logStep(step, "")
	}

	for {
		if s.hs.State() == handshake.StateClosed {
			return nil, io.EOF
		}

		res, err := s.dec.Decode(s.buf)
		if err != nil {
			return nil, s.fail(KindFraming, err)
		}
		if res.Status == frame.StatusNeedMore {
			done, err := s.fill(res.Need)
			if err != nil {
				return nil, err
			}
			if done {
				return nil, io.EOF
			}
			continue
		}

		f := res.Frame
		s.stats.WireBytes += uint64(res.Consumed)
		var payload []byte
		if f.IsControl() {
			err = s.handleControl(f)
		} else {
			payload, err = s.handleData(f)
		}
		if err != nil {
			return nil, err
		}
		s.buf = s.buf[:copy(s.buf, s.buf[res.Consumed:])]
		if payload != nil {
			return payload, nil
		}
	}
}

// Payloads returns the session's payloads as a sequence. ErrWouldBlock is
// yielded and iteration continues if the consumer does; a fatal error is
// yielded once and ends the sequence, as does a clean end of session.
func (s *Session) Payloads() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			p, err := s.Next()
			switch {
			case err == nil:
				if !yield(p, nil) {
					return
				}
			case errors.Is(err, io.EOF):
				return
			case errors.Is(err, ErrWouldBlock):
				if !yield(nil, err) {
					return
				}
			default:
				yield(nil, err)
				return
			}
		}
	}
}

// fill pulls at most need bytes. It reports done when the stream ended
// cleanly at a frame boundary.
func (s *Session) fill(need int) (done bool, err error) {
	if s.srcErr != nil {
		return s.sourceError(s.srcErr)
	}

	for empty := 0; ; empty++ {
		p, err := s.src.Pull(need)
		if len(p) > need {
			return false, s.fail(KindIO, fmt.Errorf("%w: got %d, requested %d", ErrSourceOverrun, len(p), need))
		}
		s.buf = append(s.buf, p...)

		switch {
		case err == nil && len(p) > 0:
			return false, nil
		case err == nil:
			if empty >= maxEmptyPulls {
				return false, s.fail(KindIO, io.ErrNoProgress)
			}
		case errors.Is(err, ErrWouldBlock):
			if len(p) > 0 {
				return false, nil
			}
			return false, ErrWouldBlock
		case len(p) > 0:
			s.srcErr = err
			return false, nil
		default:
			return s.sourceError(err)
		}
	}
}

func (s *Session) sourceError(err error) (bool, error) {
	if !errors.Is(err, io.EOF) {
		return false, s.fail(KindIO, err)
	}
	if len(s.buf) > 0 {
		return false, s.fail(KindIO, fmt.Errorf("%w: stream ended inside a frame (%d bytes buffered)", io.ErrUnexpectedEOF, len(s.buf)))
	}

	step, err := s.hs.EOF()
	s.logStep(step, "end of stream")
	if err != nil {
		return false, s.fail(kindOf(err), err)
	}
	return true, nil
}

func (s *Session) handleData(f frame.Frame) ([]byte, error) {
	step, err := s.hs.Data()
	s.logStep(step, "data frame")
	if err != nil {
		return nil, s.fail(kindOf(err), err)
	}
	s.markStarted(step)

	s.stats.DataFrames++
	s.stats.PayloadBytes += uint64(len(f.Payload))
	s.logFrame(log.DirectionIn, f)
	return bytes.Clone(f.Payload), nil
}

func (s *Session) handleControl(f frame.Frame) error {
	s.stats.ControlFrames++

	cf, err := control.Parse(f.Payload)
	if err != nil {
		return s.fail(KindProtocol, err)
	}
	s.logControl(log.DirectionIn, cf)

	step, err := s.hs.Control(cf)
	s.logStep(step, cf.Type.String())
	if err != nil {
		return s.fail(kindOf(err), err)
	}
	s.markStarted(step)

	if step.Response != nil {
		if err := s.respond(*step.Response); err != nil {
			return err
		}
	}
	if step.Action == handshake.ActionFinish {
		from := s.hs.State()
		s.hs.ResponseWritten()
		s.logState(from, s.hs.State(), "FINISH written")
	}
	return nil
}

func (s *Session) markStarted(step handshake.Step) {
	if step.To == handshake.StateStreaming {
		s.started = true
	}
}

// respond writes one control frame to the sink.
func (s *Session) respond(cf control.Frame) error {
	s.out = cf.AppendFrame(s.out[:0])
	n, err := s.sink.Write(s.out)
	if err == nil && n < len(s.out) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return s.fail(KindIO, fmt.Errorf("writing %s: %w", cf.Type, err))
	}
	s.stats.Responses++
	s.logControl(log.DirectionOut, cf)
	return nil
}

// fail records a fatal error and moves the session to ERRORED.
func (s *Session) fail(kind Kind, err error) error {
	e := &Error{Kind: kind, Err: err}
	s.err = e

	from := s.hs.State()
	s.hs.Fail(e)
	s.buf = s.buf[:0]

	s.log(log.Event{
		Direction: log.DirectionIn,
		Layer:     layerOf(kind),
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   layerOf(kind),
			Message: err.Error(),
			Kind:    kind.String(),
			Context: from.String(),
		},
	})
	if from != handshake.StateErrored {
		s.logState(from, handshake.StateErrored, kind.String())
	}
	return e
}

func layerOf(k Kind) log.Layer {
	switch k {
	case KindFraming:
		return log.LayerFraming
	case KindProtocol:
		return log.LayerControl
	default:
		return log.LayerSession
	}
}

func (s *Session) log(ev log.Event) {
	ev.Timestamp = time.Now()
	ev.SessionID = s.cfg.SessionID
	ev.RemoteAddr = s.cfg.RemoteAddr
	if ct, ok := s.hs.ContentType(); ok {
		ev.ContentType = string(ct)
	}
	s.logger.Log(ev)
}

func (s *Session) logFrame(dir log.Direction, f frame.Frame) {
	s.log(log.Event{
		Direction: dir,
		Layer:     log.LayerFraming,
		Category:  log.CategoryData,
		Frame:     log.NewFrameEvent(f.Size(), f.Payload),
	})
}

func (s *Session) logControl(dir log.Direction, cf control.Frame) {
	s.log(log.Event{
		Direction: dir,
		Layer:     log.LayerControl,
		Category:  log.CategoryControl,
		Control:   log.NewControlEvent(cf),
	})
}

func (s *Session) logStep(step handshake.Step, reason string) {
	if step.From == step.To {
		return
	}
	s.logState(step.From, step.To, reason)
}

func (s *Session) logState(from, to handshake.State, reason string) {
	s.log(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityHandshake,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}
