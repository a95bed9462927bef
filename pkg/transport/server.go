package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/fstrm-protocol/fstrm-go/pkg/fstrm"
	"github.com/fstrm-protocol/fstrm-go/pkg/log"
)

// Defaults.
const (
	// DefaultReadTimeout is how long one read waits before the connection
	// re-checks for shutdown.
	DefaultReadTimeout = time.Second

	// DefaultWriteTimeout bounds writing ACCEPT and FINISH.
	DefaultWriteTimeout = 5 * time.Second
)

// Server errors.
var (
	ErrAlreadyRunning     = errors.New("transport: server already running")
	ErrUnsupportedNetwork = errors.New("transport: unsupported network")
	ErrTooManyConnections = errors.New("transport: too many connections")
)

// ServerConfig configures a capture server.
type ServerConfig struct {
	// Network is "unix" or "tcp".
	Network string

	// Address is a socket path for unix or host:port for tcp.
	Address string

	// Session is the template for every connection's session. SessionID,
	// RemoteAddr and Logger are filled in per connection.
	Session fstrm.Config

	// ReadTimeout is the deadline of a single read (default: 1s).
	ReadTimeout time.Duration

	// WriteTimeout bounds response writes (default: 5s).
	WriteTimeout time.Duration

	// MaxConnections limits concurrent connections (0 = unlimited).
	MaxConnections int

	// Logger for protocol logging (optional).
	Logger log.Logger

	// OnConnect is called when a connection is accepted.
	OnConnect func(conn *ServerConn)

	// OnStart is called once the producer sent START.
	OnStart func(conn *ServerConn, contentType []byte)

	// OnPayload is called for each data frame, in wire order. The payload
	// is owned by the callee.
	OnPayload func(conn *ServerConn, payload []byte)

	// OnDisconnect is called after the connection closed. err is nil when
	// the session ended cleanly.
	OnDisconnect func(conn *ServerConn, err error)

	// OnError is called for accept failures (conn is nil) and fatal
	// session errors.
	OnError func(conn *ServerConn, err error)
}

// Server accepts Frame Streams producers and runs a session per connection.
type Server struct {
	config   ServerConfig
	listener net.Listener

	conns   map[*ServerConn]struct{}
	connsMu sync.RWMutex

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer validates config and creates a server.
func NewServer(config ServerConfig) (*Server, error) {
	switch config.Network {
	case "unix", "tcp", "tcp4", "tcp6":
	case "":
		config.Network = "unix"
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, config.Network)
	}
	if config.Address == "" {
		return nil, fmt.Errorf("transport: address is required")
	}
	if err := config.Session.Validate(); err != nil {
		return nil, err
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}

	return &Server{
		config: config,
		conns:  make(map[*ServerConn]struct{}),
	}, nil
}

// Start listens and begins accepting connections. A stale Unix socket at
// the configured path is removed first.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrAlreadyRunning
	}

	if s.config.Network == "unix" {
		if err := removeStaleSocket(s.config.Address); err != nil {
			return err
		}
	}

	listener, err := net.Listen(s.config.Network, s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

// Stop closes the listener and all connections and waits for every
// session goroutine to return.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.connsMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connsMu.Unlock()

	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Connections returns a snapshot of the active connections, oldest first.
func (s *Server) Connections() []ConnInfo {
	s.connsMu.RLock()
	out := make([]ConnInfo, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c.Info())
	}
	s.connsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Since.Before(out[j].Since) })
	return out
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	delay := newBackoff(InitialAcceptDelay, MaxAcceptDelay)
	for s.running.Load() {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.reportError(nil, fmt.Errorf("accept error: %w", err))
			select {
			case <-time.After(delay.Next()):
			case <-s.ctx.Done():
				return
			}
			continue
		}
		delay.Reset()

		if limit := s.config.MaxConnections; limit > 0 && s.ConnectionCount() >= limit {
			conn.Close()
			s.reportError(nil, fmt.Errorf("%w: limit %d", ErrTooManyConnections, limit))
			continue
		}

		sc := newServerConn(conn, uuid.New().String())
		s.connsMu.Lock()
		s.conns[sc] = struct{}{}
		s.connsMu.Unlock()

		s.wg.Add(1)
		go s.handleConnection(sc)
	}
}

// handleConnection runs one session to completion.
func (s *Server) handleConnection(sc *ServerConn) {
	defer s.wg.Done()

	s.logConnState(sc, "", StateConnected, "")
	if s.config.OnConnect != nil {
		s.config.OnConnect(sc)
	}

	err := s.serve(sc)

	s.setState(sc, StateClosing, "")
	sc.Close()

	s.connsMu.Lock()
	delete(s.conns, sc)
	s.connsMu.Unlock()

	reason := "end of session"
	if err != nil {
		reason = err.Error()
	}
	s.setState(sc, StateDisconnected, reason)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sc, err)
	}
}

// serve reads payloads until the session ends, the connection is closed or
// the server stops. It returns nil on a clean end of session.
func (s *Server) serve(sc *ServerConn) error {
	cfg := s.config.Session
	cfg.SessionID = sc.id
	cfg.RemoteAddr = sc.remoteAddr
	cfg.Logger = s.config.Logger

	sess, err := fstrm.NewSession(
		fstrm.NewReaderSource(sc.conn),
		connSink{conn: sc.conn, timeout: s.config.WriteTimeout},
		cfg,
	)
	if err != nil {
		s.reportError(sc, err)
		return err
	}
	defer sess.Close()

	started := false
	for {
		if s.ctx.Err() != nil || sc.closed() {
			return context.Canceled
		}
		if err := sc.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout)); err != nil {
			if sc.closed() {
				return context.Canceled
			}
			s.reportError(sc, err)
			return err
		}

		payload, err := sess.Next()

		if !started && sess.Started() {
			started = true
			ct, _ := sess.ContentType()
			sc.setContentType(ct)
			s.setState(sc, StateStreaming, "START")
			if s.config.OnStart != nil {
				s.config.OnStart(sc, ct)
			}
		}

		switch {
		case err == nil:
			sc.payloads.Add(1)
			sc.bytes.Add(uint64(len(payload)))
			if s.config.OnPayload != nil {
				s.config.OnPayload(sc, payload)
			}
		case errors.Is(err, fstrm.ErrWouldBlock):
		case errors.Is(err, io.EOF):
			return nil
		default:
			if sc.closed() || s.ctx.Err() != nil {
				return context.Canceled
			}
			s.reportError(sc, err)
			return err
		}
	}
}

func (s *Server) setState(sc *ServerConn, to ConnectionState, reason string) {
	from := sc.setState(to)
	if from != to {
		s.logConnState(sc, from.String(), to, reason)
	}
}

func (s *Server) logConnState(sc *ServerConn, from string, to ConnectionState, reason string) {
	s.config.Logger.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  sc.id,
		Layer:      log.LayerSession,
		Category:   log.CategoryState,
		RemoteAddr: sc.remoteAddr,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: from,
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

func (s *Server) reportError(sc *ServerConn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(sc, err)
	}
}

// removeStaleSocket deletes a leftover Unix socket at path. Other file
// types are left alone so that Listen reports the conflict.
func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return nil
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing stale socket: %w", err)
	}
	return nil
}
