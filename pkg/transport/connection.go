package transport

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ConnectionState is the lifecycle state of a server connection.
type ConnectionState int32

const (
	// StateConnected indicates an accepted connection still in the handshake.
	StateConnected ConnectionState = iota

	// StateStreaming indicates the producer sent START.
	StateStreaming

	// StateClosing indicates the session ended and the socket is closing.
	StateClosing

	// StateDisconnected indicates the socket is closed.
	StateDisconnected
)

// String returns the connection state name.
func (s ConnectionState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateStreaming:
		return "STREAMING"
	case StateClosing:
		return "CLOSING"
	case StateDisconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// ServerConn is one accepted producer connection.
type ServerConn struct {
	conn       net.Conn
	id         string
	remoteAddr string
	since      time.Time

	state    atomic.Int32
	payloads atomic.Uint64
	bytes    atomic.Uint64

	mu          sync.Mutex
	contentType []byte

	closeOnce sync.Once
	closeCh   chan struct{}
}

func newServerConn(conn net.Conn, id string) *ServerConn {
	c := &ServerConn{
		conn:       conn,
		id:         id,
		remoteAddr: remoteString(conn),
		since:      time.Now(),
		closeCh:    make(chan struct{}),
	}
	c.state.Store(int32(StateConnected))
	return c
}

// ID returns the session ID assigned to the connection.
func (c *ServerConn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *ServerConn) RemoteAddr() string {
	return c.remoteAddr
}

// State returns the connection state.
func (c *ServerConn) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// ContentType returns the negotiated content type, if any.
func (c *ServerConn) ContentType() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contentType
}

// Info returns a snapshot of the connection.
func (c *ServerConn) Info() ConnInfo {
	return ConnInfo{
		ID:          c.id,
		RemoteAddr:  c.remoteAddr,
		State:       c.State(),
		ContentType: string(c.ContentType()),
		Payloads:    c.payloads.Load(),
		Bytes:       c.bytes.Load(),
		Since:       c.since,
	}
}

// Close closes the socket. It is safe to call more than once.
func (c *ServerConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *ServerConn) closed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

func (c *ServerConn) setState(s ConnectionState) ConnectionState {
	return ConnectionState(c.state.Swap(int32(s)))
}

func (c *ServerConn) setContentType(ct []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contentType = ct
}

// ConnInfo is a point-in-time view of a connection.
type ConnInfo struct {
	ID          string
	RemoteAddr  string
	State       ConnectionState
	ContentType string
	Payloads    uint64
	Bytes       uint64
	Since       time.Time
}

// connSink writes handshake responses with an optional deadline.
type connSink struct {
	conn    net.Conn
	timeout time.Duration
}

func (w connSink) Write(p []byte) (int, error) {
	if w.timeout > 0 {
		if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
			return 0, err
		}
	}
	return w.conn.Write(p)
}

func remoteString(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil || addr.String() == "" {
		// Unix socket peers are usually unnamed.
		if local := conn.LocalAddr(); local != nil {
			return local.Network() + ":" + local.String()
		}
		return ""
	}
	return addr.String()
}
