package transport

import (
	"context"
	"net"
)

// CaptureServer accepts Frame Streams producers.
// Implemented by Server.
type CaptureServer interface {
	// Start begins accepting connections.
	Start(ctx context.Context) error

	// Stop closes the listener and all connections, and waits for their
	// sessions to finish.
	Stop() error

	// Addr returns the listen address.
	Addr() net.Addr

	// ConnectionCount returns the number of active connections.
	ConnectionCount() int

	// Connections returns a snapshot of the active connections.
	Connections() []ConnInfo
}

var _ CaptureServer = (*Server)(nil)
