// Package transport accepts Frame Streams producers over Unix domain or
// TCP sockets and runs one fstrm.Session per connection.
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Opaque payloads (dnstap)     │
//	├────────────────────────────────┤
//	│  Control handshake (READY ...) │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│       Unix socket / TCP        │
//	└────────────────────────────────┘
//
// Each connection gets a UUID session ID that labels its protocol log
// events. Reads use a short deadline so that a connection waiting for
// bytes notices server shutdown; an expired deadline surfaces as
// fstrm.ErrWouldBlock and the read is retried.
package transport
