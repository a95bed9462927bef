// Package fstrm consumes Frame Streams: a length-prefixed framing of opaque
// payloads with a small control-frame handshake, as used by dnstap.
//
// A Session pulls bytes from a ByteSource, decodes frames, runs the
// consumer side of the handshake (writing ACCEPT and FINISH to a
// ResponseSink in bidirectional mode) and returns data payloads in wire
// order:
//
//	sess, err := fstrm.NewSession(fstrm.NewReaderSource(conn), conn, fstrm.Config{
//		Mode:                handshake.Bidirectional,
//		MaxDataFrameSize:    frame.DefaultMaxDataFrameSize,
//		MaxControlFrameSize: frame.DefaultMaxControlFrameSize,
//		ContentTypes:        [][]byte{[]byte("protobuf:dnstap.Dnstap")},
//	})
//	for payload, err := range sess.Payloads() {
//		...
//	}
//
// Next is the only suspension point. When the source has no bytes ready it
// returns ErrWouldBlock and the call may be retried later; all other errors
// are fatal and returned again by every later call.
//
// A Session is not safe for concurrent use. Run one per connection.
package fstrm
