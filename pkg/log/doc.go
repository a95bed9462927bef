// Package log provides structured protocol logging for Frame Streams sessions.
//
// Protocol capture is separate from operational logging (slog): it records a
// machine-readable trace of every frame, control exchange and handshake
// transition a session goes through.
//
// # Basic Usage
//
//	// Console output during development
//	cfg.Logger = log.NewSlogAdapter(slog.Default())
//
//	// Binary capture for fstrm-log
//	fl, _ := log.NewFileLogger("/var/log/fstrm/capture.flog")
//	cfg.Logger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
//   - Framing: frame sizes and (truncated) payloads (FrameEvent)
//   - Control: decoded READY, ACCEPT, START, STOP and FINISH (ControlEvent)
//   - Session: handshake and connection transitions (StateChangeEvent)
//
// Errors at any layer carry an ErrorEventData.
//
// # File Format
//
// Log files are a sequence of CBOR-encoded events with the .flog extension.
// The fstrm-log tool views, filters and exports them.
package log
