// Package frame implements the Frame Streams framing layer.
//
// A Frame Streams byte stream is a sequence of length-prefixed frames:
//
//	┌──────────────┬─────────────────────────────────────┐
//	│ length (4B)  │ data payload (length bytes)         │  length > 0
//	├──────────────┼──────────────┬──────────────────────┤
//	│ 0x00000000   │ ctrl len (4B)│ control payload      │  escape
//	└──────────────┴──────────────┴──────────────────────┘
//
// All integers are unsigned big-endian. A zero length is reserved as the
// control-frame escape, so data frames always carry at least one byte.
//
// The Decoder is resumable: it is handed the bytes buffered so far and either
// returns a complete frame or reports how many more bytes it needs. Header
// bytes that were already validated are not validated again on retry, and
// declared lengths are checked against the configured limits before a single
// body byte is requested.
package frame
