package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fstrm-protocol/fstrm-go/pkg/control"
	"github.com/fstrm-protocol/fstrm-go/pkg/log"
)

var testTime = time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.flog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// sessionEvents is a complete bidirectional session followed by a session
// that failed in the handshake.
func sessionEvents() []log.Event {
	const ok = "abc12345-6789-0123-4567-890abcdef012"
	const bad = "def67890-0000-0000-0000-000000000000"
	ct := "protobuf:dnstap.Dnstap"

	return []log.Event{
		{
			Timestamp: testTime, SessionID: ok, Direction: log.DirectionIn,
			Layer: log.LayerControl, Category: log.CategoryControl, RemoteAddr: "10.0.0.1:5353",
			Control: &log.ControlEvent{Type: control.TypeReady, ContentTypes: []string{ct}},
		},
		{
			Timestamp: testTime.Add(time.Millisecond), SessionID: ok, Direction: log.DirectionOut,
			Layer: log.LayerControl, Category: log.CategoryControl,
			Control: &log.ControlEvent{Type: control.TypeAccept, ContentTypes: []string{ct}},
		},
		{
			Timestamp: testTime.Add(2 * time.Millisecond), SessionID: ok, Direction: log.DirectionIn,
			Layer: log.LayerSession, Category: log.CategoryState, ContentType: ct,
			StateChange: &log.StateChangeEvent{
				Entity: log.StateEntityHandshake, OldState: "AWAIT_START", NewState: "STREAMING", Reason: "START",
			},
		},
		{
			Timestamp: testTime.Add(3 * time.Millisecond), SessionID: ok, Direction: log.DirectionIn,
			Layer: log.LayerFraming, Category: log.CategoryData, ContentType: ct,
			Frame: &log.FrameEvent{Size: 8, Data: []byte{0xde, 0xad, 0xbe, 0xef}},
		},
		{
			Timestamp: testTime.Add(4 * time.Millisecond), SessionID: ok, Direction: log.DirectionIn,
			Layer: log.LayerSession, Category: log.CategoryState, ContentType: ct,
			StateChange: &log.StateChangeEvent{
				Entity: log.StateEntityHandshake, OldState: "AWAIT_STOP", NewState: "CLOSED",
			},
		},
		{
			Timestamp: testTime.Add(time.Second), SessionID: bad, Direction: log.DirectionIn,
			Layer: log.LayerControl, Category: log.CategoryError,
			Error: &log.ErrorEventData{
				Layer: log.LayerControl, Message: "unexpected START in AWAIT_READY", Kind: "PROTOCOL", Context: "AWAIT_READY",
			},
		},
	}
}
