package control

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Frame
	}{
		{
			name:  "stop",
			input: "00000003",
			want:  Frame{Type: TypeStop},
		},
		{
			name:  "finish",
			input: "00000005",
			want:  Frame{Type: TypeFinish},
		},
		{
			name:  "ready with dnstap content type",
			input: "00000004 00000001 0000000D 646E737461702E446E73746170",
			want:  New(TypeReady, "dnstap.Dnstap"),
		},
		{
			name:  "ready with two content types",
			input: "00000004 00000001 00000001 61 00000001 00000002 6263",
			want:  New(TypeReady, "a", "bc"),
		},
		{
			name:  "start with empty content type",
			input: "00000002 00000001 00000000",
			want:  Frame{Type: TypeStart, ContentTypes: [][]byte{{}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(mustHex(t, tt.input))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got.Type != tt.want.Type {
				t.Errorf("Type = %v, want %v", got.Type, tt.want.Type)
			}
			if len(got.ContentTypes) != len(tt.want.ContentTypes) {
				t.Fatalf("ContentTypes: got %d, want %d", len(got.ContentTypes), len(tt.want.ContentTypes))
			}
			for i := range got.ContentTypes {
				if !bytes.Equal(got.ContentTypes[i], tt.want.ContentTypes[i]) {
					t.Errorf("ContentTypes[%d] = %q, want %q", i, got.ContentTypes[i], tt.want.ContentTypes[i])
				}
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty payload", "", ErrTruncatedField},
		{"short type", "000000", ErrTruncatedField},
		{"type zero", "00000000", ErrInvalidType},
		{"type six", "00000006", ErrInvalidType},
		{"unknown field", "00000004 00000002 00000001 61", ErrUnknownFieldType},
		{"field overruns payload", "00000004 00000001 00000005 6162", ErrTruncatedField},
		{"trailing bytes", "00000003 0000", ErrTruncatedField},
		{"partial field header", "00000004 00000001 0000", ErrTruncatedField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(mustHex(t, tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseContentTypeTooLong(t *testing.T) {
	f := Frame{Type: TypeReady, ContentTypes: [][]byte{bytes.Repeat([]byte("x"), MaxContentTypeLength+1)}}
	_, err := Parse(f.Marshal())
	if !errors.Is(err, ErrContentTypeTooLong) {
		t.Errorf("expected ErrContentTypeTooLong, got %v", err)
	}
}

func TestParseDoesNotAliasPayload(t *testing.T) {
	payload := New(TypeStart, "abc").Marshal()
	f, err := Parse(payload)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	payload[len(payload)-1] = 'z'
	if string(f.ContentTypes[0]) != "abc" {
		t.Errorf("content type changed with payload: %q", f.ContentTypes[0])
	}
}

func TestMarshal(t *testing.T) {
	got := New(TypeAccept, "dnstap.Dnstap").Marshal()
	want := mustHex(t, "00000001 00000001 0000000D 646E737461702E446E73746170")
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal = %x, want %x", got, want)
	}
}

func TestAppendFrameFinish(t *testing.T) {
	got := Frame{Type: TypeFinish}.AppendFrame(nil)
	want := mustHex(t, "00000000 00000004 00000005")
	if !bytes.Equal(got, want) {
		t.Errorf("AppendFrame = %x, want %x", got, want)
	}
}

func TestTypeString(t *testing.T) {
	tests := map[Type]string{
		TypeAccept: "ACCEPT",
		TypeStart:  "START",
		TypeStop:   "STOP",
		TypeReady:  "READY",
		TypeFinish: "FINISH",
		Type(9):    "UNKNOWN(9)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("Type(%d).String() = %q, want %q", uint32(typ), got, want)
		}
	}
}

func TestFrameContentType(t *testing.T) {
	if _, ok := (Frame{Type: TypeStart}).ContentType(); ok {
		t.Error("expected no content type")
	}
	ct, ok := New(TypeStart, "a", "b").ContentType()
	if !ok || string(ct) != "a" {
		t.Errorf("ContentType = %q, %v; want \"a\", true", ct, ok)
	}
}
