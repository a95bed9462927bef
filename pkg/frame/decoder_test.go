package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func testLimits() Limits {
	return Limits{MaxDataFrameSize: 1024, MaxControlFrameSize: DefaultMaxControlFrameSize}
}

func be32(v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return b[:]
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// feed delivers stream to the decoder in chunks of at most chunk bytes,
// always extending the buffer by no more than the decoder asked for.
func feed(t *testing.T, d *Decoder, stream []byte, chunk int) ([]Frame, error) {
	t.Helper()

	var (
		frames []Frame
		buf    []byte
		pos    int
	)
	for {
		res, err := d.Decode(buf)
		if err != nil {
			return frames, err
		}
		if res.Status == StatusComplete {
			frames = append(frames, Frame{Kind: res.Frame.Kind, Payload: bytes.Clone(res.Frame.Payload)})
			buf = buf[res.Consumed:]
			continue
		}
		if pos == len(stream) {
			return frames, nil
		}
		n := min(res.Need, chunk, len(stream)-pos)
		buf = append(buf, stream[pos:pos+n]...)
		pos += n
	}
}

func TestDecodeFrames(t *testing.T) {
	stop := be32(3)
	tests := []struct {
		name  string
		input []byte
		want  []Frame
	}{
		{
			name:  "single data frame",
			input: concat(be32(3), []byte("abc")),
			want:  []Frame{{Kind: KindData, Payload: []byte("abc")}},
		},
		{
			name:  "single byte data frame",
			input: concat(be32(1), []byte{0x42}),
			want:  []Frame{{Kind: KindData, Payload: []byte{0x42}}},
		},
		{
			name:  "control frame",
			input: concat(be32(0), be32(4), stop),
			want:  []Frame{{Kind: KindControl, Payload: stop}},
		},
		{
			name:  "empty control frame",
			input: concat(be32(0), be32(0)),
			want:  []Frame{{Kind: KindControl, Payload: []byte{}}},
		},
		{
			name: "mixed sequence",
			input: concat(
				be32(0), be32(4), be32(2),
				be32(2), []byte("hi"),
				be32(5), []byte("there"),
				be32(0), be32(4), stop,
			),
			want: []Frame{
				{Kind: KindControl, Payload: be32(2)},
				{Kind: KindData, Payload: []byte("hi")},
				{Kind: KindData, Payload: []byte("there")},
				{Kind: KindControl, Payload: stop},
			},
		},
		{
			name:  "max size data frame",
			input: concat(be32(1024), bytes.Repeat([]byte("x"), 1024)),
			want:  []Frame{{Kind: KindData, Payload: bytes.Repeat([]byte("x"), 1024)}},
		},
	}

	for _, tt := range tests {
		for _, chunk := range []int{1, 2, 3, 7, len(tt.input)} {
			got, err := feed(t, NewDecoder(testLimits()), tt.input, chunk)
			if err != nil {
				t.Fatalf("%s (chunk %d): unexpected error: %v", tt.name, chunk, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("%s (chunk %d): got %d frames, want %d", tt.name, chunk, len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Kind != tt.want[i].Kind {
					t.Errorf("%s (chunk %d): frame %d kind = %v, want %v", tt.name, chunk, i, got[i].Kind, tt.want[i].Kind)
				}
				if !bytes.Equal(got[i].Payload, tt.want[i].Payload) {
					t.Errorf("%s (chunk %d): frame %d payload = %x, want %x", tt.name, chunk, i, got[i].Payload, tt.want[i].Payload)
				}
			}
		}
	}
}

func TestDecodeNeedMoreDoesNotConsume(t *testing.T) {
	d := NewDecoder(testLimits())

	res, err := d.Decode(nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Status != StatusNeedMore || res.Need != 4 {
		t.Fatalf("empty buffer: got %v need %d, want NEED_MORE need 4", res.Status, res.Need)
	}

	res, err = d.Decode([]byte{0, 0})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Status != StatusNeedMore || res.Need != 2 || res.Consumed != 0 {
		t.Fatalf("partial length: got %+v", res)
	}
}

func TestDecodeResumesAfterValidatedHeader(t *testing.T) {
	d := NewDecoder(testLimits())
	buf := concat(be32(0), be32(4))

	res, err := d.Decode(buf[:4])
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Need != 4 {
		t.Errorf("after escape: need = %d, want 4", res.Need)
	}
	if d.Validated() != 4 {
		t.Errorf("after escape: validated = %d, want 4", d.Validated())
	}

	res, err = d.Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Need != 4 {
		t.Errorf("after control length: need = %d, want 4", res.Need)
	}
	if d.Validated() != ControlHeaderSize {
		t.Errorf("after control length: validated = %d, want %d", d.Validated(), ControlHeaderSize)
	}

	buf = append(buf, be32(3)...)
	res, err = d.Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if res.Status != StatusComplete || res.Consumed != 12 {
		t.Fatalf("complete: got %+v", res)
	}
	if d.Validated() != 0 {
		t.Errorf("decoder not reset after frame: validated = %d", d.Validated())
	}
}

func TestDecodeDataFrameTooLarge(t *testing.T) {
	d := NewDecoder(Limits{MaxDataFrameSize: 100, MaxControlFrameSize: 512})

	_, err := d.Decode(be32(101))
	if !errors.Is(err, ErrDataFrameTooLarge) {
		t.Errorf("expected ErrDataFrameTooLarge, got %v", err)
	}
}

func TestDecodeControlFrameTooLarge(t *testing.T) {
	d := NewDecoder(testLimits())

	res, err := d.Decode(be32(0))
	if err != nil || res.Need != 4 {
		t.Fatalf("escape: res=%+v err=%v", res, err)
	}
	_, err = d.Decode(concat(be32(0), be32(0xFFFFFFFF)))
	if !errors.Is(err, ErrControlFrameTooLarge) {
		t.Errorf("expected ErrControlFrameTooLarge, got %v", err)
	}
}

func TestDecodeRejectsBeforeBody(t *testing.T) {
	// Only the header bytes are supplied; rejection must not ask for more.
	var requested int
	d := NewDecoder(Limits{MaxDataFrameSize: 16, MaxControlFrameSize: 16})
	stream := concat(be32(0), be32(1<<30))
	var buf []byte
	for {
		res, err := d.Decode(buf)
		if err != nil {
			if !errors.Is(err, ErrControlFrameTooLarge) {
				t.Fatalf("unexpected error: %v", err)
			}
			break
		}
		requested += res.Need
		buf = stream[:len(buf)+res.Need]
	}
	if requested != ControlHeaderSize {
		t.Errorf("requested %d bytes before rejection, want %d", requested, ControlHeaderSize)
	}
}

func TestDecodedDataFramesAreNeverEmpty(t *testing.T) {
	stream := concat(be32(0), be32(0), be32(1), []byte{0})
	frames, err := feed(t, NewDecoder(testLimits()), stream, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, f := range frames {
		if f.Kind == KindData && len(f.Payload) == 0 {
			t.Errorf("frame %d: empty data frame", i)
		}
	}
}

func TestAppendData(t *testing.T) {
	got, err := AppendData(nil, []byte("abc"))
	if err != nil {
		t.Fatalf("AppendData failed: %v", err)
	}
	if want := []byte{0, 0, 0, 3, 'a', 'b', 'c'}; !bytes.Equal(got, want) {
		t.Errorf("AppendData = %x, want %x", got, want)
	}

	if _, err := AppendData(nil, nil); !errors.Is(err, ErrEmptyDataFrame) {
		t.Errorf("expected ErrEmptyDataFrame, got %v", err)
	}
}

func TestAppendControl(t *testing.T) {
	got := AppendControl(nil, be32(5))
	want := []byte{0, 0, 0, 0, 0, 0, 0, 4, 0, 0, 0, 5}
	if !bytes.Equal(got, want) {
		t.Errorf("AppendControl = %x, want %x", got, want)
	}
	if size := (Frame{Kind: KindControl, Payload: be32(5)}).Size(); size != len(want) {
		t.Errorf("Size = %d, want %d", size, len(want))
	}
}

func TestLimitsValidate(t *testing.T) {
	if err := (Limits{}).Validate(); err == nil {
		t.Error("expected error for zero limits")
	}
	if err := (Limits{MaxDataFrameSize: 1}).Validate(); err == nil {
		t.Error("expected error for missing control limit")
	}
	if err := testLimits().Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
