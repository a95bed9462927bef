// Command fstrm-dump prints the frames of a unidirectional Frame Streams
// file and optionally re-encodes them to a new file.
//
// Usage:
//
//	fstrm-dump [flags] <input|-> [output]
//
// Each data frame is printed with its size and a quoted rendering in which
// non-printable bytes appear as \xNN.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fstrm-protocol/fstrm-go/pkg/fstrm"
	"github.com/fstrm-protocol/fstrm-go/pkg/handshake"
)

var maxFrame = flag.Uint("max-frame", 0, "Maximum data frame size in bytes (default: library default)")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fstrm-dump - Dump a Frame Streams file\n\nUsage:\n  fstrm-dump [flags] <input|-> [output]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	var in io.Reader = os.Stdin
	if path := flag.Arg(0); path != "-" {
		f, err := os.Open(path)
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		in = f
	}

	var out io.Writer
	if flag.NArg() > 1 {
		f, err := os.Create(flag.Arg(1))
		if err != nil {
			fatal(err)
		}
		defer f.Close()
		out = f
	}

	cfg := fstrm.DefaultConfig(handshake.Unidirectional)
	if *maxFrame > 0 {
		cfg.MaxDataFrameSize = uint32(*maxFrame)
	}

	stdout := bufio.NewWriter(os.Stdout)
	err := dump(bufio.NewReader(in), stdout, out, cfg)
	stdout.Flush()
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// dump prints every frame of r to w. When out is non-nil the stream is
// re-encoded to it.
func dump(r io.Reader, w io.Writer, out io.Writer, cfg fstrm.Config) error {
	sess, err := fstrm.NewSession(fstrm.NewReaderSource(r), nil, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()

	var enc *fstrm.Encoder
	started := false
	start := func() error {
		started = true
		fmt.Fprintln(w, "FSTRM_CONTROL_START.")
		ct, ok := sess.ContentType()
		if ok {
			fmt.Fprintf(w, "FSTRM_CONTROL_FIELD_CONTENT_TYPE (%d bytes).\n", len(ct))
			fmt.Fprintf(w, " %q\n", string(ct))
		}
		if out != nil {
			enc, err = fstrm.NewEncoder(out, ct)
			return err
		}
		return nil
	}

	for {
		payload, err := sess.Next()
		if errors.Is(err, fstrm.ErrWouldBlock) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if !started {
			if err := start(); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}

		fmt.Fprintf(w, "Data frame (%d) bytes.\n", len(payload))
		fmt.Fprintf(w, " \"%s\"\n", escape(payload))
		if enc != nil {
			if err := enc.Write(payload); err != nil {
				return err
			}
		}
	}

	fmt.Fprintln(w, "FSTRM_CONTROL_STOP.")
	if enc != nil {
		return enc.Close()
	}
	return nil
}

// escape renders printable ASCII as is, '"' as \" and every other byte
// as \xNN.
func escape(p []byte) string {
	var b strings.Builder
	for _, c := range p {
		switch {
		case c == '"':
			b.WriteString(`\"`)
		case c >= 0x20 && c < 0x7f:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, `\x%02x`, c)
		}
	}
	return b.String()
}
