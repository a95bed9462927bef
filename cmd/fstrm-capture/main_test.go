package main

import (
	"bytes"
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fstrm-protocol/fstrm-go/internal/streamtest"

	"github.com/fstrm-protocol/fstrm-go/pkg/discovery"
)

func TestFormatEndpoint(t *testing.T) {
	ep := &discovery.Endpoint{
		EndpointInfo: discovery.EndpointInfo{
			InstanceName:  "fstrm-resolver",
			Port:          6000,
			ContentTypes:  []string{"protobuf:dnstap.Dnstap"},
			Bidirectional: true,
		},
		Host:      "resolver.local.",
		Addresses: []string{"10.0.0.5"},
	}

	got := formatEndpoint(ep)
	for _, want := range []string{"fstrm-resolver", "resolver.local.:6000", "bidirectional", "protobuf:dnstap.Dnstap", "10.0.0.5"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}

	ep.Bidirectional = false
	ep.ContentTypes = nil
	got = formatEndpoint(ep)
	if !strings.Contains(got, "unidirectional") || !strings.Contains(got, "any") {
		t.Errorf("unexpected line %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRunClosesOutputOnStartFailure(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "capture.fstrm")

	// The socket directory does not exist, so listening fails after the
	// output file has been opened.
	if err := flag.Set("unix", filepath.Join(dir, "missing", "fstrm.sock")); err != nil {
		t.Fatal(err)
	}
	if err := flag.Set("write", out); err != nil {
		t.Fatal(err)
	}

	err := run()
	if err == nil || !strings.Contains(err.Error(), "failed to start server") {
		t.Fatalf("run = %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	want := streamtest.NewBuilder().Start().Stop().Bytes()
	if !bytes.Equal(got, want) {
		t.Errorf("output = % x, want % x", got, want)
	}
}
