// Package interactive implements the fstrm-capture operator console.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/fstrm-protocol/fstrm-go/pkg/transport"
)

// Counter reports how many payloads were written.
type Counter interface {
	Frames() uint64
}

// Console is a readline-driven command loop.
type Console struct {
	rl      *readline.Instance
	srv     transport.CaptureServer
	out     Counter
	started time.Time

	closeOnce sync.Once
}

// New creates the console. Attach must be called before Run.
func New() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "capture> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{rl: rl, started: time.Now()}, nil
}

// Attach sets the server and output the console reports on.
func (c *Console) Attach(srv transport.CaptureServer, out Counter) {
	c.srv = srv
	c.out = out
}

// Stdout returns a writer that coordinates with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that coordinates with the prompt.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Close restores the terminal. It is safe to call more than once and
// makes a blocked Run return.
func (c *Console) Close() error {
	var err error
	c.closeOnce.Do(func() { err = c.rl.Close() })
	return err
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		if !c.exec(strings.TrimSpace(line)) {
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}
	}
}

// exec runs one command line. It returns false on quit.
func (c *Console) exec(input string) bool {
	w := c.rl.Stdout()
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	switch strings.ToLower(parts[0]) {
	case "help", "?":
		c.printHelp()
	case "sessions", "s":
		FormatSessions(w, c.srv.Connections(), time.Now())
	case "stats":
		FormatStats(w, c.srv.Addr().String(), c.srv.Connections(), c.out.Frames(), time.Since(c.started))
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", parts[0])
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Capture Commands:
    sessions           - List connected producers
    stats              - Show capture totals
    help               - Show this help
    quit               - Stop capturing and exit`)
}

// FormatSessions writes one line per connection.
func FormatSessions(w io.Writer, conns []transport.ConnInfo, now time.Time) {
	if len(conns) == 0 {
		fmt.Fprintln(w, "No producers connected")
		return
	}
	fmt.Fprintf(w, "%-8s  %-24s  %-12s  %8s  %10s  %8s  %s\n",
		"ID", "REMOTE", "STATE", "PAYLOADS", "BYTES", "AGE", "CONTENT-TYPE")
	for _, ci := range conns {
		id := ci.ID
		if len(id) > 8 {
			id = id[:8]
		}
		ct := ci.ContentType
		if ct == "" {
			ct = "-"
		}
		fmt.Fprintf(w, "%-8s  %-24s  %-12s  %8d  %10d  %8s  %s\n",
			id, ci.RemoteAddr, ci.State, ci.Payloads, ci.Bytes, now.Sub(ci.Since).Round(time.Second), ct)
	}
}

// FormatStats writes capture totals. Payload and byte counts cover
// connected producers only; written counts everything since start.
func FormatStats(w io.Writer, addr string, conns []transport.ConnInfo, written uint64, uptime time.Duration) {
	var payloads, bytes uint64
	for _, ci := range conns {
		payloads += ci.Payloads
		bytes += ci.Bytes
	}
	fmt.Fprintf(w, "Listening:  %s\n", addr)
	fmt.Fprintf(w, "Uptime:     %s\n", uptime.Round(time.Second))
	fmt.Fprintf(w, "Producers:  %d\n", len(conns))
	fmt.Fprintf(w, "Active:     %d payloads, %d bytes\n", payloads, bytes)
	fmt.Fprintf(w, "Written:    %d payloads\n", written)
}
