// Command fstrm-capture accepts Frame Streams producers and writes every
// received payload to one Frame Streams file.
//
// Usage:
//
//	fstrm-capture [flags]
//
// Flags:
//
//	-type string          Content type to accept (repeatable via the config file)
//	-unix string          Unix socket path to listen on
//	-tcp string           TCP address to listen on (host:port)
//	-write string         Output file, "-" for stdout (required)
//	-config string        YAML configuration file
//	-unidirectional       Do not run the READY/ACCEPT handshake
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-mdns                 Advertise the TCP endpoint via mDNS
//	-browse duration      Browse for capture endpoints, print them and exit
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-i                    Interactive console
//
// Flags override values from the configuration file.
//
// Examples:
//
//	# Capture dnstap from a resolver over a Unix socket
//	fstrm-capture -type protobuf:dnstap.Dnstap -unix /var/run/dnstap.sock -write dnstap.fstrm
//
//	# Capture over TCP, advertise via mDNS and log the protocol
//	fstrm-capture -config capture.yaml -mdns -protocol-log capture.flog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fstrm-protocol/fstrm-go/cmd/fstrm-capture/interactive"
	"github.com/fstrm-protocol/fstrm-go/pkg/config"
	"github.com/fstrm-protocol/fstrm-go/pkg/discovery"
	"github.com/fstrm-protocol/fstrm-go/pkg/fstrm"
	"github.com/fstrm-protocol/fstrm-go/pkg/log"
	"github.com/fstrm-protocol/fstrm-go/pkg/transport"
)

var (
	contentType     = flag.String("type", "", "Content type to accept")
	unixPath        = flag.String("unix", "", "Unix socket path to listen on")
	tcpAddr         = flag.String("tcp", "", "TCP address to listen on (host:port)")
	writePath       = flag.String("write", "", `Output file, "-" for stdout`)
	configFile      = flag.String("config", "", "YAML configuration file")
	unidirectional  = flag.Bool("unidirectional", false, "Do not run the READY/ACCEPT handshake")
	protocolLog     = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	mdns            = flag.Bool("mdns", false, "Advertise the TCP endpoint via mDNS")
	browse          = flag.Duration("browse", 0, "Browse for capture endpoints for this long, print them and exit")
	logLevel        = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	interactiveMode = flag.Bool("i", false, "Interactive console")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

// run captures until a signal or the console quits. Every resource is
// released through defers, so the output always ends with STOP.
func run() error {
	if *browse > 0 {
		if err := runBrowse(*browse, os.Stdout); err != nil {
			return fmt.Errorf("browse failed: %w", err)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Output == "" {
		return fmt.Errorf("invalid configuration: output file (-write) required")
	}

	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)
	stdlog.Println("Frame Streams Capture")
	stdlog.Println("=====================")
	stdlog.Printf("Listen: %s %s", cfg.Listen.Network, cfg.Listen.Address)
	stdlog.Printf("Mode: %s", cfg.Mode)
	stdlog.Printf("Output: %s", cfg.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Interactive console owns the terminal; logs go through it.
	var console *interactive.Console
	var logOut io.Writer = os.Stderr
	if *interactiveMode {
		console, err = interactive.New()
		if err != nil {
			return fmt.Errorf("failed to start console: %w", err)
		}
		defer func() {
			console.Close()
			stdlog.SetOutput(os.Stderr)
		}()
		logOut = console.Stderr()
		stdlog.SetOutput(logOut)
	}

	slogger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: parseLevel(*logLevel)}))

	protocolLogger, err := openProtocolLog(cfg.ProtocolLog)
	if err != nil {
		return fmt.Errorf("failed to create protocol logger: %w", err)
	}
	if protocolLogger != nil {
		defer protocolLogger.Close()
		stdlog.Printf("Protocol logging to: %s", cfg.ProtocolLog)
	}

	out, closeOut, err := openOutput(cfg.Output)
	if err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}
	defer closeOut()

	var outType []byte
	if len(cfg.ContentTypes) > 0 {
		outType = []byte(cfg.ContentTypes[0])
	}
	enc, err := fstrm.NewEncoder(out, outType)
	if err != nil {
		return fmt.Errorf("failed to write output header: %w", err)
	}
	defer func() {
		if err := enc.Close(); err != nil {
			stdlog.Printf("Error closing output: %v", err)
		}
	}()

	srvCfg, err := cfg.Server()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// Only set protocolLogger when non-nil to avoid a typed-nil interface.
	loggers := []log.Logger{log.NewSlogAdapter(slogger)}
	if protocolLogger != nil {
		loggers = append(loggers, protocolLogger)
	}
	srvCfg.Logger = log.NewMultiLogger(loggers...)
	installHandlers(&srvCfg, slogger, enc)

	srv, err := transport.NewServer(srvCfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	// Stop is idempotent; the server must stop before the encoder closes.
	defer srv.Stop()
	stdlog.Printf("Listening on %s", srv.Addr())

	if cfg.MDNS.Enabled {
		adv, err := advertise(ctx, cfg, srv)
		if err != nil {
			stdlog.Printf("Warning: mDNS advertisement failed: %v", err)
		} else {
			defer adv.Stop()
		}
	}

	if console != nil {
		console.Attach(srv, enc)
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	stdlog.Println("Shutting down...")
	if err := srv.Stop(); err != nil {
		stdlog.Printf("Error stopping server: %v", err)
	}
	stdlog.Printf("Captured %d payloads", enc.Frames())
	return nil
}

// loadConfig reads the optional config file and applies flags on top.
func loadConfig() (*config.Capture, error) {
	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "type":
			cfg.ContentTypes = []string{*contentType}
		case "unix":
			cfg.Listen = config.Listen{Network: "unix", Address: *unixPath}
		case "tcp":
			cfg.Listen = config.Listen{Network: "tcp", Address: *tcpAddr}
		case "write":
			cfg.Output = *writePath
		case "unidirectional":
			if *unidirectional {
				cfg.Mode = config.ModeUnidirectional
			} else {
				cfg.Mode = config.ModeBidirectional
			}
		case "protocol-log":
			cfg.ProtocolLog = *protocolLog
		case "mdns":
			cfg.MDNS.Enabled = *mdns
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func installHandlers(cfg *transport.ServerConfig, logger *slog.Logger, enc *fstrm.Encoder) {
	cfg.OnConnect = func(c *transport.ServerConn) {
		logger.Info("producer connected", "session_id", c.ID(), "remote", c.RemoteAddr())
	}
	cfg.OnStart = func(c *transport.ServerConn, ct []byte) {
		logger.Info("stream started", "session_id", c.ID(), "content_type", string(ct))
	}
	cfg.OnPayload = func(c *transport.ServerConn, payload []byte) {
		if err := enc.Write(payload); err != nil {
			logger.Error("write failed", "session_id", c.ID(), "error", err)
		}
	}
	cfg.OnDisconnect = func(c *transport.ServerConn, err error) {
		info := c.Info()
		if err != nil {
			logger.Warn("producer disconnected", "session_id", info.ID, "payloads", info.Payloads, "error", err)
		} else {
			logger.Info("producer disconnected", "session_id", info.ID, "payloads", info.Payloads)
		}
		if err := enc.Flush(); err != nil {
			logger.Error("flush failed", "error", err)
		}
	}
	cfg.OnError = func(c *transport.ServerConn, err error) {
		if c == nil {
			logger.Error("server error", "error", err)
			return
		}
		logger.Debug("session error", "session_id", c.ID(), "error", err)
	}
}

func openProtocolLog(path string) (*log.FileLogger, error) {
	if path == "" {
		return nil, nil
	}
	return log.NewFileLogger(path)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func advertise(ctx context.Context, cfg *config.Capture, srv *transport.Server) (*discovery.MDNSAdvertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	info, err := cfg.Endpoint(srv.Addr(), host)
	if err != nil {
		return nil, err
	}

	advCfg := discovery.DefaultAdvertiserConfig()
	advCfg.Interface = cfg.MDNS.Interface
	adv := discovery.NewMDNSAdvertiser(advCfg)
	if err := adv.Advertise(ctx, info); err != nil {
		return nil, err
	}
	stdlog.Printf("Advertising %s as %q on port %d", discovery.ServiceType, info.InstanceName, info.Port)
	return adv, nil
}

func runBrowse(d time.Duration, w io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	endpoints, err := discovery.NewMDNSBrowser(discovery.BrowserConfig{}).Browse(ctx)
	if err != nil {
		return err
	}
	for ep := range endpoints {
		fmt.Fprintln(w, formatEndpoint(ep))
	}
	return nil
}

func formatEndpoint(ep *discovery.Endpoint) string {
	mode := "unidirectional"
	if ep.Bidirectional {
		mode = "bidirectional"
	}
	types := "any"
	if len(ep.ContentTypes) > 0 {
		types = fmt.Sprint(ep.ContentTypes)
	}
	return fmt.Sprintf("%s\t%s:%d\t%s\t%s\t%v", ep.InstanceName, ep.Host, ep.Port, mode, types, ep.Addresses)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
