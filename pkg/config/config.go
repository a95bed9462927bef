// Package config loads the YAML configuration of fstrm-capture.
//
// Example:
//
//	listen:
//	  network: tcp
//	  address: 127.0.0.1:6000
//	mode: bidirectional
//	content_types: [protobuf:dnstap.Dnstap]
//	limits:
//	  max_data_frame_size: 1048576
//	  max_control_frame_size: 512
//	output: /var/log/dnstap.fstrm
//	protocol_log: /var/log/dnstap.flog
//	read_timeout: 1s
//	mdns:
//	  enabled: true
//	  instance: resolver-1
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fstrm-protocol/fstrm-go/pkg/discovery"
	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
	"github.com/fstrm-protocol/fstrm-go/pkg/fstrm"
	"github.com/fstrm-protocol/fstrm-go/pkg/handshake"
	"github.com/fstrm-protocol/fstrm-go/pkg/transport"
)

// Mode names accepted in the mode key.
const (
	ModeBidirectional  = "bidirectional"
	ModeUnidirectional = "unidirectional"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid")

// Capture is the configuration of a capture server.
type Capture struct {
	Listen         Listen        `yaml:"listen"`
	Mode           string        `yaml:"mode"`
	ContentTypes   []string      `yaml:"content_types"`
	AllowBareData  bool          `yaml:"allow_bare_data"`
	Limits         Limits        `yaml:"limits"`
	Output         string        `yaml:"output"`
	ProtocolLog    string        `yaml:"protocol_log"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxConnections int           `yaml:"max_connections"`
	MDNS           MDNS          `yaml:"mdns"`
}

// Listen is the listen socket.
type Listen struct {
	Network string `yaml:"network"`
	Address string `yaml:"address"`
}

// Limits are the frame size limits in bytes.
type Limits struct {
	MaxDataFrameSize    uint32 `yaml:"max_data_frame_size"`
	MaxControlFrameSize uint32 `yaml:"max_control_frame_size"`
}

// MDNS controls advertisement of TCP endpoints.
type MDNS struct {
	Enabled   bool   `yaml:"enabled"`
	Instance  string `yaml:"instance"`
	Interface string `yaml:"interface"`
}

// LoadError reports a file that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Default returns the configuration used when no file is given.
func Default() Capture {
	return Capture{
		Listen: Listen{Network: "unix"},
		Mode:   ModeBidirectional,
		Limits: Limits{
			MaxDataFrameSize:    frame.DefaultMaxDataFrameSize,
			MaxControlFrameSize: frame.DefaultMaxControlFrameSize,
		},
		ReadTimeout:  transport.DefaultReadTimeout,
		WriteTimeout: transport.DefaultWriteTimeout,
	}
}

// Parse decodes YAML over Default. Unknown keys are rejected; an empty
// document yields Default.
func Parse(data []byte) (*Capture, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	return &c, nil
}

// Load reads and parses a file.
func Load(path string) (*Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}
	c, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration, including the derived session config.
func (c *Capture) Validate() error {
	switch c.Listen.Network {
	case "unix", "tcp", "tcp4", "tcp6":
	default:
		return fmt.Errorf("%w: listen.network %q", ErrInvalid, c.Listen.Network)
	}
	if c.Listen.Address == "" {
		return fmt.Errorf("%w: listen.address is required", ErrInvalid)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalid)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("%w: negative max_connections", ErrInvalid)
	}
	if c.MDNS.Enabled && c.Listen.Network == "unix" {
		return fmt.Errorf("%w: mdns requires a tcp listener", ErrInvalid)
	}
	if c.MDNS.Instance != "" {
		if err := discovery.ValidateInstanceName(c.MDNS.Instance); err != nil {
			return fmt.Errorf("%w: mdns.instance: %v", ErrInvalid, err)
		}
	}
	if _, err := c.Session(); err != nil {
		return err
	}
	return nil
}

// HandshakeMode maps the mode key.
func (c *Capture) HandshakeMode() (handshake.Mode, error) {
	switch c.Mode {
	case ModeBidirectional, "":
		return handshake.Bidirectional, nil
	case ModeUnidirectional:
		return handshake.Unidirectional, nil
	default:
		return 0, fmt.Errorf("%w: mode %q", ErrInvalid, c.Mode)
	}
}

// Session returns the session template.
func (c *Capture) Session() (fstrm.Config, error) {
	mode, err := c.HandshakeMode()
	if err != nil {
		return fstrm.Config{}, err
	}
	cfg := fstrm.DefaultConfig(mode, c.ContentTypes...)
	cfg.AllowBareData = c.AllowBareData
	if c.Limits.MaxDataFrameSize != 0 {
		cfg.MaxDataFrameSize = c.Limits.MaxDataFrameSize
	}
	if c.Limits.MaxControlFrameSize != 0 {
		cfg.MaxControlFrameSize = c.Limits.MaxControlFrameSize
	}
	if err := cfg.Validate(); err != nil {
		return fstrm.Config{}, err
	}
	return cfg, nil
}

// Server returns the transport configuration. Callbacks and Logger are
// left for the caller.
func (c *Capture) Server() (transport.ServerConfig, error) {
	sess, err := c.Session()
	if err != nil {
		return transport.ServerConfig{}, err
	}
	return transport.ServerConfig{
		Network:        c.Listen.Network,
		Address:        c.Listen.Address,
		Session:        sess,
		ReadTimeout:    c.ReadTimeout,
		WriteTimeout:   c.WriteTimeout,
		MaxConnections: c.MaxConnections,
	}, nil
}

// Endpoint returns the mDNS advertisement for a server bound to addr.
func (c *Capture) Endpoint(addr net.Addr, hostname string) (*discovery.EndpointInfo, error) {
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, err
	}

	name := c.MDNS.Instance
	if name == "" {
		name = discovery.DefaultInstanceName(hostname)
	}
	mode, err := c.HandshakeMode()
	if err != nil {
		return nil, err
	}
	return &discovery.EndpointInfo{
		InstanceName:  name,
		Port:          uint16(port),
		ContentTypes:  c.ContentTypes,
		Bidirectional: mode == handshake.Bidirectional,
	}, nil
}
