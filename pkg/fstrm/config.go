package fstrm

import (
	"fmt"

	"github.com/fstrm-protocol/fstrm-go/pkg/control"
	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
	"github.com/fstrm-protocol/fstrm-go/pkg/handshake"
	"github.com/fstrm-protocol/fstrm-go/pkg/log"
)

// Config configures a Session.
type Config struct {
	// Mode selects the handshake. It is fixed for the session lifetime.
	Mode handshake.Mode

	// MaxDataFrameSize bounds data frame payloads. Required.
	MaxDataFrameSize uint32

	// MaxControlFrameSize bounds control frame payloads. Required.
	MaxControlFrameSize uint32

	// ContentTypes lists the accepted content types, most preferred first.
	// Empty accepts any.
	ContentTypes [][]byte

	// AllowBareData accepts unidirectional streams without a leading START.
	AllowBareData bool

	// Logger receives protocol events. Nil disables protocol logging.
	Logger log.Logger

	// SessionID and RemoteAddr label protocol log events.
	SessionID  string
	RemoteAddr string
}

// DefaultConfig returns a Config using the suggested frame limits.
func DefaultConfig(mode handshake.Mode, contentTypes ...string) Config {
	cfg := Config{
		Mode:                mode,
		MaxDataFrameSize:    frame.DefaultMaxDataFrameSize,
		MaxControlFrameSize: frame.DefaultMaxControlFrameSize,
	}
	for _, ct := range contentTypes {
		cfg.ContentTypes = append(cfg.ContentTypes, []byte(ct))
	}
	return cfg
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Mode != handshake.Unidirectional && c.Mode != handshake.Bidirectional {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfig, c.Mode)
	}
	if err := c.limits().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.AllowBareData && c.Mode == handshake.Bidirectional {
		return fmt.Errorf("%w: AllowBareData requires unidirectional mode", ErrInvalidConfig)
	}
	for _, ct := range c.ContentTypes {
		if len(ct) == 0 {
			return fmt.Errorf("%w: empty content type", ErrInvalidConfig)
		}
		if len(ct) > control.MaxContentTypeLength {
			return fmt.Errorf("%w: content type longer than %d bytes", ErrInvalidConfig, control.MaxContentTypeLength)
		}
	}
	return nil
}

func (c Config) limits() frame.Limits {
	return frame.Limits{
		MaxDataFrameSize:    c.MaxDataFrameSize,
		MaxControlFrameSize: c.MaxControlFrameSize,
	}
}
