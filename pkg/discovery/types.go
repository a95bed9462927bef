package discovery

import (
	"errors"
	"slices"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of a capture endpoint.
	ServiceType = "_fstrm._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// TXTVersion is the TXT format version written to TXTKeyVersion.
	TXTVersion = "1"
)

// TXT record keys.
const (
	TXTKeyContentTypes = "ct"
	TXTKeyMode         = "mode"
	TXTKeyVersion      = "v"
)

// TXT values of TXTKeyMode.
const (
	ModeBidirectional  = "bi"
	ModeUnidirectional = "uni"
)

// DefaultTTL is the DNS record TTL used when AdvertiserConfig.TTL is zero.
const DefaultTTL = 120 * time.Second

// Errors.
var (
	ErrMissingRequired     = errors.New("discovery: missing required field")
	ErrInvalidTXTRecord    = errors.New("discovery: invalid TXT record")
	ErrInstanceNameTooLong = errors.New("discovery: instance name too long")
	ErrInvalidPort         = errors.New("discovery: invalid port")
)

// EndpointInfo describes an advertised capture endpoint.
type EndpointInfo struct {
	// InstanceName is the DNS-SD instance name.
	InstanceName string

	// Port is the TCP port of the capture server.
	Port uint16

	// ContentTypes the server accepts; empty means any.
	ContentTypes []string

	// Bidirectional is true when the server runs the READY/ACCEPT handshake.
	Bidirectional bool
}

// Validate checks the fields needed for registration.
func (i *EndpointInfo) Validate() error {
	if err := ValidateInstanceName(i.InstanceName); err != nil {
		return err
	}
	if i.Port == 0 {
		return ErrInvalidPort
	}
	return nil
}

// Endpoint is a capture endpoint found by browsing.
type Endpoint struct {
	EndpointInfo

	Host      string
	Addresses []string
}

func (e *Endpoint) clone() *Endpoint {
	c := *e
	c.ContentTypes = slices.Clone(e.ContentTypes)
	c.Addresses = slices.Clone(e.Addresses)
	return &c
}
