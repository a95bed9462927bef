package discovery

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Advertiser announces a capture endpoint.
type Advertiser interface {
	// Advertise starts advertising info, replacing any earlier registration.
	Advertise(ctx context.Context, info *EndpointInfo) error

	// Stop withdraws the registration. It is safe to call when idle.
	Stop()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL (default: DefaultTTL).
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}

// MDNSAdvertiser implements Advertiser using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

var _ Advertiser = (*MDNSAdvertiser)(nil)

// NewMDNSAdvertiser creates an mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// Advertise registers info under ServiceType.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *EndpointInfo) error {
	if err := info.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.InstanceName,
		ServiceType,
		Domain,
		int(info.Port),
		TXTRecordsToStrings(EncodeEndpointTXT(info)),
		interfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}
	a.server = server
	return nil
}

// Stop withdraws the registration.
func (a *MDNSAdvertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string
}

// MDNSBrowser finds capture endpoints using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
}

// NewMDNSBrowser creates an mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// Browse emits an endpoint when it is first seen and again whenever its
// address set grows. Every emitted value is a fresh copy owned by the
// receiver. The channel closes when ctx is done.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *Endpoint, error) {
	out := make(chan *Endpoint)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	var opts []zeroconf.ClientOption
	if ifaces := interfaces(b.config.Interface); ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	go func() {
		defer close(out)
		aggregate(ctx, entries, removed, out)
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// aggregate merges entries by instance name until entries closes or ctx is
// done. Removals drop only the addresses they carry; an instance with no
// addresses left is forgotten.
func aggregate(ctx context.Context, entries, removed <-chan *zeroconf.ServiceEntry, out chan<- *Endpoint) {
	seen := make(map[string]*Endpoint)
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			ep := entryToEndpoint(entry)
			if ep == nil {
				continue
			}
			if existing, found := seen[ep.InstanceName]; found {
				merged := mergeAddresses(existing.Addresses, ep.Addresses)
				if len(merged) == len(existing.Addresses) {
					continue
				}
				existing.Addresses = merged
				ep = existing
			} else {
				seen[ep.InstanceName] = ep
			}
			select {
			case out <- ep.clone():
			case <-ctx.Done():
				return
			}

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			existing, found := seen[entry.Instance]
			if !found {
				continue
			}
			existing.Addresses = removeAddresses(existing.Addresses, entry)
			if len(existing.Addresses) == 0 {
				delete(seen, entry.Instance)
			}

		case <-ctx.Done():
			return
		}
	}
}

// entryToEndpoint converts a zeroconf entry. Entries with unusable TXT
// records yield nil.
func entryToEndpoint(entry *zeroconf.ServiceEntry) *Endpoint {
	info, err := DecodeEndpointTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return nil
	}
	info.InstanceName = entry.Instance
	info.Port = uint16(entry.Port)

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &Endpoint{
		EndpointInfo: *info,
		Host:         entry.HostName,
		Addresses:    addrs,
	}
}

// mergeAddresses returns existing plus the new addresses of added. The
// result never shares a backing array with existing.
func mergeAddresses(existing, added []string) []string {
	existing = slices.Clone(existing)
	for _, a := range added {
		dup := false
		for _, e := range existing {
			if e == a {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, a)
		}
	}
	return existing
}

// removeAddresses returns addresses without those carried by entry.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	drop := make(map[string]bool, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		drop[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		drop[ip.String()] = true
	}

	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if !drop[a] {
			out = append(out, a)
		}
	}
	return out
}

// interfaces returns the named interface, or nil for all interfaces.
func interfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
