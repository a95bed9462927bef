package discovery

import (
	"context"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
)

func testEntry(instance string, ips ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{
		HostName: "resolver.local.",
		Port:     6000,
		Text:     []string{"ct=protobuf:dnstap.Dnstap", "mode=bi", "v=1"},
	}
	e.Instance = instance
	for _, s := range ips {
		ip := net.ParseIP(s)
		if ip.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, ip)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, ip)
		}
	}
	return e
}

func sendEntry(t *testing.T, ch chan<- *zeroconf.ServiceEntry, e *zeroconf.ServiceEntry) {
	t.Helper()
	select {
	case ch <- e:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout sending entry")
	}
}

func recvEndpoint(t *testing.T, ch <-chan *Endpoint) *Endpoint {
	t.Helper()
	select {
	case ep := <-ch:
		return ep
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for endpoint")
		return nil
	}
}

func TestAggregateEmitsCopies(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan *Endpoint)
	done := make(chan struct{})
	go func() {
		defer close(done)
		aggregate(ctx, entries, removed, out)
	}()

	sendEntry(t, entries, testEntry("fstrm-a", "10.0.0.1"))
	first := recvEndpoint(t, out)
	if first.InstanceName != "fstrm-a" || first.Port != 6000 || !first.Bidirectional {
		t.Fatalf("first = %+v", first)
	}

	// Same instance seen on a second interface.
	sendEntry(t, entries, testEntry("fstrm-a", "fe80::1"))
	second := recvEndpoint(t, out)
	if first == second {
		t.Fatal("endpoint pointer reused")
	}
	if !slices.Equal(second.Addresses, []string{"10.0.0.1", "fe80::1"}) {
		t.Errorf("second.Addresses = %v", second.Addresses)
	}

	// A known address emits nothing; the removal below would block otherwise.
	sendEntry(t, entries, testEntry("fstrm-a", "10.0.0.1"))
	sendEntry(t, removed, testEntry("fstrm-a", "10.0.0.1"))

	sendEntry(t, entries, testEntry("fstrm-a", "10.0.0.2"))
	third := recvEndpoint(t, out)
	if !slices.Equal(third.Addresses, []string{"fe80::1", "10.0.0.2"}) {
		t.Errorf("third.Addresses = %v", third.Addresses)
	}

	// Removing every address forgets the instance.
	sendEntry(t, removed, testEntry("fstrm-a", "fe80::1", "10.0.0.2"))
	sendEntry(t, entries, testEntry("fstrm-a", "10.0.0.9"))
	fourth := recvEndpoint(t, out)
	if !slices.Equal(fourth.Addresses, []string{"10.0.0.9"}) {
		t.Errorf("fourth.Addresses = %v", fourth.Addresses)
	}

	if !slices.Equal(first.Addresses, []string{"10.0.0.1"}) {
		t.Errorf("first endpoint modified after emit: %v", first.Addresses)
	}
	if !slices.Equal(second.Addresses, []string{"10.0.0.1", "fe80::1"}) {
		t.Errorf("second endpoint modified after emit: %v", second.Addresses)
	}

	close(entries)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("aggregate did not return after entries closed")
	}
}

func TestAggregateSkipsInvalidEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	entries := make(chan *zeroconf.ServiceEntry)
	out := make(chan *Endpoint)
	done := make(chan struct{})
	go func() {
		defer close(done)
		aggregate(ctx, entries, nil, out)
	}()

	bad := testEntry("fstrm-bad", "10.0.0.1")
	bad.Text = []string{"mode=sideways"}
	sendEntry(t, entries, bad)
	sendEntry(t, entries, testEntry("fstrm-good", "10.0.0.2"))
	if ep := recvEndpoint(t, out); ep.InstanceName != "fstrm-good" {
		t.Errorf("InstanceName = %q", ep.InstanceName)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("aggregate did not return after cancel")
	}
}

func TestRemoveAddresses(t *testing.T) {
	got := removeAddresses([]string{"10.0.0.1", "fe80::1", "10.0.0.2"}, testEntry("x", "fe80::1"))
	if !slices.Equal(got, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Errorf("removeAddresses = %v", got)
	}
}
