package config

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fstrm-protocol/fstrm-go/pkg/frame"
	"github.com/fstrm-protocol/fstrm-go/pkg/fstrm"
	"github.com/fstrm-protocol/fstrm-go/pkg/handshake"
)

const sample = `
listen:
  network: tcp
  address: 127.0.0.1:6000
mode: bidirectional
content_types: [protobuf:dnstap.Dnstap]
limits:
  max_data_frame_size: 65536
output: /tmp/out.fstrm
protocol_log: /tmp/out.flog
read_timeout: 250ms
max_connections: 4
mdns:
  enabled: true
  instance: resolver-1
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, Listen{Network: "tcp", Address: "127.0.0.1:6000"}, c.Listen)
	assert.Equal(t, []string{"protobuf:dnstap.Dnstap"}, c.ContentTypes)
	assert.Equal(t, uint32(65536), c.Limits.MaxDataFrameSize)
	assert.Equal(t, uint32(frame.DefaultMaxControlFrameSize), c.Limits.MaxControlFrameSize, "defaults survive partial sections")
	assert.Equal(t, 250*time.Millisecond, c.ReadTimeout)
	assert.Equal(t, "/tmp/out.fstrm", c.Output)
	assert.Equal(t, "/tmp/out.flog", c.ProtocolLog)
	assert.True(t, c.MDNS.Enabled)

	srv, err := c.Server()
	require.NoError(t, err)
	assert.Equal(t, "tcp", srv.Network)
	assert.Equal(t, 4, srv.MaxConnections)
	assert.Equal(t, handshake.Bidirectional, srv.Session.Mode)
	assert.Equal(t, [][]byte{[]byte("protobuf:dnstap.Dnstap")}, srv.Session.ContentTypes)
	assert.Equal(t, uint32(65536), srv.Session.MaxDataFrameSize)
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *c)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("listen:\n  netwrok: tcp\n"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6000", c.Listen.Address)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "missing.yaml")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("mode: [\n"), 0o644))
	_, err = Load(bad)
	require.ErrorAs(t, err, &le)
	assert.Equal(t, bad, le.File)
}

func TestValidate(t *testing.T) {
	valid := func() *Capture {
		c := Default()
		c.Listen = Listen{Network: "tcp", Address: "127.0.0.1:0"}
		return &c
	}

	tests := []struct {
		name    string
		mutate  func(c *Capture)
		wantErr error
	}{
		{"valid", func(*Capture) {}, nil},
		{"bad network", func(c *Capture) { c.Listen.Network = "udp" }, ErrInvalid},
		{"no address", func(c *Capture) { c.Listen.Address = "" }, ErrInvalid},
		{"bad mode", func(c *Capture) { c.Mode = "both" }, ErrInvalid},
		{"negative timeout", func(c *Capture) { c.ReadTimeout = -time.Second }, ErrInvalid},
		{"negative max connections", func(c *Capture) { c.MaxConnections = -1 }, ErrInvalid},
		{"mdns on unix", func(c *Capture) {
			c.Listen = Listen{Network: "unix", Address: "/tmp/fstrm.sock"}
			c.MDNS.Enabled = true
		}, ErrInvalid},
		{"long instance", func(c *Capture) { c.MDNS.Instance = string(make([]byte, 64)) }, ErrInvalid},
		{"bare data bidirectional", func(c *Capture) { c.AllowBareData = true }, fstrm.ErrInvalidConfig},
		{"empty content type", func(c *Capture) { c.ContentTypes = []string{""} }, fstrm.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUnidirectionalSession(t *testing.T) {
	c := Default()
	c.Mode = ModeUnidirectional
	c.AllowBareData = true

	sess, err := c.Session()
	require.NoError(t, err)
	assert.Equal(t, handshake.Unidirectional, sess.Mode)
	assert.True(t, sess.AllowBareData)
}

func TestEndpoint(t *testing.T) {
	c := Default()
	c.ContentTypes = []string{"protobuf:dnstap.Dnstap"}

	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 6000}
	ep, err := c.Endpoint(addr, "host1")
	require.NoError(t, err)
	assert.Equal(t, "fstrm-host1", ep.InstanceName)
	assert.Equal(t, uint16(6000), ep.Port)
	assert.True(t, ep.Bidirectional)
	assert.Equal(t, c.ContentTypes, ep.ContentTypes)

	c.MDNS.Instance = "resolver-1"
	ep, err = c.Endpoint(addr, "host1")
	require.NoError(t, err)
	assert.Equal(t, "resolver-1", ep.InstanceName)

	_, err = c.Endpoint(&net.UnixAddr{Name: "/tmp/x.sock", Net: "unix"}, "host1")
	assert.Error(t, err)
}
