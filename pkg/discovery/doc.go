// Package discovery advertises and browses Frame Streams capture endpoints
// over mDNS/DNS-SD.
//
// A capture server listening on TCP registers one instance of
// _fstrm._tcp. The instance name is user-chosen (default: "fstrm-<host>").
// TXT records:
//
//   - ct: content types accepted, comma-separated (omitted when any)
//   - mode: "bi" or "uni"
//   - v: TXT format version, currently "1"
//
// Unix socket endpoints are local and are never advertised.
package discovery
