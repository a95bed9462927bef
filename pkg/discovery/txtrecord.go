package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeEndpointTXT creates the TXT records of an endpoint.
func EncodeEndpointTXT(info *EndpointInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyVersion: TXTVersion,
		TXTKeyMode:    ModeUnidirectional,
	}
	if info.Bidirectional {
		txt[TXTKeyMode] = ModeBidirectional
	}
	if len(info.ContentTypes) > 0 {
		txt[TXTKeyContentTypes] = strings.Join(info.ContentTypes, ",")
	}
	return txt
}

// DecodeEndpointTXT parses endpoint TXT records. InstanceName and Port are
// not part of TXT and are left zero.
func DecodeEndpointTXT(txt TXTRecordMap) (*EndpointInfo, error) {
	info := &EndpointInfo{}

	mode, ok := txt[TXTKeyMode]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyMode)
	}
	switch mode {
	case ModeBidirectional:
		info.Bidirectional = true
	case ModeUnidirectional:
	default:
		return nil, fmt.Errorf("%w: mode %q", ErrInvalidTXTRecord, mode)
	}

	if ct := txt[TXTKeyContentTypes]; ct != "" {
		for _, c := range strings.Split(ct, ",") {
			if c = strings.TrimSpace(c); c != "" {
				info.ContentTypes = append(info.ContentTypes, c)
			}
		}
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty instance name", ErrMissingRequired)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// DefaultInstanceName returns "fstrm-<host>", cut to the label limit.
func DefaultInstanceName(host string) string {
	name := "fstrm-" + host
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}
