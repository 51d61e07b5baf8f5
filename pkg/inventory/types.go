package inventory

import (
	"fmt"
	"maps"
	"strings"
)

// Canonical row field names.
const (
	FieldHost         = "host"
	FieldOSHint       = "os_hint"
	FieldSource       = "source"
	FieldProvider     = "provider"
	FieldIPs          = "ips"
	FieldResolvedName = "resolved_name"
	FieldDNSDomain    = "dns_domain"
	FieldADOU         = "ad_ou"
	FieldError        = "error"
	FieldTags         = "tags"
	FieldOpenPorts    = "open_ports"
)

// Well-known provider values.
const (
	ProviderManual          = "manual"
	ProviderAzure           = "azure"
	ProviderVSphere         = "vsphere"
	ProviderOnPrem          = "onprem"
	ProviderActiveDirectory = "active_directory"
	ProviderLocalNetwork    = "local-network"
	ProviderAWS             = "aws"
	ProviderKubernetes      = "kubernetes"
)

// Target is a host identified for inventory before any collection.
// It is treated as immutable once discovery has deduplicated it.
type Target struct {
	Host     string   `json:"host" yaml:"host" toml:"host"`
	OSHint   string   `json:"os_hint,omitempty" yaml:"os_hint,omitempty" toml:"os_hint,omitempty"`
	Source   string   `json:"source,omitempty" yaml:"source,omitempty" toml:"source,omitempty"`
	Provider string   `json:"provider,omitempty" yaml:"provider,omitempty" toml:"provider,omitempty"`
	IPs      []string `json:"ips,omitempty" yaml:"ips,omitempty" toml:"ips,omitempty"`

	// Attributes holds adapter specific fields such as tags, open ports or
	// directory attributes. They are copied into the seeded row.
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty" toml:"attributes,omitempty"`
}

// Key returns the case-insensitive identity of the target.
func (t Target) Key() string {
	return strings.ToLower(t.Host)
}

// Row is one inventory record: a flat mapping from field name to value.
// A row is owned by the task producing it until it is returned.
type Row map[string]any

// SeedRow builds the initial row for a target. The result always carries
// the target's host, os_hint, source, provider and ips fields.
func SeedRow(t Target) Row {
	row := make(Row, len(t.Attributes)+5)
	for k, v := range t.Attributes {
		row[k] = v
	}
	row[FieldHost] = t.Host
	row[FieldOSHint] = t.OSHint
	row[FieldSource] = t.Source
	row[FieldProvider] = t.Provider
	ips := make([]string, len(t.IPs))
	copy(ips, t.IPs)
	row[FieldIPs] = ips
	return row
}

// String returns the value at key rendered as a string. Missing and nil
// values yield an empty string.
func (r Row) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Has reports whether key holds a non-empty value.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	switch tv := v.(type) {
	case string:
		return tv != ""
	case []string:
		return len(tv) > 0
	case []any:
		return len(tv) > 0
	}
	return true
}

// Merge copies every entry of m into the row, overwriting existing keys.
func (r Row) Merge(m map[string]any) {
	maps.Copy(r, m)
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	return maps.Clone(r)
}

// Keys returns the row's field names.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	return keys
}

// Strings converts a list-like value (a []string, []any or a single string)
// to a string slice. Other values yield nil.
func Strings(v any) []string {
	switch tv := v.(type) {
	case nil:
		return nil
	case string:
		if tv == "" {
			return nil
		}
		return []string{tv}
	case []string:
		return tv
	case []any:
		out := make([]string, 0, len(tv))
		for _, item := range tv {
			if item == nil {
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}
