package config

import (
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Config is the complete run configuration. It is built once at startup
// and passed by value or read-only pointer to every component.
type Config struct {
	Discovery     Discovery          `yaml:"discovery" toml:"discovery"`
	StaticTargets []inventory.Target `yaml:"static_targets" toml:"static_targets"`
	DNS           DNS                `yaml:"dns" toml:"dns"`
	Collect       Collect            `yaml:"collect" toml:"collect"`
	Transforms    Transforms         `yaml:"transforms" toml:"transforms"`
	Export        Export             `yaml:"export" toml:"export"`
	Report        Report             `yaml:"report" toml:"report"`
	Fields        Fields             `yaml:"fields" toml:"fields"`
	Features      Features           `yaml:"features" toml:"features"`
}

// Discovery groups the settings of every discovery source.
type Discovery struct {
	ActiveDirectory ActiveDirectory `yaml:"active_directory" toml:"active_directory"`
	Azure           Azure           `yaml:"azure" toml:"azure"`
	VSphere         VSphere         `yaml:"vsphere" toml:"vsphere"`
	AWS             AWS             `yaml:"aws" toml:"aws"`
	Kubernetes      Kubernetes      `yaml:"kubernetes" toml:"kubernetes"`
	SubnetScan      SubnetScan      `yaml:"subnet_scan" toml:"subnet_scan"`
}

// ActiveDirectory configures computer discovery and OU enrichment over LDAP.
type ActiveDirectory struct {
	Enabled            *bool    `yaml:"enabled" toml:"enabled"`
	URL                string   `yaml:"url" toml:"url"`
	BindDN             string   `yaml:"bind_dn" toml:"bind_dn"`
	BindPassword       string   `yaml:"bind_password" toml:"bind_password"`
	BaseDN             string   `yaml:"base_dn" toml:"base_dn"`
	Filter             string   `yaml:"filter" toml:"filter"`
	Attributes         []string `yaml:"attributes" toml:"attributes"`
	StartTLS           bool     `yaml:"start_tls" toml:"start_tls"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
	PageSize           uint32   `yaml:"page_size" toml:"page_size"`

	// EnrichNonAD enables OU lookups for hosts discovered by other sources.
	EnrichNonAD bool `yaml:"enrich_non_ad" toml:"enrich_non_ad"`
}

// Azure configures virtual machine discovery through the ARM API.
type Azure struct {
	Enabled       *bool    `yaml:"enabled" toml:"enabled"`
	TenantID      string   `yaml:"tenant_id" toml:"tenant_id"`
	ClientID      string   `yaml:"client_id" toml:"client_id"`
	ClientSecret  string   `yaml:"client_secret" toml:"client_secret"`
	Subscriptions []string `yaml:"subscriptions" toml:"subscriptions"`
	ManagementURL string   `yaml:"management_url" toml:"management_url"`
	AuthorityURL  string   `yaml:"authority_url" toml:"authority_url"`
}

// VSphere configures virtual machine discovery through the vCenter REST API.
type VSphere struct {
	Enabled  *bool  `yaml:"enabled" toml:"enabled"`
	URL      string `yaml:"url" toml:"url"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	Insecure bool   `yaml:"insecure" toml:"insecure"`
}

// AWS configures EC2 instance discovery.
type AWS struct {
	Enabled *bool             `yaml:"enabled" toml:"enabled"`
	Regions []string          `yaml:"regions" toml:"regions"`
	Profile string            `yaml:"profile" toml:"profile"`
	Tags    map[string]string `yaml:"tags" toml:"tags"`
}

// Kubernetes configures cluster node discovery.
type Kubernetes struct {
	Enabled    *bool  `yaml:"enabled" toml:"enabled"`
	Kubeconfig string `yaml:"kubeconfig" toml:"kubeconfig"`
	Selector   string `yaml:"selector" toml:"selector"`
}

// SubnetScan configures network probing of address ranges.
type SubnetScan struct {
	Enabled   *bool    `yaml:"enabled" toml:"enabled"`
	Targets   []string `yaml:"targets" toml:"targets"`
	TimeoutMS int      `yaml:"timeout_ms" toml:"timeout_ms"`
	Threads   int      `yaml:"threads" toml:"threads"`
	PingOnly  *bool    `yaml:"ping_only" toml:"ping_only"`
	UseNmap   bool     `yaml:"use_nmap" toml:"use_nmap"`
	TCPProbe  TCPProbe `yaml:"tcp_probe" toml:"tcp_probe"`
	SNMP      SNMP     `yaml:"snmp" toml:"snmp"`
}

// TCPProbe configures the open port probe run against live addresses.
type TCPProbe struct {
	Enabled          bool  `yaml:"enabled" toml:"enabled"`
	Ports            []int `yaml:"ports" toml:"ports"`
	PerPortTimeoutMS int   `yaml:"per_port_timeout_ms" toml:"per_port_timeout_ms"`
}

// SNMP configures sysName and sysDescr lookups for live addresses.
type SNMP struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Community string `yaml:"community" toml:"community"`
	Port      uint16 `yaml:"port" toml:"port"`
}

// DNS configures reverse lookups.
type DNS struct {
	Enabled       *bool    `yaml:"enabled" toml:"enabled"`
	ReverseLookup *bool    `yaml:"reverse_lookup" toml:"reverse_lookup"`
	Servers       []string `yaml:"servers" toml:"servers"`
}

// Collect configures the backend collectors.
type Collect struct {
	Windows  Windows  `yaml:"windows" toml:"windows"`
	Linux    Linux    `yaml:"linux" toml:"linux"`
	Software Software `yaml:"software" toml:"software"`
}

// Windows configures WinRM collection.
type Windows struct {
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`
	Port     int    `yaml:"port" toml:"port"`
	HTTPS    bool   `yaml:"https" toml:"https"`
	Insecure bool   `yaml:"insecure" toml:"insecure"`
}

// Linux configures SSH collection.
type Linux struct {
	Username       string `yaml:"username" toml:"username"`
	Password       string `yaml:"password" toml:"password"`
	KeyFile        string `yaml:"key_file" toml:"key_file"`
	Port           int    `yaml:"port" toml:"port"`
	KnownHostsFile string `yaml:"known_hosts_file" toml:"known_hosts_file"`
}

// Software configures installed software inventory.
type Software struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Filters []string `yaml:"filters" toml:"filters"`
}

// Transforms configures provider specific field normalization.
type Transforms struct {
	Azure           TagTransform       `yaml:"azure" toml:"azure"`
	VSphere         TagTransform       `yaml:"vsphere" toml:"vsphere"`
	ActiveDirectory AttributeTransform `yaml:"active_directory" toml:"active_directory"`
}

// TagTransform maps tag keys (from "key=value" tags) to row fields.
type TagTransform struct {
	TagMap map[string]string `yaml:"tag_map" toml:"tag_map"`
}

// AttributeTransform maps directory attributes to row fields.
type AttributeTransform struct {
	AttributeMap map[string]string `yaml:"attribute_map" toml:"attribute_map"`
}

// Export toggles and configures the output sinks.
type Export struct {
	JSON       *bool      `yaml:"json" toml:"json"`
	CSV        *bool      `yaml:"csv" toml:"csv"`
	HTML       *bool      `yaml:"html" toml:"html"`
	YAML       bool       `yaml:"yaml" toml:"yaml"`
	SQLite     SQLite     `yaml:"sqlite" toml:"sqlite"`
	ServiceNow ServiceNow `yaml:"servicenow" toml:"servicenow"`
	ConfigMap  ConfigMap  `yaml:"configmap" toml:"configmap"`
	OCI        OCI        `yaml:"oci" toml:"oci"`
}

// SQLite configures the SQLite sink.
type SQLite struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// ServiceNow configures the ServiceNow table API sink.
type ServiceNow struct {
	Enabled   bool    `yaml:"enabled" toml:"enabled"`
	Instance  string  `yaml:"instance" toml:"instance"`
	Username  string  `yaml:"username" toml:"username"`
	Password  string  `yaml:"password" toml:"password"`
	Table     string  `yaml:"table" toml:"table"`
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
}

// ConfigMap configures publishing the inventory into a Kubernetes ConfigMap.
type ConfigMap struct {
	Enabled    bool   `yaml:"enabled" toml:"enabled"`
	Namespace  string `yaml:"namespace" toml:"namespace"`
	Name       string `yaml:"name" toml:"name"`
	Kubeconfig string `yaml:"kubeconfig" toml:"kubeconfig"`
}

// OCI configures pushing the output directory to an OCI registry.
type OCI struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled"`
	Registry    string `yaml:"registry" toml:"registry"`
	Repository  string `yaml:"repository" toml:"repository"`
	Tag         string `yaml:"tag" toml:"tag"`
	PlainHTTP   bool   `yaml:"plain_http" toml:"plain_http"`
	InsecureTLS bool   `yaml:"insecure_tls" toml:"insecure_tls"`
}

// Report configures the human readable report.
type Report struct {
	Title string `yaml:"title" toml:"title"`
}

// Fields lists the fields kept in or removed from exported rows.
type Fields struct {
	Include []string `yaml:"include" toml:"include"`
	Exclude []string `yaml:"exclude" toml:"exclude"`
}

// Features holds the feature switches as written in the config file. Unset
// switches keep their defaults.
type Features struct {
	Discovery  DiscoveryFeatureFile  `yaml:"discovery" toml:"discovery"`
	Enrichment EnrichmentFeatureFile `yaml:"enrichment" toml:"enrichment"`
	Collection CollectionFeatureFile `yaml:"collection" toml:"collection"`
}

// DiscoveryFeatureFile is the file form of DiscoveryFeatures.
type DiscoveryFeatureFile struct {
	AD         *bool `yaml:"ad" toml:"ad"`
	Azure      *bool `yaml:"azure" toml:"azure"`
	VSphere    *bool `yaml:"vsphere" toml:"vsphere"`
	AWS        *bool `yaml:"aws" toml:"aws"`
	Kubernetes *bool `yaml:"kubernetes" toml:"kubernetes"`
	SubnetScan *bool `yaml:"subnet_scan" toml:"subnet_scan"`
	Static     *bool `yaml:"static" toml:"static"`
	CSVTargets *bool `yaml:"csv_targets" toml:"csv_targets"`
}

// EnrichmentFeatureFile is the file form of EnrichmentFeatures.
type EnrichmentFeatureFile struct {
	DNS        *bool `yaml:"dns" toml:"dns"`
	ADOU       *bool `yaml:"ad_ou" toml:"ad_ou"`
	Transforms *bool `yaml:"transforms" toml:"transforms"`
}

// CollectionFeatureFile is the file form of CollectionFeatures.
type CollectionFeatureFile struct {
	Windows  *bool `yaml:"windows" toml:"windows"`
	Linux    *bool `yaml:"linux" toml:"linux"`
	Software *bool `yaml:"software" toml:"software"`
}
