package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"k8s.io/utils/ptr"

	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// DefaultPath is the config file used when --config is not given.
const DefaultPath = "config.yaml"

// DefaultReportTitle is the HTML report title when report.title is empty.
const DefaultReportTitle = "CMDB Inventory Report"

// Environment variables consulted for secrets the config file leaves empty.
const (
	EnvAzureTenantID      = "AZURE_TENANT_ID"
	EnvAzureClientID      = "AZURE_CLIENT_ID"
	EnvAzureClientSecret  = "AZURE_CLIENT_SECRET"
	EnvVSpherePassword    = "VSPHERE_PASSWORD"
	EnvADBindPassword     = "AD_BIND_PASSWORD"
	EnvSSHPassword        = "SSH_PASSWORD"
	EnvWinRMPassword      = "WINRM_PASSWORD"
	EnvServiceNowPassword = "SERVICENOW_PASSWORD"
)

// Load reads the configuration at path. TOML is selected by a .toml
// extension; anything else is decoded as YAML, which also accepts JSON.
// Paths may be http(s) URLs. A missing file at DefaultPath yields an empty
// configuration; any other missing or malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	isURL := strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")

	if !isURL {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) && path == DefaultPath {
				slog.Warn("config file not found, using defaults", slog.String("path", path))
				ApplyEnv(cfg)
				return cfg, nil
			}
			return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
				fmt.Sprintf("cannot read config %s", path), err)
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") && !isURL {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
				fmt.Sprintf("cannot read config %s", path), err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid TOML in %s", path), err)
		}
	} else {
		reader, err := serializer.NewFileReader(serializer.FormatYAML, path)
		if err != nil {
			return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
				fmt.Sprintf("cannot open config %s", path), err)
		}
		defer reader.Close()
		if err := reader.Deserialize(cfg); err != nil && !serializer.IsEmptyInput(err) {
			return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid YAML in %s", path), err)
		}
	}

	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("loaded config", slog.String("path", path))
	return cfg, nil
}

// ApplyEnv fills empty secrets from the environment.
func ApplyEnv(cfg *Config) {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&cfg.Discovery.Azure.TenantID, EnvAzureTenantID)
	fill(&cfg.Discovery.Azure.ClientID, EnvAzureClientID)
	fill(&cfg.Discovery.Azure.ClientSecret, EnvAzureClientSecret)
	fill(&cfg.Discovery.VSphere.Password, EnvVSpherePassword)
	fill(&cfg.Discovery.ActiveDirectory.BindPassword, EnvADBindPassword)
	fill(&cfg.Collect.Linux.Password, EnvSSHPassword)
	fill(&cfg.Collect.Windows.Password, EnvWinRMPassword)
	fill(&cfg.Export.ServiceNow.Password, EnvServiceNowPassword)
}

// ApplyFast returns a copy of cfg with the fast mode presets applied:
// no software inventory and no subnet TCP probe. Reverse DNS is switched off
// through the feature flags so that --enable dns still wins.
func ApplyFast(cfg *Config) *Config {
	c := *cfg
	c.Collect.Software.Enabled = false
	c.Discovery.SubnetScan.TCPProbe.Enabled = false
	return &c
}

// Validate checks settings that would otherwise fail late in the run.
func (c *Config) Validate() error {
	if c.Export.OCI.Enabled && (c.Export.OCI.Registry == "" || c.Export.OCI.Repository == "") {
		return cmdberrors.New(cmdberrors.ErrCodeInvalidRequest,
			"export.oci requires registry and repository")
	}
	if c.Export.ServiceNow.Enabled && c.Export.ServiceNow.Instance == "" {
		return cmdberrors.New(cmdberrors.ErrCodeInvalidRequest,
			"export.servicenow requires instance")
	}
	if c.Export.ConfigMap.Enabled && c.Export.ConfigMap.Name == "" {
		return cmdberrors.New(cmdberrors.ErrCodeInvalidRequest,
			"export.configmap requires name")
	}
	return nil
}

// IsEnabled reports whether AD discovery is enabled (default true).
func (a ActiveDirectory) IsEnabled() bool { return ptr.Deref(a.Enabled, true) }

// IsEnabled reports whether Azure discovery is enabled (default true).
func (a Azure) IsEnabled() bool { return ptr.Deref(a.Enabled, true) }

// IsEnabled reports whether vSphere discovery is enabled (default true).
func (v VSphere) IsEnabled() bool { return ptr.Deref(v.Enabled, true) }

// IsEnabled reports whether EC2 discovery is enabled (default false).
func (a AWS) IsEnabled() bool { return ptr.Deref(a.Enabled, false) }

// IsEnabled reports whether node discovery is enabled (default false).
func (k Kubernetes) IsEnabled() bool { return ptr.Deref(k.Enabled, false) }

// IsEnabled reports whether the subnet scan is enabled (default false).
func (s SubnetScan) IsEnabled() bool { return ptr.Deref(s.Enabled, false) }

// IsPingOnly reports whether the scan skips the TCP probe (default true).
func (s SubnetScan) IsPingOnly() bool { return ptr.Deref(s.PingOnly, true) }

// IsEnabled reports whether reverse DNS runs (default true). Both
// dns.enabled and dns.reverse_lookup must allow it.
func (d DNS) IsEnabled() bool {
	return ptr.Deref(d.Enabled, true) && ptr.Deref(d.ReverseLookup, true)
}

// JSONEnabled reports whether inventory.json is written (default true).
func (e Export) JSONEnabled() bool { return ptr.Deref(e.JSON, true) }

// CSVEnabled reports whether inventory.csv is written (default true).
func (e Export) CSVEnabled() bool { return ptr.Deref(e.CSV, true) }

// HTMLEnabled reports whether inventory.html is written (default true).
func (e Export) HTMLEnabled() bool { return ptr.Deref(e.HTML, true) }

// ReportTitle returns the configured title or DefaultReportTitle.
func (c *Config) ReportTitle() string {
	if t := strings.TrimSpace(c.Report.Title); t != "" {
		return t
	}
	return DefaultReportTitle
}
