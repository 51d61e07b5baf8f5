package config

import (
	"fmt"
	"sort"
	"strings"

	"k8s.io/utils/ptr"

	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
)

// FeatureFlags are the resolved feature switches for one run, grouped by
// pipeline stage. The value is read-only once resolved.
type FeatureFlags struct {
	Discovery  DiscoveryFeatures
	Enrichment EnrichmentFeatures
	Collection CollectionFeatures
}

// DiscoveryFeatures switch discovery steps.
type DiscoveryFeatures struct {
	AD         bool
	Azure      bool
	VSphere    bool
	AWS        bool
	Kubernetes bool
	SubnetScan bool
	Static     bool
	CSVTargets bool
}

// EnrichmentFeatures switch per-row enrichment steps.
type EnrichmentFeatures struct {
	DNS        bool
	ADOU       bool
	Transforms bool
}

// CollectionFeatures switch backend collectors.
type CollectionFeatures struct {
	Windows  bool
	Linux    bool
	Software bool
}

// Overrides are the command line inputs that take part in feature
// resolution. Enable and Disable hold feature names (see FeatureNames).
type Overrides struct {
	Fast    bool
	Enable  []string
	Disable []string
}

// DefaultFeatures returns the built-in switches. Software inventory follows
// collect.software.enabled, which defaults to off, and reverse DNS follows
// the dns section.
func DefaultFeatures(cfg *Config) FeatureFlags {
	return FeatureFlags{
		Discovery: DiscoveryFeatures{
			AD:         true,
			Azure:      true,
			VSphere:    true,
			AWS:        true,
			Kubernetes: true,
			SubnetScan: true,
			Static:     true,
			CSVTargets: true,
		},
		Enrichment: EnrichmentFeatures{
			DNS:        cfg.DNS.IsEnabled(),
			ADOU:       true,
			Transforms: true,
		},
		Collection: CollectionFeatures{
			Windows:  true,
			Linux:    true,
			Software: cfg.Collect.Software.Enabled,
		},
	}
}

// ResolveFeatures merges the switches with precedence
// defaults < config file < fast mode < explicit command line flags.
func ResolveFeatures(cfg *Config, o Overrides) (FeatureFlags, error) {
	f := DefaultFeatures(cfg)

	fd := cfg.Features.Discovery
	f.Discovery.AD = ptr.Deref(fd.AD, f.Discovery.AD)
	f.Discovery.Azure = ptr.Deref(fd.Azure, f.Discovery.Azure)
	f.Discovery.VSphere = ptr.Deref(fd.VSphere, f.Discovery.VSphere)
	f.Discovery.AWS = ptr.Deref(fd.AWS, f.Discovery.AWS)
	f.Discovery.Kubernetes = ptr.Deref(fd.Kubernetes, f.Discovery.Kubernetes)
	f.Discovery.SubnetScan = ptr.Deref(fd.SubnetScan, f.Discovery.SubnetScan)
	f.Discovery.Static = ptr.Deref(fd.Static, f.Discovery.Static)
	f.Discovery.CSVTargets = ptr.Deref(fd.CSVTargets, f.Discovery.CSVTargets)

	fe := cfg.Features.Enrichment
	f.Enrichment.DNS = ptr.Deref(fe.DNS, f.Enrichment.DNS)
	f.Enrichment.ADOU = ptr.Deref(fe.ADOU, f.Enrichment.ADOU)
	f.Enrichment.Transforms = ptr.Deref(fe.Transforms, f.Enrichment.Transforms)

	fc := cfg.Features.Collection
	f.Collection.Windows = ptr.Deref(fc.Windows, f.Collection.Windows)
	f.Collection.Linux = ptr.Deref(fc.Linux, f.Collection.Linux)
	f.Collection.Software = ptr.Deref(fc.Software, f.Collection.Software)

	if o.Fast {
		f.Enrichment.DNS = false
		f.Collection.Software = false
	}

	for _, name := range o.Enable {
		if err := f.set(name, true); err != nil {
			return FeatureFlags{}, err
		}
	}
	for _, name := range o.Disable {
		if err := f.set(name, false); err != nil {
			return FeatureFlags{}, err
		}
	}
	return f, nil
}

func (f *FeatureFlags) switches() map[string]*bool {
	return map[string]*bool{
		"ad":          &f.Discovery.AD,
		"azure":       &f.Discovery.Azure,
		"vsphere":     &f.Discovery.VSphere,
		"aws":         &f.Discovery.AWS,
		"kubernetes":  &f.Discovery.Kubernetes,
		"subnet_scan": &f.Discovery.SubnetScan,
		"static":      &f.Discovery.Static,
		"csv_targets": &f.Discovery.CSVTargets,
		"dns":         &f.Enrichment.DNS,
		"ad_ou":       &f.Enrichment.ADOU,
		"transforms":  &f.Enrichment.Transforms,
		"windows":     &f.Collection.Windows,
		"linux":       &f.Collection.Linux,
		"software":    &f.Collection.Software,
	}
}

func (f *FeatureFlags) set(name string, v bool) error {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	p, ok := f.switches()[key]
	if !ok {
		return cmdberrors.New(cmdberrors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown feature %q (valid: %s)", name, strings.Join(FeatureNames(), ", ")))
	}
	*p = v
	return nil
}

// FeatureNames lists the names accepted by Overrides.Enable and Disable.
func FeatureNames() []string {
	var f FeatureFlags
	names := make([]string, 0, 14)
	for k := range f.switches() {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
