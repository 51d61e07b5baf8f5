package discovery

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	az "github.com/jakabjo/cmdb-inventory/pkg/azure"
	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery/activedirectory"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery/aws"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery/azure"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery/kube"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery/subnet"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery/vsphere"
	"github.com/jakabjo/cmdb-inventory/pkg/graph"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/k8s/client"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// Step names, in run order.
const (
	StepActiveDirectory = "Active Directory"
	StepAzure           = "Azure"
	StepVSphere         = "vSphere"
	StepAWS             = "AWS EC2"
	StepKubernetes      = "Kubernetes"
	StepSubnetScan      = "Subnet scan"
	StepStatic          = "Static targets"
	StepCSV             = "CSV targets"
)

// BuildSteps returns the discovery steps enabled by both the feature
// switches and the per-source configuration. Clients are created inside
// each step so that credential problems fail only that step. csv holds the
// targets already read from the optional extra target list; it is loaded up
// front so that a bad file aborts the run before any discovery starts.
func BuildSteps(cfg *config.Config, flags config.FeatureFlags, csv []inventory.Target) []Step {
	d := cfg.Discovery
	var steps []Step

	if flags.Discovery.AD && d.ActiveDirectory.IsEnabled() {
		steps = append(steps, Step{
			Name:     StepActiveDirectory,
			Discover: activedirectory.New(d.ActiveDirectory).Discover,
		})
	}
	if flags.Discovery.Azure && d.Azure.IsEnabled() {
		steps = append(steps, Step{Name: StepAzure, Discover: azureStep(d.Azure)})
	}
	if flags.Discovery.VSphere && d.VSphere.IsEnabled() {
		steps = append(steps, Step{Name: StepVSphere, Discover: vsphere.New(d.VSphere).Discover})
	}
	if flags.Discovery.AWS && d.AWS.IsEnabled() {
		steps = append(steps, Step{Name: StepAWS, Discover: aws.New(d.AWS).Discover})
	}
	if flags.Discovery.Kubernetes && d.Kubernetes.IsEnabled() {
		steps = append(steps, Step{Name: StepKubernetes, Discover: kubeStep(d.Kubernetes)})
	}
	if flags.Discovery.SubnetScan && d.SubnetScan.IsEnabled() {
		steps = append(steps, Step{Name: StepSubnetScan, Discover: subnet.New(d.SubnetScan).Discover})
	}
	if flags.Discovery.Static && len(cfg.StaticTargets) > 0 {
		static := withDefaults(staticTargets(cfg.StaticTargets))
		steps = append(steps, Step{
			Name:     StepStatic,
			Discover: func(context.Context) ([]inventory.Target, error) { return static, nil },
		})
	}
	if flags.Discovery.CSVTargets && len(csv) > 0 {
		extra := slices.Clone(csv)
		steps = append(steps, Step{
			Name:     StepCSV,
			Discover: func(context.Context) ([]inventory.Target, error) { return extra, nil },
		})
	}
	return steps
}

// staticTargets copies the configured targets, skipping entries without a
// host.
func staticTargets(in []inventory.Target) []inventory.Target {
	out := make([]inventory.Target, 0, len(in))
	for i, t := range in {
		if strings.TrimSpace(t.Host) == "" {
			slog.Warn("static target without host skipped", slog.Int("index", i))
			continue
		}
		out = append(out, t)
	}
	return out
}

func azureStep(cfg config.Azure) func(context.Context) ([]inventory.Target, error) {
	return func(ctx context.Context) ([]inventory.Target, error) {
		creds := az.Credentials{
			TenantID:     cfg.TenantID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			AuthorityURL: cfg.AuthorityURL,
		}
		hc := serializer.NewHTTPClient(false)
		ts, err := creds.TokenSource(ctx, az.ManagementScope, hc)
		if err != nil {
			return nil, err
		}
		if err := az.CheckToken(ts); err != nil {
			return nil, err
		}
		d := &azure.Discoverer{
			Client:        graph.NewClient(ts, graph.WithHTTPClient(hc)),
			ManagementURL: cfg.ManagementURL,
			Subscriptions: cfg.Subscriptions,
		}
		return d.Discover(ctx)
	}
}

func kubeStep(cfg config.Kubernetes) func(context.Context) ([]inventory.Target, error) {
	return func(ctx context.Context) ([]inventory.Target, error) {
		cs, _, err := client.BuildKubeClient(cfg.Kubeconfig)
		if err != nil {
			return nil, err
		}
		d := &kube.Discoverer{Client: cs, Selector: cfg.Selector}
		return d.Discover(ctx)
	}
}
