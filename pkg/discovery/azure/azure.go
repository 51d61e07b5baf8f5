package azure

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	az "github.com/jakabjo/cmdb-inventory/pkg/azure"
	"github.com/jakabjo/cmdb-inventory/pkg/graph"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Source is the source value of discovered targets.
const Source = "azure"

type virtualMachine struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Location   string            `json:"location"`
	Tags       map[string]string `json:"tags"`
	Properties struct {
		VMID            string `json:"vmId"`
		HardwareProfile struct {
			VMSize string `json:"vmSize"`
		} `json:"hardwareProfile"`
		StorageProfile struct {
			OSDisk struct {
				OSType string `json:"osType"`
			} `json:"osDisk"`
		} `json:"storageProfile"`
		OSProfile struct {
			ComputerName string `json:"computerName"`
		} `json:"osProfile"`
	} `json:"properties"`
}

// Discoverer lists virtual machines across subscriptions.
type Discoverer struct {
	Client        *graph.Client
	ManagementURL string
	// Subscriptions limits discovery; empty lists every visible subscription.
	Subscriptions []string
}

// Discover implements the discovery step. A failing subscription is logged
// and skipped; failing to enumerate subscriptions fails the step.
func (d *Discoverer) Discover(ctx context.Context) ([]inventory.Target, error) {
	subs := d.Subscriptions
	if len(subs) == 0 {
		var err error
		subs, err = az.ListSubscriptions(ctx, d.Client, d.ManagementURL)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
	}

	var targets []inventory.Target
	for _, sub := range subs {
		vms, err := graph.Collect[virtualMachine](ctx, d.Client, VMsURL(d.ManagementURL, sub))
		if err != nil {
			slog.Warn("azure vm listing failed",
				slog.String("subscription", sub),
				slog.String("error", err.Error()))
			continue
		}
		for _, vm := range vms {
			targets = append(targets, toTarget(sub, vm))
		}
	}
	return targets, nil
}

// VMsURL returns the VM listing URL of a subscription.
func VMsURL(managementURL, subscription string) string {
	return fmt.Sprintf("%s/subscriptions/%s/providers/Microsoft.Compute/virtualMachines?api-version=%s",
		az.BaseURL(managementURL, az.DefaultManagementURL), url.PathEscape(subscription), az.ComputeAPIVersion)
}

func toTarget(sub string, vm virtualMachine) inventory.Target {
	host := vm.Properties.OSProfile.ComputerName
	if host == "" {
		host = vm.Name
	}
	attrs := map[string]any{
		inventory.FieldTags:    tagList(vm.Tags),
		"azure_subscription":   sub,
		"azure_resource_group": az.ResourceGroup(vm.ID),
		"azure_location":       vm.Location,
		"azure_vm_id":          vm.Properties.VMID,
		"azure_vm_size":        vm.Properties.HardwareProfile.VMSize,
		"azure_resource_id":    vm.ID,
	}
	return inventory.Target{
		Host:       host,
		OSHint:     strings.ToLower(vm.Properties.StorageProfile.OSDisk.OSType),
		Source:     Source,
		Provider:   inventory.ProviderAzure,
		Attributes: attrs,
	}
}

// tagList renders tags as sorted "key=value" strings.
func tagList(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	for k, v := range tags {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
