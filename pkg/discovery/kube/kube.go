package kube

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/k8s/client"
)

// Source is the source value of discovered targets.
const Source = "kubernetes"

// Discoverer lists cluster nodes.
type Discoverer struct {
	Client   client.Interface
	Selector string
}

// Discover implements the discovery step.
func (d *Discoverer) Discover(ctx context.Context) ([]inventory.Target, error) {
	ctx, cancel := context.WithTimeout(ctx, defaults.KubernetesListTimeout)
	defer cancel()

	var targets []inventory.Target
	opts := metav1.ListOptions{LabelSelector: d.Selector}
	for {
		nodes, err := d.Client.CoreV1().Nodes().List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list nodes: %w", err)
		}
		for i := range nodes.Items {
			targets = append(targets, toTarget(&nodes.Items[i]))
		}
		if nodes.Continue == "" {
			break
		}
		opts.Continue = nodes.Continue
	}
	return targets, nil
}

func toTarget(node *corev1.Node) inventory.Target {
	info := node.Status.NodeInfo
	host := node.Name
	var ips []string
	for _, a := range node.Status.Addresses {
		switch a.Type {
		case corev1.NodeHostName:
			if a.Address != "" {
				host = a.Address
			}
		case corev1.NodeInternalIP, corev1.NodeExternalIP:
			ips = append(ips, a.Address)
		}
	}

	attrs := map[string]any{
		"k8s_node":              node.Name,
		"k8s_kubelet_version":   info.KubeletVersion,
		"k8s_container_runtime": info.ContainerRuntimeVersion,
		"k8s_os_image":          info.OSImage,
		"k8s_architecture":      info.Architecture,
		"kernel":                info.KernelVersion,
	}
	if id := node.Spec.ProviderID; id != "" {
		attrs["k8s_provider_id"] = id
		attrs["k8s_platform"] = ParsePlatform(id)
	}
	if zone := node.Labels[corev1.LabelTopologyZone]; zone != "" {
		attrs["k8s_zone"] = zone
	}

	return inventory.Target{
		Host:       host,
		OSHint:     strings.ToLower(info.OperatingSystem),
		Source:     Source,
		Provider:   inventory.ProviderKubernetes,
		IPs:        ips,
		Attributes: attrs,
	}
}

// ParsePlatform maps a node providerID to the managed platform name:
//
//	aws:///us-west-2a/i-0123         -> eks
//	gce://project/zone/node          -> gke
//	azure:///subscriptions/...       -> aks
//	oci://...                        -> oke
//
// Other schemes are returned as is.
func ParsePlatform(providerID string) string {
	scheme, _, _ := strings.Cut(providerID, "://")
	switch p := strings.ToLower(strings.TrimSpace(scheme)); p {
	case "aws":
		return "eks"
	case "gce":
		return "gke"
	case "azure":
		return "aks"
	case "oci":
		return "oke"
	default:
		return p
	}
}
