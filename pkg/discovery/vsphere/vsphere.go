package vsphere

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// Source is the source value of discovered targets.
const Source = "vsphere"

const (
	headerSession = "vmware-api-session-id"
	powerOn       = "POWERED_ON"

	// requestsPerSecond bounds guest identity lookups against vCenter.
	requestsPerSecond = 10
)

type vmSummary struct {
	VM         string `json:"vm"`
	Name       string `json:"name"`
	PowerState string `json:"power_state"`
	CPUCount   int    `json:"cpu_count"`
	MemoryMiB  int    `json:"memory_size_MiB"`
}

type guestIdentity struct {
	HostName  string `json:"host_name"`
	IPAddress string `json:"ip_address"`
	Family    string `json:"family"`
	FullName  struct {
		DefaultMessage string `json:"default_message"`
	} `json:"full_name"`
}

// Discoverer lists virtual machines through the vCenter REST API.
type Discoverer struct {
	cfg     config.VSphere
	hc      *http.Client
	limiter *rate.Limiter
}

// New creates a Discoverer. TLS verification follows cfg.Insecure.
func New(cfg config.VSphere) *Discoverer {
	return &Discoverer{
		cfg:     cfg,
		hc:      serializer.NewHTTPClient(cfg.Insecure),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}
}

// Discover implements the discovery step. Guest identity is looked up for
// powered on machines; a failed lookup keeps the inventory name.
func (d *Discoverer) Discover(ctx context.Context) ([]inventory.Target, error) {
	if d.cfg.URL == "" {
		return nil, cmdberrors.New(cmdberrors.ErrCodeInvalidRequest, "vsphere url is not configured")
	}
	base := strings.TrimRight(d.cfg.URL, "/")

	session, err := d.login(ctx, base)
	if err != nil {
		return nil, err
	}
	defer d.logout(base, session)

	var vms []vmSummary
	if err := d.get(ctx, base+"/api/vcenter/vm", session, &vms); err != nil {
		return nil, fmt.Errorf("failed to list vms: %w", err)
	}

	targets := make([]inventory.Target, 0, len(vms))
	for _, vm := range vms {
		t := inventory.Target{
			Host:     vm.Name,
			Source:   Source,
			Provider: inventory.ProviderVSphere,
			Attributes: map[string]any{
				"vsphere_vm":          vm.VM,
				"vsphere_power_state": vm.PowerState,
				"vsphere_cpu_count":   vm.CPUCount,
				"vsphere_memory_mib":  vm.MemoryMiB,
			},
		}
		if vm.PowerState == powerOn {
			var id guestIdentity
			err := d.get(ctx, fmt.Sprintf("%s/api/vcenter/vm/%s/guest/identity", base, vm.VM), session, &id)
			if err != nil {
				slog.Debug("vsphere guest identity unavailable",
					slog.String("vm", vm.Name),
					slog.String("error", err.Error()))
			} else {
				applyIdentity(&t, id)
			}
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func applyIdentity(t *inventory.Target, id guestIdentity) {
	if id.HostName != "" {
		t.Host = id.HostName
	}
	if id.IPAddress != "" {
		t.IPs = []string{id.IPAddress}
	}
	switch strings.ToUpper(id.Family) {
	case "WINDOWS":
		t.OSHint = "windows"
	case "LINUX":
		t.OSHint = "linux"
	}
	if id.FullName.DefaultMessage != "" {
		t.Attributes["vsphere_guest_os"] = id.FullName.DefaultMessage
	}
}

func (d *Discoverer) login(ctx context.Context, base string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/session", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(d.cfg.Username, d.cfg.Password)
	resp, err := d.hc.Do(req)
	if err != nil {
		return "", cmdberrors.Wrap(cmdberrors.ErrCodeServiceUnavailable, "vsphere login failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", cmdberrors.New(cmdberrors.ErrCodeUnauthorized,
			fmt.Sprintf("vsphere login returned %s", resp.Status))
	}
	var token string
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("invalid vsphere session response: %w", err)
	}
	return token, nil
}

func (d *Discoverer) logout(base, session string) {
	req, err := http.NewRequest(http.MethodDelete, base+"/api/session", nil)
	if err != nil {
		return
	}
	req.Header.Set(headerSession, session)
	resp, err := d.hc.Do(req)
	if err != nil {
		slog.Debug("vsphere logout failed", slog.String("error", err.Error()))
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

func (d *Discoverer) get(ctx context.Context, url, session string, v any) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set(headerSession, session)
	req.Header.Set("Accept", "application/json")
	resp, err := d.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s returned %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
