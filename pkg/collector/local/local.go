// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package local

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
	"github.com/jakabjo/cmdb-inventory/pkg/collector/file"
)

// Backend is the collector name reported in results.
const Backend = "local"

var (
	releasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}
	kernelPath   = "/proc/sys/kernel/osrelease"
	dpkgStatus   = "/var/lib/dpkg/status"
)

// DefaultServices are the systemd units reported when none are configured.
var DefaultServices = []string{
	"sshd.service",
	"ssh.service",
	"containerd.service",
	"docker.service",
	"kubelet.service",
}

// UnitLister returns the active state of the named systemd units.
type UnitLister interface {
	ActiveStates(ctx context.Context, names []string) (map[string]string, error)
}

// Collector reports facts about the machine running the inventory.
type Collector struct {
	Services []string
	Units    UnitLister
}

// New creates a Collector that queries systemd over D-Bus.
func New() *Collector {
	return &Collector{
		Services: DefaultServices,
		Units:    systemdLister{},
	}
}

// Collect implements collector.Collector. The host argument is ignored.
func (c *Collector) Collect(ctx context.Context, _ string, s collector.Settings) map[string]any {
	if err := ctx.Err(); err != nil {
		return collector.Failed(Backend, err)
	}

	res := map[string]any{
		collector.KeyCollector: Backend,
		collector.KeyCPUCount:  runtime.NumCPU(),
	}
	if h, err := os.Hostname(); err == nil {
		res[collector.KeyHostname] = h
	}

	rel, err := readRelease()
	if err != nil {
		slog.Debug("os-release unavailable", slog.String("error", err.Error()))
	} else {
		res[collector.KeyOSName] = rel["PRETTY_NAME"]
		res[collector.KeyOSVersion] = rel["VERSION_ID"]
	}

	if lines, err := file.NewParser().ReadLines(kernelPath); err == nil && len(lines) > 0 {
		res[collector.KeyKernel] = lines[0]
	}

	if c.Units != nil {
		services := c.Services
		if len(services) == 0 {
			services = DefaultServices
		}
		states, err := c.Units.ActiveStates(ctx, services)
		if err != nil {
			slog.Debug("systemd unavailable", slog.String("error", err.Error()))
		} else if len(states) > 0 {
			res[collector.KeyServices] = states
		}
	}

	if s.Software {
		pkgs, err := readDpkg(dpkgStatus)
		if err != nil {
			slog.Debug("package database unavailable", slog.String("error", err.Error()))
		} else {
			res[collector.KeySoftware] = collector.FilterSoftware(pkgs, s.SoftwareFilters)
		}
	}
	return res
}

func readRelease() (map[string]string, error) {
	var lastErr error
	for _, p := range releasePaths {
		content, err := os.ReadFile(p)
		if err != nil {
			lastErr = err
			continue
		}
		return file.OSRelease(string(content))
	}
	return nil, fmt.Errorf("no os-release file found: %w", lastErr)
}

// readDpkg lists "name version" for every installed package in a dpkg
// status database. Stanzas are separated by blank lines.
func readDpkg(path string) ([]string, error) {
	stanzas, err := file.NewParser(file.WithDelimiter("\n\n"), file.WithMaxSize(64<<20)).ReadLines(path)
	if err != nil {
		return nil, err
	}
	fields := file.NewParser(file.WithKVDelimiter(":"))
	out := make([]string, 0, len(stanzas))
	for _, stanza := range stanzas {
		m, err := fields.ParseMap(stanza)
		if err != nil {
			continue
		}
		if !strings.HasSuffix(m["Status"], " installed") || m["Package"] == "" {
			continue
		}
		out = append(out, strings.TrimSpace(m["Package"]+" "+m["Version"]))
	}
	return out, nil
}

type systemdLister struct{}

func (systemdLister) ActiveStates(ctx context.Context, names []string) (map[string]string, error) {
	conn, err := dbus.NewSystemdConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	units, err := conn.ListUnitsByNamesContext(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	out := make(map[string]string, len(units))
	for _, u := range units {
		if u.LoadState == "not-found" {
			continue
		}
		out[u.Name] = u.ActiveState
	}
	return out, nil
}
