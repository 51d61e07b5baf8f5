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

package windows

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
)

// Backend is the collector name reported in results.
const Backend = "winrm"

// Runner executes a PowerShell script on a host and returns its stdout.
type Runner interface {
	RunPowerShell(ctx context.Context, host, script string) (string, error)
}

// Collector gathers Windows facts over WinRM.
type Collector struct {
	Runner Runner
}

const factsScript = `$ErrorActionPreference = 'SilentlyContinue'
$os = Get-CimInstance Win32_OperatingSystem
$cs = Get-CimInstance Win32_ComputerSystem
$bios = Get-CimInstance Win32_BIOS
$r = [ordered]@{
  hostname = [System.Net.Dns]::GetHostEntry($env:COMPUTERNAME).HostName
  os_name = $os.Caption
  os_version = $os.Version
  manufacturer = $cs.Manufacturer
  model = $cs.Model
  serial_number = $bios.SerialNumber
  cpu_count = $cs.NumberOfLogicalProcessors
  memory_bytes = $cs.TotalPhysicalMemory
  uptime_seconds = [int64]((Get-Date) - $os.LastBootUpTime).TotalSeconds
  domain = $cs.Domain
}
`

const softwareScript = `$keys = 'HKLM:\Software\Microsoft\Windows\CurrentVersion\Uninstall\*','HKLM:\Software\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall\*'
$r.software = @(Get-ItemProperty $keys | Where-Object { $_.DisplayName } | ForEach-Object { ($_.DisplayName + ' ' + $_.DisplayVersion).Trim() } | Sort-Object -Unique)
`

const emitScript = `$r | ConvertTo-Json -Compress -Depth 3
`

// Script returns the PowerShell script run on the target.
func Script(s collector.Settings) string {
	var b strings.Builder
	b.WriteString(factsScript)
	if s.Software {
		b.WriteString(softwareScript)
	}
	b.WriteString(emitScript)
	return b.String()
}

type facts struct {
	Hostname      string   `json:"hostname"`
	OSName        string   `json:"os_name"`
	OSVersion     string   `json:"os_version"`
	Manufacturer  string   `json:"manufacturer"`
	Model         string   `json:"model"`
	SerialNumber  string   `json:"serial_number"`
	CPUCount      int64    `json:"cpu_count"`
	MemoryBytes   int64    `json:"memory_bytes"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Domain        string   `json:"domain"`
	Software      []string `json:"software"`
}

// Collect implements collector.Collector.
func (c *Collector) Collect(ctx context.Context, host string, s collector.Settings) map[string]any {
	out, err := c.Runner.RunPowerShell(ctx, host, Script(s))
	if err != nil {
		slog.Debug("winrm collection failed", slog.String("host", host), slog.String("error", err.Error()))
		return collector.Failed(Backend, err)
	}
	res, err := Parse(out, s)
	if err != nil {
		return collector.Failed(Backend, err)
	}
	return res
}

// Parse decodes the script's JSON output into a result map. Empty fields
// are omitted.
func Parse(out string, s collector.Settings) (map[string]any, error) {
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, fmt.Errorf("empty response from host")
	}
	var f facts
	if err := json.Unmarshal([]byte(out), &f); err != nil {
		return nil, fmt.Errorf("failed to decode host facts: %w", err)
	}

	res := map[string]any{collector.KeyCollector: Backend}
	put := func(key, v string) {
		if v = strings.TrimSpace(v); v != "" {
			res[key] = v
		}
	}
	put(collector.KeyHostname, f.Hostname)
	put(collector.KeyOSName, f.OSName)
	put(collector.KeyOSVersion, f.OSVersion)
	put(collector.KeyVendor, f.Manufacturer)
	put(collector.KeyModel, f.Model)
	put(collector.KeySerial, f.SerialNumber)
	put("domain", f.Domain)
	if f.CPUCount > 0 {
		res[collector.KeyCPUCount] = f.CPUCount
	}
	if f.MemoryBytes > 0 {
		res[collector.KeyMemoryBytes] = f.MemoryBytes
	}
	if f.UptimeSeconds > 0 {
		res[collector.KeyUptime] = f.UptimeSeconds
	}
	if s.Software {
		sw := f.Software
		if sw == nil {
			sw = []string{}
		}
		res[collector.KeySoftware] = collector.FilterSoftware(sw, s.SoftwareFilters)
	}
	return res, nil
}
