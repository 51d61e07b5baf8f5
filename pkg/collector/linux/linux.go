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

package linux

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
	"github.com/jakabjo/cmdb-inventory/pkg/collector/file"
)

// Backend is the collector name reported in results.
const Backend = "ssh"

// Runner executes a shell command on a host and returns its stdout.
type Runner interface {
	Run(ctx context.Context, host, command string) (string, error)
}

// Collector gathers Linux facts by running one script over SSH.
type Collector struct {
	Runner Runner
	// Local handles targets that name the machine running the inventory.
	// Nil disables the short circuit.
	Local collector.Collector
}

const (
	sectionPrefix = "@@"

	secHostname = "hostname"
	secRelease  = "os-release"
	secKernel   = "kernel"
	secCPU      = "cpu"
	secMemory   = "memory"
	secUptime   = "uptime"
	secVendor   = "vendor"
	secModel    = "model"
	secSerial   = "serial"
	secSoftware = "software"
)

const factsScript = `echo '@@hostname'; hostname -f 2>/dev/null || hostname
echo '@@os-release'; cat /etc/os-release 2>/dev/null || cat /usr/lib/os-release 2>/dev/null
echo '@@kernel'; uname -r
echo '@@cpu'; nproc 2>/dev/null
echo '@@memory'; awk '/^MemTotal:/ {printf "%d\n", $2*1024}' /proc/meminfo 2>/dev/null
echo '@@uptime'; cut -d. -f1 /proc/uptime 2>/dev/null
echo '@@vendor'; cat /sys/class/dmi/id/sys_vendor 2>/dev/null
echo '@@model'; cat /sys/class/dmi/id/product_name 2>/dev/null
echo '@@serial'; cat /sys/class/dmi/id/product_serial 2>/dev/null
`

const softwareScript = `echo '@@software'; dpkg-query -W -f='${Package} ${Version}\n' 2>/dev/null || rpm -qa --qf '%{NAME} %{VERSION}\n' 2>/dev/null
`

// Script returns the shell script run on the target.
func Script(s collector.Settings) string {
	if s.Software {
		return factsScript + softwareScript
	}
	return factsScript
}

// Collect implements collector.Collector.
func (c *Collector) Collect(ctx context.Context, host string, s collector.Settings) map[string]any {
	if c.Local != nil && IsLocalHost(host) {
		slog.Debug("collecting local host facts", slog.String("host", host))
		return c.Local.Collect(ctx, host, s)
	}

	out, err := c.Runner.Run(ctx, host, Script(s))
	if err != nil {
		slog.Debug("ssh collection failed", slog.String("host", host), slog.String("error", err.Error()))
		return collector.Failed(Backend, err)
	}
	return Parse(out, s)
}

// Parse converts the script output into a result map.
func Parse(out string, s collector.Settings) map[string]any {
	sections := splitSections(out)
	res := map[string]any{collector.KeyCollector: Backend}

	setFirst := func(key, section string) {
		if lines := sections[section]; len(lines) > 0 && lines[0] != "" {
			res[key] = lines[0]
		}
	}
	setInt := func(key, section string) {
		if lines := sections[section]; len(lines) > 0 {
			if n, err := strconv.ParseInt(lines[0], 10, 64); err == nil {
				res[key] = n
			}
		}
	}

	setFirst(collector.KeyHostname, secHostname)
	setFirst(collector.KeyKernel, secKernel)
	setFirst(collector.KeyVendor, secVendor)
	setFirst(collector.KeyModel, secModel)
	setFirst(collector.KeySerial, secSerial)
	setInt(collector.KeyCPUCount, secCPU)
	setInt(collector.KeyMemoryBytes, secMemory)
	setInt(collector.KeyUptime, secUptime)

	if lines := sections[secRelease]; len(lines) > 0 {
		rel, err := file.OSRelease(strings.Join(lines, "\n"))
		if err == nil {
			if v := rel["PRETTY_NAME"]; v != "" {
				res[collector.KeyOSName] = v
			} else if v := rel["NAME"]; v != "" {
				res[collector.KeyOSName] = v
			}
			if v := rel["VERSION_ID"]; v != "" {
				res[collector.KeyOSVersion] = v
			}
		}
	}

	if s.Software {
		res[collector.KeySoftware] = collector.FilterSoftware(sections[secSoftware], s.SoftwareFilters)
	}
	return res
}

func splitSections(out string) map[string][]string {
	sections := make(map[string][]string)
	current := ""
	sc := bufio.NewScanner(strings.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, sectionPrefix); ok {
			current = name
			if _, exists := sections[current]; !exists {
				sections[current] = []string{}
			}
			continue
		}
		if current == "" || line == "" {
			continue
		}
		sections[current] = append(sections[current], line)
	}
	return sections
}

// IsLocalHost reports whether host names the loopback interface or this
// machine.
func IsLocalHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return false
	}
	if h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return ip.IsLoopback()
	}
	if name, err := hostname(); err == nil {
		name = strings.ToLower(name)
		short, _, _ := strings.Cut(name, ".")
		return h == name || h == short
	}
	return false
}
