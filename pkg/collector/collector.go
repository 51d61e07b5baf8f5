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

package collector

import (
	"context"
	"strings"

	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Collector gathers facts from one host. Implementations never return an
// error: a failure is reported in the result under inventory.FieldError so
// the dispatcher can decide whether to fall back to another backend.
type Collector interface {
	Collect(ctx context.Context, host string, s Settings) map[string]any
}

// Func adapts a plain function to the Collector interface.
type Func func(ctx context.Context, host string, s Settings) map[string]any

// Collect calls f.
func (f Func) Collect(ctx context.Context, host string, s Settings) map[string]any {
	return f(ctx, host, s)
}

// Settings are the per-run switches shared by every backend.
type Settings struct {
	// Software enables installed software inventory.
	Software bool
	// SoftwareFilters keeps only packages whose name contains one of the
	// filters (case-insensitive). Empty keeps everything.
	SoftwareFilters []string
}

// Common result keys.
const (
	KeyCollector   = "collector"
	KeyHostname    = "hostname"
	KeyOSName      = "os_name"
	KeyOSVersion   = "os_version"
	KeyKernel      = "kernel"
	KeyCPUCount    = "cpu_count"
	KeyMemoryBytes = "memory_bytes"
	KeyUptime      = "uptime_seconds"
	KeyVendor      = "manufacturer"
	KeyModel       = "model"
	KeySerial      = "serial_number"
	KeySoftware    = "software"
	KeyServices    = "services"
)

// Failed returns the result reported for a failed collection.
func Failed(backend string, err error) map[string]any {
	return map[string]any{
		KeyCollector:        backend,
		inventory.FieldError: err.Error(),
	}
}

// IsFailed reports whether result is empty or carries an error marker.
func IsFailed(result map[string]any) bool {
	if len(result) == 0 {
		return true
	}
	v, ok := result[inventory.FieldError]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// FilterSoftware applies the software filters to names.
func FilterSoftware(names []string, filters []string) []string {
	if len(filters) == 0 {
		return names
	}
	lowered := make([]string, 0, len(filters))
	for _, f := range filters {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			lowered = append(lowered, f)
		}
	}
	if len(lowered) == 0 {
		return names
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		ln := strings.ToLower(n)
		for _, f := range lowered {
			if strings.Contains(ln, f) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
