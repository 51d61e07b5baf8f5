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

package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
	"github.com/jakabjo/cmdb-inventory/pkg/collector/linux"
	"github.com/jakabjo/cmdb-inventory/pkg/collector/local"
	"github.com/jakabjo/cmdb-inventory/pkg/collector/windows"
	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery/activedirectory"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// reverseLookups is the number of addresses per target tried for reverse DNS.
const reverseLookups = 2

// OUEnricher returns directory fields (ad_ou) for a host.
type OUEnricher interface {
	Enrich(ctx context.Context, host string) (map[string]any, error)
}

// DirectoryEnrichment mirrors the directory settings that gate OU lookups.
type DirectoryEnrichment struct {
	Enabled     bool
	EnrichNonAD bool
}

// Dispatcher turns one target into one inventory row.
type Dispatcher struct {
	Windows    collector.Collector
	Linux      collector.Collector
	Resolver   ReverseResolver
	Enricher   OUEnricher
	Transforms config.Transforms
	Flags      config.FeatureFlags
	Settings   collector.Settings
	Directory  DirectoryEnrichment
}

// New wires the production collectors, resolver and directory enricher
// from cfg. Call Close when done.
func New(cfg *config.Config, flags config.FeatureFlags) *Dispatcher {
	d := &Dispatcher{
		Windows:    &windows.Collector{Runner: windows.NewWinRMRunner(cfg.Collect.Windows)},
		Transforms: cfg.Transforms,
		Flags:      flags,
		Settings: collector.Settings{
			Software:        flags.Collection.Software,
			SoftwareFilters: cfg.Collect.Software.Filters,
		},
		Directory: DirectoryEnrichment{
			Enabled:     cfg.Discovery.ActiveDirectory.IsEnabled(),
			EnrichNonAD: cfg.Discovery.ActiveDirectory.EnrichNonAD,
		},
	}

	runner, err := linux.NewSSHRunner(cfg.Collect.Linux)
	if err != nil {
		slog.Warn("ssh collector unavailable", slog.String("error", err.Error()))
		d.Linux = collector.Func(func(context.Context, string, collector.Settings) map[string]any {
			return collector.Failed(linux.Backend, err)
		})
	} else {
		d.Linux = &linux.Collector{Runner: runner, Local: local.New()}
	}

	if flags.Enrichment.DNS {
		d.Resolver = NewDNSResolver(cfg.DNS.Servers)
	}
	if d.Directory.Enabled && d.Directory.EnrichNonAD {
		d.Enricher = activedirectory.NewEnricher(cfg.Discovery.ActiveDirectory)
	}
	return d
}

// Close releases the directory connection, if any.
func (d *Dispatcher) Close() {
	if c, ok := d.Enricher.(interface{ Close() }); ok {
		c.Close()
	}
}

// Dispatch builds the row for t. Every enrichment step is gated by its
// feature switch. In dry run
// mode no collector runs. Dispatch never panics; the seeded row is returned
// when a step does.
func (d *Dispatcher) Dispatch(ctx context.Context, t inventory.Target, dryRun bool) (row inventory.Row) {
	row = inventory.SeedRow(t)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dispatch panicked",
				slog.String("host", t.Host),
				slog.String("panic", fmt.Sprint(r)))
			row = inventory.SeedRow(t)
		}
	}()

	if d.Flags.Enrichment.DNS && d.Resolver != nil {
		d.resolve(ctx, row)
	}

	if dryRun {
		if d.ouEnabled() {
			d.enrichOU(ctx, row, t.Host)
		}
		if d.Flags.Enrichment.Transforms {
			ApplyTransforms(row, d.Transforms)
		}
		return row
	}

	data := d.collect(ctx, t)

	if d.ouEnabled() && !row.Has(inventory.FieldADOU) {
		d.enrichOU(ctx, row, t.Host)
	}
	row.Merge(data)
	if d.Flags.Enrichment.Transforms {
		ApplyTransforms(row, d.Transforms)
	}
	return row
}

func (d *Dispatcher) ouEnabled() bool {
	return d.Flags.Enrichment.ADOU && d.Directory.Enabled && d.Directory.EnrichNonAD && d.Enricher != nil
}

func (d *Dispatcher) resolve(ctx context.Context, row inventory.Row) {
	ips := inventory.Strings(row[inventory.FieldIPs])
	if len(ips) > reverseLookups {
		ips = ips[:reverseLookups]
	}
	var names []string
	for _, ip := range ips {
		name, err := d.Resolver.LookupAddr(ctx, ip)
		if err != nil {
			slog.Debug("reverse lookup failed", slog.String("ip", ip), slog.String("error", err.Error()))
			continue
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 || row.Has(inventory.FieldResolvedName) {
		return
	}
	row[inventory.FieldResolvedName] = names[0]
	if domain := DNSDomain(names[0]); domain != "" && !row.Has(inventory.FieldDNSDomain) {
		row[inventory.FieldDNSDomain] = domain
	}
}

func (d *Dispatcher) enrichOU(ctx context.Context, row inventory.Row, host string) {
	fields, err := d.Enricher.Enrich(ctx, host)
	if err != nil {
		slog.Debug("ou lookup failed", slog.String("host", host), slog.String("error", err.Error()))
		return
	}
	row.Merge(fields)
}

// collect runs the backend chosen by Rules. Unmatched targets try Windows
// first and then Linux if the Windows result is unusable.
func (d *Dispatcher) collect(ctx context.Context, t inventory.Target) map[string]any {
	f := d.Flags.Collection
	if b, ok := Select(t, f); ok {
		return d.run(ctx, b, t.Host)
	}

	var data map[string]any
	if f.Windows {
		data = d.run(ctx, BackendWindows, t.Host)
	}
	if collector.IsFailed(data) && f.Linux {
		data = d.run(ctx, BackendLinux, t.Host)
	}
	return data
}

func (d *Dispatcher) run(ctx context.Context, b Backend, host string) map[string]any {
	c := d.Windows
	if b == BackendLinux {
		c = d.Linux
	}
	if c == nil {
		return nil
	}
	data := c.Collect(ctx, host, d.Settings)
	status := statusOK
	if collector.IsFailed(data) {
		status = statusError
	}
	collections.WithLabelValues(string(b), status).Inc()
	return data
}
