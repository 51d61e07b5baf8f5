/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/discovery"
	"github.com/jakabjo/cmdb-inventory/pkg/dispatch"
	"github.com/jakabjo/cmdb-inventory/pkg/engine"
	"github.com/jakabjo/cmdb-inventory/pkg/export"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/oci"
	"github.com/jakabjo/cmdb-inventory/pkg/planner"
	"github.com/jakabjo/cmdb-inventory/pkg/progress"
	"github.com/jakabjo/cmdb-inventory/pkg/projector"
)

// inventoryOptions are the parsed inventory flags.
type inventoryOptions struct {
	ConfigPath  string
	OutDir      string
	Workers     string
	Autotune    bool
	DryRun      bool
	TargetsPath string
	TUI         bool
	Fast        bool
	Include     []string
	Exclude     []string
	Enable      []string
	Disable     []string
	Push        string
	MetricsFile string
}

func inventoryCmd() *cli.Command {
	return &cli.Command{
		Name:                  "inventory",
		EnableShellCompletion: true,
		Usage:                 "Discover targets, collect host facts and export the inventory",
		Description: `Run discovery across the enabled sources (Active Directory, Azure,
vSphere, AWS EC2, Kubernetes, subnet scan, static and CSV targets),
deduplicate by host, collect each host over WinRM, SSH or locally, and
write the result to every enabled export.

# Examples

Inventory with the default config.yaml into ./out:
  cmdbinv inventory

Plan workers from the target count and skip slow enrichment:
  cmdbinv inventory --workers auto --fast

Show what would be collected without touching any host:
  cmdbinv inventory --dry-run --targets extra.csv

Publish the report files to a registry:
  cmdbinv inventory --push oci://ghcr.io/acme/inventory:nightly`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (YAML, JSON or TOML; http(s) URLs allowed)",
				Sources: cli.EnvVars("CMDBINV_CONFIG"),
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output directory",
				Value:   "out",
			},
			&cli.StringFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "collection workers: a number or auto",
				Value:   fmt.Sprint(defaults.Workers),
			},
			&cli.BoolFlag{
				Name:  "autotune",
				Usage: "plan workers from the target count (same as --workers auto)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "resolve and enrich targets without running collectors",
			},
			&cli.StringFlag{
				Name:  "targets",
				Usage: "extra targets file (CSV with host,os_hint,source,provider, or JSON/YAML)",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "show discovery spinners and a collection progress bar",
			},
			&cli.BoolFlag{
				Name:  "fast",
				Usage: "skip software inventory, subnet TCP probes and reverse DNS",
			},
			&cli.StringFlag{
				Name:  "include-fields",
				Usage: "comma separated fields to keep in exported rows",
			},
			&cli.StringFlag{
				Name:  "exclude-fields",
				Usage: "comma separated fields to drop from exported rows",
			},
			&cli.StringSliceFlag{
				Name:  "enable",
				Usage: "feature to switch on, can be repeated",
			},
			&cli.StringSliceFlag{
				Name:  "disable",
				Usage: "feature to switch off, can be repeated",
			},
			&cli.StringFlag{
				Name:  "push",
				Usage: "push the report files to an OCI registry (oci://registry/repository[:tag])",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "write Prometheus metrics in text format to this path after the run",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts := inventoryOptions{
				ConfigPath:  cmd.String("config"),
				OutDir:      cmd.String("out"),
				Workers:     cmd.String("workers"),
				Autotune:    cmd.Bool("autotune"),
				DryRun:      cmd.Bool("dry-run"),
				TargetsPath: cmd.String("targets"),
				TUI:         cmd.Bool("tui"),
				Fast:        cmd.Bool("fast"),
				Include:     projector.ParseList(cmd.String("include-fields")),
				Exclude:     projector.ParseList(cmd.String("exclude-fields")),
				Enable:      cmd.StringSlice("enable"),
				Disable:     cmd.StringSlice("disable"),
				Push:        cmd.String("push"),
				MetricsFile: cmd.String("metrics-file"),
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			return runInventory(ctx, cfg, opts)
		},
	}
}

// runInventory executes one inventory run against a loaded config.
func runInventory(ctx context.Context, cfg *config.Config, opts inventoryOptions) error {
	start := time.Now()
	if opts.Fast {
		cfg = config.ApplyFast(cfg)
	}
	if err := applyPush(cfg, opts.Push); err != nil {
		return err
	}
	flags, err := config.ResolveFeatures(cfg, config.Overrides{
		Fast:    opts.Fast,
		Enable:  opts.Enable,
		Disable: opts.Disable,
	})
	if err != nil {
		return err
	}

	var external []inventory.Target
	if opts.TargetsPath != "" && flags.Discovery.CSVTargets {
		if external, err = discovery.LoadTargets(opts.TargetsPath); err != nil {
			return err
		}
	}

	var display *progress.Display
	agg := &discovery.Aggregator{}
	if opts.TUI {
		display = progress.New(nil)
		defer display.Stop()
		agg.Observer = display
	}

	targets := agg.Aggregate(ctx, discovery.BuildSteps(cfg, flags, external), nil)
	workers := planner.ParseWorkers(opts.Workers, len(targets), opts.Fast, opts.Autotune)
	slog.Info("discovery complete",
		slog.Int("targets", len(targets)),
		slog.Int("workers", workers),
		slog.Bool("dryRun", opts.DryRun))

	d := dispatch.New(cfg, flags)
	defer d.Close()

	engineOpts := []engine.Option{engine.WithTaskTimeout(defaults.CollectTaskTimeout)}
	if display != nil {
		engineOpts = append(engineOpts, engine.WithProgress(display.Collect))
	}
	rows := engine.Run(ctx, targets, workers, func(ctx context.Context, t inventory.Target) inventory.Row {
		return d.Dispatch(ctx, t, opts.DryRun)
	}, engineOpts...)

	include, exclude := fieldFilters(opts, cfg.Fields)
	rows = projector.Project(rows, include, exclude)

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", opts.OutDir, err)
	}
	meta := export.Meta{
		RunID:   uuid.NewString(),
		Version: version,
		Workers: workers,
		DryRun:  opts.DryRun,
	}
	exportErr := export.Write(ctx, export.Build(cfg, opts.OutDir, meta), rows)

	if opts.MetricsFile != "" {
		if err := writeMetrics(opts.MetricsFile); err != nil {
			slog.Warn("failed to write metrics", slog.String("path", opts.MetricsFile), slog.String("error", err.Error()))
		}
	}

	slog.Info("inventory complete",
		slog.String("runId", meta.RunID),
		slog.Int("rows", len(rows)),
		slog.String("out", opts.OutDir),
		slog.Duration("duration", time.Since(start)))
	return exportErr
}

// fieldFilters resolves the include and exclude lists independently: each
// command line list replaces only its config counterpart.
func fieldFilters(opts inventoryOptions, fields config.Fields) (include, exclude []string) {
	include, exclude = fields.Include, fields.Exclude
	if len(opts.Include) > 0 {
		include = opts.Include
	}
	if len(opts.Exclude) > 0 {
		exclude = opts.Exclude
	}
	return include, exclude
}

// applyPush turns a --push reference into OCI export settings.
func applyPush(cfg *config.Config, uri string) error {
	if uri == "" {
		return nil
	}
	ref, err := oci.ParseReference(uri)
	if err != nil {
		return err
	}
	cfg.Export.OCI.Enabled = true
	cfg.Export.OCI.Registry = ref.Registry
	cfg.Export.OCI.Repository = ref.Repository
	if ref.Tag != "" {
		cfg.Export.OCI.Tag = ref.Tag
	}
	return nil
}
