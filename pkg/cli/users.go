/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/jakabjo/cmdb-inventory/pkg/authz"
	az "github.com/jakabjo/cmdb-inventory/pkg/azure"
	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/graph"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// DefaultUsersOut is the access report written by the users command.
const DefaultUsersOut = "azure_users_full.csv"

type usersOptions struct {
	Out           string
	Workers       int
	GraphURL      string
	ManagementURL string
	Subscriptions []string
	MetricsFile   string
}

func usersCmd() *cli.Command {
	return &cli.Command{
		Name:                  "users",
		EnableShellCompletion: true,
		Usage:                 "Export Entra ID users with their groups, directory roles and RBAC roles",
		Description: `List every directory user through Microsoft Graph and write one CSV
line per user with security groups, directory roles and the Azure RBAC
role assignments found on each subscription.

Credentials come from discovery.azure in the config file or from
AZURE_TENANT_ID, AZURE_CLIENT_ID and AZURE_CLIENT_SECRET.

# Examples

  cmdbinv users --out access.csv --workers 16
  cmdbinv users --subscription 00000000-0000-0000-0000-000000000001`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file providing discovery.azure credentials",
				Sources: cli.EnvVars("CMDBINV_CONFIG"),
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "CSV output path",
				Value:   DefaultUsersOut,
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "concurrent users processed",
				Value:   defaults.Workers,
			},
			&cli.StringFlag{
				Name:  "graph-url",
				Usage: "Microsoft Graph base URL",
				Value: az.DefaultGraphURL,
			},
			&cli.StringFlag{
				Name:  "management-url",
				Usage: "Azure Resource Manager base URL",
				Value: az.DefaultManagementURL,
			},
			&cli.StringSliceFlag{
				Name:  "subscription",
				Usage: "subscription to read role assignments from, can be repeated (default: all visible)",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "write Prometheus metrics in text format to this path after the run",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(cmd.String("config"))
			if err != nil {
				return err
			}
			a := cfg.Discovery.Azure
			creds := az.Credentials{
				TenantID:     a.TenantID,
				ClientID:     a.ClientID,
				ClientSecret: a.ClientSecret,
				AuthorityURL: a.AuthorityURL,
			}
			if err := creds.Validate(); err != nil {
				return err
			}

			subs := cmd.StringSlice("subscription")
			if len(subs) == 0 {
				subs = a.Subscriptions
			}
			opts := usersOptions{
				Out:           cmd.String("out"),
				Workers:       int(cmd.Int("workers")),
				GraphURL:      cmd.String("graph-url"),
				ManagementURL: cmd.String("management-url"),
				Subscriptions: subs,
				MetricsFile:   cmd.String("metrics-file"),
			}

			hc := serializer.NewHTTPClient(false)
			graphTS, err := creds.TokenSource(ctx, az.GraphScope, hc)
			if err != nil {
				return err
			}
			mgmtTS, err := creds.TokenSource(ctx, az.ManagementScope, hc)
			if err != nil {
				return err
			}
			if err := az.CheckToken(graphTS); err != nil {
				return err
			}
			return runUsers(ctx, graphTS, mgmtTS, opts, graph.WithHTTPClient(hc))
		},
	}
}

// runUsers builds the role caches, lists users and writes the access CSV.
func runUsers(ctx context.Context, graphTS, mgmtTS oauth2.TokenSource, opts usersOptions, gopts ...graph.Option) error {
	start := time.Now()

	mgmt := graph.NewClient(mgmtTS, gopts...)
	subs := opts.Subscriptions
	if len(subs) == 0 {
		var err error
		if subs, err = az.ListSubscriptions(ctx, mgmt, opts.ManagementURL); err != nil {
			return fmt.Errorf("failed to list subscriptions: %w", err)
		}
	}
	scopes := authz.BuildRoleCaches(ctx, authz.SubscriptionScopes(mgmt, opts.ManagementURL, subs))
	slog.Info("role caches ready", slog.Int("subscriptions", len(subs)), slog.Int("scopes", len(scopes)))

	// The user listing and the membership lookups draw on one Graph budget.
	graphOpts := append([]graph.Option{graph.WithLimiter(graph.NewLimiter(defaults.GraphRequestsPerSecond))}, gopts...)
	entities, err := authz.ListEntities(ctx, graph.NewClient(graphTS, graphOpts...), opts.GraphURL)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	slog.Info("users listed", slog.Int("count", len(entities)))

	members := &authz.GraphMembership{
		TokenSource: graphTS,
		GraphURL:    opts.GraphURL,
		Options:     graphOpts,
	}
	rows := authz.Run(ctx, entities, opts.Workers, members, scopes)
	if err := authz.WriteCSVFile(opts.Out, rows); err != nil {
		return err
	}

	if opts.MetricsFile != "" {
		if err := writeMetrics(opts.MetricsFile); err != nil {
			slog.Warn("failed to write metrics", slog.String("path", opts.MetricsFile), slog.String("error", err.Error()))
		}
	}
	slog.Info("access report written",
		slog.String("out", opts.Out),
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
