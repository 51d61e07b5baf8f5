package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/header"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/oci"
)

// Output file names inside the output directory.
const (
	FileJSON   = "inventory.json"
	FileCSV    = "inventory.csv"
	FileHTML   = "inventory.html"
	FileYAML   = "inventory.yaml"
	FileSQLite = "inventory.db"
)

// Sink writes a finished inventory somewhere.
type Sink interface {
	Name() string
	Write(ctx context.Context, rows []inventory.Row) error
}

// Report is the inventory with its envelope, as written to YAML and
// ConfigMap outputs.
type Report struct {
	header.Header `json:",inline" yaml:",inline"`
	Rows          []inventory.Row `json:"rows" yaml:"rows"`
}

// Meta describes the run that produced the rows.
type Meta struct {
	RunID   string
	Version string
	Workers int
	DryRun  bool
}

// Header returns the report envelope for the run.
func (m Meta) Header() *header.Header {
	return header.New(header.KindInventoryReport, m.Version,
		header.WithMetadata(header.MetaRunID, m.RunID),
		header.WithMetadata(header.MetaWorkers, strconv.Itoa(m.Workers)),
		header.WithMetadata(header.MetaDryRun, strconv.FormatBool(m.DryRun)))
}

// NewReport wraps rows in an envelope for the run.
func NewReport(m Meta, rows []inventory.Row) *Report {
	if rows == nil {
		rows = []inventory.Row{}
	}
	return &Report{Header: *m.Header(), Rows: rows}
}

// Build returns the sinks enabled in cfg, in write order. File sinks come
// first so that the OCI sink, when enabled, can publish their output.
func Build(cfg *config.Config, outDir string, m Meta) []Sink {
	e := cfg.Export
	var sinks []Sink
	var files []string

	if e.JSONEnabled() {
		sinks = append(sinks, &JSONSink{Path: filepath.Join(outDir, FileJSON)})
		files = append(files, FileJSON)
	}
	if e.CSVEnabled() {
		sinks = append(sinks, &CSVSink{Path: filepath.Join(outDir, FileCSV)})
		files = append(files, FileCSV)
	}
	if e.HTMLEnabled() {
		sinks = append(sinks, &HTMLSink{Path: filepath.Join(outDir, FileHTML), Title: cfg.ReportTitle()})
		files = append(files, FileHTML)
	}
	if e.YAML {
		sinks = append(sinks, &YAMLSink{Path: filepath.Join(outDir, FileYAML), Meta: m})
		files = append(files, FileYAML)
	}
	if e.SQLite.Enabled {
		path := e.SQLite.Path
		if path == "" {
			path = filepath.Join(outDir, FileSQLite)
		}
		sinks = append(sinks, &SQLiteSink{Path: path, RunID: m.RunID})
	}
	if e.ServiceNow.Enabled {
		sinks = append(sinks, NewServiceNowSink(e.ServiceNow))
	}
	if e.ConfigMap.Enabled {
		sinks = append(sinks, &ConfigMapSink{
			Namespace:  e.ConfigMap.Namespace,
			ConfigMap:  e.ConfigMap.Name,
			Kubeconfig: e.ConfigMap.Kubeconfig,
			Meta:       m,
		})
	}
	if e.OCI.Enabled && len(files) > 0 {
		tag := e.OCI.Tag
		if tag == "" {
			tag = m.RunID
		}
		sinks = append(sinks, &OCISink{
			Dir:   outDir,
			Files: files,
			Reference: &oci.Reference{
				Registry:   e.OCI.Registry,
				Repository: e.OCI.Repository,
				Tag:        tag,
			},
			PlainHTTP:   e.OCI.PlainHTTP,
			InsecureTLS: e.OCI.InsecureTLS,
			Title:       cfg.ReportTitle(),
			Meta:        m,
		})
	}
	return sinks
}

// Write runs every sink in order. A failing sink is logged and does not
// stop the others; all failures are returned joined.
func Write(ctx context.Context, sinks []Sink, rows []inventory.Row) error {
	var errs []error
	for _, s := range sinks {
		start := time.Now()
		err := s.Write(ctx, rows)
		sinkDuration.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			sinkTotal.WithLabelValues(s.Name(), statusError).Inc()
			slog.Error("export failed", slog.String("sink", s.Name()), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		sinkTotal.WithLabelValues(s.Name(), statusOK).Inc()
		slog.Info("export complete", slog.String("sink", s.Name()), slog.Int("rows", len(rows)))
	}
	return errors.Join(errs...)
}

// records converts rows for the serializer helpers.
func records(rows []inventory.Row) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		out[i] = r
	}
	return out
}
