package discovery

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// SourceManual is the source and provider given to list targets that do
// not name one.
const SourceManual = inventory.ProviderManual

// LoadTargets reads an extra target list. CSV is the default; .json, .yaml
// and .yml files (local or http(s) URLs) are decoded as a list of targets.
// Any read or parse failure is an INVALID_REQUEST error.
func LoadTargets(path string) ([]inventory.Target, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".json"), strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		list, err := serializer.FromFile[[]inventory.Target](path)
		if err != nil {
			return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
				fmt.Sprintf("invalid target list %s", path), err)
		}
		return withDefaults(*list), nil
	default:
		return LoadTargetsCSV(path)
	}
}

// LoadTargetsCSV reads a CSV file with the header host,os_hint,source,provider.
// Column order is free and only host is required.
func LoadTargetsCSV(path string) ([]inventory.Target, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
			fmt.Sprintf("cannot open targets file %s", path), err)
	}
	defer f.Close()

	targets, err := ReadTargetsCSV(f)
	if err != nil {
		return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid targets file %s", path), err)
	}
	return targets, nil
}

// ReadTargetsCSV parses CSV target rows from r.
func ReadTargetsCSV(r io.Reader) ([]inventory.Target, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols[inventory.FieldHost]; !ok {
		return nil, fmt.Errorf("missing %q column", inventory.FieldHost)
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var targets []inventory.Target
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		targets = append(targets, inventory.Target{
			Host:     field(rec, inventory.FieldHost),
			OSHint:   field(rec, inventory.FieldOSHint),
			Source:   field(rec, inventory.FieldSource),
			Provider: field(rec, inventory.FieldProvider),
		})
	}
	return withDefaults(targets), nil
}

func withDefaults(targets []inventory.Target) []inventory.Target {
	for i := range targets {
		if targets[i].Source == "" {
			targets[i].Source = SourceManual
		}
		if targets[i].Provider == "" {
			targets[i].Provider = SourceManual
		}
	}
	return targets
}
