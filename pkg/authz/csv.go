package authz

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// ListSeparator joins list columns.
const ListSeparator = "; "

// Columns is the CSV header.
var Columns = []string{"DisplayName", "UPN", "Email", "SecurityGroups", "DirectoryRoles", "RBACRoles"}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []AccessRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.DisplayName,
			r.UPN,
			r.Email,
			strings.Join(r.SecurityGroups, ListSeparator),
			strings.Join(r.DirectoryRoles, ListSeparator),
			strings.Join(r.RBACRoles, ListSeparator),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.UPN, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes rows to path, replacing any existing file.
func WriteCSVFile(path string, rows []AccessRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
