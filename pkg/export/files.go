package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// JSONSink writes the rows as an indented JSON array.
type JSONSink struct {
	Path string
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Write(ctx context.Context, rows []inventory.Row) error {
	if rows == nil {
		rows = []inventory.Row{}
	}
	return writeSerialized(ctx, serializer.FormatJSON, s.Path, rows)
}

// YAMLSink writes the rows with the report envelope.
type YAMLSink struct {
	Path string
	Meta Meta
}

func (s *YAMLSink) Name() string { return "yaml" }

func (s *YAMLSink) Write(ctx context.Context, rows []inventory.Row) error {
	return writeSerialized(ctx, serializer.FormatYAML, s.Path, NewReport(s.Meta, rows))
}

func writeSerialized(ctx context.Context, format serializer.Format, path string, v any) error {
	w, err := serializer.NewFileWriter(format, path)
	if err != nil {
		return err
	}
	if err := w.Serialize(ctx, v); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// CSVSink writes one line per row. Columns are the union of row fields
// with host first; list values are joined with "; ".
type CSVSink struct {
	Path string
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Write(_ context.Context, rows []inventory.Row) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.Path, err)
	}

	recs := records(rows)
	cols := serializer.Columns(recs)
	cw := csv.NewWriter(f)
	if err := cw.Write(cols); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range recs {
		line := make([]string, len(cols))
		for i, c := range cols {
			line[i] = serializer.Cell(r[c])
		}
		if err := cw.Write(line); err != nil {
			f.Close()
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return f.Close()
}

// HTMLSink writes a standalone HTML table.
type HTMLSink struct {
	Path  string
	Title string
}

func (s *HTMLSink) Name() string { return "html" }

type htmlColumn struct {
	Key   string
	Label string
}

type htmlPage struct {
	Title   string
	Count   int
	Columns []htmlColumn
	Rows    [][]string
}

var htmlTemplate = template.Must(template.New("inventory").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; font-size: 0.9em; }
th, td { border: 1px solid #ccc; padding: 4px 8px; text-align: left; vertical-align: top; }
th { background: #f0f0f0; position: sticky; top: 0; }
tr:nth-child(even) { background: #fafafa; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Count}} hosts</p>
<table>
<thead><tr>{{range .Columns}}<th title="{{.Key}}">{{.Label}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
</body>
</html>
`))

func (s *HTMLSink) Write(_ context.Context, rows []inventory.Row) error {
	recs := records(rows)
	cols := serializer.Columns(recs)

	page := htmlPage{Title: s.Title, Count: len(rows)}
	caser := cases.Title(language.English)
	for _, c := range cols {
		page.Columns = append(page.Columns, htmlColumn{Key: c, Label: ColumnLabel(caser, c)})
	}
	for _, r := range recs {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = serializer.Cell(r[c])
		}
		page.Rows = append(page.Rows, cells)
	}

	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", s.Path, err)
	}
	if err := htmlTemplate.Execute(f, page); err != nil {
		f.Close()
		return fmt.Errorf("failed to render html: %w", err)
	}
	return f.Close()
}

// ColumnLabel turns a field name like os_hint into "Os Hint".
func ColumnLabel(caser cases.Caser, key string) string {
	return caser.String(strings.ReplaceAll(key, "_", " "))
}
