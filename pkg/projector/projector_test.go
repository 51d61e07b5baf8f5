package projector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

func sampleRows() []inventory.Row {
	return []inventory.Row{
		{"host": "A", "os": "linux", "ips": []string{"10.0.0.1"}},
		{"host": "B", "os": "windows", "serial": "XYZ"},
	}
}

func TestProject(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		want    []inventory.Row
	}{
		{
			name: "no filters",
			want: sampleRows(),
		},
		{
			name:    "include only",
			include: []string{"host", "serial", "missing"},
			want:    []inventory.Row{{"host": "A"}, {"host": "B", "serial": "XYZ"}},
		},
		{
			name:    "exclude only",
			exclude: []string{"ips", "serial"},
			want:    []inventory.Row{{"host": "A", "os": "linux"}, {"host": "B", "os": "windows"}},
		},
		{
			name:    "exclude overrides include",
			include: []string{"host", "os"},
			exclude: []string{"os"},
			want:    []inventory.Row{{"host": "A"}, {"host": "B"}},
		},
		{
			name:    "exclude host leaves empty rows",
			exclude: []string{"host", "os", "ips", "serial"},
			want:    []inventory.Row{{}, {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Project(sampleRows(), tt.include, tt.exclude))
		})
	}
}

func TestProjectIdempotent(t *testing.T) {
	include := []string{"host", "os", "serial"}
	exclude := []string{"os"}

	once := Project(sampleRows(), include, exclude)
	twice := Project(once, include, exclude)
	assert.Equal(t, once, twice)
}

func TestProjectDoesNotMutateInput(t *testing.T) {
	rows := sampleRows()
	_ = Project(rows, []string{"host"}, nil)
	assert.Equal(t, sampleRows(), rows)
}

func TestProjectEmpty(t *testing.T) {
	assert.Nil(t, Project(nil, []string{"host"}, nil))
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"host", "os", "serial"}, ParseList(" host, os,,serial ,"))
	assert.Nil(t, ParseList(""))
	assert.Nil(t, ParseList(" , "))
}
