package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetKey(t *testing.T) {
	assert.Equal(t, "web01.corp.local", Target{Host: "WEB01.Corp.Local"}.Key())
	assert.Equal(t, "", Target{}.Key())
}

func TestSeedRow(t *testing.T) {
	target := Target{
		Host:     "db01",
		OSHint:   "linux",
		Source:   "vsphere",
		Provider: ProviderVSphere,
		IPs:      []string{"10.0.0.5"},
		Attributes: map[string]any{
			"tags": []string{"env=prod"},
			"host": "ignored",
		},
	}

	row := SeedRow(target)
	assert.Equal(t, "db01", row[FieldHost])
	assert.Equal(t, "linux", row[FieldOSHint])
	assert.Equal(t, "vsphere", row[FieldSource])
	assert.Equal(t, ProviderVSphere, row[FieldProvider])
	assert.Equal(t, []string{"10.0.0.5"}, row[FieldIPs])
	assert.Equal(t, []string{"env=prod"}, row[FieldTags])

	// the row owns its own ip slice
	row[FieldIPs].([]string)[0] = "changed"
	assert.Equal(t, "10.0.0.5", target.IPs[0])
}

func TestSeedRowAlwaysHasTargetFields(t *testing.T) {
	row := SeedRow(Target{Host: "h"})
	for _, k := range []string{FieldHost, FieldOSHint, FieldSource, FieldProvider, FieldIPs} {
		assert.Contains(t, row, k)
	}
}

func TestRowHelpers(t *testing.T) {
	row := Row{"a": "x", "b": 3, "c": nil, "d": "", "e": []string{}}

	assert.Equal(t, "x", row.String("a"))
	assert.Equal(t, "3", row.String("b"))
	assert.Equal(t, "", row.String("c"))
	assert.Equal(t, "", row.String("missing"))

	assert.True(t, row.Has("a"))
	assert.True(t, row.Has("b"))
	assert.False(t, row.Has("c"))
	assert.False(t, row.Has("d"))
	assert.False(t, row.Has("e"))

	row.Merge(map[string]any{"a": "y", "z": 1})
	assert.Equal(t, "y", row["a"])
	assert.Equal(t, 1, row["z"])

	clone := row.Clone()
	clone["a"] = "changed"
	assert.Equal(t, "y", row["a"])
	assert.Len(t, row.Keys(), len(row))
}

func TestStrings(t *testing.T) {
	assert.Nil(t, Strings(nil))
	assert.Nil(t, Strings(""))
	assert.Nil(t, Strings(42))
	assert.Equal(t, []string{"a"}, Strings("a"))
	assert.Equal(t, []string{"a", "b"}, Strings([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "2"}, Strings([]any{"a", nil, 2}))
}
