package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

func TestReadTargetsCSV(t *testing.T) {
	in := "\ufeffos_hint, Host ,provider\nwindows,web01,azure\n,db01,\n"
	got, err := ReadTargetsCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, inventory.Target{Host: "web01", OSHint: "windows", Source: SourceManual, Provider: "azure"}, got[0])
	assert.Equal(t, inventory.Target{Host: "db01", Source: SourceManual, Provider: SourceManual}, got[1])
}

func TestReadTargetsCSVErrors(t *testing.T) {
	_, err := ReadTargetsCSV(strings.NewReader("name,os\nweb01,linux\n"))
	assert.Error(t, err)

	got, err := ReadTargetsCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadTargets(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		got, err := LoadTargets(writeFile(t, "t.csv", "host\nweb01\n"))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "web01", got[0].Host)
	})

	t.Run("yaml", func(t *testing.T) {
		got, err := LoadTargets(writeFile(t, "t.yaml", "- host: web01\n  os_hint: linux\n- host: web02\n  source: cmdb\n"))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "linux", got[0].OSHint)
		assert.Equal(t, SourceManual, got[0].Source)
		assert.Equal(t, "cmdb", got[1].Source)
	})

	t.Run("json", func(t *testing.T) {
		got, err := LoadTargets(writeFile(t, "t.json", `[{"host":"web01","provider":"vsphere"}]`))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "vsphere", got[0].Provider)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTargets(filepath.Join(t.TempDir(), "nope.csv"))
		assert.True(t, cmdberrors.IsCode(err, cmdberrors.ErrCodeInvalidRequest))
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadTargets(writeFile(t, "t.yml", "host: [unclosed"))
		assert.True(t, cmdberrors.IsCode(err, cmdberrors.ErrCodeInvalidRequest))
	})
}
