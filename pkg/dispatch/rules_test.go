package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

func TestSelect(t *testing.T) {
	both := config.CollectionFeatures{Windows: true, Linux: true}
	tests := []struct {
		name   string
		target inventory.Target
		flags  config.CollectionFeatures
		want   Backend
		ok     bool
	}{
		{"windows", inventory.Target{OSHint: "windows"}, both, BackendWindows, true},
		{"azure win substring", inventory.Target{OSHint: "win2019", Provider: "azure"}, both, BackendWindows, true},
		{"non-azure win substring", inventory.Target{OSHint: "win2019", Provider: "aws"}, both, "", false},
		{"linux", inventory.Target{OSHint: "Linux"}, both, BackendLinux, true},
		{"vsphere windows hint prefers windows", inventory.Target{OSHint: "windows", Provider: "vsphere"}, both, BackendWindows, true},
		{"vsphere", inventory.Target{Provider: "vsphere"}, both, BackendLinux, true},
		{"unknown", inventory.Target{Provider: "aws"}, both, "", false},
		{"linux disabled", inventory.Target{OSHint: "linux"}, config.CollectionFeatures{Windows: true}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Select(tt.target, tt.flags)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
