package azure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakabjo/cmdb-inventory/pkg/graph"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

const vmPage = `{"value":[{
  "id":"/subscriptions/s1/resourceGroups/rg-app/providers/Microsoft.Compute/virtualMachines/vm-web",
  "name":"vm-web","location":"westeurope","tags":{"owner":"ops","env":"prod"},
  "properties":{"vmId":"guid-1","hardwareProfile":{"vmSize":"Standard_D2s_v5"},
    "storageProfile":{"osDisk":{"osType":"Windows"}},
    "osProfile":{"computerName":"WEB01"}}},
 {"id":"/subscriptions/s1/resourceGroups/rg-app/providers/Microsoft.Compute/virtualMachines/vm-db",
  "name":"vm-db","properties":{"storageProfile":{"osDisk":{"osType":"Linux"}}}}]}`

func TestDiscover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/subscriptions":
			fmt.Fprint(w, `{"value":[{"subscriptionId":"s1","state":"Enabled"},{"subscriptionId":"broken","state":"Enabled"}]}`)
		case "/subscriptions/s1/providers/Microsoft.Compute/virtualMachines":
			assert.Equal(t, "2024-07-01", r.URL.Query().Get("api-version"))
			fmt.Fprint(w, vmPage)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	d := &Discoverer{Client: graph.NewClient(nil, graph.WithRateLimit(0)), ManagementURL: srv.URL}
	targets, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 2)

	web := targets[0]
	assert.Equal(t, "WEB01", web.Host)
	assert.Equal(t, "windows", web.OSHint)
	assert.Equal(t, inventory.ProviderAzure, web.Provider)
	assert.Equal(t, Source, web.Source)
	assert.Equal(t, []string{"env=prod", "owner=ops"}, web.Attributes[inventory.FieldTags])
	assert.Equal(t, "rg-app", web.Attributes["azure_resource_group"])
	assert.Equal(t, "Standard_D2s_v5", web.Attributes["azure_vm_size"])

	assert.Equal(t, "vm-db", targets[1].Host)
	assert.Equal(t, "linux", targets[1].OSHint)
}

func TestDiscoverSubscriptionListingFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := &Discoverer{Client: graph.NewClient(nil, graph.WithRateLimit(0)), ManagementURL: srv.URL}
	_, err := d.Discover(context.Background())
	assert.Error(t, err)
}

func TestDiscoverConfiguredSubscriptions(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		fmt.Fprint(w, `{"value":[]}`)
	}))
	defer srv.Close()

	d := &Discoverer{Client: graph.NewClient(nil, graph.WithRateLimit(0)), ManagementURL: srv.URL, Subscriptions: []string{"a"}}
	targets, err := d.Discover(context.Background())
	require.NoError(t, err)
	assert.Empty(t, targets)
	assert.Equal(t, []string{"/subscriptions/a/providers/Microsoft.Compute/virtualMachines"}, paths)
}
