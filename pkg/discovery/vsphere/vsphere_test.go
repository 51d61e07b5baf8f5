package vsphere

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

func newVCenter(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/session" {
			if r.Method == http.MethodDelete {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			user, pass, ok := r.BasicAuth()
			if !ok || user != "admin" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `"sess-1"`)
			return
		}
		if r.Header.Get(headerSession) != "sess-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/api/vcenter/vm":
			fmt.Fprint(w, `[
				{"vm":"vm-1","name":"app01","power_state":"POWERED_ON","cpu_count":2,"memory_size_MiB":4096},
				{"vm":"vm-2","name":"old01","power_state":"POWERED_OFF","cpu_count":1,"memory_size_MiB":1024},
				{"vm":"vm-3","name":"tools01","power_state":"POWERED_ON"}]`)
		case "/api/vcenter/vm/vm-1/guest/identity":
			fmt.Fprint(w, `{"host_name":"app01.corp.local","ip_address":"10.1.0.5","family":"LINUX","full_name":{"default_message":"Ubuntu Linux (64-bit)"}}`)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
}

func TestDiscover(t *testing.T) {
	srv := newVCenter(t)
	defer srv.Close()

	d := New(config.VSphere{URL: srv.URL + "/", Username: "admin", Password: "secret"})
	targets, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	app := targets[0]
	assert.Equal(t, "app01.corp.local", app.Host)
	assert.Equal(t, "linux", app.OSHint)
	assert.Equal(t, []string{"10.1.0.5"}, app.IPs)
	assert.Equal(t, inventory.ProviderVSphere, app.Provider)
	assert.Equal(t, "Ubuntu Linux (64-bit)", app.Attributes["vsphere_guest_os"])

	assert.Equal(t, "old01", targets[1].Host)
	assert.Empty(t, targets[1].OSHint)
	assert.Equal(t, "tools01", targets[2].Host)
}

func TestDiscoverLoginFails(t *testing.T) {
	srv := newVCenter(t)
	defer srv.Close()

	_, err := New(config.VSphere{URL: srv.URL, Username: "admin", Password: "wrong"}).Discover(context.Background())
	assert.Error(t, err)
}

func TestDiscoverNotConfigured(t *testing.T) {
	_, err := New(config.VSphere{}).Discover(context.Background())
	assert.Error(t, err)
}
