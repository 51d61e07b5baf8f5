package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakabjo/cmdb-inventory/pkg/collector"
	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

type fakeCollector struct {
	mu     sync.Mutex
	result map[string]any
	hosts  []string
}

func (f *fakeCollector) Collect(_ context.Context, host string, _ collector.Settings) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hosts = append(f.hosts, host)
	return f.result
}

func (f *fakeCollector) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hosts)
}

type fakeResolver map[string]string

func (r fakeResolver) LookupAddr(_ context.Context, ip string) (string, error) {
	if name, ok := r[ip]; ok {
		return name, nil
	}
	return "", errors.New("nxdomain")
}

type fakeEnricher struct {
	ou    string
	calls int
}

func (e *fakeEnricher) Enrich(context.Context, string) (map[string]any, error) {
	e.calls++
	return map[string]any{inventory.FieldADOU: e.ou}, nil
}

func allFlags() config.FeatureFlags {
	return config.FeatureFlags{
		Enrichment: config.EnrichmentFeatures{DNS: true, ADOU: true, Transforms: true},
		Collection: config.CollectionFeatures{Windows: true, Linux: true},
	}
}

func newDispatcher(win, lin map[string]any) (*Dispatcher, *fakeCollector, *fakeCollector) {
	w := &fakeCollector{result: win}
	l := &fakeCollector{result: lin}
	return &Dispatcher{Windows: w, Linux: l, Flags: allFlags()}, w, l
}

func TestDispatchBackendSelection(t *testing.T) {
	ok := map[string]any{"os_name": "x"}
	failed := map[string]any{inventory.FieldError: "unreachable"}

	tests := []struct {
		name      string
		target    inventory.Target
		win, lin  map[string]any
		flags     func(*config.FeatureFlags)
		wantWin   int
		wantLin   int
		wantError bool
	}{
		{name: "windows hint", target: inventory.Target{Host: "h", OSHint: "Windows"}, win: ok, wantWin: 1},
		{name: "azure win hint", target: inventory.Target{Host: "h", OSHint: "WindowsServer", Provider: "azure"}, win: ok, wantWin: 1},
		{name: "linux hint", target: inventory.Target{Host: "h", OSHint: "linux"}, lin: ok, wantLin: 1},
		{name: "vsphere provider", target: inventory.Target{Host: "h", Provider: "vsphere"}, lin: ok, wantLin: 1},
		{name: "onprem provider", target: inventory.Target{Host: "h", Provider: "onprem"}, lin: ok, wantLin: 1},
		{name: "local network provider", target: inventory.Target{Host: "h", Provider: "local-network"}, lin: ok, wantLin: 1},
		{name: "ambiguous windows succeeds", target: inventory.Target{Host: "h"}, win: ok, lin: ok, wantWin: 1},
		{name: "ambiguous windows fails", target: inventory.Target{Host: "h"}, win: failed, lin: ok, wantWin: 1, wantLin: 1},
		{name: "ambiguous windows empty", target: inventory.Target{Host: "h"}, lin: ok, wantWin: 1, wantLin: 1},
		{
			name:    "windows hint with windows disabled falls through",
			target:  inventory.Target{Host: "h", OSHint: "windows"},
			lin:     ok,
			flags:   func(f *config.FeatureFlags) { f.Collection.Windows = false },
			wantLin: 1,
		},
		{
			name:    "linux hint with linux disabled uses windows",
			target:  inventory.Target{Host: "h", OSHint: "linux"},
			win:     ok,
			flags:   func(f *config.FeatureFlags) { f.Collection.Linux = false },
			wantWin: 1,
		},
		{
			name:   "both disabled",
			target: inventory.Target{Host: "h"},
			flags:  func(f *config.FeatureFlags) { f.Collection = config.CollectionFeatures{} },
		},
		{
			name:      "windows failure kept when linux disabled",
			target:    inventory.Target{Host: "h"},
			win:       failed,
			flags:     func(f *config.FeatureFlags) { f.Collection.Linux = false },
			wantWin:   1,
			wantError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, w, l := newDispatcher(tt.win, tt.lin)
			if tt.flags != nil {
				tt.flags(&d.Flags)
			}
			row := d.Dispatch(context.Background(), tt.target, false)
			assert.Equal(t, tt.wantWin, w.calls(), "windows calls")
			assert.Equal(t, tt.wantLin, l.calls(), "linux calls")
			assert.Equal(t, tt.wantError, row.Has(inventory.FieldError))
			assert.Equal(t, "h", row[inventory.FieldHost])
		})
	}
}

func TestDispatchDryRun(t *testing.T) {
	d, w, l := newDispatcher(map[string]any{"os_name": "x"}, nil)
	e := &fakeEnricher{ou: "Servers/Web"}
	d.Enricher = e
	d.Directory = DirectoryEnrichment{Enabled: true, EnrichNonAD: true}
	d.Resolver = fakeResolver{"10.0.0.5": "web01.corp.example.com"}

	row := d.Dispatch(context.Background(), inventory.Target{
		Host: "web01", OSHint: "windows", IPs: []string{"10.0.0.5"},
	}, true)

	assert.Zero(t, w.calls())
	assert.Zero(t, l.calls())
	assert.Equal(t, "web01.corp.example.com", row[inventory.FieldResolvedName])
	assert.Equal(t, "example.com", row[inventory.FieldDNSDomain])
	assert.Equal(t, "Servers/Web", row[inventory.FieldADOU])
	assert.Equal(t, 1, e.calls)
}

func TestDispatchOUOnlyWhenMissing(t *testing.T) {
	d, _, _ := newDispatcher(nil, map[string]any{"os_name": "Ubuntu"})
	e := &fakeEnricher{ou: "Other"}
	d.Enricher = e
	d.Directory = DirectoryEnrichment{Enabled: true, EnrichNonAD: true}

	row := d.Dispatch(context.Background(), inventory.Target{
		Host: "db01", Provider: "onprem",
		Attributes: map[string]any{inventory.FieldADOU: "Servers/DB"},
	}, false)
	assert.Equal(t, "Servers/DB", row[inventory.FieldADOU])
	assert.Zero(t, e.calls)
	assert.Equal(t, "Ubuntu", row["os_name"])
}

func TestDispatchOUGatedByDirectory(t *testing.T) {
	d, _, _ := newDispatcher(nil, nil)
	e := &fakeEnricher{ou: "X"}
	d.Enricher = e
	d.Directory = DirectoryEnrichment{Enabled: true}

	row := d.Dispatch(context.Background(), inventory.Target{Host: "h"}, false)
	assert.Zero(t, e.calls)
	assert.False(t, row.Has(inventory.FieldADOU))
}

func TestDispatchDNS(t *testing.T) {
	t.Run("first two addresses only", func(t *testing.T) {
		d, _, _ := newDispatcher(nil, nil)
		d.Resolver = fakeResolver{"10.0.0.3": "third.example.org"}
		row := d.Dispatch(context.Background(), inventory.Target{
			Host: "h", IPs: []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
		}, true)
		assert.False(t, row.Has(inventory.FieldResolvedName))
	})

	t.Run("second address resolves", func(t *testing.T) {
		d, _, _ := newDispatcher(nil, nil)
		d.Resolver = fakeResolver{"10.0.0.2": "second.example.org"}
		row := d.Dispatch(context.Background(), inventory.Target{
			Host: "h", IPs: []string{"10.0.0.1", "10.0.0.2"},
		}, true)
		assert.Equal(t, "second.example.org", row[inventory.FieldResolvedName])
	})

	t.Run("existing name kept", func(t *testing.T) {
		d, _, _ := newDispatcher(nil, nil)
		d.Resolver = fakeResolver{"10.0.0.1": "new.example.org"}
		row := d.Dispatch(context.Background(), inventory.Target{
			Host: "h", IPs: []string{"10.0.0.1"},
			Attributes: map[string]any{inventory.FieldResolvedName: "old.example.org"},
		}, true)
		assert.Equal(t, "old.example.org", row[inventory.FieldResolvedName])
	})

	t.Run("disabled", func(t *testing.T) {
		d, _, _ := newDispatcher(nil, nil)
		d.Flags.Enrichment.DNS = false
		d.Resolver = fakeResolver{"10.0.0.1": "name.example.org"}
		row := d.Dispatch(context.Background(), inventory.Target{Host: "h", IPs: []string{"10.0.0.1"}}, true)
		assert.False(t, row.Has(inventory.FieldResolvedName))
	})
}

func TestDispatchTransforms(t *testing.T) {
	d, _, _ := newDispatcher(map[string]any{"os_name": "Windows Server"}, nil)
	d.Transforms.Azure.TagMap = map[string]string{"owner": "owner_email"}

	target := inventory.Target{
		Host: "vm1", OSHint: "windows", Provider: "azure",
		Attributes: map[string]any{inventory.FieldTags: []string{"owner=ops@example.com", "broken"}},
	}
	row := d.Dispatch(context.Background(), target, false)
	assert.Equal(t, "ops@example.com", row["owner_email"])

	d.Flags.Enrichment.Transforms = false
	row = d.Dispatch(context.Background(), target, false)
	assert.False(t, row.Has("owner_email"))
}

func TestDispatchRecoversPanic(t *testing.T) {
	d, _, _ := newDispatcher(nil, nil)
	d.Windows = collector.Func(func(context.Context, string, collector.Settings) map[string]any {
		panic("driver bug")
	})

	target := inventory.Target{Host: "h", OSHint: "windows", Source: "manual"}
	var row inventory.Row
	require.NotPanics(t, func() {
		row = d.Dispatch(context.Background(), target, false)
	})
	assert.Equal(t, inventory.SeedRow(target), row)
}

func TestNewWithDefaults(t *testing.T) {
	cfg := &config.Config{}
	d := New(cfg, allFlags())
	defer d.Close()

	assert.NotNil(t, d.Windows)
	assert.NotNil(t, d.Linux)
	assert.NotNil(t, d.Resolver)
	assert.Nil(t, d.Enricher)
	assert.True(t, d.Directory.Enabled)

	cfg.Discovery.ActiveDirectory.EnrichNonAD = true
	d = New(cfg, allFlags())
	assert.NotNil(t, d.Enricher)
	d.Close()
}

func TestNewFastModeResolver(t *testing.T) {
	tests := []struct {
		name     string
		enable   []string
		resolver bool
	}{
		{"fast alone", nil, false},
		{"fast with dns enabled", []string{"dns"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.ApplyFast(&config.Config{})
			flags, err := config.ResolveFeatures(cfg, config.Overrides{Fast: true, Enable: tt.enable})
			require.NoError(t, err)

			d := New(cfg, flags)
			defer d.Close()
			assert.Equal(t, tt.resolver, flags.Enrichment.DNS)
			assert.Equal(t, tt.resolver, d.Resolver != nil)
		})
	}
}
