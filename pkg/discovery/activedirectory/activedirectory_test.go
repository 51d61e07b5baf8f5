package activedirectory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

type fakeSearcher struct {
	entries []*ldap.Entry
	err     error
	reqs    []*ldap.SearchRequest
	pages   []uint32
}

func (f *fakeSearcher) SearchWithPaging(req *ldap.SearchRequest, size uint32) (*ldap.SearchResult, error) {
	f.reqs = append(f.reqs, req)
	f.pages = append(f.pages, size)
	if f.err != nil {
		return nil, f.err
	}
	return &ldap.SearchResult{Entries: f.entries}, nil
}

func dialer(s Searcher, closed *atomic.Int32) DialFunc {
	return func(context.Context, config.ActiveDirectory) (Searcher, func(), error) {
		return s, func() { closed.Add(1) }, nil
	}
}

func TestOUPath(t *testing.T) {
	tests := []struct {
		dn   string
		want string
	}{
		{"CN=web01,OU=Web,OU=Servers,DC=corp,DC=local", "Servers/Web"},
		{"CN=dc01,OU=Domain Controllers,DC=corp,DC=local", "Domain Controllers"},
		{"CN=ws01,CN=Computers,DC=corp,DC=local", ""},
		{"", ""},
		{"not a dn", ""},
	}
	for _, tt := range tests {
		t.Run(tt.dn, func(t *testing.T) {
			assert.Equal(t, tt.want, OUPath(tt.dn))
		})
	}
}

func TestOSHint(t *testing.T) {
	assert.Equal(t, "windows", OSHint("Windows Server 2022 Standard"))
	assert.Equal(t, "linux", OSHint("Red Hat Enterprise Linux"))
	assert.Equal(t, "linux", OSHint("Ubuntu"))
	assert.Equal(t, "", OSHint("Mac OS X"))
	assert.Equal(t, "", OSHint(""))
}

func TestDiscover(t *testing.T) {
	fs := &fakeSearcher{entries: []*ldap.Entry{
		ldap.NewEntry("CN=WEB01,OU=Web,OU=Servers,DC=corp,DC=local", map[string][]string{
			"dNSHostName":     {"web01.corp.local"},
			"name":            {"WEB01"},
			"operatingSystem": {"Windows Server 2019"},
			"location":        {"rack-4"},
		}),
		ldap.NewEntry("CN=DB01,CN=Computers,DC=corp,DC=local", map[string][]string{
			"name":            {"DB01"},
			"operatingSystem": {"Ubuntu 22.04"},
		}),
		ldap.NewEntry("CN=ghost,DC=corp,DC=local", map[string][]string{}),
	}}
	var closed atomic.Int32
	d := New(config.ActiveDirectory{BaseDN: "DC=corp,DC=local", Attributes: []string{"location"}})
	d.Dial = dialer(fs, &closed)

	got, err := d.Discover(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "web01.corp.local", got[0].Host)
	assert.Equal(t, "windows", got[0].OSHint)
	assert.Equal(t, Source, got[0].Source)
	assert.Equal(t, inventory.ProviderOnPrem, got[0].Provider)
	assert.Equal(t, "Servers/Web", got[0].Attributes[inventory.FieldADOU])
	assert.Equal(t, "rack-4", got[0].Attributes["location"])

	assert.Equal(t, "DB01", got[1].Host)
	assert.Equal(t, "linux", got[1].OSHint)
	assert.NotContains(t, got[1].Attributes, inventory.FieldADOU)

	require.Len(t, fs.reqs, 1)
	assert.Equal(t, DefaultFilter, fs.reqs[0].Filter)
	assert.Equal(t, "DC=corp,DC=local", fs.reqs[0].BaseDN)
	assert.Contains(t, fs.reqs[0].Attributes, "location")
	assert.Equal(t, DefaultPageSize, fs.pages[0])
	assert.Equal(t, int32(1), closed.Load())
}

func TestDiscoverSearchError(t *testing.T) {
	var closed atomic.Int32
	d := New(config.ActiveDirectory{Filter: "(cn=*)", PageSize: 50})
	fs := &fakeSearcher{err: errors.New("boom")}
	d.Dial = dialer(fs, &closed)

	_, err := d.Discover(context.Background())
	assert.Error(t, err)
	assert.Equal(t, "(cn=*)", fs.reqs[0].Filter)
	assert.Equal(t, uint32(50), fs.pages[0])
	assert.Equal(t, int32(1), closed.Load())
}

func TestDialRequiresURL(t *testing.T) {
	_, _, err := Dial(context.Background(), config.ActiveDirectory{})
	assert.Error(t, err)
}

func TestEnricher(t *testing.T) {
	fs := &fakeSearcher{entries: []*ldap.Entry{
		ldap.NewEntry("CN=APP01,OU=App,OU=Servers,DC=corp,DC=local", nil),
	}}
	var dials, closed atomic.Int32
	e := NewEnricher(config.ActiveDirectory{BaseDN: "DC=corp,DC=local"})
	e.Dial = func(context.Context, config.ActiveDirectory) (Searcher, func(), error) {
		dials.Add(1)
		return fs, func() { closed.Add(1) }, nil
	}

	got, err := e.Enrich(context.Background(), "app01.corp.local")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{inventory.FieldADOU: "Servers/App"}, got)

	_, err = e.Enrich(context.Background(), "app02")
	require.NoError(t, err)
	assert.Equal(t, int32(1), dials.Load())
	assert.Contains(t, fs.reqs[0].Filter, "(dNSHostName=app01.corp.local)")
	assert.Contains(t, fs.reqs[0].Filter, "(name=app01)")

	e.Close()
	assert.Equal(t, int32(1), closed.Load())
}

func TestEnricherEscapesFilter(t *testing.T) {
	fs := &fakeSearcher{}
	e := NewEnricher(config.ActiveDirectory{})
	var closed atomic.Int32
	e.Dial = dialer(fs, &closed)

	got, err := e.Enrich(context.Background(), "evil)(cn=*")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Contains(t, fs.reqs[0].Filter, `evil\29\28cn=\2a`)
}

// stuckSearcher blocks the first search until release is closed and answers
// every later search immediately.
type stuckSearcher struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *stuckSearcher) SearchWithPaging(*ldap.SearchRequest, uint32) (*ldap.SearchResult, error) {
	if s.calls.Add(1) == 1 {
		<-s.release
	}
	return &ldap.SearchResult{Entries: []*ldap.Entry{
		ldap.NewEntry("CN=X,OU=Servers,DC=corp,DC=local", nil),
	}}, nil
}

func TestEnricherSlowLookupDoesNotBlockOthers(t *testing.T) {
	ss := &stuckSearcher{release: make(chan struct{})}
	defer close(ss.release)

	var closed atomic.Int32
	e := NewEnricher(config.ActiveDirectory{})
	e.Dial = dialer(ss, &closed)

	stuck := make(chan struct{})
	go func() {
		defer close(stuck)
		_, _ = e.Enrich(context.Background(), "hung01")
	}()
	require.Eventually(t, func() bool { return ss.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	got, err := e.Enrich(ctx, "web01")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{inventory.FieldADOU: "Servers"}, got)
	assert.Less(t, time.Since(start), time.Second)

	select {
	case <-stuck:
		t.Fatal("first lookup should still be blocked")
	default:
	}
}

func TestEnricherHonorsDeadline(t *testing.T) {
	ss := &stuckSearcher{release: make(chan struct{})}
	defer close(ss.release)

	var closed atomic.Int32
	e := NewEnricher(config.ActiveDirectory{})
	e.Dial = dialer(ss, &closed)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := e.Enrich(ctx, "hung01")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEnricherDialErrorSticks(t *testing.T) {
	var dials atomic.Int32
	e := NewEnricher(config.ActiveDirectory{})
	e.Dial = func(context.Context, config.ActiveDirectory) (Searcher, func(), error) {
		dials.Add(1)
		return nil, nil, errors.New("unreachable")
	}
	_, err := e.Enrich(context.Background(), "a")
	assert.Error(t, err)
	_, err = e.Enrich(context.Background(), "b")
	assert.Error(t, err)
	assert.Equal(t, int32(1), dials.Load())

	got, err := e.Enrich(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
