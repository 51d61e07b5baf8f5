package activedirectory

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/errors"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

const (
	// Source is the source value of discovered targets.
	Source = "active_directory"

	// DefaultFilter selects computer objects.
	DefaultFilter = "(&(objectCategory=computer)(objectClass=computer))"

	// DefaultPageSize is the paged search size when none is configured.
	DefaultPageSize uint32 = 500

	attrDNSHostName = "dNSHostName"
	attrName        = "name"
	attrOS          = "operatingSystem"
	attrOSVersion   = "operatingSystemVersion"
	attrDN          = "distinguishedName"
)

var baseAttributes = []string{attrDNSHostName, attrName, attrOS, attrOSVersion, attrDN}

// Searcher runs paged LDAP searches. *ldap.Conn satisfies it.
type Searcher interface {
	SearchWithPaging(req *ldap.SearchRequest, pagingSize uint32) (*ldap.SearchResult, error)
}

// DialFunc opens an authenticated Searcher and returns its close function.
type DialFunc func(ctx context.Context, cfg config.ActiveDirectory) (Searcher, func(), error)

// Discoverer lists computer objects from the directory.
type Discoverer struct {
	cfg  config.ActiveDirectory
	Dial DialFunc
}

// New creates a Discoverer for cfg.
func New(cfg config.ActiveDirectory) *Discoverer {
	return &Discoverer{cfg: cfg, Dial: Dial}
}

// Dial connects to cfg.URL, upgrades with StartTLS when configured and binds.
func Dial(ctx context.Context, cfg config.ActiveDirectory) (Searcher, func(), error) {
	if cfg.URL == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidRequest, "active directory url is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // opt-in for lab directories
	conn, err := ldap.DialURL(cfg.URL,
		ldap.DialWithDialer(&net.Dialer{Timeout: defaults.LDAPDialTimeout}),
		ldap.DialWithTLSConfig(tlsCfg),
	)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeServiceUnavailable, "failed to connect to directory", err)
	}
	conn.SetTimeout(defaults.LDAPRequestTimeout)
	closeFn := func() { _ = conn.Close() }

	if cfg.StartTLS {
		if err := conn.StartTLS(tlsCfg); err != nil {
			closeFn()
			return nil, nil, errors.Wrap(errors.ErrCodeServiceUnavailable, "starttls failed", err)
		}
	}
	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			closeFn()
			return nil, nil, errors.Wrap(errors.ErrCodeUnauthorized, "directory bind failed", err)
		}
	}
	return conn, closeFn, nil
}

// Discover implements the discovery step.
func (d *Discoverer) Discover(ctx context.Context) ([]inventory.Target, error) {
	s, closeFn, err := d.Dial(ctx, d.cfg)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	filter := d.cfg.Filter
	if filter == "" {
		filter = DefaultFilter
	}
	attrs := append(append([]string{}, baseAttributes...), d.cfg.Attributes...)

	res, err := s.SearchWithPaging(d.searchRequest(filter, attrs), d.pageSize())
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "computer search failed", err)
	}

	targets := make([]inventory.Target, 0, len(res.Entries))
	for _, e := range res.Entries {
		t, ok := d.toTarget(e)
		if !ok {
			continue
		}
		targets = append(targets, t)
	}
	slog.Debug("directory search complete", slog.Int("entries", len(res.Entries)), slog.Int("targets", len(targets)))
	return targets, nil
}

func (d *Discoverer) searchRequest(filter string, attrs []string) *ldap.SearchRequest {
	return ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		filter,
		attrs,
		nil,
	)
}

func (d *Discoverer) pageSize() uint32 {
	if d.cfg.PageSize > 0 {
		return d.cfg.PageSize
	}
	return DefaultPageSize
}

func (d *Discoverer) toTarget(e *ldap.Entry) (inventory.Target, bool) {
	host := e.GetAttributeValue(attrDNSHostName)
	if host == "" {
		host = e.GetAttributeValue(attrName)
	}
	if host == "" {
		return inventory.Target{}, false
	}

	dn := e.DN
	if dn == "" {
		dn = e.GetAttributeValue(attrDN)
	}
	osName := e.GetAttributeValue(attrOS)

	attrs := map[string]any{}
	if ou := OUPath(dn); ou != "" {
		attrs[inventory.FieldADOU] = ou
	}
	if dn != "" {
		attrs["ad_dn"] = dn
	}
	if osName != "" {
		attrs["ad_operating_system"] = osName
	}
	if v := e.GetAttributeValue(attrOSVersion); v != "" {
		attrs["ad_operating_system_version"] = v
	}
	for _, a := range d.cfg.Attributes {
		if v := e.GetAttributeValues(a); len(v) == 1 {
			attrs[a] = v[0]
		} else if len(v) > 1 {
			attrs[a] = v
		}
	}

	return inventory.Target{
		Host:       host,
		OSHint:     OSHint(osName),
		Source:     Source,
		Provider:   inventory.ProviderOnPrem,
		Attributes: attrs,
	}, true
}

// OSHint maps an operatingSystem value to windows or linux.
func OSHint(operatingSystem string) string {
	s := strings.ToLower(operatingSystem)
	switch {
	case s == "":
		return ""
	case strings.Contains(s, "windows"):
		return "windows"
	case strings.Contains(s, "linux"), strings.Contains(s, "ubuntu"), strings.Contains(s, "red hat"),
		strings.Contains(s, "centos"), strings.Contains(s, "debian"), strings.Contains(s, "suse"):
		return "linux"
	}
	return ""
}

// OUPath returns the organizational units of dn joined top-down with "/".
// For CN=web01,OU=Web,OU=Servers,DC=corp,DC=local it returns Servers/Web.
func OUPath(dn string) string {
	if dn == "" {
		return ""
	}
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return ""
	}
	var ous []string
	for _, rdn := range parsed.RDNs {
		for _, a := range rdn.Attributes {
			if strings.EqualFold(a.Type, "OU") {
				ous = append(ous, a.Value)
			}
		}
	}
	for i, j := 0, len(ous)-1; i < j; i, j = i+1, j-1 {
		ous[i], ous[j] = ous[j], ous[i]
	}
	return strings.Join(ous, "/")
}

// Enricher looks up the OU of hosts found by other sources. It holds one
// connection, opened on first use and shared by concurrent callers. Only
// the dial is serialized; lookups run concurrently and honor ctx.
type Enricher struct {
	cfg  config.ActiveDirectory
	Dial DialFunc

	mu      sync.Mutex
	s       Searcher
	closeFn func()
	dialErr error
}

// NewEnricher creates an Enricher for cfg.
func NewEnricher(cfg config.ActiveDirectory) *Enricher {
	return &Enricher{cfg: cfg, Dial: Dial}
}

// Enrich returns the ad_ou field for host, or an empty map when the host is
// not in the directory.
func (e *Enricher) Enrich(ctx context.Context, host string) (map[string]any, error) {
	if host == "" {
		return map[string]any{}, nil
	}

	s, err := e.searcher(ctx)
	if err != nil {
		return nil, err
	}

	short := host
	if i := strings.IndexByte(host, '.'); i > 0 {
		short = host[:i]
	}
	filter := fmt.Sprintf("(&(objectClass=computer)(|(dNSHostName=%s)(name=%s)))",
		ldap.EscapeFilter(host), ldap.EscapeFilter(short))
	req := ldap.NewSearchRequest(e.cfg.BaseDN, ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		1, 0, false, filter, []string{attrDN}, nil)

	res, err := search(ctx, s, req)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeInternal, "ou lookup failed", err,
			map[string]any{"host": host})
	}
	if len(res.Entries) == 0 {
		return map[string]any{}, nil
	}
	dn := res.Entries[0].DN
	if dn == "" {
		dn = res.Entries[0].GetAttributeValue(attrDN)
	}
	ou := OUPath(dn)
	if ou == "" {
		return map[string]any{}, nil
	}
	return map[string]any{inventory.FieldADOU: ou}, nil
}

// searcher returns the shared connection, dialing it on first use. A dial
// failure is kept and returned to every later caller.
func (e *Enricher) searcher(ctx context.Context) (Searcher, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.s != nil {
		return e.s, nil
	}
	if e.dialErr != nil {
		return nil, e.dialErr
	}
	s, closeFn, err := e.Dial(ctx, e.cfg)
	if err != nil {
		e.dialErr = err
		return nil, err
	}
	e.s, e.closeFn = s, closeFn
	return s, nil
}

// search runs req on s but gives up when ctx is done. The abandoned search
// is still bounded by the connection request timeout.
func search(ctx context.Context, s Searcher, req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	type result struct {
		res *ldap.SearchResult
		err error
	}
	done := make(chan result, 1)
	go func() {
		res, err := s.SearchWithPaging(req, 1)
		done <- result{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.res, r.err
	}
}

// Close releases the shared connection.
func (e *Enricher) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closeFn != nil {
		e.closeFn()
	}
	e.s, e.closeFn = nil, nil
}
