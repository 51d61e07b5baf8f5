package dispatch

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDNS(t *testing.T, handler dns.HandlerFunc) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &dns.Server{PacketConn: pc, Handler: handler}
	started := make(chan struct{})
	srv.NotifyStartedFunc = func() { close(started) }
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestDNSResolverPTR(t *testing.T) {
	addr := startDNS(t, func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		if r.Question[0].Name == "5.0.0.10.in-addr.arpa." {
			m.Answer = append(m.Answer, &dns.PTR{
				Hdr: dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
				Ptr: "web01.corp.example.com.",
			})
		} else {
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	r := NewDNSResolver([]string{addr})
	r.fallback = func(context.Context, string) ([]string, error) { return nil, errors.New("no fallback") }

	name, err := r.LookupAddr(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	assert.Equal(t, "web01.corp.example.com", name)

	_, err = r.LookupAddr(context.Background(), "10.0.0.6")
	assert.Error(t, err)
}

func TestDNSResolverFallback(t *testing.T) {
	r := &DNSResolver{
		lifetime: time.Second,
		client:   &dns.Client{Timeout: time.Second},
		fallback: func(context.Context, string) ([]string, error) { return []string{"host.lan."}, nil },
	}
	name, err := r.LookupAddr(context.Background(), "192.168.1.1")
	require.NoError(t, err)
	assert.Equal(t, "host.lan", name)
}

func TestDNSResolverFallbackAfterServerTimeout(t *testing.T) {
	// A server that never answers uses up the whole lifetime.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	var fallbackErr error
	r := &DNSResolver{
		servers:  []string{pc.LocalAddr().String()},
		lifetime: 100 * time.Millisecond,
		client:   &dns.Client{Timeout: time.Second},
		fallback: func(ctx context.Context, _ string) ([]string, error) {
			fallbackErr = ctx.Err()
			return []string{"slow.lan."}, nil
		},
	}
	name, err := r.LookupAddr(context.Background(), "192.168.1.7")
	require.NoError(t, err)
	assert.NoError(t, fallbackErr)
	assert.Equal(t, "slow.lan", name)
}

func TestDNSResolverInvalidAddress(t *testing.T) {
	_, err := NewDNSResolver([]string{"127.0.0.1"}).LookupAddr(context.Background(), "not-an-ip")
	assert.Error(t, err)
}

func TestDNSDomain(t *testing.T) {
	tests := map[string]string{
		"web01.eu.corp.com":  "corp.com",
		"host.example.co.uk": "example.co.uk",
		"WEB01.Corp.COM.":    "corp.com",
		"localhost":          "",
		"10.0.0.1":           "",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, DNSDomain(in), in)
	}
}
