// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dispatch

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/net/publicsuffix"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
)

// ReverseResolver maps an IP address to a host name.
type ReverseResolver interface {
	LookupAddr(ctx context.Context, ip string) (string, error)
}

// DNSResolver issues PTR queries against the configured servers and falls
// back to the system resolver when they give no answer.
type DNSResolver struct {
	servers  []string
	lifetime time.Duration
	client   *dns.Client
	fallback func(ctx context.Context, addr string) ([]string, error)
}

// NewDNSResolver creates a resolver. With no servers, the nameservers of
// /etc/resolv.conf are queried.
func NewDNSResolver(servers []string) *DNSResolver {
	if len(servers) == 0 {
		if cc, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
			servers = cc.Servers
		}
	}
	return &DNSResolver{
		servers:  servers,
		lifetime: defaults.DNSLifetime,
		client:   &dns.Client{Timeout: defaults.DNSLifetime},
		fallback: net.DefaultResolver.LookupAddr,
	}
}

// LookupAddr returns the first PTR name of ip without the trailing dot.
func (r *DNSResolver) LookupAddr(ctx context.Context, ip string) (string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", ip, err)
	}

	if name := r.queryServers(ctx, arpa); name != "" {
		return name, nil
	}

	if r.fallback == nil {
		return "", nil
	}
	// The servers may have used up their lifetime; the fallback gets its own.
	fctx, cancel := context.WithTimeout(ctx, r.lifetime)
	defer cancel()
	names, err := r.fallback(fctx, ip)
	if err != nil || len(names) == 0 {
		return "", err
	}
	return strings.TrimSuffix(names[0], "."), nil
}

func (r *DNSResolver) queryServers(ctx context.Context, arpa string) string {
	ctx, cancel := context.WithTimeout(ctx, r.lifetime)
	defer cancel()

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	m.RecursionDesired = true

	for _, server := range r.servers {
		if ctx.Err() != nil {
			break
		}
		resp, _, err := r.client.ExchangeContext(ctx, m, serverAddr(server))
		if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
			continue
		}
		if name := firstPTR(resp.Answer); name != "" {
			return name
		}
	}
	return ""
}

func serverAddr(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

func firstPTR(answers []dns.RR) string {
	for _, rr := range answers {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// DNSDomain returns the registrable domain of name, for example corp.com
// for web01.eu.corp.com. Single label names yield "".
func DNSDomain(name string) string {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if !strings.Contains(name, ".") || net.ParseIP(name) != nil {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return ""
	}
	return d
}
