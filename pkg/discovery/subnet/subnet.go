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

package subnet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/Ullaakut/nmap/v3"
	"github.com/gosnmp/gosnmp"
	"github.com/panjf2000/ants/v2"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Source is the source value of discovered targets.
const Source = "subnet_scan"

const (
	oidSysDescr = ".1.3.6.1.2.1.1.1.0"
	oidSysName  = ".1.3.6.1.2.1.1.5.0"
)

var (
	// DefaultProbePorts are probed for open_ports when none are configured.
	DefaultProbePorts = []int{22, 80, 443}

	// livenessPorts are tried by the TCP liveness check. A refused
	// connection proves the host is up.
	livenessPorts = []int{22, 80, 443, 135, 445, 3389}
)

// LivenessFunc returns the responsive subset of addrs.
type LivenessFunc func(ctx context.Context, addrs []netip.Addr) ([]netip.Addr, error)

// PortProbeFunc returns the open ports of addr.
type PortProbeFunc func(ctx context.Context, addr netip.Addr, ports []int, timeout time.Duration) []int

// SNMPFunc returns SNMP system attributes of addr.
type SNMPFunc func(ctx context.Context, addr netip.Addr) (map[string]any, error)

// Scanner discovers live addresses in the configured ranges.
type Scanner struct {
	cfg      config.SubnetScan
	threads  int
	timeout  time.Duration
	Liveness LivenessFunc
	Probe    PortProbeFunc
	SNMP     SNMPFunc
}

// New creates a Scanner. Liveness uses an nmap ping scan when use_nmap is
// set and TCP connects otherwise.
func New(cfg config.SubnetScan) *Scanner {
	s := &Scanner{
		cfg:     cfg,
		threads: cfg.Threads,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		Probe:   probePorts,
	}
	if s.threads <= 0 {
		s.threads = defaults.ScanThreads
	}
	if s.timeout <= 0 {
		s.timeout = defaults.PingTimeout
	}
	if cfg.UseNmap {
		s.Liveness = nmapLiveness
	} else {
		s.Liveness = s.tcpLiveness
	}
	if cfg.SNMP.Enabled {
		s.SNMP = s.snmpLookup
	}
	return s
}

// Discover implements the discovery step.
func (s *Scanner) Discover(ctx context.Context) ([]inventory.Target, error) {
	addrs, err := Expand(s.cfg.Targets)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, nil
	}
	slog.Info("scanning addresses", slog.Int("count", len(addrs)), slog.Int("threads", s.threads))

	live, err := s.Liveness(ctx, addrs)
	if err != nil {
		return nil, err
	}
	sort.Slice(live, func(i, j int) bool { return live[i].Less(live[j]) })

	targets := make([]inventory.Target, len(live))
	for i, a := range live {
		ip := a.String()
		targets[i] = inventory.Target{
			Host:     ip,
			IPs:      []string{ip},
			Source:   Source,
			Provider: inventory.ProviderLocalNetwork,
			Attributes: map[string]any{
				inventory.FieldOpenPorts: []int{},
			},
		}
	}

	probe := !s.cfg.IsPingOnly() && s.cfg.TCPProbe.Enabled
	if !probe && s.SNMP == nil {
		return targets, nil
	}

	ports := s.cfg.TCPProbe.Ports
	if len(ports) == 0 {
		ports = DefaultProbePorts
	}
	perPort := time.Duration(s.cfg.TCPProbe.PerPortTimeoutMS) * time.Millisecond
	if perPort <= 0 {
		perPort = defaults.PortProbeTimeout
	}

	err = s.each(ctx, len(live), func(i int) {
		attrs := targets[i].Attributes
		if probe {
			attrs[inventory.FieldOpenPorts] = s.Probe(ctx, live[i], ports, perPort)
		}
		if s.SNMP != nil {
			info, err := s.SNMP(ctx, live[i])
			if err != nil {
				slog.Debug("snmp lookup failed", slog.String("ip", live[i].String()), slog.String("error", err.Error()))
				return
			}
			for k, v := range info {
				attrs[k] = v
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}

// each runs fn for 0..n-1 on a bounded goroutine pool. Each index is
// touched by exactly one task.
func (s *Scanner) each(ctx context.Context, n int, fn func(i int)) error {
	pool, err := ants.NewPool(s.threads)
	if err != nil {
		return fmt.Errorf("failed to create scan pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		idx := i
		if err := pool.Submit(func() {
			defer wg.Done()
			fn(idx)
		}); err != nil {
			wg.Done()
			slog.Warn("scan task rejected", slog.String("error", err.Error()))
		}
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Scanner) tcpLiveness(ctx context.Context, addrs []netip.Addr) ([]netip.Addr, error) {
	alive := make([]bool, len(addrs))
	err := s.each(ctx, len(addrs), func(i int) {
		alive[i] = tcpAlive(ctx, addrs[i], livenessPorts, s.timeout)
	})
	if err != nil {
		return nil, err
	}
	var out []netip.Addr
	for i, ok := range alive {
		if ok {
			out = append(out, addrs[i])
		}
	}
	return out, nil
}

func tcpAlive(ctx context.Context, addr netip.Addr, ports []int, timeout time.Duration) bool {
	d := net.Dialer{Timeout: timeout}
	for _, p := range ports {
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(p)))
		if err == nil {
			conn.Close()
			return true
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}

func probePorts(ctx context.Context, addr netip.Addr, ports []int, timeout time.Duration) []int {
	d := net.Dialer{Timeout: timeout}
	open := []int{}
	for _, p := range ports {
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addr.String(), strconv.Itoa(p)))
		if err != nil {
			continue
		}
		conn.Close()
		open = append(open, p)
	}
	return open
}

func nmapLiveness(ctx context.Context, addrs []netip.Addr) ([]netip.Addr, error) {
	targets := make([]string, len(addrs))
	for i, a := range addrs {
		targets[i] = a.String()
	}
	scanner, err := nmap.NewScanner(ctx,
		nmap.WithTargets(targets...),
		nmap.WithPingScan(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create nmap scanner: %w", err)
	}
	result, warnings, err := scanner.Run()
	if err != nil {
		return nil, fmt.Errorf("nmap ping scan failed: %w", err)
	}
	if warnings != nil && len(*warnings) > 0 {
		slog.Debug("nmap warnings", slog.Any("warnings", *warnings))
	}
	return upHosts(result), nil
}

func upHosts(result *nmap.Run) []netip.Addr {
	if result == nil {
		return nil
	}
	var out []netip.Addr
	for _, h := range result.Hosts {
		if h.Status.State != "up" {
			continue
		}
		for _, a := range h.Addresses {
			if a.AddrType != "ipv4" && a.AddrType != "ipv6" {
				continue
			}
			if ip, err := netip.ParseAddr(a.Addr); err == nil {
				out = append(out, ip)
				break
			}
		}
	}
	return out
}

func (s *Scanner) snmpLookup(ctx context.Context, addr netip.Addr) (map[string]any, error) {
	port := s.cfg.SNMP.Port
	if port == 0 {
		port = 161
	}
	community := s.cfg.SNMP.Community
	if community == "" {
		community = "public"
	}
	g := &gosnmp.GoSNMP{
		Target:    addr.String(),
		Port:      port,
		Community: community,
		Version:   gosnmp.Version2c,
		Timeout:   defaults.SNMPTimeout,
		Retries:   1,
		Context:   ctx,
	}
	if err := g.Connect(); err != nil {
		return nil, err
	}
	defer g.Conn.Close()

	res, err := g.Get([]string{oidSysName, oidSysDescr})
	if err != nil {
		return nil, err
	}
	return snmpAttributes(res.Variables), nil
}

func snmpAttributes(vars []gosnmp.SnmpPDU) map[string]any {
	out := map[string]any{}
	for _, v := range vars {
		b, ok := v.Value.([]byte)
		if !ok || len(b) == 0 {
			continue
		}
		switch v.Name {
		case oidSysName:
			out["snmp_sysname"] = string(b)
		case oidSysDescr:
			out["snmp_sysdescr"] = string(b)
		}
	}
	return out
}
