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
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// MaxAddresses bounds a single scan.
const MaxAddresses = 1 << 16

// Expand turns CIDRs and single addresses into a sorted, deduplicated list
// of host addresses. Network and broadcast addresses of IPv4 prefixes
// shorter than /31 are skipped, as is the subnet router address of IPv6
// prefixes shorter than /127. Unparseable entries are logged and skipped.
func Expand(targets []string) ([]netip.Addr, error) {
	var b netipx.IPSetBuilder
	for _, raw := range targets {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if r, ok := hostRange(raw); ok {
			b.AddRange(r)
			continue
		}
		slog.Warn("skipping invalid scan target", slog.String("target", raw))
	}

	set, err := b.IPSet()
	if err != nil {
		return nil, fmt.Errorf("failed to build address set: %w", err)
	}

	var out []netip.Addr
	for _, r := range set.Ranges() {
		for a := r.From(); a.IsValid() && a.Compare(r.To()) <= 0; a = a.Next() {
			if len(out) >= MaxAddresses {
				return nil, fmt.Errorf("scan targets expand to more than %d addresses", MaxAddresses)
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func hostRange(raw string) (netipx.IPRange, bool) {
	if !strings.Contains(raw, "/") {
		a, err := netip.ParseAddr(raw)
		if err != nil {
			return netipx.IPRange{}, false
		}
		return netipx.IPRangeFrom(a, a), true
	}

	p, err := netip.ParsePrefix(raw)
	if err != nil {
		return netipx.IPRange{}, false
	}
	p = p.Masked()
	first, last := p.Addr(), netipx.PrefixLastIP(p)
	switch {
	case p.Addr().Is4() && p.Bits() <= 30:
		first, last = first.Next(), last.Prev()
	case p.Addr().Is6() && p.Bits() < 127:
		first = first.Next()
	}
	return netipx.IPRangeFrom(first, last), true
}
