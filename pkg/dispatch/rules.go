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
	"strings"

	"github.com/jakabjo/cmdb-inventory/pkg/config"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Backend names a collector.
type Backend string

const (
	BackendWindows Backend = "windows"
	BackendLinux   Backend = "linux"
)

// Rule selects a backend for targets it matches.
type Rule struct {
	Name    string
	Match   func(t inventory.Target, f config.CollectionFeatures) bool
	Backend Backend
}

// linuxProviders are collected over SSH regardless of the OS hint.
var linuxProviders = map[string]bool{
	inventory.ProviderVSphere:      true,
	inventory.ProviderOnPrem:       true,
	inventory.ProviderLocalNetwork: true,
}

// Rules is the decision table, evaluated top to bottom. The first match
// wins. Targets matching no rule use the fallback.
var Rules = []Rule{
	{
		Name: "windows hint",
		Match: func(t inventory.Target, f config.CollectionFeatures) bool {
			hint := strings.ToLower(t.OSHint)
			return f.Windows && (hint == "windows" ||
				(t.Provider == inventory.ProviderAzure && strings.Contains(hint, "win")))
		},
		Backend: BackendWindows,
	},
	{
		Name: "linux hint or provider",
		Match: func(t inventory.Target, f config.CollectionFeatures) bool {
			hint := strings.ToLower(t.OSHint)
			return f.Linux && (hint == "linux" || linuxProviders[t.Provider])
		},
		Backend: BackendLinux,
	},
}

// Select returns the backend of the first matching rule, or false when
// the fallback applies.
func Select(t inventory.Target, f config.CollectionFeatures) (Backend, bool) {
	for _, r := range Rules {
		if r.Match(t, f) {
			return r.Backend, true
		}
	}
	return "", false
}
