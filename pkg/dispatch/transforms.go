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

// ApplyTransforms normalizes provider specific fields in place.
// Tag maps apply to azure and vsphere rows with "key=value" tags; the
// directory attribute map applies to onprem and active_directory rows.
func ApplyTransforms(row inventory.Row, t config.Transforms) {
	switch row.String(inventory.FieldProvider) {
	case inventory.ProviderAzure:
		applyTagMap(row, t.Azure.TagMap)
	case inventory.ProviderVSphere:
		applyTagMap(row, t.VSphere.TagMap)
	case inventory.ProviderOnPrem, inventory.ProviderActiveDirectory:
		applyAttributeMap(row, t.ActiveDirectory.AttributeMap)
	}
}

func applyTagMap(row inventory.Row, tagMap map[string]string) {
	if len(tagMap) == 0 {
		return
	}
	kv := make(map[string]string)
	for _, tag := range inventory.Strings(row[inventory.FieldTags]) {
		k, v, ok := strings.Cut(tag, "=")
		if !ok {
			continue
		}
		kv[k] = v
	}
	for src, dst := range tagMap {
		if v, ok := kv[src]; ok {
			row[dst] = v
		}
	}
}

func applyAttributeMap(row inventory.Row, attrMap map[string]string) {
	for src, dst := range attrMap {
		switch {
		case row.Has(src):
			row[dst] = row[src]
		case row.Has(strings.ToLower(src)):
			row[dst] = row[strings.ToLower(src)]
		}
	}
}
