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

package projector

import (
	"strings"

	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
)

// Project applies the include filter and then the exclude filter to every
// row. Empty lists disable the corresponding filter. Input rows are not
// modified. A field named in both lists is always absent from the result.
func Project(rows []inventory.Row, include, exclude []string) []inventory.Row {
	if len(rows) == 0 || (len(include) == 0 && len(exclude) == 0) {
		return rows
	}

	keep := toSet(include)
	drop := toSet(exclude)

	out := make([]inventory.Row, 0, len(rows))
	for _, row := range rows {
		projected := make(inventory.Row, len(row))
		for k, v := range row {
			if len(keep) > 0 {
				if _, ok := keep[k]; !ok {
					continue
				}
			}
			if _, ok := drop[k]; ok {
				continue
			}
			projected[k] = v
		}
		out = append(out, projected)
	}
	return out
}

// ParseList splits a comma separated field list, trimming blanks and
// dropping empty entries.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
