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

package header

import (
	"time"
)

// APIVersion is the schema version of every document the CLI writes.
const APIVersion = "cmdb.inventory/v1"

// Kind identifies the type of a written document.
type Kind string

const (
	// KindInventoryReport is a collection run: discovered and collected hosts.
	KindInventoryReport Kind = "InventoryReport"
	// KindAccessReport is a user access export: groups, directory and RBAC roles.
	KindAccessReport Kind = "AccessReport"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether k is a known Kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindInventoryReport, KindAccessReport:
		return true
	default:
		return false
	}
}

// Metadata keys set by Init or the run.
const (
	MetaTimestamp = "timestamp"
	MetaVersion   = "version"
	MetaRunID     = "run-id"
	MetaWorkers   = "workers"
	MetaDryRun    = "dry-run"
)

// Header carries the kind, schema version and run metadata of a document.
type Header struct {
	Kind       Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	APIVersion string            `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Option configures a Header.
type Option func(*Header)

// WithMetadata adds one metadata entry.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

// New creates a Header of kind stamped with the current time and the tool
// version, then applies opts.
func New(kind Kind, version string, opts ...Option) *Header {
	h := &Header{
		Kind:       kind,
		APIVersion: APIVersion,
		Metadata: map[string]string{
			MetaTimestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
	if version != "" {
		h.Metadata[MetaVersion] = version
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetKind returns the Kind.
func (h *Header) GetKind() Kind {
	return h.Kind
}

// GetMetadata returns the metadata map.
func (h *Header) GetMetadata() map[string]string {
	return h.Metadata
}
