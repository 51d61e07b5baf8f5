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

package export

import (
	"context"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/inventory"
	"github.com/jakabjo/cmdb-inventory/pkg/k8s/client"
	"github.com/jakabjo/cmdb-inventory/pkg/oci"
	"github.com/jakabjo/cmdb-inventory/pkg/serializer"
)

// ConfigMapSink stores the YAML report in the Kubernetes ConfigMap named
// ConfigMap.
type ConfigMapSink struct {
	Namespace  string
	ConfigMap  string
	Kubeconfig string
	Meta       Meta

	// Client overrides the client built from Kubeconfig.
	Client client.Interface
}

// Name implements Sink.
func (s *ConfigMapSink) Name() string { return "configmap" }

// Write serializes the report as YAML into the ConfigMap, creating it when
// missing. The namespace defaults to "default".
func (s *ConfigMapSink) Write(ctx context.Context, rows []inventory.Row) error {
	cs := s.Client
	if cs == nil {
		var err error
		if cs, _, err = client.BuildKubeClient(s.Kubeconfig); err != nil {
			return err
		}
	}
	ns := s.Namespace
	if ns == "" {
		ns = "default"
	}
	return serializer.NewConfigMapWriter(cs, ns, s.ConfigMap, serializer.FormatYAML).
		Serialize(ctx, NewReport(s.Meta, rows))
}

// OCISink pushes the written report files as one artifact.
type OCISink struct {
	Dir         string
	Files       []string
	Reference   *oci.Reference
	PlainHTTP   bool
	InsecureTLS bool
	Title       string
	Meta        Meta

	// Push overrides oci.PackageAndPush.
	Push func(ctx context.Context, cfg oci.OutputConfig) (*oci.PushResult, error)
}

// Name implements Sink.
func (s *OCISink) Name() string { return "oci" }

// Write pushes the report files already on disk. Rows are ignored.
func (s *OCISink) Write(ctx context.Context, _ []inventory.Row) error {
	push := s.Push
	if push == nil {
		push = oci.PackageAndPush
	}
	ctx, cancel := context.WithTimeout(ctx, defaults.OCIPushTimeout)
	defer cancel()
	_, err := push(ctx, oci.OutputConfig{
		SourceDir:   s.Dir,
		Files:       s.Files,
		OutputDir:   s.Dir,
		Reference:   s.Reference,
		PlainHTTP:   s.PlainHTTP,
		InsecureTLS: s.InsecureTLS,
		Annotations: map[string]string{
			"org.opencontainers.image.title":   s.Title,
			"org.opencontainers.image.version": s.Meta.Version,
			"io.cmdb.inventory.run-id":         s.Meta.RunID,
		},
	})
	return err
}
