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

package serializer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/jakabjo/cmdb-inventory/pkg/defaults"
	"github.com/jakabjo/cmdb-inventory/pkg/header"
	"github.com/jakabjo/cmdb-inventory/pkg/k8s/client"
)

// ConfigMapURIScheme prefixes ConfigMap destinations: cm://namespace/name.
const ConfigMapURIScheme = "cm://"

// maxConfigMapBytes is the API server limit on ConfigMap size.
const maxConfigMapBytes = 1 << 20

// ConfigMapWriter stores a serialized document in a Kubernetes ConfigMap,
// creating it if needed.
type ConfigMapWriter struct {
	client    client.Interface
	namespace string
	name      string
	format    Format
}

// NewConfigMapWriter creates a writer for namespace/name using cs.
func NewConfigMapWriter(cs client.Interface, namespace, name string, format Format) *ConfigMapWriter {
	return &ConfigMapWriter{
		client:    cs,
		namespace: namespace,
		name:      name,
		format:    normalize(format),
	}
}

// Serialize writes v under data key "inventory.<ext>" together with the
// format and a timestamp. Header metadata is copied into labels when v
// carries a header.
func (w *ConfigMapWriter) Serialize(ctx context.Context, v any) error {
	writeCtx, cancel := context.WithTimeout(ctx, defaults.ConfigMapWriteTimeout)
	defer cancel()

	content, err := Marshal(w.format, v)
	if err != nil {
		return fmt.Errorf("failed to serialize inventory: %w", err)
	}
	if len(content) > maxConfigMapBytes {
		return fmt.Errorf("serialized inventory is %d bytes, exceeds ConfigMap limit of %d", len(content), maxConfigMapBytes)
	}

	kind := "Inventory"
	version := "unknown"
	timestamp := time.Now().UTC().Format(time.RFC3339)
	if h, ok := v.(interface {
		GetKind() header.Kind
		GetMetadata() map[string]string
	}); ok {
		kind = h.GetKind().String()
		md := h.GetMetadata()
		if s := md["version"]; s != "" {
			version = s
		}
		if s := md["timestamp"]; s != "" {
			timestamp = s
		}
	}

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      w.name,
			Namespace: w.namespace,
			Labels: map[string]string{
				"app.kubernetes.io/name":      "cmdb-inventory",
				"app.kubernetes.io/component": strings.ToLower(kind),
				"app.kubernetes.io/version":   version,
			},
		},
		Data: map[string]string{
			"inventory." + w.format.Extension(): string(content),
			"format":                            string(w.format),
			"timestamp":                         timestamp,
		},
	}

	cms := w.client.CoreV1().ConfigMaps(w.namespace)
	existing, err := cms.Get(writeCtx, w.name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		if _, err := cms.Create(writeCtx, cm, metav1.CreateOptions{}); err != nil {
			return fmt.Errorf("failed to create ConfigMap %s/%s: %w", w.namespace, w.name, err)
		}
	case err != nil:
		return fmt.Errorf("failed to get ConfigMap %s/%s: %w", w.namespace, w.name, err)
	default:
		existing.Labels = cm.Labels
		existing.Data = cm.Data
		if _, err := cms.Update(writeCtx, existing, metav1.UpdateOptions{}); err != nil {
			return fmt.Errorf("failed to update ConfigMap %s/%s: %w", w.namespace, w.name, err)
		}
	}

	slog.Info("wrote inventory ConfigMap",
		slog.String("namespace", w.namespace),
		slog.String("name", w.name),
		slog.Int("bytes", len(content)))
	return nil
}

// Close is a no-op.
func (w *ConfigMapWriter) Close() error {
	return nil
}

// ParseConfigMapURI splits cm://namespace/name into its parts.
func ParseConfigMapURI(uri string) (namespace, name string, err error) {
	if !strings.HasPrefix(uri, ConfigMapURIScheme) {
		return "", "", fmt.Errorf("invalid ConfigMap URI: must start with %s", ConfigMapURIScheme)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, ConfigMapURIScheme), "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid ConfigMap URI format: expected %snamespace/name, got %s", ConfigMapURIScheme, uri)
	}
	namespace = strings.TrimSpace(parts[0])
	name = strings.TrimSpace(parts[1])
	if namespace == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: namespace cannot be empty")
	}
	if name == "" {
		return "", "", fmt.Errorf("invalid ConfigMap URI: name cannot be empty")
	}
	return namespace, name, nil
}
