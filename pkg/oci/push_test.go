/*
Copyright © 2025 NVIDIA Corporation
SPDX-License-Identifier: Apache-2.0
*/
package oci

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/content/oci"
)

func TestStripProtocol(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "https prefix", input: "https://ghcr.io", expected: "ghcr.io"},
		{name: "http prefix", input: "http://localhost:5000", expected: "localhost:5000"},
		{name: "no prefix", input: "registry.example.com", expected: "registry.example.com"},
		{name: "https with path", input: "https://ghcr.io/ops", expected: "ghcr.io/ops"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripProtocol(tt.input); got != tt.expected {
				t.Errorf("stripProtocol(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMediaTypeFor(t *testing.T) {
	tests := map[string]string{
		"inventory.json": "application/json",
		"inventory.CSV":  "text/csv",
		"inventory.html": "text/html",
		"report.yaml":    "application/yaml",
		"inventory.db":   "application/vnd.sqlite3",
		"notes":          "application/octet-stream",
	}
	for in, want := range tests {
		if got := MediaTypeFor(in); got != want {
			t.Errorf("MediaTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPushFromStore_EmptyTag(t *testing.T) {
	_, err := PushFromStore(context.Background(), "/nonexistent", PushOptions{
		Registry:   "localhost:5000",
		Repository: "test/repo",
	})
	if err == nil || err.Error() != "tag is required to push OCI image" {
		t.Errorf("PushFromStore() error = %v, want tag error", err)
	}
}

func TestPushFromStore_InvalidReference(t *testing.T) {
	_, err := PushFromStore(context.Background(), "/nonexistent", PushOptions{
		Registry:   "invalid registry with spaces",
		Repository: "test/repo",
		Tag:        "v1.0.0",
	})
	if err == nil {
		t.Error("PushFromStore() expected error for invalid registry, got nil")
	}
}

func TestPackage_Validation(t *testing.T) {
	ctx := context.Background()
	base := PackageOptions{
		SourceDir:  ".",
		Files:      []string{"a.json"},
		OutputDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "test/repo",
		Tag:        "v1",
	}

	tests := []struct {
		name   string
		mutate func(*PackageOptions)
		want   string
	}{
		{"missing tag", func(o *PackageOptions) { o.Tag = "" }, "tag is required for OCI packaging"},
		{"missing registry", func(o *PackageOptions) { o.Registry = "" }, "registry is required for OCI packaging"},
		{"missing repository", func(o *PackageOptions) { o.Repository = "" }, "repository is required for OCI packaging"},
		{"no files", func(o *PackageOptions) { o.Files = nil }, "no files to package"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)
			_, err := Package(ctx, opts)
			if err == nil || err.Error() != tt.want {
				t.Errorf("Package() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestPackage_CreatesOCILayout(t *testing.T) {
	ctx := context.Background()

	sourceDir := t.TempDir()
	files := map[string]string{
		"inventory.json": `[{"host":"web01"}]`,
		"inventory.csv":  "host\nweb01\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(sourceDir, name), []byte(body), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	result, err := Package(ctx, PackageOptions{
		SourceDir:   sourceDir,
		Files:       []string{"inventory.json", "inventory.csv"},
		OutputDir:   t.TempDir(),
		Registry:    "ghcr.io",
		Repository:  "ops/cmdb",
		Tag:         "run-1",
		Annotations: map[string]string{ociv1.AnnotationTitle: "CMDB Inventory"},
	})
	if err != nil {
		t.Fatalf("Package() error = %v", err)
	}
	if result.Reference != "ghcr.io/ops/cmdb:run-1" {
		t.Errorf("Reference = %q", result.Reference)
	}
	if _, statErr := os.Stat(filepath.Join(result.StorePath, "oci-layout")); statErr != nil {
		t.Fatalf("oci-layout missing: %v", statErr)
	}

	store, err := oci.New(result.StorePath)
	if err != nil {
		t.Fatalf("oci.New() error = %v", err)
	}
	desc, err := store.Resolve(ctx, "run-1")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if desc.Digest.String() != result.Digest {
		t.Errorf("digest = %s, want %s", desc.Digest, result.Digest)
	}

	raw, err := content.FetchAll(ctx, store, desc)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	var manifest ociv1.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if manifest.ArtifactType != ArtifactType {
		t.Errorf("ArtifactType = %q", manifest.ArtifactType)
	}
	if len(manifest.Layers) != 2 {
		t.Fatalf("layers = %d, want 2", len(manifest.Layers))
	}
	if manifest.Layers[0].MediaType != "application/json" || manifest.Layers[1].MediaType != "text/csv" {
		t.Errorf("unexpected layer media types: %s, %s", manifest.Layers[0].MediaType, manifest.Layers[1].MediaType)
	}
	if manifest.Annotations[ociv1.AnnotationTitle] != "CMDB Inventory" {
		t.Errorf("missing title annotation: %v", manifest.Annotations)
	}
}

func TestPackage_MissingFile(t *testing.T) {
	_, err := Package(context.Background(), PackageOptions{
		SourceDir:  t.TempDir(),
		Files:      []string{"absent.json"},
		OutputDir:  t.TempDir(),
		Registry:   "ghcr.io",
		Repository: "ops/cmdb",
		Tag:        "v1",
	})
	if err == nil {
		t.Error("Package() expected error for missing file")
	}
}
