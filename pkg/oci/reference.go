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

package oci

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/distribution/reference"

	cmdberrors "github.com/jakabjo/cmdb-inventory/pkg/errors"
)

// URIScheme is the URI scheme for registry targets (e.g., "oci://ghcr.io/org/repo:tag").
const URIScheme = "oci://"

// Reference is a parsed registry target.
type Reference struct {
	Registry   string
	Repository string
	// Tag is empty when the URI names none; callers apply a default.
	Tag string
}

// ParseReference parses oci://registry/repository[:tag].
func ParseReference(uri string) (*Reference, error) {
	if !strings.HasPrefix(uri, URIScheme) {
		return nil, cmdberrors.New(cmdberrors.ErrCodeInvalidRequest,
			fmt.Sprintf("OCI reference must start with %s", URIScheme))
	}
	ref, err := reference.ParseNormalizedNamed(strings.TrimPrefix(uri, URIScheme))
	if err != nil {
		return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}

	var tag string
	if tagged, ok := ref.(reference.Tagged); ok {
		tag = tagged.Tag()
	}
	r := &Reference{
		Registry:   reference.Domain(ref),
		Repository: reference.Path(ref),
		Tag:        tag,
	}
	if err := ValidateRegistryReference(r.Registry, r.Repository); err != nil {
		return nil, err
	}
	return r, nil
}

// String returns the reference as an oci:// URI.
func (r *Reference) String() string {
	return URIScheme + r.ImageReference()
}

// ImageReference returns the Docker-style image reference.
func (r *Reference) ImageReference() string {
	if r.Tag == "" {
		return fmt.Sprintf("%s/%s", r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy of the reference with the tag replaced.
func (r *Reference) WithTag(tag string) *Reference {
	c := *r
	c.Tag = tag
	return &c
}

// ValidateRegistryReference checks that registry and repository form a
// valid image name.
func ValidateRegistryReference(registry, repository string) error {
	name := fmt.Sprintf("%s/%s", stripProtocol(registry), repository)
	if _, err := reference.ParseNormalizedNamed(name); err != nil {
		return cmdberrors.Wrap(cmdberrors.ErrCodeInvalidRequest,
			fmt.Sprintf("invalid registry reference %q", name), err)
	}
	return nil
}

// OutputConfig configures PackageAndPush.
type OutputConfig struct {
	SourceDir   string
	Files       []string
	OutputDir   string
	Reference   *Reference
	PlainHTTP   bool
	InsecureTLS bool
	Annotations map[string]string
}

// PackageAndPush packages files as an OCI artifact and pushes it.
func PackageAndPush(ctx context.Context, cfg OutputConfig) (*PushResult, error) {
	if cfg.Reference == nil {
		return nil, cmdberrors.New(cmdberrors.ErrCodeInvalidRequest, "OCI reference is required")
	}
	if cfg.Reference.Tag == "" {
		return nil, cmdberrors.New(cmdberrors.ErrCodeInvalidRequest, "tag is required for OCI packaging")
	}

	pkg, err := Package(ctx, PackageOptions{
		SourceDir:   cfg.SourceDir,
		Files:       cfg.Files,
		OutputDir:   cfg.OutputDir,
		Registry:    cfg.Reference.Registry,
		Repository:  cfg.Reference.Repository,
		Tag:         cfg.Reference.Tag,
		Annotations: cfg.Annotations,
	})
	if err != nil {
		return nil, cmdberrors.Wrap(cmdberrors.ErrCodeInternal, "failed to package OCI artifact", err)
	}
	slog.Debug("OCI artifact packaged locally",
		slog.String("reference", pkg.Reference),
		slog.String("digest", pkg.Digest))

	res, err := PushFromStore(ctx, pkg.StorePath, PushOptions{
		Registry:    cfg.Reference.Registry,
		Repository:  cfg.Reference.Repository,
		Tag:         cfg.Reference.Tag,
		PlainHTTP:   cfg.PlainHTTP,
		InsecureTLS: cfg.InsecureTLS,
	})
	if err != nil {
		return nil, cmdberrors.Wrap(cmdberrors.ErrCodeServiceUnavailable, "failed to push OCI artifact to registry", err)
	}
	slog.Info("OCI artifact pushed",
		slog.String("reference", res.Reference),
		slog.String("digest", res.Digest))
	return res, nil
}
