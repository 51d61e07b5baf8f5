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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	h := New(KindInventoryReport, "v1.2.0", WithMetadata(MetaRunID, "abc"))

	assert.Equal(t, KindInventoryReport, h.GetKind())
	assert.Equal(t, APIVersion, h.APIVersion)
	assert.Equal(t, "v1.2.0", h.GetMetadata()[MetaVersion])
	assert.Equal(t, "abc", h.GetMetadata()[MetaRunID])

	ts, err := time.Parse(time.RFC3339, h.Metadata[MetaTimestamp])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestNewWithoutVersion(t *testing.T) {
	h := New(KindAccessReport, "")
	assert.NotContains(t, h.Metadata, MetaVersion)
}

func TestWithMetadataOnEmptyHeader(t *testing.T) {
	h := &Header{}
	WithMetadata("k", "v")(h)
	assert.Equal(t, "v", h.Metadata["k"])
}

func TestKindIsValid(t *testing.T) {
	assert.True(t, KindInventoryReport.IsValid())
	assert.True(t, KindAccessReport.IsValid())
	assert.False(t, Kind("Snapshot").IsValid())
	assert.Equal(t, "AccessReport", KindAccessReport.String())
}
