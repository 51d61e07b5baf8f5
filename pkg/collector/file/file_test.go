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

package file

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ubuntuRelease = `PRETTY_NAME="Ubuntu 22.04.4 LTS"
NAME="Ubuntu"
VERSION_ID="22.04"
# comment
ID=ubuntu

ID_LIKE=debian
`

func TestOSRelease(t *testing.T) {
	m, err := OSRelease(ubuntuRelease)
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu 22.04.4 LTS", m["PRETTY_NAME"])
	assert.Equal(t, "22.04", m["VERSION_ID"])
	assert.Equal(t, "ubuntu", m["ID"])
	assert.NotContains(t, m, "# comment")
	assert.Len(t, m, 5)
}

func TestParseMapOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		content string
		want    map[string]string
	}{
		{
			name:    "custom delimiters",
			opts:    []Option{WithDelimiter(";"), WithKVDelimiter(":")},
			content: "a: 1; b:2;;c",
			want:    map[string]string{"a": "1", "b": "2", "c": ""},
		},
		{
			name:    "comments kept",
			opts:    []Option{WithSkipComments(false)},
			content: "#x=1\ny=2",
			want:    map[string]string{"#x": "1", "y": "2"},
		},
		{
			name:    "empty key dropped",
			content: "=v\nk=v=w",
			want:    map[string]string{"k": "v=w"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser(tt.opts...).ParseMap(tt.content)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLinesLimits(t *testing.T) {
	_, err := NewParser(WithMaxSize(4)).ParseLines("too long")
	assert.Error(t, err)

	_, err = NewParser().ParseLines(string([]byte{0xff, 0xfe}))
	assert.Error(t, err)

	lines, err := NewParser().ParseLines("  a \n\n b\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "os-release")
	require.NoError(t, os.WriteFile(path, []byte(ubuntuRelease), 0o600))

	m, err := NewParser(WithTrimChars(`"`)).ReadMap(path)
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", m["NAME"])

	lines, err := NewParser().ReadLines(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(lines[0], "PRETTY_NAME"))

	_, err = NewParser().ReadMap(filepath.Join(dir, "missing"))
	assert.Error(t, err)
	_, err = NewParser().ReadLines("")
	assert.Error(t, err)
}
