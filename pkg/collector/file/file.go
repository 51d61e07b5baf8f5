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
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// Option configures a Parser.
type Option func(*Parser)

// Parser splits key/value text such as /etc/os-release, either read from a
// local file or captured from a remote command.
type Parser struct {
	delimiter    string
	kvDelimiter  string
	maxSize      int
	skipComments bool
	trimChars    string
}

// WithDelimiter sets the entry delimiter. Default is "\n".
func WithDelimiter(delim string) Option {
	return func(p *Parser) {
		p.delimiter = delim
	}
}

// WithKVDelimiter sets the key/value delimiter. Default is "=".
func WithKVDelimiter(delim string) Option {
	return func(p *Parser) {
		p.kvDelimiter = delim
	}
}

// WithMaxSize bounds the accepted input size in bytes. Default is 1MB.
func WithMaxSize(size int) Option {
	return func(p *Parser) {
		p.maxSize = size
	}
}

// WithSkipComments controls whether "#" lines are dropped. Default is true.
func WithSkipComments(skip bool) Option {
	return func(p *Parser) {
		p.skipComments = skip
	}
}

// WithTrimChars sets characters trimmed from both ends of values, for
// example `"'` for shell style files.
func WithTrimChars(chars string) Option {
	return func(p *Parser) {
		p.trimChars = chars
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		delimiter:    "\n",
		kvDelimiter:  "=",
		maxSize:      1 << 20,
		skipComments: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ReadMap reads the file at path and parses it with ParseMap.
func (p *Parser) ReadMap(path string) (map[string]string, error) {
	content, err := p.read(path)
	if err != nil {
		return nil, err
	}
	return p.ParseMap(content)
}

// ReadLines reads the file at path and parses it with ParseLines.
func (p *Parser) ReadLines(path string) ([]string, error) {
	content, err := p.read(path)
	if err != nil {
		return nil, err
	}
	return p.ParseLines(content)
}

func (p *Parser) read(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %q: %w", path, err)
	}
	return string(b), nil
}

// ParseMap splits content into entries and each entry into a key and a
// value. Entries without a delimiter map to an empty value.
func (p *Parser) ParseMap(content string) (map[string]string, error) {
	lines, err := p.ParseLines(content)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, found := strings.Cut(line, p.kvDelimiter)
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !found {
			slog.Debug("entry without value", slog.String("key", key))
		}
		value = strings.TrimSpace(value)
		if p.trimChars != "" {
			value = strings.Trim(value, p.trimChars)
		}
		out[key] = value
	}
	return out, nil
}

// ParseLines splits content on the delimiter and returns the non-empty,
// trimmed entries. Content must be valid UTF-8 and within the size limit.
func (p *Parser) ParseLines(content string) ([]string, error) {
	if len(content) > p.maxSize {
		return nil, fmt.Errorf("content exceeds maximum size of %d bytes", p.maxSize)
	}
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("content is not valid UTF-8")
	}
	parts := strings.Split(content, p.delimiter)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if p.skipComments && strings.HasPrefix(part, "#") {
			continue
		}
		out = append(out, part)
	}
	return out, nil
}

// OSRelease parses os-release content with shell quoting removed.
func OSRelease(content string) (map[string]string, error) {
	return NewParser(WithTrimChars(`"'`)).ParseMap(content)
}
