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

package platform

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"
)

// Option configures a Parser.
type Option func(*Parser)

// Parser splits small text files (os-release, /proc entries, hosts) into
// lines or key/value pairs.
type Parser struct {
	maxSize      int
	skipComments bool
	stripInline  bool
	kvDelimiter  string
	vTrimChars   string
}

// WithMaxSize sets the largest file the parser will read.
func WithMaxSize(size int) Option {
	return func(p *Parser) {
		p.maxSize = size
	}
}

// WithKVDelimiter sets the separator between key and value.
func WithKVDelimiter(kvDelim string) Option {
	return func(p *Parser) {
		p.kvDelimiter = kvDelim
	}
}

// WithVTrimChars sets characters trimmed from both ends of each value.
func WithVTrimChars(trimChars string) Option {
	return func(p *Parser) {
		p.vTrimChars = trimChars
	}
}

// WithInlineComments drops everything after a '#' on each line.
func WithInlineComments(strip bool) Option {
	return func(p *Parser) {
		p.stripInline = strip
	}
}

// NewParser returns a Parser that skips blank and comment lines.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		maxSize:      1 << 20,
		skipComments: true,
		kvDelimiter:  "=",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetLines returns the trimmed, non-empty lines of the file at path.
func (p *Parser) GetLines(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	if len(b) > p.maxSize {
		return nil, fmt.Errorf("file %q exceeds maximum size of %d bytes", path, p.maxSize)
	}
	if !utf8.Valid(b) {
		return nil, fmt.Errorf("content of file %q is not valid UTF-8", path)
	}

	parts := strings.Split(string(b), "\n")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if p.stripInline {
			if i := strings.IndexByte(part, '#'); i >= 0 {
				part = part[:i]
			}
		}
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		if p.skipComments && strings.HasPrefix(clean, "#") {
			continue
		}
		result = append(result, clean)
	}
	return result, nil
}

// GetMap returns the key/value pairs of the file at path. Lines without the
// delimiter and entries with empty values are skipped.
func (p *Parser) GetMap(path string) (map[string]string, error) {
	lines, err := p.GetLines(path)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(lines))
	for _, line := range lines {
		kv := strings.SplitN(line, p.kvDelimiter, 2)
		if len(kv) != 2 {
			slog.Debug("skipping line without delimiter", "path", path, "line", line)
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		if p.vTrimChars != "" {
			value = strings.Trim(value, p.vTrimChars)
		}
		if value == "" {
			continue
		}
		result[key] = value
	}
	return result, nil
}
