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
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Reader decodes a single JSON or YAML document. Table output is write-only.
type Reader struct {
	format Format
	input  io.Reader
	closer io.Closer
}

// NewReader decodes from input. When input is an io.Closer, Close closes it.
func NewReader(format Format, input io.Reader) (*Reader, error) {
	switch format {
	case FormatJSON, FormatYAML:
	case FormatTable:
		return nil, fmt.Errorf("format %s is write-only", format)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	r := &Reader{format: format, input: input}
	if c, ok := input.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

// OpenFile returns a Reader over the file at path. Open errors are wrapped,
// so errors.Is(err, fs.ErrNotExist) still reports a missing file.
func OpenFile(format Format, path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	r, err := NewReader(format, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// Deserialize decodes the document into v, which must be a pointer.
func (r *Reader) Deserialize(v any) error {
	if r == nil || r.input == nil {
		return fmt.Errorf("reader has no input")
	}

	var err error
	if r.format == FormatYAML {
		err = yaml.NewDecoder(r.input).Decode(v)
	} else {
		err = json.NewDecoder(r.input).Decode(v)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", r.format, err)
	}
	return nil
}

// Close closes the underlying input, if closeable. Safe on nil and when
// called twice.
func (r *Reader) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

// ReadFile decodes the document at path into a new T.
func ReadFile[T any](format Format, path string) (*T, error) {
	r, err := OpenFile(format, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out T
	if err := r.Deserialize(&out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &out, nil
}
