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

// APIVersion is the schema version of every persisted condense document.
const APIVersion = "condense.nvidia.com/v1"

// Kind identifies the type of a persisted or printed document.
type Kind string

const (
	KindInstanceSnapshot Kind = "InstanceSnapshot"
	KindQueryResult      Kind = "QueryResult"
	KindRunReport        Kind = "RunReport"
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid checks if the Kind is one of the recognized kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindInstanceSnapshot, KindQueryResult, KindRunReport:
		return true
	default:
		return false
	}
}

// Header carries the kind, schema version and free-form metadata of a
// document.
type Header struct {
	Kind       Kind              `json:"kind,omitempty" yaml:"kind,omitempty"`
	APIVersion string            `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Option is a functional option for configuring Header instances.
type Option func(*Header)

// WithMetadata adds a metadata key-value pair.
func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

// New returns a Header of kind at the current APIVersion, stamped with the
// creation time.
func New(kind Kind, opts ...Option) *Header {
	h := &Header{}
	h.Init(kind, "")
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init resets h to kind at the current APIVersion and records timestamp and,
// when set, version in the metadata.
func (h *Header) Init(kind Kind, version string) {
	h.Kind = kind
	h.APIVersion = APIVersion
	h.Metadata = map[string]string{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if version != "" {
		h.Metadata["version"] = version
	}
}

// Matches reports whether h describes a document of kind at the current
// APIVersion.
func (h *Header) Matches(kind Kind) bool {
	return h != nil && h.Kind == kind && h.APIVersion == APIVersion
}
