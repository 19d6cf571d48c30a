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

package datasource

import (
	"log/slog"
	"strings"
	"sync"
)

// MatchMode selects how a descriptor's dependencies are compared with the
// available capabilities.
type MatchMode int

const (
	// MatchExact keeps descriptors whose dependencies equal the available set.
	MatchExact MatchMode = iota
	// MatchSubset keeps descriptors whose dependencies are all available.
	MatchSubset
)

// Registry maps provider family names to their descriptors.
type Registry struct {
	mu       sync.RWMutex
	families map[string][]Descriptor
	names    []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string][]Descriptor)}
}

// Register adds descriptors to a family. Family names are case-insensitive.
func (r *Registry) Register(family string, descs ...Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(family)
	if _, ok := r.families[key]; !ok {
		r.names = append(r.names, family)
	}
	r.families[key] = append(r.families[key], descs...)
}

// Families returns the registered family names in registration order.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.names...)
}

// List returns the descriptors of the named families whose dependencies
// match available, in the order the families are named and, within a
// family, in registration order. Unknown families are logged and skipped.
func (r *Registry) List(families []string, available Dependencies, mode MatchMode) []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Descriptor
	for _, family := range families {
		descs, ok := r.families[strings.ToLower(family)]
		if !ok {
			slog.Warn("unknown data source family", "family", family)
			continue
		}
		for _, d := range descs {
			var match bool
			switch mode {
			case MatchSubset:
				match = d.Dependencies.SubsetOf(available)
			default:
				match = d.Dependencies.Equal(available)
			}
			if match {
				out = append(out, d)
			}
		}
	}
	return out
}
