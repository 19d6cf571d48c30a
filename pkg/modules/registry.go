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

package modules

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps normalized module names to modules.
type Registry struct {
	modules map[string]Module
	mu      sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Normalize maps a module name to its registry key. Dashes and underscores
// are interchangeable.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
}

// Register adds m under name. It fails when the name is taken.
func (r *Registry) Register(name string, m Module) error {
	key := Normalize(name)
	if key == "" {
		return fmt.Errorf("module name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[key]; exists {
		return fmt.Errorf("module %s already registered", key)
	}
	r.modules[key] = m
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(name string, m Module) {
	if err := r.Register(name, m); err != nil {
		panic(err)
	}
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[Normalize(name)]
	return m, ok
}

// List returns the registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.modules))
	for k := range r.modules {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}
