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
	"context"
	"slices"
	"strings"

	"github.com/NVIDIA/condense/pkg/config"
	cerrors "github.com/NVIDIA/condense/pkg/errors"
)

// Dependency is a capability a provider needs before it can probe.
type Dependency string

const (
	DepFilesystem Dependency = "FILESYSTEM"
	DepNetwork    Dependency = "NETWORK"
)

// Dependencies is a set of capabilities. Order and duplicates are ignored.
type Dependencies []Dependency

func (d Dependencies) has(dep Dependency) bool {
	return slices.Contains(d, dep)
}

// SubsetOf reports whether every dependency in d is also in other.
func (d Dependencies) SubsetOf(other Dependencies) bool {
	for _, dep := range d {
		if !other.has(dep) {
			return false
		}
	}
	return true
}

// Equal reports whether d and other hold the same dependencies.
func (d Dependencies) Equal(other Dependencies) bool {
	return d.SubsetOf(other) && other.SubsetOf(d)
}

func (d Dependencies) String() string {
	s := make([]string, len(d))
	for i, dep := range d {
		s[i] = string(dep)
	}
	return "[" + strings.Join(s, ",") + "]"
}

// ErrNotFound is returned, usually wrapped, by a Provider that found nothing
// it recognizes. The probe loop moves on to the next candidate.
var ErrNotFound = cerrors.New(cerrors.ErrCodeNotFound, "data source not found")

// Provider discovers instance data for one platform.
//
// Probe must not leave side effects behind when it fails. It returns a
// Snapshot on success and an error wrapping ErrNotFound when the platform is
// simply absent. Any other error is treated as transient and also moves the
// probe loop on.
type Provider interface {
	Probe(ctx context.Context) (*Snapshot, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (*Snapshot, error)

// Probe calls f.
func (f ProviderFunc) Probe(ctx context.Context) (*Snapshot, error) {
	return f(ctx)
}

// Descriptor declares a provider variant and the capabilities it requires.
type Descriptor struct {
	// Name identifies the variant, e.g. "ConfigDriveNet".
	Name string

	// Dependencies lists the capabilities required before probing.
	Dependencies Dependencies

	// New builds the provider from the merged system configuration.
	New func(sysCfg config.Config) Provider
}

// NotFound returns an error wrapping ErrNotFound with a reason.
func NotFound(provider, reason string) error {
	return cerrors.WrapWithContext(cerrors.ErrCodeNotFound, reason, ErrNotFound,
		map[string]any{"provider": provider})
}

// IsNotFound reports whether err means "not a data source here".
func IsNotFound(err error) bool {
	return cerrors.IsCode(err, cerrors.ErrCodeNotFound)
}
