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
	"context"
	"log/slog"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/layout"
	"github.com/NVIDIA/condense/pkg/semaphore"
)

// Cloud is the view of the running engine handed to config modules.
type Cloud interface {
	InstanceID() string
	Hostname(fqdn bool) string
	Layout() *layout.Layout
	DataSource() *datasource.DataSource
}

// Module is a named configuration action driven by the merged config.
// cfg must be treated as read-only.
type Module interface {
	Handle(ctx context.Context, name string, cfg config.Config, cloud Cloud, log *slog.Logger, args []string) error
}

// Defaulter is implemented by modules that declare their own frequency.
// Modules that do not run once per instance.
type Defaulter interface {
	DefaultFrequency() semaphore.Frequency
}

// ModuleFunc adapts a function to Module.
type ModuleFunc func(ctx context.Context, name string, cfg config.Config, cloud Cloud, log *slog.Logger, args []string) error

func (f ModuleFunc) Handle(ctx context.Context, name string, cfg config.Config, cloud Cloud, log *slog.Logger, args []string) error {
	return f(ctx, name, cfg, cloud, log, args)
}

// WithFrequency attaches a default frequency to m.
func WithFrequency(m Module, freq semaphore.Frequency) Module {
	return &withFrequency{Module: m, freq: freq}
}

type withFrequency struct {
	Module
	freq semaphore.Frequency
}

func (w *withFrequency) DefaultFrequency() semaphore.Frequency { return w.freq }

// DefaultFrequencyOf returns m's declared frequency, or PerInstance.
func DefaultFrequencyOf(m Module) semaphore.Frequency {
	if d, ok := m.(Defaulter); ok && d.DefaultFrequency().IsValid() {
		return d.DefaultFrequency()
	}
	return semaphore.PerInstance
}
