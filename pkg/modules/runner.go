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
	"fmt"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/NVIDIA/condense/pkg/config"
	cerrors "github.com/NVIDIA/condense/pkg/errors"
	"github.com/NVIDIA/condense/pkg/semaphore"
)

// SemaphorePrefix is prepended to a module name to form its semaphore name.
const SemaphorePrefix = "config-"

// Module run outcomes reported to Observe.
const (
	ResultSucceeded = "succeeded"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Guard runs an action at most once per frequency scope.
type Guard interface {
	RunGuarded(name string, freq semaphore.Frequency, action func() error, clearOnFailure bool) (bool, error)
}

// Result summarizes one pipeline run.
type Result struct {
	Succeeded []string `json:"succeeded,omitempty" yaml:"succeeded,omitempty"`
	Skipped   []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Failures  []string `json:"failures,omitempty" yaml:"failures,omitempty"`
	// Err aggregates the individual failures.
	Err error `json:"-" yaml:"-"`
}

// Failed reports whether any module failed.
func (r *Result) Failed() bool {
	return len(r.Failures) > 0
}

// Runner executes module lists in order.
type Runner struct {
	Registry *Registry
	Guard    Guard
	Cloud    Cloud
	// Observe, when set, is told the outcome of every module.
	Observe func(module, result string)
}

// Run executes specs strictly in order against cfg. A module that fails,
// or whose name does not resolve, is recorded and the run continues.
func (r *Runner) Run(ctx context.Context, specs []Spec, cfg config.Config) *Result {
	res := &Result{}
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			res.fail(spec.Name, cerrors.Wrap(cerrors.ErrCodeTimeout, "module run canceled", err))
			r.observe(spec.Name, ResultFailed)
			continue
		}

		ran, err := r.runOne(ctx, spec, cfg)
		switch {
		case err != nil:
			slog.Error("config module failed",
				"module", spec.Name, "frequency", spec.Frequency, "args", spec.Args, "error", err)
			res.fail(spec.Name, err)
			r.observe(spec.Name, ResultFailed)
		case !ran:
			res.Skipped = append(res.Skipped, spec.Name)
			r.observe(spec.Name, ResultSkipped)
		default:
			res.Succeeded = append(res.Succeeded, spec.Name)
			r.observe(spec.Name, ResultSucceeded)
		}
	}
	return res
}

func (r *Runner) runOne(ctx context.Context, spec Spec, cfg config.Config) (bool, error) {
	m, ok := r.Registry.Get(spec.Name)
	if !ok {
		return false, cerrors.NewWithContext(cerrors.ErrCodeHandlerFailure,
			fmt.Sprintf("no handler for module %s", spec.Name),
			map[string]any{"module": spec.Name})
	}

	freq := spec.Frequency
	if freq == "" {
		freq = DefaultFrequencyOf(m)
	}
	// markers and handlers see the name as listed; only lookup normalizes
	name := spec.Name

	slog.Debug("handling config module", "module", name, "frequency", freq, "args", spec.Args)

	log := slog.Default().With("module", name)
	return r.Guard.RunGuarded(SemaphorePrefix+name, freq, func() error {
		if err := m.Handle(ctx, name, cfg, r.Cloud, log, spec.Args); err != nil {
			return cerrors.WrapWithContext(cerrors.ErrCodeHandlerFailure,
				fmt.Sprintf("module %s failed", name), err,
				map[string]any{"module": name, "frequency": string(freq)})
		}
		return nil
	}, false)
}

func (r *Result) fail(name string, err error) {
	r.Failures = append(r.Failures, name)
	r.Err = multierr.Append(r.Err, err)
}

func (r *Runner) observe(module, result string) {
	if r.Observe != nil {
		r.Observe(module, result)
	}
}
