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
	"log/slog"
	"time"

	"github.com/NVIDIA/condense/pkg/config"
	cerrors "github.com/NVIDIA/condense/pkg/errors"
)

// Probe results reported to a Finder's observer.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Finder runs the probe loop over an ordered list of candidates.
type Finder struct {
	// Observe, when set, is called once per probed candidate.
	Observe func(provider, result string)

	// Timeout, when positive, bounds each candidate's probe on its own. A
	// candidate that runs out of time counts as failed and the next one is
	// probed.
	Timeout time.Duration
}

// Find probes candidates in order and returns the first data source found.
// Later candidates are not probed once one succeeds. When every candidate
// fails the error carries ErrCodeDataSourceNotFound.
func (f *Finder) Find(ctx context.Context, candidates []Descriptor, sysCfg config.Config) (*DataSource, error) {
	tried := make([]string, 0, len(candidates))
	for _, d := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeTimeout, "probe canceled", err)
		}
		tried = append(tried, d.Name)

		snap, err := f.probe(ctx, d, sysCfg)
		switch {
		case err == nil && snap != nil:
			if snap.Provider == "" {
				snap.Provider = d.Name
			}
			f.observe(d.Name, ResultFound)
			ds := New(snap)
			slog.Info("found data source", "provider", d.Name, "source", ds.String())
			return ds, nil
		case err == nil || IsNotFound(err):
			f.observe(d.Name, ResultNotFound)
			slog.Debug("data source not present", "provider", d.Name, "reason", err)
		default:
			f.observe(d.Name, ResultError)
			slog.Warn("data source probe failed", "provider", d.Name, "error", err)
		}
	}

	return nil, cerrors.NewWithContext(cerrors.ErrCodeDataSourceNotFound,
		"no data source found", map[string]any{"tried": tried})
}

func (f *Finder) probe(ctx context.Context, d Descriptor, sysCfg config.Config) (*Snapshot, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	return d.New(sysCfg).Probe(ctx)
}

func (f *Finder) observe(provider, result string) {
	if f != nil && f.Observe != nil {
		f.Observe(provider, result)
	}
}
