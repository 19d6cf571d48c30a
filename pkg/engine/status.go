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

package engine

import (
	"context"
	"log/slog"

	"github.com/NVIDIA/condense/pkg/header"
)

// UnitStates reports the active state of units.
type UnitStates interface {
	ActiveStates(ctx context.Context, units []string) (map[string]string, error)
}

// Status describes the current instance as seen from the cache.
type Status struct {
	header.Header `json:",inline" yaml:",inline"`
	InstanceID    string            `json:"instanceId,omitempty" yaml:"instanceId,omitempty"`
	DataSource    string            `json:"dataSource,omitempty" yaml:"dataSource,omitempty"`
	Hostname      string            `json:"hostname,omitempty" yaml:"hostname,omitempty"`
	FQDN          string            `json:"fqdn,omitempty" yaml:"fqdn,omitempty"`
	BootFinished  bool              `json:"bootFinished" yaml:"bootFinished"`
	Semaphores    []string          `json:"semaphores,omitempty" yaml:"semaphores,omitempty"`
	Units         map[string]string `json:"units,omitempty" yaml:"units,omitempty"`
}

// Status reads the cached data source and semaphores without probing.
// states may be nil.
func (e *Engine) Status(ctx context.Context, states UnitStates) *Status {
	st := &Status{}
	st.Init(header.KindQueryResult, e.version)
	st.Metadata["runId"] = e.runID

	if ds, err := e.FindDataSource(ctx, nil); err == nil {
		st.InstanceID = ds.InstanceID()
		st.DataSource = ds.String()
		st.Hostname = ds.Hostname(false)
		st.FQDN = ds.Hostname(true)
	}
	st.BootFinished = exists(e.layout.BootFinished())
	st.Semaphores = e.Semaphores().List()

	if units := e.sysCfg.StringList(cfgReadyUnits); len(units) > 0 && states != nil {
		u, err := states.ActiveStates(ctx, units)
		if err != nil {
			slog.Warn("failed to read unit states", "error", err)
		} else {
			st.Units = u
		}
	}
	return st
}
