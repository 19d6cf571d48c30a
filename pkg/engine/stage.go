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
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/platform"
)

// Stage names as used in module list keys and metrics.
const (
	StageInit   = "init"
	StageConfig = "config"
	StageFinal  = "final"
)

// Actions select a stage from the command line.
const (
	ActionStart      = "start"
	ActionStartLocal = "start-local"
	ActionConfig     = "config"
	ActionFinal      = "final"
)

// cfgReadyUnits lists the units started after a successful init stage.
const cfgReadyUnits = "cc_ready_units"

// StageError reports a stage that did not complete. Failures lists failed
// module names; when it is empty the stage failed before running modules.
type StageError struct {
	Stage    string
	Failures []string
	Err      error
}

func (e *StageError) Error() string {
	if len(e.Failures) > 0 {
		return fmt.Sprintf("stage %s: %d module failures: [%s]", e.Stage, len(e.Failures), strings.Join(e.Failures, ", "))
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// ExitCode is the number of failed modules, or 1 for a failure outside the
// module pipeline.
func (e *StageError) ExitCode() int {
	if n := len(e.Failures); n > 0 {
		return n
	}
	return 1
}

// Start runs the init stage. With local set only filesystem data sources
// are probed; otherwise filesystem and network ones are. A nil error also
// covers the cases where there was nothing to do.
func (e *Engine) Start(ctx context.Context, local bool) (err error) {
	action, deps := ActionStart, datasource.Dependencies{datasource.DepFilesystem, datasource.DepNetwork}
	if local {
		action, deps = ActionStartLocal, datasource.Dependencies{datasource.DepFilesystem}
	}
	start := time.Now()
	defer func() { e.finishStage(action, start, err) }()

	if err := e.layout.Init(); err != nil {
		slog.Warn("failed to initialize data directory, likely bad things to come", "error", err)
	}

	if local {
		manual := e.sysCfg.Bool("manual_cache_clean", false)
		if manual {
			slog.Debug("not purging cache, manual_cache_clean is set")
		}
		if err := e.cache.Purge(!manual); err != nil {
			slog.Warn("failed to purge cache", "error", err)
		}
		if err := removeIfExists(e.layout.NoNet()); err != nil {
			return &StageError{Stage: action, Err: err}
		}
	} else {
		for _, f := range []string{e.cache.Path(), e.layout.NoNet()} {
			if exists(f) {
				slog.Info("no need for start to run", "reason", f)
				return nil
			}
		}
	}

	slog.Info("stage starting", "action", action, "uptime", platform.Uptime(), "dependencies", deps.String())
	if ifs, err := platform.Interfaces(); err == nil {
		slog.Debug("network info", "interfaces", platform.NetSummary(ifs))
	}

	e.notifier.Status("searching for data source")
	ds, err := e.FindDataSource(ctx, deps)
	if err != nil {
		slog.Error("no data source found", "error", err)
		return &StageError{Stage: action, Err: err}
	}

	iid, err := e.SetCurrentInstance()
	if err != nil {
		return &StageError{Stage: action, Err: err}
	}
	slog.Info("current instance", "instanceID", iid)

	if err := e.UpdateCache(); err != nil {
		return &StageError{Stage: action, Err: err}
	}
	slog.Info("found data source", "source", ds.String())

	if err := e.ConsumeUserData(ctx); err != nil {
		slog.Warn("consuming user data had failures", "error", err)
	}

	cfg := e.MergedConfig()
	res, err := e.RunModules(ctx, StageInit, cfg)
	if err != nil {
		return &StageError{Stage: action, Err: err}
	}
	if len(res.Succeeded)+len(res.Skipped)+len(res.Failures) == 0 {
		slog.Info("no init modules to run")
		return nil
	}
	if res.Failed() {
		return &StageError{Stage: action, Failures: res.Failures, Err: res.Err}
	}

	e.notifier.Ready(fmt.Sprintf("instance %s configured from %s", iid, ds.Name()))
	if units := cfg.StringList(cfgReadyUnits); len(units) > 0 && e.units != nil {
		slog.Debug("starting ready units", "units", units)
		if err := e.units.Start(ctx, units); err != nil {
			slog.Warn("failed to start ready units", "error", err)
		}
	}
	return nil
}

// Continue runs a later stage against the cached data source. Without a
// cached data source there is nothing to do.
func (e *Engine) Continue(ctx context.Context, stage string) (err error) {
	start := time.Now()
	defer func() { e.finishStage(stage, start, err) }()

	ds, err := e.FindDataSource(ctx, nil)
	if err != nil {
		slog.Info("no data source found, nothing to do", "stage", stage, "error", err)
		return nil
	}
	slog.Info("stage starting", "stage", stage, "source", ds.String(), "uptime", platform.Uptime())

	res, err := e.RunModules(ctx, stage, e.MergedConfig())
	if err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	if res.Failed() {
		return &StageError{Stage: stage, Failures: res.Failures, Err: res.Err}
	}
	e.notifier.Ready("stage " + stage + " complete")
	return nil
}

func (e *Engine) finishStage(stage string, start time.Time, err error) {
	elapsed := time.Since(start)
	stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	failures := 0
	if se, ok := err.(*StageError); ok {
		failures = len(se.Failures)
	}
	stageModuleFailures.WithLabelValues(stage).Set(float64(failures))
	slog.Info("stage finished", "stage", stage, "took", elapsed.String(), "ok", err == nil)

	if path := e.sysCfg.String(cfgMetricsTextfile, ""); path != "" {
		if werr := writeMetrics(path); werr != nil {
			slog.Warn("failed to write metrics", "path", path, "error", werr)
		}
	}
}
