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

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/engine"
	"github.com/NVIDIA/condense/pkg/logging"
	"github.com/NVIDIA/condense/pkg/systemd"
)

// logFileTemplate is formatted with the action name; empty disables the tee.
var logFileTemplate = defaults.LogFileTemplate

var stageUsage = map[string]string{
	engine.ActionStartLocal: "Run the init stage with filesystem-only data sources",
	engine.ActionStart:      "Run the init stage with network data sources",
	engine.ActionConfig:     "Run cloud_config_modules against the cached data source",
	engine.ActionFinal:      "Run cloud_final_modules against the cached data source",
}

func stageCmd(action string) *cli.Command {
	return &cli.Command{
		Name:                  action,
		EnableShellCompletion: true,
		Usage:                 stageUsage[action],
		Description: fmt.Sprintf(`Run the %s boot stage.

A stage exits with the number of failed modules, 1 when the init stages
find no data source, and 0 otherwise.`, action),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			closer := initStageLogger(cmd, action)
			defer closer.Close()

			eng, err := newEngine(cmd,
				engine.WithNotifier(systemd.NewNotifier(nil)),
				engine.WithUnitStarter(systemd.NewUnits(nil)),
			)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, defaults.CLIStageTimeout)
			defer cancel()

			return stageExit(runStage(ctx, eng, action))
		},
	}
}

func runStage(ctx context.Context, eng *engine.Engine, action string) error {
	switch action {
	case engine.ActionStartLocal:
		return eng.Start(ctx, true)
	case engine.ActionStart:
		return eng.Start(ctx, false)
	case engine.ActionConfig:
		return eng.Continue(ctx, engine.StageConfig)
	case engine.ActionFinal:
		return eng.Continue(ctx, engine.StageFinal)
	default:
		return fmt.Errorf("unknown action: %q", action)
	}
}

// stageExit turns a stage failure into an exit code carrying error.
func stageExit(err error) error {
	if err == nil {
		return nil
	}
	var se *engine.StageError
	if errors.As(err, &se) {
		return cli.Exit(se.Error(), se.ExitCode())
	}
	return err
}

func newEngine(cmd *cli.Command, opts ...engine.Option) (*engine.Engine, error) {
	sysCfg := config.LoadSystem(cmd.String("config"))
	opts = append([]engine.Option{
		engine.WithVersion(version),
		engine.WithDataDir(cmd.String("data-dir")),
	}, opts...)
	return engine.New(sysCfg, opts...)
}

// initStageLogger re-installs the default logger so records also land in
// the per-action log file when it can be opened.
func initStageLogger(cmd *cli.Command, action string) io.Closer {
	level := cmd.String("log-level")
	if logFileTemplate == "" {
		return io.NopCloser(nil)
	}
	path := fmt.Sprintf(logFileTemplate, action)
	w, closer, err := logging.OpenLogFile(path)
	logging.SetDefaultStructuredLoggerWithOutput(name, version, level, w)
	if err != nil {
		slog.Warn("log file unavailable, logging to stderr only", "path", path, "error", err)
	}
	return closer
}
