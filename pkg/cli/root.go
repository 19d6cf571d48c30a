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
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/engine"
	"github.com/NVIDIA/condense/pkg/logging"
	"github.com/NVIDIA/condense/pkg/serializer"
)

const (
	name           = defaults.AppName
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Flags keep parse state, so every command tree gets its own instances.
func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output file path (default: stdout)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("output format (%v)", serializer.SupportedFormats()),
	}
}

// Execute runs the command tree against os.Args and exits with the code
// carried by the returned error.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		EnableShellCompletion: true,
		Usage:                 "boot-time instance initialization",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Description: `condense discovers the platform data source, caches its metadata and
user data, consumes the user data through part handlers and runs the
configured modules of each boot stage.

Stages run in order from the service manager:

  start-local  filesystem-only data sources, purges stale boot state
  start        network data sources, init modules
  config       cloud_config_modules against the cached data source
  final        cloud_final_modules against the cached data source`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "system configuration file",
				Sources: cli.EnvVars(defaults.EnvConfig),
				Value:   defaults.SystemConfig,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars(defaults.EnvLogLevel),
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "root of persisted state",
				Sources: cli.EnvVars(defaults.EnvDataDir),
				Value:   defaults.DataDir,
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			slog.Debug("starting", "commit", commit, "date", date)
			return ctx, nil
		},
		// exit codes are applied by Execute so the tree stays testable
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			stageCmd(engine.ActionStartLocal),
			stageCmd(engine.ActionStart),
			stageCmd(engine.ActionConfig),
			stageCmd(engine.ActionFinal),
			queryCmd(),
		},
	}
}

// parseOutputFormat validates the --format flag.
func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	f := serializer.Format(cmd.String("format"))
	if f.IsUnknown() {
		return "", fmt.Errorf("unknown output format: %q (supported: %v)", f, serializer.SupportedFormats())
	}
	return f, nil
}

func exitCode(err error) int {
	var ec cli.ExitCoder
	if errors.As(err, &ec) && ec.ExitCode() != 0 {
		return ec.ExitCode()
	}
	return 1
}
