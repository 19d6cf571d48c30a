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
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/condense/pkg/engine"
	"github.com/NVIDIA/condense/pkg/serializer"
	"github.com/NVIDIA/condense/pkg/systemd"
)

func queryCmd() *cli.Command {
	return &cli.Command{
		Name:                  "query",
		EnableShellCompletion: true,
		Usage:                 "Show the cached instance state",
		Description: `Print the instance id, data source, hostname, semaphores and the
state of cc_ready_units as recorded by previous stages. Nothing is probed.

Examples:

  condense query
  condense query --format json --output /tmp/status.json`,
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
			&cli.BoolFlag{
				Name:  "units",
				Usage: "include the active state of cc_ready_units from systemd",
				Value: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			outFormat, err := parseOutputFormat(cmd)
			if err != nil {
				return err
			}

			eng, err := newEngine(cmd)
			if err != nil {
				return err
			}

			var states engine.UnitStates
			if cmd.Bool("units") {
				states = systemd.NewUnits(nil)
			}
			st := eng.Status(ctx, states)

			ser := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
			defer func() {
				if closer, ok := ser.(serializer.Closer); ok {
					if err := closer.Close(); err != nil {
						slog.Warn("failed to close serializer", "error", err)
					}
				}
			}()

			if err := ser.Serialize(ctx, st); err != nil {
				return fmt.Errorf("failed to write status: %w", err)
			}
			return nil
		},
	}
}
