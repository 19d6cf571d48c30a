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

package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/modules"
	"github.com/NVIDIA/condense/pkg/serializer"
)

const (
	filePathTimezone  = "/etc/timezone"
	filePathClock     = "/etc/sysconfig/clock"
	filePathLocaltime = "/etc/localtime"
)

type timezone struct {
	env *env
}

// Handle configures the zone named by the first argument or the timezone
// key. An unknown zone fails the module; failures writing individual
// files are only logged.
func (t *timezone) Handle(_ context.Context, _ string, cfg config.Config, _ modules.Cloud, log *slog.Logger, args []string) error {
	tz := cfg.String("timezone", "")
	if len(args) > 0 {
		tz = args[0]
	}
	if tz == "" {
		return nil
	}

	tzFile := t.env.path(filepath.Join(t.env.zoneInfoDir, filepath.Clean("/"+tz)))
	info, err := os.Stat(tzFile)
	if err != nil || !info.Mode().IsRegular() {
		log.Debug("invalid timezone", "path", tzFile)
		return fmt.Errorf("invalid timezone %s", tzFile)
	}

	if err := serializer.WriteFileAtomic(t.env.path(filePathTimezone), []byte(tz+"\n"), defaults.FileMode); err != nil {
		log.Error("failed to write timezone", "error", err)
	}

	clock := t.env.path(filePathClock)
	if _, err := os.Stat(clock); err == nil {
		if err := serializer.WriteFileAtomic(clock, fmt.Appendf(nil, "ZONE=%q\n", tz), defaults.FileMode); err != nil {
			log.Error("failed to write clock", "path", clock, "error", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Warn("failed to stat clock", "path", clock, "error", err)
	}

	zone, err := os.ReadFile(tzFile)
	if err != nil {
		log.Error("failed to read zone file", "path", tzFile, "error", err)
		return nil
	}
	if err := serializer.WriteFileAtomic(t.env.path(filePathLocaltime), zone, defaults.FileMode); err != nil {
		log.Error("failed to install localtime", "source", tzFile, "error", err)
	}
	return nil
}
