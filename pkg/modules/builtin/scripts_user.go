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
	"strings"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/layout"
	"github.com/NVIDIA/condense/pkg/modules"
)

type scriptsUser struct {
	env *env
}

// Handle runs the executables saved from user data in lexical order. Every
// script runs even when an earlier one fails.
func (s *scriptsUser) Handle(ctx context.Context, _ string, _ config.Config, cloud modules.Cloud, log *slog.Logger, _ []string) error {
	dir := cloud.Layout().Current(layout.Scripts)
	scripts, err := executables(dir)
	if err != nil {
		return err
	}

	var failed []string
	for _, path := range scripts {
		out, err := s.env.commander.Run(ctx, Command{
			Path: path,
			Env:  []string{"INSTANCE_ID=" + cloud.InstanceID()},
		})
		if err != nil {
			log.Warn("user script failed", "script", path, "output", string(out), "error", err)
			failed = append(failed, filepath.Base(path))
			continue
		}
		log.Debug("user script finished", "script", path)
	}
	if len(failed) > 0 {
		return fmt.Errorf("user scripts failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// executables lists the regular files in dir with an execute bit set,
// sorted by name. A missing directory has none.
func executables(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
