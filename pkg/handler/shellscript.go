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

package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/semaphore"
	"github.com/NVIDIA/condense/pkg/serializer"
	"github.com/NVIDIA/condense/pkg/userdata"
)

// ShellScript saves text/x-shellscript parts as executables in a scripts
// directory. The scripts-user module runs them later in the boot.
type ShellScript struct {
	dir string
}

// NewShellScript returns a handler writing into dir.
func NewShellScript(dir string) *ShellScript {
	return &ShellScript{dir: dir}
}

func (s *ShellScript) Name() string { return "shell-script" }

func (s *ShellScript) ContentTypes() []string { return []string{userdata.TypeShellScript} }

func (s *ShellScript) Frequency() semaphore.Frequency { return semaphore.PerInstance }

func (s *ShellScript) Begin(context.Context) error { return nil }

func (s *ShellScript) HandlePart(_ context.Context, part userdata.Part) error {
	name := filepath.Base(part.Filename)
	if name == "." || name == ".." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return fmt.Errorf("invalid script filename %q", part.Filename)
	}
	return serializer.WriteFileAtomic(filepath.Join(s.dir, name), part.Payload, defaults.ExecutableMode)
}

func (s *ShellScript) End(context.Context) error { return nil }
