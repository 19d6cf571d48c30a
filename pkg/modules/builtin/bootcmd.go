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
	"fmt"
	"log/slog"
	"strings"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/modules"
)

type bootCmd struct {
	env *env
}

func (b *bootCmd) Handle(ctx context.Context, _ string, cfg config.Config, cloud modules.Cloud, log *slog.Logger, _ []string) error {
	if !cfg.Has("bootcmd") {
		return nil
	}

	script := Shellify(cfg.List("bootcmd"))
	out, err := b.env.commander.Run(ctx, Command{
		Path:  "/bin/sh",
		Env:   []string{"INSTANCE_ID=" + cloud.InstanceID()},
		Stdin: []byte(script),
	})
	if err != nil {
		log.Warn("failed to run commands from bootcmd", "output", string(out), "error", err)
		return err
	}
	log.Debug("bootcmd finished", "output", string(out))
	return nil
}

// Shellify renders a command list as a shell script. A list entry becomes
// one command with every word single-quoted; any other entry is copied
// verbatim as a line.
func Shellify(cmds []any) string {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	for _, c := range cmds {
		words, ok := c.([]any)
		if !ok {
			sb.WriteString(fmt.Sprint(c))
			sb.WriteString("\n")
			continue
		}
		quoted := make([]string, 0, len(words))
		for _, w := range words {
			quoted = append(quoted, "'"+strings.ReplaceAll(fmt.Sprint(w), "'", `'\''`)+"'")
		}
		sb.WriteString(strings.Join(quoted, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}
