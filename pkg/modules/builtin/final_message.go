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
	"log/slog"
	"os"
	"time"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/modules"
	"github.com/NVIDIA/condense/pkg/serializer"
)

// DefaultFinalMessage is logged when final_message is unset.
const DefaultFinalMessage = "Finished at $TIMESTAMP. Up $UPTIME seconds"

type finalMessage struct {
	env *env
}

func (f *finalMessage) Handle(_ context.Context, _ string, cfg config.Config, cloud modules.Cloud, log *slog.Logger, args []string) error {
	msg := cfg.String("final_message", DefaultFinalMessage)
	if len(args) > 0 {
		msg = args[0]
	}

	uptime := f.env.uptime()
	ts := f.env.now().UTC().Format(time.RFC1123Z)

	log.Info(Render(msg, map[string]string{"UPTIME": uptime, "TIMESTAMP": ts}))

	return serializer.WriteFileAtomic(cloud.Layout().BootFinished(),
		[]byte(uptime+":"+ts+"\n"), defaults.FileMode)
}

// Render substitutes $NAME and ${NAME} references found in vars. Unknown
// references are left as written.
func Render(tmpl string, vars map[string]string) string {
	return os.Expand(tmpl, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return "$" + name
	})
}
