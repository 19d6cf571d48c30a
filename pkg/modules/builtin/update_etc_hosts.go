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
	"bytes"
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/modules"
	"github.com/NVIDIA/condense/pkg/platform"
	"github.com/NVIDIA/condense/pkg/serializer"
)

const filePathHosts = "/etc/hosts"

//go:embed templates/*.tmpl
var templatesFS embed.FS

var hostsTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

type updateEtcHosts struct {
	env *env
}

func (u *updateEtcHosts) Handle(_ context.Context, _ string, cfg config.Config, cloud modules.Cloud, log *slog.Logger, _ []string) error {
	manage := strings.ToLower(strings.TrimSpace(cfg.String("manage_etc_hosts", "false")))
	switch manage {
	case "true", "template":
	case "false":
		log.Debug("not managing /etc/hosts")
		return nil
	default:
		log.Warn("unknown value for manage_etc_hosts, assuming false", "value", manage)
		return nil
	}

	hostname, fqdn := HostnameFQDN(cfg, cloud)
	if hostname == "" {
		log.Warn("manage_etc_hosts was set, but no hostname found")
		return nil
	}

	out, err := RenderHosts(u.env.family(), hostname, fqdn)
	if err != nil {
		return err
	}
	return serializer.WriteFileAtomic(u.env.path(filePathHosts), out, defaults.FileMode)
}

// RenderHosts renders the hosts file template of family.
func RenderHosts(family platform.Family, hostname, fqdn string) ([]byte, error) {
	name := "hosts-debian.tmpl"
	if family == platform.FamilyRHEL {
		name = "hosts-rhel.tmpl"
	}
	var buf bytes.Buffer
	err := hostsTemplates.ExecuteTemplate(&buf, name, struct {
		Hostname string
		FQDN     string
	}{Hostname: hostname, FQDN: fqdn})
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
