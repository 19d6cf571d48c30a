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
	"bufio"
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/layout"
	"github.com/NVIDIA/condense/pkg/modules"
	"github.com/NVIDIA/condense/pkg/platform"
	"github.com/NVIDIA/condense/pkg/serializer"
)

const (
	filePathHostname      = "/etc/hostname"
	filePathSysconfigNet  = "/etc/sysconfig/network"
	previousHostnameEntry = "previous-hostname"
)

var reSysconfigHostname = regexp.MustCompile(`(?i)^\s*HOSTNAME\s*=\s*(.*)$`)

type setHostname struct {
	env *env
}

// Handle sets the hostname. Failures are logged and do not fail the
// module, so a bad name never blocks the rest of the boot.
func (s *setHostname) Handle(ctx context.Context, _ string, cfg config.Config, cloud modules.Cloud, log *slog.Logger, _ []string) error {
	if cfg.Bool("preserve_hostname", false) {
		log.Debug("preserve_hostname is set, not setting hostname")
		return nil
	}

	hostname, _ := HostnameFQDN(cfg, cloud)
	old, err := s.set(ctx, hostname, log)
	if err != nil {
		log.Warn("failed to set hostname", "hostname", hostname, "error", err)
		return nil
	}
	if old != "" {
		prev := filepath.Join(cloud.Layout().Shared(layout.Data), previousHostnameEntry)
		if err := serializer.WriteFileAtomic(prev, []byte(old+"\n"), defaults.FileMode); err != nil {
			log.Warn("failed to record previous hostname", "path", prev, "error", err)
		}
	}
	return nil
}

func (s *setHostname) set(ctx context.Context, hostname string, log *slog.Logger) (string, error) {
	if out, err := s.env.commander.Run(ctx, Command{Path: "hostname", Args: []string{hostname}}); err != nil {
		log.Debug("hostname command failed", "output", string(out))
		return "", err
	}

	family := s.env.family()
	log.Info("setting hostname", "hostname", hostname, "platform", family)
	if family == platform.FamilyRHEL {
		return s.setSysconfig(hostname, log)
	}
	return s.setEtcHostname(hostname)
}

func (s *setHostname) setSysconfig(hostname string, log *slog.Logger) (string, error) {
	path := s.env.path(filePathSysconfigNet)
	b, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	var old string
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		line := sc.Text()
		if m := reSysconfigHostname.FindStringSubmatch(line); m != nil {
			old = m[1]
			log.Info("removing old hostname entry", "line", line)
			continue
		}
		lines = append(lines, line)
	}
	lines = append(lines, "HOSTNAME="+hostname)
	return old, serializer.WriteFileAtomic(path, []byte(strings.Join(lines, "\n")+"\n"), defaults.FileMode)
}

func (s *setHostname) setEtcHostname(hostname string) (string, error) {
	path := s.env.path(filePathHostname)
	old := readHostname(path)
	return old, serializer.WriteFileAtomic(path, []byte(hostname+"\n"), defaults.FileMode)
}

// readHostname returns the first non-comment content of an /etc/hostname
// style file.
func readHostname(path string) string {
	lines, err := platform.NewParser(platform.WithInlineComments(true)).GetLines(path)
	if err != nil {
		return ""
	}
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

// HostnameFQDN resolves the short and fully qualified hostname from config
// keys "fqdn" and "hostname", falling back to the data source.
func HostnameFQDN(cfg config.Config, cloud modules.Cloud) (hostname, fqdn string) {
	if cfg.Has("fqdn") {
		fqdn = cfg.String("fqdn", "")
		return cfg.String("hostname", fqdn), fqdn
	}
	if h := cfg.String("hostname", ""); strings.Index(h, ".") > 0 {
		return h, h
	}
	fqdn = cloud.Hostname(true)
	if cfg.Has("hostname") {
		return cfg.String("hostname", ""), fqdn
	}
	return cloud.Hostname(false), fqdn
}
