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
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/fetch"
	"github.com/NVIDIA/condense/pkg/modules"
	"github.com/NVIDIA/condense/pkg/platform"
	"github.com/NVIDIA/condense/pkg/semaphore"
)

// Command is an external program invocation.
type Command struct {
	Path  string
	Args  []string
	Env   []string
	Stdin []byte
}

// Commander runs commands. Env entries are added to the process environment.
type Commander interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecCommander runs commands with os/exec, bounded by Timeout.
type ExecCommander struct {
	Timeout time.Duration
}

func (e ExecCommander) Run(ctx context.Context, c Command) ([]byte, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaults.CommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	if c.Stdin != nil {
		cmd.Stdin = bytes.NewReader(c.Stdin)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("failed to run %s: %w", c.Path, err)
	}
	return out, nil
}

// env carries the host bindings shared by the builtin modules.
type env struct {
	root          string
	zoneInfoDir   string
	commander     Commander
	client        *fetch.Client
	now           func() time.Time
	family        func() platform.Family
	uptime        func() string
	retryInterval time.Duration
}

// Option configures the builtin modules.
type Option func(*env)

// WithRoot prefixes every host path the modules touch. Used for tests and
// for preparing images offline.
func WithRoot(root string) Option {
	return func(e *env) {
		e.root = root
	}
}

// WithZoneInfoDir overrides the zoneinfo directory, relative to the root.
func WithZoneInfoDir(dir string) Option {
	return func(e *env) {
		e.zoneInfoDir = dir
	}
}

// WithCommander replaces command execution.
func WithCommander(c Commander) Option {
	return func(e *env) {
		e.commander = c
	}
}

// WithClient sets the HTTP client used by phone-home.
func WithClient(c *fetch.Client) Option {
	return func(e *env) {
		e.client = c
	}
}

// WithClock sets the time source of final-message.
func WithClock(now func() time.Time) Option {
	return func(e *env) {
		e.now = now
	}
}

// WithFamily sets the distribution family detector.
func WithFamily(f func() platform.Family) Option {
	return func(e *env) {
		e.family = f
	}
}

// WithUptime sets the uptime source of final-message.
func WithUptime(f func() string) Option {
	return func(e *env) {
		e.uptime = f
	}
}

// WithRetryInterval sets the spacing of phone-home attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(e *env) {
		e.retryInterval = d
	}
}

func newEnv(opts ...Option) *env {
	e := &env{
		root:          "/",
		zoneInfoDir:   defaults.ZoneInfoDir,
		commander:     ExecCommander{},
		now:           time.Now,
		family:        platform.DetectFamily,
		uptime:        platform.Uptime,
		retryInterval: defaults.PhoneHomeRetryInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = fetch.New()
	}
	return e
}

// path maps an absolute host path below the configured root.
func (e *env) path(p string) string {
	return filepath.Join(e.root, p)
}

// Register adds every builtin module to reg.
func Register(reg *modules.Registry, opts ...Option) error {
	e := newEnv(opts...)
	builtins := []struct {
		name string
		freq semaphore.Frequency
		m    modules.Module
	}{
		{"bootcmd", semaphore.Always, &bootCmd{env: e}},
		{"set-hostname", semaphore.PerInstance, &setHostname{env: e}},
		{"update-etc-hosts", semaphore.Always, &updateEtcHosts{env: e}},
		{"timezone", semaphore.PerInstance, &timezone{env: e}},
		{"phone-home", semaphore.PerInstance, &phoneHome{env: e}},
		{"scripts-user", semaphore.PerInstance, &scriptsUser{env: e}},
		{"final-message", semaphore.Always, &finalMessage{env: e}},
	}
	for _, b := range builtins {
		if err := reg.Register(b.name, modules.WithFrequency(b.m, b.freq)); err != nil {
			return err
		}
	}
	return nil
}
