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

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/NVIDIA/condense/pkg/cache"
	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/datasource/configdrive"
	"github.com/NVIDIA/condense/pkg/datasource/ec2"
	"github.com/NVIDIA/condense/pkg/defaults"
	"github.com/NVIDIA/condense/pkg/handler"
	"github.com/NVIDIA/condense/pkg/layout"
	"github.com/NVIDIA/condense/pkg/modules"
	"github.com/NVIDIA/condense/pkg/modules/builtin"
	"github.com/NVIDIA/condense/pkg/semaphore"
	"github.com/NVIDIA/condense/pkg/serializer"
	"github.com/NVIDIA/condense/pkg/userdata"
)

// consumeUserDataSemaphore guards the per-instance pass over user data.
const consumeUserDataSemaphore = "consume_userdata"

// UnitStarter starts follow-up units once the init stage succeeded.
type UnitStarter interface {
	Start(ctx context.Context, units []string) error
}

// ReadyNotifier reports stage progress to the service manager.
type ReadyNotifier interface {
	Ready(status string)
	Status(status string)
}

// Engine owns the state of one boot-stage invocation: the system config,
// the chosen data source and the persisted layout.
type Engine struct {
	version      string
	runID        string
	sysCfg       config.Config
	layout       *layout.Layout
	cache        *cache.Cache
	sources      *datasource.Registry
	modules      *modules.Registry
	partHandlers []handler.PartHandler
	notifier     ReadyNotifier
	units        UnitStarter
	ds           *datasource.DataSource
}

// Option configures an Engine.
type Option func(*Engine)

// WithVersion sets the version recorded in persisted documents.
func WithVersion(v string) Option {
	return func(e *Engine) {
		e.version = v
	}
}

// WithDataDir roots the persisted layout at dir.
func WithDataDir(dir string) Option {
	return func(e *Engine) {
		e.layout = layout.New(dir)
	}
}

// WithRunID overrides the generated invocation id.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// WithDataSources replaces the default data source registry.
func WithDataSources(reg *datasource.Registry) Option {
	return func(e *Engine) {
		e.sources = reg
	}
}

// WithModules replaces the default config module registry.
func WithModules(reg *modules.Registry) Option {
	return func(e *Engine) {
		e.modules = reg
	}
}

// WithPartHandlers registers additional part handlers after the builtin ones.
func WithPartHandlers(hs ...handler.PartHandler) Option {
	return func(e *Engine) {
		e.partHandlers = append(e.partHandlers, hs...)
	}
}

// WithNotifier sets the service manager notifier.
func WithNotifier(n ReadyNotifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithUnitStarter sets how cc_ready_units are started.
func WithUnitStarter(u UnitStarter) Option {
	return func(e *Engine) {
		e.units = u
	}
}

// New creates an Engine over the system config sysCfg. Without options
// it uses the default data directory, the ConfigDrive and Ec2 providers
// and the builtin config modules.
func New(sysCfg config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		version: "dev",
		runID:   uuid.NewString(),
		sysCfg:  sysCfg,
		layout:  layout.New(""),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sysCfg == nil {
		e.sysCfg = config.Builtin()
	}
	if e.sources == nil {
		e.sources = datasource.NewRegistry()
		configdrive.Register(e.sources, e.layout.Dir())
		ec2.Register(e.sources)
	}
	if e.modules == nil {
		e.modules = modules.NewRegistry()
		if err := builtin.Register(e.modules); err != nil {
			return nil, fmt.Errorf("failed to register builtin modules: %w", err)
		}
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	e.cache = cache.New(e.layout, e.version)
	return e, nil
}

// RunID returns the invocation id.
func (e *Engine) RunID() string { return e.runID }

// SystemConfig returns the system config.
func (e *Engine) SystemConfig() config.Config { return e.sysCfg }

// Layout returns the persisted layout.
func (e *Engine) Layout() *layout.Layout { return e.layout }

// DataSource returns the data source found so far, or nil.
func (e *Engine) DataSource() *datasource.DataSource { return e.ds }

// InstanceID returns the current instance id, or "" before discovery.
func (e *Engine) InstanceID() string {
	if e.ds == nil {
		return ""
	}
	return e.ds.InstanceID()
}

// Hostname returns the data source hostname, or "" before discovery.
func (e *Engine) Hostname(fqdn bool) string {
	if e.ds == nil {
		return ""
	}
	return e.ds.Hostname(fqdn)
}

// FindDataSource returns the data source for this boot: the one already
// found, else the cached snapshot, else the first provider whose
// dependencies equal deps that claims the platform. With no deps only the
// cache is consulted.
func (e *Engine) FindDataSource(ctx context.Context, deps datasource.Dependencies) (*datasource.DataSource, error) {
	if e.ds != nil {
		return e.ds, nil
	}
	if ds, ok := e.cache.Restore(); ok {
		slog.Debug("restored data source from cache", "source", ds.String())
		e.ds = ds
		return ds, nil
	}

	families := e.sysCfg.StringList("datasource_list")
	candidates := e.sources.List(families, deps, datasource.MatchExact)
	slog.Debug("probing data sources", "dependencies", deps.String(), "candidates", len(candidates))

	finder := &datasource.Finder{Observe: observeProbe, Timeout: defaults.ProbeTimeout}
	ds, err := finder.Find(ctx, candidates, e.sysCfg)
	if err != nil {
		return nil, err
	}
	e.ds = ds
	return ds, nil
}

// SetCurrentInstance points the instance link at the data source's
// instance and records which data source and instance were used.
func (e *Engine) SetCurrentInstance() (string, error) {
	if e.ds == nil {
		return "", errors.New("no data source")
	}
	iid := e.ds.InstanceID()
	if err := e.layout.SetCurrent(iid); err != nil {
		return "", err
	}

	dsn := []byte(fmt.Sprintf("%s: %s\n", e.ds.Name(), e.ds.String()))
	writes := []struct {
		path string
		data []byte
	}{
		{e.layout.ForInstance(iid, layout.DataSource), dsn},
		{filepath.Join(e.layout.Shared(layout.Data), "previous-datasource"), dsn},
		{filepath.Join(e.layout.Shared(layout.Data), "previous-instance-id"), []byte(iid + "\n")},
	}
	for _, w := range writes {
		if err := serializer.WriteFileAtomic(w.path, w.data, defaults.FileMode); err != nil {
			return "", err
		}
	}
	return iid, nil
}

// UpdateCache stores the data source snapshot and the raw and decoded user
// data of the current instance.
func (e *Engine) UpdateCache() error {
	if e.ds == nil {
		return errors.New("no data source")
	}
	if err := e.cache.Store(e.ds); err != nil {
		return err
	}

	raw := e.ds.UserDataRaw()
	iid := e.ds.InstanceID()
	if err := serializer.WriteFileAtomic(e.layout.ForInstance(iid, layout.UserDataRaw), raw, defaults.PrivateMode); err != nil {
		return err
	}
	processed, err := userdata.Encode(userdata.Decode(raw))
	if err != nil {
		return fmt.Errorf("failed to encode user data: %w", err)
	}
	return serializer.WriteFileAtomic(e.layout.ForInstance(iid, layout.UserData), processed, defaults.PrivateMode)
}

// Semaphores returns the semaphore store of the current instance.
func (e *Engine) Semaphores() *semaphore.Store {
	var instanceDir string
	if e.ds != nil {
		instanceDir = e.layout.ForInstance(e.ds.InstanceID(), layout.Sem)
	}
	return semaphore.New(instanceDir, e.layout.Shared(layout.Sem), semaphore.WithRunID(e.runID))
}

// Dispatcher returns a dispatcher with the builtin part handlers followed
// by any registered with WithPartHandlers.
func (e *Engine) Dispatcher() *handler.Dispatcher {
	iid := e.InstanceID()
	d := handler.NewDispatcher()
	d.Register(handler.NewCloudConfig(e.layout.ForInstance(iid, layout.CloudConfig)))
	d.Register(handler.NewShellScript(e.layout.ForInstance(iid, layout.Scripts)))
	for _, h := range e.partHandlers {
		d.Register(h)
	}
	return d
}

// ConsumeUserData decodes the user data and hands its parts to the part
// handlers, once per instance. On later runs only the always handlers see
// the parts. Handler failures are logged and returned but never stop the
// walk.
func (e *Engine) ConsumeUserData(ctx context.Context) error {
	if e.ds == nil {
		return errors.New("no data source")
	}
	parts := userdata.Decode(e.ds.UserDataRaw())
	d := e.Dispatcher()
	slog.Debug("consuming user data", "parts", len(parts))

	ran, err := e.Semaphores().RunGuarded(consumeUserDataSemaphore, semaphore.PerInstance, func() error {
		return d.Dispatch(ctx, parts, semaphore.PerInstance)
	}, false)
	if ran {
		return err
	}
	if err != nil {
		slog.Warn("could not guard user data consumption", "error", err)
	}
	return d.Dispatch(ctx, parts, semaphore.Always)
}

// MergedConfig returns the configuration handed to config modules: the
// cloud-config document over the data source config over the system
// config.
func (e *Engine) MergedConfig() config.Config {
	cfg := config.Config{}
	if e.ds != nil {
		path := e.layout.ForInstance(e.ds.InstanceID(), layout.CloudConfig)
		cc, err := config.ReadFile(path)
		if err != nil {
			slog.Warn("ignoring unreadable cloud-config", "path", path, "error", err)
		} else {
			cfg = cc
		}
		config.Merge(cfg, e.ds.ConfigObject().Clone())
	}
	return config.Merge(cfg, e.sysCfg.Clone())
}

// ModuleListKey returns the config key holding the module list of stage.
func ModuleListKey(stage string) string {
	return "cloud_" + strings.ReplaceAll(stage, "-", "_") + "_modules"
}

// RunModules runs the module list of stage against the merged config.
func (e *Engine) RunModules(ctx context.Context, stage string, cfg config.Config) (*modules.Result, error) {
	specs, err := modules.ParseList(cfg, ModuleListKey(stage))
	if err != nil {
		return nil, err
	}
	return e.runSpecs(ctx, specs, cfg), nil
}

func (e *Engine) runSpecs(ctx context.Context, specs []modules.Spec, cfg config.Config) *modules.Result {
	r := &modules.Runner{
		Registry: e.modules,
		Guard:    e.Semaphores(),
		Cloud:    e,
		Observe:  observeModule,
	}
	return r.Run(ctx, specs, cfg)
}

// removeIfExists deletes path, treating a missing file as success.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

type nopNotifier struct{}

func (nopNotifier) Ready(string)  {}
func (nopNotifier) Status(string) {}
