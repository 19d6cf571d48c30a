package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/datasource"
	cerrors "github.com/NVIDIA/condense/pkg/errors"
	"github.com/NVIDIA/condense/pkg/header"
	"github.com/NVIDIA/condense/pkg/layout"
	"github.com/NVIDIA/condense/pkg/modules"
	"github.com/NVIDIA/condense/pkg/semaphore"
	"github.com/NVIDIA/condense/pkg/userdata"
)

const testIID = "i-0123"

type fakeNotifier struct {
	ready  []string
	status []string
}

func (f *fakeNotifier) Ready(s string)  { f.ready = append(f.ready, s) }
func (f *fakeNotifier) Status(s string) { f.status = append(f.status, s) }

type fakeUnits struct {
	started []string
	states  map[string]string
}

func (f *fakeUnits) Start(_ context.Context, units []string) error {
	f.started = append(f.started, units...)
	return nil
}

func (f *fakeUnits) ActiveStates(_ context.Context, units []string) (map[string]string, error) {
	out := map[string]string{}
	for _, u := range units {
		out[u] = f.states[u]
	}
	return out, nil
}

type countingHandler struct {
	freq  semaphore.Frequency
	parts int
}

func (c *countingHandler) Name() string                   { return "counting-" + string(c.freq) }
func (c *countingHandler) ContentTypes() []string         { return []string{userdata.TypeCloudConfig} }
func (c *countingHandler) Frequency() semaphore.Frequency { return c.freq }
func (c *countingHandler) Begin(context.Context) error    { return nil }
func (c *countingHandler) End(context.Context) error      { return nil }
func (c *countingHandler) HandlePart(context.Context, userdata.Part) error {
	c.parts++
	return nil
}

func testUserData(t *testing.T) []byte {
	t.Helper()
	raw, err := userdata.Encode([]userdata.Part{
		{ContentType: userdata.TypeCloudConfig, Filename: "part-000", Payload: []byte("#cloud-config\ngreeting: hello\ncc_ready_units: [next.service]\n")},
		{ContentType: userdata.TypeShellScript, Filename: "setup.sh", Payload: []byte("#!/bin/sh\necho hi\n")},
	})
	require.NoError(t, err)
	return raw
}

// fakeSources registers family "Fake" with one variant per dependency set.
// probes counts provider invocations.
func fakeSources(t *testing.T, probes *int, userData []byte) *datasource.Registry {
	t.Helper()
	reg := datasource.NewRegistry()
	probe := func(name, mode string) func(config.Config) datasource.Provider {
		return func(config.Config) datasource.Provider {
			return datasource.ProviderFunc(func(context.Context) (*datasource.Snapshot, error) {
				*probes++
				return &datasource.Snapshot{
					Provider:    name,
					Mode:        mode,
					Metadata:    map[string]any{datasource.KeyInstanceID: testIID, datasource.KeyLocalHostname: "node1"},
					UserDataRaw: userData,
					Config:      map[string]any{"greeting": "from-datasource", "ds_only": true},
				}, nil
			})
		}
	}
	reg.Register("Fake",
		datasource.Descriptor{Name: "FakeLocal", Dependencies: datasource.Dependencies{datasource.DepFilesystem}, New: probe("FakeLocal", "local")},
		datasource.Descriptor{Name: "FakeNet", Dependencies: datasource.Dependencies{datasource.DepFilesystem, datasource.DepNetwork}, New: probe("FakeNet", "net")},
	)
	return reg
}

type moduleLog struct {
	calls    []string
	greeting string
}

func testModules(log *moduleLog) *modules.Registry {
	reg := modules.NewRegistry()
	reg.MustRegister("a", modules.ModuleFunc(func(_ context.Context, name string, cfg config.Config, _ modules.Cloud, _ *slog.Logger, _ []string) error {
		log.calls = append(log.calls, name)
		log.greeting = cfg.String("greeting", "")
		return nil
	}))
	reg.MustRegister("b", modules.WithFrequency(modules.ModuleFunc(func(_ context.Context, name string, _ config.Config, _ modules.Cloud, _ *slog.Logger, _ []string) error {
		log.calls = append(log.calls, name)
		return errors.New("b is broken")
	}), semaphore.Always))
	reg.MustRegister("ok", modules.ModuleFunc(func(_ context.Context, name string, _ config.Config, _ modules.Cloud, _ *slog.Logger, _ []string) error {
		log.calls = append(log.calls, name)
		return nil
	}))
	return reg
}

type fixture struct {
	engine   *Engine
	dir      string
	probes   int
	mods     *moduleLog
	notifier *fakeNotifier
	units    *fakeUnits
}

func newFixture(t *testing.T, sysYAML string, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), mods: &moduleLog{}, notifier: &fakeNotifier{}, units: &fakeUnits{}}
	sys, err := config.Parse([]byte(sysYAML))
	require.NoError(t, err)

	all := append([]Option{
		WithDataDir(f.dir),
		WithVersion("v-test"),
		WithRunID("run-1"),
		WithDataSources(fakeSources(t, &f.probes, testUserData(t))),
		WithModules(testModules(f.mods)),
		WithNotifier(f.notifier),
		WithUnitStarter(f.units),
	}, opts...)
	e, err := New(sys, all...)
	require.NoError(t, err)
	f.engine = e
	return f
}

func (f *fixture) reload(t *testing.T, sysYAML string) *Engine {
	t.Helper()
	sys, err := config.Parse([]byte(sysYAML))
	require.NoError(t, err)
	e, err := New(sys, WithDataDir(f.dir), WithDataSources(fakeSources(t, &f.probes, nil)),
		WithModules(testModules(f.mods)), WithNotifier(f.notifier), WithUnitStarter(f.units))
	require.NoError(t, err)
	return e
}

func TestModuleListKey(t *testing.T) {
	assert.Equal(t, "cloud_init_modules", ModuleListKey(StageInit))
	assert.Equal(t, "cloud_config_modules", ModuleListKey(StageConfig))
	assert.Equal(t, "cloud_final_modules", ModuleListKey("final"))
}

func TestStageErrorExitCode(t *testing.T) {
	assert.Equal(t, 1, (&StageError{Stage: "init", Err: errors.New("x")}).ExitCode())
	assert.Equal(t, 2, (&StageError{Stage: "init", Failures: []string{"a", "b"}}).ExitCode())
	assert.Contains(t, (&StageError{Stage: "final", Failures: []string{"a"}}).Error(), "[a]")
}

func TestStartFullFlow(t *testing.T) {
	sys := "datasource_list: [Fake]\ncloud_init_modules: [a, ok]\n"
	f := newFixture(t, sys)
	l := f.engine.Layout()

	require.NoError(t, f.engine.Start(context.Background(), false))

	assert.Equal(t, 1, f.probes)
	id, ok := l.CurrentID()
	require.True(t, ok)
	assert.Equal(t, testIID, id)

	assert.FileExists(t, l.Current(layout.Snapshot))
	info, err := os.Stat(l.Current(layout.UserDataRaw))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.FileExists(t, l.Current(layout.UserData))

	prev, err := os.ReadFile(filepath.Join(l.Shared(layout.Data), "previous-instance-id"))
	require.NoError(t, err)
	assert.Equal(t, testIID+"\n", string(prev))
	dsn, err := os.ReadFile(l.Current(layout.DataSource))
	require.NoError(t, err)
	assert.Equal(t, "FakeNet: FakeNet[net]\n", string(dsn))

	cc, err := os.ReadFile(l.Current(layout.CloudConfig))
	require.NoError(t, err)
	assert.Contains(t, string(cc), "#part-000\n#cloud-config\ngreeting: hello")
	assert.FileExists(t, filepath.Join(l.Current(layout.Scripts), "setup.sh"))

	assert.Equal(t, []string{"a", "ok"}, f.mods.calls)
	assert.Equal(t, "hello", f.mods.greeting, "cloud-config wins over data source config")
	assert.Len(t, f.notifier.ready, 1)
	assert.Equal(t, []string{"next.service"}, f.units.started)

	// a second network start exits early on the cached snapshot
	again := f.reload(t, sys)
	require.NoError(t, again.Start(context.Background(), false))
	assert.Equal(t, 1, f.probes)
	assert.Equal(t, []string{"a", "ok"}, f.mods.calls)
}

func TestStartModuleFailures(t *testing.T) {
	f := newFixture(t, "datasource_list: [Fake]\ncloud_init_modules: [a, [b, always], c]\n")

	err := f.engine.Start(context.Background(), true)
	require.Error(t, err)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ActionStartLocal, se.Stage)
	assert.Equal(t, []string{"b", "c"}, se.Failures)
	assert.Equal(t, 2, se.ExitCode())
	assert.Equal(t, []string{"a", "b"}, f.mods.calls)
	assert.Empty(t, f.notifier.ready)
	assert.Empty(t, f.units.started)
}

func TestStartNoDataSource(t *testing.T) {
	f := newFixture(t, "datasource_list: [Missing]\ncloud_init_modules: [a]\n")

	err := f.engine.Start(context.Background(), false)
	require.Error(t, err)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 1, se.ExitCode())
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeDataSourceNotFound))
	assert.Empty(t, f.mods.calls)
}

func TestStartNoModules(t *testing.T) {
	f := newFixture(t, "datasource_list: [Fake]\n")
	require.NoError(t, f.engine.Start(context.Background(), true))
	assert.Empty(t, f.notifier.ready)
	assert.FileExists(t, f.engine.Layout().Current(layout.Snapshot))
}

func TestStartLocalPurgesAndStartSkipsOnNoNet(t *testing.T) {
	sys := "datasource_list: [Fake]\ncloud_init_modules: [ok]\n"
	f := newFixture(t, sys)
	l := f.engine.Layout()
	require.NoError(t, f.engine.Start(context.Background(), true))
	require.NoError(t, os.WriteFile(l.BootFinished(), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(l.NoNet(), nil, 0o644))

	// start-local purges boot-finished, the instance link and no-net, then probes again
	local := f.reload(t, sys)
	require.NoError(t, local.Start(context.Background(), true))
	assert.Equal(t, 2, f.probes)
	assert.NoFileExists(t, l.NoNet())
	assert.NoFileExists(t, filepath.Join(l.ForInstance(testIID, layout.Root), "boot-finished"))

	// the network stage sees no-net and stops
	require.NoError(t, os.WriteFile(l.NoNet(), nil, 0o644))
	require.NoError(t, os.Remove(l.InstanceLink()))
	net := f.reload(t, sys)
	require.NoError(t, net.Start(context.Background(), false))
	assert.Equal(t, 2, f.probes)
}

func TestStartLocalManualCacheClean(t *testing.T) {
	sys := "datasource_list: [Fake]\nmanual_cache_clean: true\ncloud_init_modules: [ok]\n"
	f := newFixture(t, sys)
	require.NoError(t, f.engine.Start(context.Background(), true))

	again := f.reload(t, sys)
	require.NoError(t, again.Start(context.Background(), true))
	assert.Equal(t, 1, f.probes, "cache is kept and restored")
}

func TestContinue(t *testing.T) {
	sys := "datasource_list: [Fake]\ncloud_init_modules: [ok]\ncloud_config_modules: [a]\ncloud_final_modules: [[b, always]]\n"
	f := newFixture(t, sys)

	// nothing cached yet: nothing to do
	require.NoError(t, f.engine.Continue(context.Background(), StageConfig))
	assert.Empty(t, f.mods.calls)
	assert.Equal(t, 0, f.probes, "later stages never probe")

	require.NoError(t, f.engine.Start(context.Background(), false))

	cfgStage := f.reload(t, sys)
	require.NoError(t, cfgStage.Continue(context.Background(), StageConfig))
	assert.Equal(t, "hello", f.mods.greeting)

	final := f.reload(t, sys)
	err := final.Continue(context.Background(), StageFinal)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"b"}, se.Failures)
	assert.Equal(t, 1, f.probes)
}

func TestConsumeUserDataFrequencies(t *testing.T) {
	perInstance := &countingHandler{freq: semaphore.PerInstance}
	always := &countingHandler{freq: semaphore.Always}
	f := newFixture(t, "datasource_list: [Fake]\n", WithPartHandlers(perInstance, always))

	_, err := f.engine.FindDataSource(context.Background(), datasource.Dependencies{datasource.DepFilesystem})
	require.NoError(t, err)
	_, err = f.engine.SetCurrentInstance()
	require.NoError(t, err)

	require.NoError(t, f.engine.ConsumeUserData(context.Background()))
	require.NoError(t, f.engine.ConsumeUserData(context.Background()))

	assert.Equal(t, 1, perInstance.parts)
	assert.Equal(t, 2, always.parts)
	assert.True(t, f.engine.Semaphores().HasRun(consumeUserDataSemaphore, semaphore.PerInstance))
}

func TestMergedConfigPrecedence(t *testing.T) {
	f := newFixture(t, "datasource_list: [Fake]\ngreeting: from-system\nsys_only: 1\n")
	assert.Equal(t, "from-system", f.engine.MergedConfig().String("greeting", ""))

	_, err := f.engine.FindDataSource(context.Background(), datasource.Dependencies{datasource.DepFilesystem})
	require.NoError(t, err)
	cfg := f.engine.MergedConfig()
	assert.Equal(t, "from-datasource", cfg.String("greeting", ""))
	assert.True(t, cfg.Bool("ds_only", false))
	assert.Equal(t, 1, cfg.Int("sys_only", 0))

	_, err = f.engine.SetCurrentInstance()
	require.NoError(t, err)
	require.NoError(t, f.engine.ConsumeUserData(context.Background()))
	assert.Equal(t, "hello", f.engine.MergedConfig().String("greeting", ""))
	assert.Equal(t, "from-system", f.engine.SystemConfig().String("greeting", ""), "system config is not mutated")
}

func TestStatus(t *testing.T) {
	sys := "datasource_list: [Fake]\ncloud_init_modules: [ok]\ncc_ready_units: [next.service]\n"
	f := newFixture(t, sys)
	require.NoError(t, f.engine.Start(context.Background(), true))

	st := f.reload(t, sys).Status(context.Background(), &fakeUnits{states: map[string]string{"next.service": "active"}})
	assert.Equal(t, header.KindQueryResult, st.Kind)
	assert.Equal(t, testIID, st.InstanceID)
	assert.Equal(t, "FakeLocal[local]", st.DataSource)
	assert.Equal(t, "node1", st.Hostname)
	assert.False(t, st.BootFinished)
	assert.Contains(t, st.Semaphores, "consume_userdata")
	assert.Contains(t, st.Semaphores, "config-ok")
	assert.Equal(t, map[string]string{"next.service": "active"}, st.Units)
}

func TestMetricsTextfile(t *testing.T) {
	prom := filepath.Join(t.TempDir(), "condense.prom")
	sys := "datasource_list: [Fake]\ncloud_init_modules: [ok]\nmetrics_textfile: \"" + prom + "\"\n"
	f := newFixture(t, sys)

	require.NoError(t, f.engine.Start(context.Background(), false))

	data, err := os.ReadFile(prom)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "condense_stage_duration_seconds")
	assert.Contains(t, text, `condense_module_runs_total{module="ok",result="succeeded"}`)
	assert.Contains(t, text, `condense_stage_module_failures{stage="start"} 0`)
}

func TestMergedConfigRepeatedCloudConfigKeys(t *testing.T) {
	raw, err := userdata.Encode([]userdata.Part{
		{ContentType: userdata.TypeCloudConfig, Filename: "part-000", Payload: []byte("#cloud-config\nbootcmd: [echo a]\ngreeting: first\n")},
		{ContentType: userdata.TypeCloudConfig, Filename: "part-001", Payload: []byte("#cloud-config\nbootcmd: [echo b]\ntimezone: UTC\n")},
	})
	require.NoError(t, err)

	var probes int
	sys, err := config.Parse([]byte("datasource_list: [Fake]\n"))
	require.NoError(t, err)
	e, err := New(sys, WithDataDir(t.TempDir()), WithDataSources(fakeSources(t, &probes, raw)),
		WithModules(testModules(&moduleLog{})))
	require.NoError(t, err)

	_, err = e.FindDataSource(context.Background(), datasource.Dependencies{datasource.DepFilesystem})
	require.NoError(t, err)
	_, err = e.SetCurrentInstance()
	require.NoError(t, err)
	require.NoError(t, e.ConsumeUserData(context.Background()))

	cfg := e.MergedConfig()
	assert.Equal(t, []string{"echo b"}, cfg.StringList("bootcmd"))
	assert.Equal(t, "UTC", cfg.String("timezone", ""))
	assert.Equal(t, "first", cfg.String("greeting", ""))
	assert.True(t, cfg.Bool("ds_only", false))
}
