package configdrive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/defaults"
)

// fakeMounter copies files into the mount target and records calls.
type fakeMounter struct {
	files     map[string]string
	mountErr  error
	mounted   []string
	unmounted []string
}

func (f *fakeMounter) Mount(device, target string) error {
	if f.mountErr != nil {
		return f.mountErr
	}
	f.mounted = append(f.mounted, device)
	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(target, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeMounter) Unmount(target string) error {
	f.unmounted = append(f.unmounted, target)
	entries, _ := os.ReadDir(target)
	for _, e := range entries {
		os.Remove(filepath.Join(target, e.Name()))
	}
	return nil
}

func noDevices(context.Context) ([]string, error) { return nil, nil }

func writeSeed(t *testing.T, meta string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "seed", "config_drive")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if meta != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, metaFile), []byte(meta), 0o644))
	}
	return dir
}

func TestProbe_SeedDir(t *testing.T) {
	t.Setenv(defaults.EnvConfigDriveDevice, "")
	seed := writeSeed(t, `{"dsmode":"local","instance-id":"i-cd","user-data":"#cloud-config\na: 1\n",
		"dscfg":{"timezone":"UTC"},"local-hostname":"node1","public-keys":["k1"]}`)

	local := New(NameLocal, ModeLocal, seed, config.Config{}, WithDeviceFinder(noDevices))
	snap, err := local.Probe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, NameLocal, snap.Provider)
	assert.Equal(t, ModeLocal, snap.Mode)
	assert.Equal(t, seed, snap.Seed)
	assert.Equal(t, "i-cd", snap.Metadata["instance-id"])
	assert.Equal(t, "node1", snap.Metadata["local-hostname"])
	assert.Equal(t, "#cloud-config\na: 1\n", string(snap.UserDataRaw))
	assert.Equal(t, map[string]any{"timezone": "UTC"}, snap.Config)
	assert.Contains(t, snap.Metadata, "meta_js")

	net := New(NameNet, ModeNet, seed, config.Config{}, WithDeviceFinder(noDevices))
	_, err = net.Probe(context.Background())
	assert.True(t, datasource.IsNotFound(err), "net variant must not claim a local drive")
}

func TestProbe_Defaults(t *testing.T) {
	t.Setenv(defaults.EnvConfigDriveDevice, "")
	seed := writeSeed(t, `{"dsmode":"net"}`)

	snap, err := New(NameNet, ModeNet, seed, config.Config{}, WithDeviceFinder(noDevices)).Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, defaultInstanceID, snap.Metadata["instance-id"])

	// no dsmode defaults to pass, which no variant claims
	seed = writeSeed(t, `{}`)
	for _, mode := range []string{ModeLocal, ModeNet} {
		_, err := New("x", mode, seed, config.Config{}, WithDeviceFinder(noDevices)).Probe(context.Background())
		assert.True(t, datasource.IsNotFound(err), mode)
	}
}

func TestProbe_NotAConfigDrive(t *testing.T) {
	t.Setenv(defaults.EnvConfigDriveDevice, "")

	tests := []struct {
		name string
		meta string
	}{
		{name: "missing meta.js", meta: ""},
		{name: "invalid json", meta: "{not json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := writeSeed(t, tt.meta)
			_, err := New(NameLocal, ModeLocal, seed, config.Config{}, WithDeviceFinder(noDevices)).Probe(context.Background())
			require.Error(t, err)
			assert.True(t, datasource.IsNotFound(err))
		})
	}
}

func TestProbe_Device(t *testing.T) {
	t.Setenv(defaults.EnvConfigDriveDevice, "")
	m := &fakeMounter{files: map[string]string{metaFile: `{"dsmode":"local","instance-id":"i-dev"}`}}
	finder := func(context.Context) ([]string, error) {
		return []string{"/dev/vdb", "/dev/vdc1", "/dev/vdc", "/dev/sda"}, nil
	}

	p := New(NameLocal, ModeLocal, filepath.Join(t.TempDir(), "absent"), config.Config{},
		WithMounter(m), WithDeviceFinder(finder))
	snap, err := p.Probe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/dev/vdc", snap.Seed)
	assert.Equal(t, "i-dev", snap.Metadata["instance-id"])
	assert.Equal(t, []string{"/dev/vdc"}, m.mounted)
	assert.Len(t, m.unmounted, 1)
}

func TestProbe_DeviceUnmountsOnFailure(t *testing.T) {
	t.Setenv(defaults.EnvConfigDriveDevice, "/dev/override")
	m := &fakeMounter{files: map[string]string{"other.txt": "x"}}

	p := New(NameLocal, ModeLocal, filepath.Join(t.TempDir(), "absent"), config.Config{}, WithMounter(m))
	_, err := p.Probe(context.Background())
	assert.True(t, datasource.IsNotFound(err))
	assert.Equal(t, []string{"/dev/override"}, m.mounted)
	assert.Len(t, m.unmounted, 1, "unmount must run after a failed read")
}

func TestProbe_MountFailure(t *testing.T) {
	t.Setenv(defaults.EnvConfigDriveDevice, "")
	m := &fakeMounter{mountErr: errors.New("bad fs")}
	cfg := config.Config{"datasource": map[string]any{"ConfigDrive": map[string]any{"device": "/dev/cfg"}}}

	p := New(NameLocal, ModeLocal, filepath.Join(t.TempDir(), "absent"), cfg, WithMounter(m))
	_, err := p.Probe(context.Background())
	assert.True(t, datasource.IsNotFound(err))
	assert.Empty(t, m.unmounted)
}

func TestLastWholeDevice(t *testing.T) {
	tests := []struct {
		name string
		devs []string
		want string
	}{
		{name: "empty", devs: nil, want: ""},
		{name: "partitions only", devs: []string{"/dev/sda1", "/dev/sdb2"}, want: ""},
		{name: "last wins", devs: []string{"/dev/vdb", "/dev/vda", "/dev/vdd1", "/dev/vdc"}, want: "/dev/vdc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, lastWholeDevice(tt.devs))
		})
	}
}

func TestRegister(t *testing.T) {
	reg := datasource.NewRegistry()
	Register(reg, t.TempDir())

	local := reg.List([]string{"configdrive"}, datasource.Dependencies{datasource.DepFilesystem}, datasource.MatchExact)
	require.Len(t, local, 1)
	assert.Equal(t, NameLocal, local[0].Name)

	net := reg.List([]string{Family}, datasource.Dependencies{datasource.DepFilesystem, datasource.DepNetwork}, datasource.MatchExact)
	require.Len(t, net, 1)
	assert.Equal(t, NameNet, net[0].Name)
}
