package layout

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/NVIDIA/condense/pkg/errors"
)

func TestLayout_Paths(t *testing.T) {
	l := New("/var/lib/condense")

	assert.Equal(t, "/var/lib/condense/sem", l.Shared(Sem))
	assert.Equal(t, "/var/lib/condense/instance/obj-snapshot", l.Current(Snapshot))
	assert.Equal(t, "/var/lib/condense/instances/i-1/sem", l.ForInstance("i-1", Sem))
	assert.Equal(t, "/var/lib/condense/instances/i-1", l.ForInstance("i-1", Root))
	assert.Equal(t, "/var/lib/condense/instance/boot-finished", l.BootFinished())
	assert.Equal(t, "/var/lib/condense/data/no-net", l.NoNet())
}

func TestLayout_DefaultDir(t *testing.T) {
	assert.Equal(t, "/var/lib/condense", New("").Dir())
}

func TestLayout_Init(t *testing.T) {
	l := New(t.TempDir())
	require.NoError(t, l.Init())

	for _, d := range []string{"scripts/per-instance", "scripts/per-once", "scripts/per-boot",
		"seed", "instances", "handlers", "sem", "data"} {
		fi, err := os.Stat(filepath.Join(l.Dir(), d))
		require.NoError(t, err, d)
		assert.True(t, fi.IsDir(), d)
	}
}

func TestLayout_SetCurrent(t *testing.T) {
	l := New(t.TempDir())
	require.NoError(t, l.Init())

	require.NoError(t, l.SetCurrent("i-1"))
	id, ok := l.CurrentID()
	require.True(t, ok)
	assert.Equal(t, "i-1", id)

	for _, item := range []Item{Handlers, Scripts, Sem} {
		fi, err := os.Stat(l.Current(item))
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}

	// switching instances replaces the link
	require.NoError(t, l.SetCurrent("i-2"))
	id, ok = l.CurrentID()
	require.True(t, ok)
	assert.Equal(t, "i-2", id)
}

func TestLayout_Purge(t *testing.T) {
	l := New(t.TempDir())
	require.NoError(t, l.Purge(true), "purging nothing must succeed")

	require.NoError(t, l.SetCurrent("i-1"))
	require.NoError(t, os.WriteFile(l.BootFinished(), []byte("done"), 0o644))

	require.NoError(t, l.Purge(false))
	_, err := os.Stat(l.BootFinished())
	assert.True(t, os.IsNotExist(err))
	_, ok := l.CurrentID()
	assert.True(t, ok, "link kept when removeCurrent is false")

	require.NoError(t, l.Purge(true))
	_, ok = l.CurrentID()
	assert.False(t, ok)
}

func TestLayout_UnsafeInstanceIDs(t *testing.T) {
	tests := []struct {
		id      string
		wantDir string
	}{
		{id: "../escape", wantDir: "____escape"},
		{id: "a/b", wantDir: "_a_b"},
		{id: "..", wantDir: "___"},
		{id: ".", wantDir: "__"},
		{id: `a\b`, wantDir: "_a_b"},
		{id: "", wantDir: "_"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			root := t.TempDir()
			l := New(filepath.Join(root, "data"))
			require.NoError(t, l.SetCurrent("i-good"))

			err := l.SetCurrent(tt.id)
			require.Error(t, err)
			assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeInvalidRequest))

			id, ok := l.CurrentID()
			assert.True(t, ok)
			assert.Equal(t, "i-good", id, "link untouched")
			assert.NoDirExists(t, filepath.Join(root, "escape"))

			p := l.ForInstance(tt.id, Sem)
			assert.True(t, strings.HasPrefix(p, filepath.Join(l.Dir(), "instances")+string(filepath.Separator)), p)
			assert.Equal(t, filepath.Join(l.Dir(), "instances", tt.wantDir, "sem"), p)
		})
	}

	assert.NoError(t, ValidateInstanceID("i-0123abcd"))
	assert.NoError(t, ValidateInstanceID("iid-datasource"))
}
