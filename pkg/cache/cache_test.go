package cache

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/condense/pkg/datasource"
	"github.com/NVIDIA/condense/pkg/layout"
)

func newCache(t *testing.T) (*Cache, *layout.Layout) {
	t.Helper()
	l := layout.New(t.TempDir())
	require.NoError(t, l.Init())
	require.NoError(t, l.SetCurrent("i-1"))
	return New(l, "v-test"), l
}

func TestStoreRestore_RoundTrip(t *testing.T) {
	c, _ := newCache(t)

	orig := datasource.New(&datasource.Snapshot{
		Provider: "ConfigDrive",
		Mode:     "local",
		Seed:     "/dev/vdb",
		Metadata: map[string]any{
			"instance-id":    "i-1",
			"local-hostname": "node1",
			"dsmode":         "local",
		},
		UserDataRaw: []byte("#cloud-config\n\x00binary"),
		Config:      map[string]any{"timezone": "UTC"},
	})

	_, ok := c.Restore()
	assert.False(t, ok)
	assert.False(t, c.Exists())

	require.NoError(t, c.Store(orig))
	assert.True(t, c.Exists())

	got, ok := c.Restore()
	require.True(t, ok)
	assert.Equal(t, orig.InstanceID(), got.InstanceID())
	assert.Equal(t, orig.Metadata(), got.Metadata())
	assert.Equal(t, orig.UserDataRaw(), got.UserDataRaw())
	assert.Equal(t, orig.String(), got.String())
	assert.Equal(t, "UTC", got.ConfigObject().String("timezone", ""))

	fi, err := os.Stat(c.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o400), fi.Mode().Perm())

	// a second store replaces the read-only file
	require.NoError(t, c.Store(orig))
}

func TestRestore_Corrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "\x80\x04pickle"},
		{name: "empty", content: ""},
		{name: "wrong kind", content: `{"kind":"Other","apiVersion":"condense.nvidia.com/v1","data":{"provider":"X"}}`},
		{name: "old version", content: `{"kind":"InstanceSnapshot","apiVersion":"v0","data":{"provider":"X"}}`},
		{name: "no provider", content: `{"kind":"InstanceSnapshot","apiVersion":"condense.nvidia.com/v1","data":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCache(t)
			require.NoError(t, os.WriteFile(c.Path(), []byte(tt.content), 0o600))
			_, ok := c.Restore()
			assert.False(t, ok)
		})
	}
}

func TestPurge(t *testing.T) {
	c, l := newCache(t)
	require.NoError(t, c.Store(datasource.New(&datasource.Snapshot{Provider: "X"})))

	require.NoError(t, c.Purge(true))
	_, ok := l.CurrentID()
	assert.False(t, ok)
	_, ok = c.Restore()
	assert.False(t, ok)

	require.NoError(t, c.Purge(true), "purging twice must succeed")
}
