package platform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParser_GetMap(t *testing.T) {
	path := writeFile(t, `# comment
ID="ubuntu"
ID_LIKE=debian
EMPTY=
NOVALUE
VERSION_ID='24.04'
`)
	m, err := NewParser(WithVTrimChars(`"'`)).GetMap(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"ID":         "ubuntu",
		"ID_LIKE":    "debian",
		"VERSION_ID": "24.04",
	}, m)
}

func TestParser_Errors(t *testing.T) {
	_, err := NewParser().GetLines("")
	assert.Error(t, err)

	_, err = NewParser().GetLines(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	big := writeFile(t, "0123456789")
	_, err = NewParser(WithMaxSize(4)).GetLines(big)
	assert.Error(t, err)

	bad := writeFile(t, string([]byte{0xff, 0xfe}))
	_, err = NewParser().GetLines(bad)
	assert.Error(t, err)
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		name string
		rel  map[string]string
		want Family
	}{
		{name: "ubuntu", rel: map[string]string{"ID": "ubuntu"}, want: FamilyDebian},
		{name: "like rhel", rel: map[string]string{"ID": "almalinux", "ID_LIKE": "rhel centos fedora"}, want: FamilyRHEL},
		{name: "unknown", rel: map[string]string{"ID": "arch"}, want: FamilyUnknown},
		{name: "empty", rel: map[string]string{}, want: FamilyUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FamilyOf(tt.rel))
		})
	}
}

func TestUptime(t *testing.T) {
	orig := filePathUptime
	t.Cleanup(func() { filePathUptime = orig })

	filePathUptime = writeFile(t, "350735.47 234388.90\n")
	assert.Equal(t, "350735.47", Uptime())

	filePathUptime = filepath.Join(t.TempDir(), "missing")
	assert.Equal(t, "na", Uptime())
}

func TestFQDNFromHosts(t *testing.T) {
	path := writeFile(t, `127.0.0.1 localhost
# 10.0.0.1 commented.example.com node
10.0.0.2 node.example.com node # trailing
10.0.0.3 other.example.com other node
`)
	assert.Equal(t, "node.example.com", FQDNFromHosts(path, "node"))
	assert.Equal(t, "other.example.com", FQDNFromHosts(path, "other"))
	assert.Equal(t, "", FQDNFromHosts(path, "localhost"), "canonical names are not aliases")
	assert.Equal(t, "", FQDNFromHosts(filepath.Join(t.TempDir(), "missing"), "node"))
}

func TestIsIPv4(t *testing.T) {
	tests := map[string]bool{
		"10.1.2.3":    true,
		"192.168.0.1": true,
		"10.0.2.3":    false,
		"1.2.3":       false,
		"a.b.c.d":     false,
		"256.1.1.1":   false,
		"host.local":  false,
	}
	for in, want := range tests {
		assert.Equal(t, want, IsIPv4(in), in)
	}
}

func TestNetSummary(t *testing.T) {
	s := NetSummary([]Interface{
		{Name: "lo", Up: true, Addresses: []string{"127.0.0.1/8"}},
		{Name: "eth0"},
	})
	assert.Equal(t, "lo(up 127.0.0.1/8) eth0(down .)", s)
}
