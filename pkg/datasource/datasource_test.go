package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/condense/pkg/config"
	cerrors "github.com/NVIDIA/condense/pkg/errors"
)

func descriptor(name string, deps Dependencies, p Provider) Descriptor {
	return Descriptor{
		Name:         name,
		Dependencies: deps,
		New:          func(config.Config) Provider { return p },
	}
}

func found(id string) Provider {
	return ProviderFunc(func(context.Context) (*Snapshot, error) {
		return &Snapshot{Metadata: map[string]any{KeyInstanceID: id}}, nil
	})
}

func missing(name string) Provider {
	return ProviderFunc(func(context.Context) (*Snapshot, error) {
		return nil, NotFound(name, "no seed")
	})
}

func TestDependencies(t *testing.T) {
	fs := Dependencies{DepFilesystem}
	fsNet := Dependencies{DepNetwork, DepFilesystem}

	assert.True(t, fs.SubsetOf(fsNet))
	assert.False(t, fsNet.SubsetOf(fs))
	assert.True(t, fsNet.Equal(Dependencies{DepFilesystem, DepNetwork}))
	assert.False(t, fs.Equal(fsNet))
	assert.True(t, Dependencies{}.Equal(nil))
	assert.Equal(t, "[FILESYSTEM]", fs.String())
}

func TestRegistry_List(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Local",
		descriptor("Local", Dependencies{DepFilesystem}, found("a")),
		descriptor("LocalNet", Dependencies{DepFilesystem, DepNetwork}, found("b")),
	)
	reg.Register("Cloud", descriptor("Cloud", Dependencies{DepFilesystem, DepNetwork}, found("c")))

	names := func(ds []Descriptor) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}

	tests := []struct {
		name      string
		families  []string
		available Dependencies
		mode      MatchMode
		want      []string
	}{
		{
			name:      "exact filesystem only",
			families:  []string{"Local"},
			available: Dependencies{DepFilesystem},
			mode:      MatchExact,
			want:      []string{"Local"},
		},
		{
			name:      "exact network stage keeps configured order",
			families:  []string{"cloud", "local"},
			available: Dependencies{DepFilesystem, DepNetwork},
			mode:      MatchExact,
			want:      []string{"Cloud", "LocalNet"},
		},
		{
			name:      "subset",
			families:  []string{"Local", "Cloud"},
			available: Dependencies{DepFilesystem, DepNetwork},
			mode:      MatchSubset,
			want:      []string{"Local", "LocalNet", "Cloud"},
		},
		{
			name:      "no capabilities",
			families:  []string{"Local", "Cloud"},
			available: Dependencies{},
			mode:      MatchExact,
			want:      []string{},
		},
		{
			name:      "unknown family skipped",
			families:  []string{"Nope", "Local"},
			available: Dependencies{DepFilesystem},
			mode:      MatchExact,
			want:      []string{"Local"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(reg.List(tt.families, tt.available, tt.mode)))
		})
	}

	assert.Equal(t, []string{"Local", "Cloud"}, reg.Families())
}

func TestFinder_FirstSuccessWins(t *testing.T) {
	var probed []string
	track := func(name string, p Provider) Provider {
		return ProviderFunc(func(ctx context.Context) (*Snapshot, error) {
			probed = append(probed, name)
			return p.Probe(ctx)
		})
	}
	failing := ProviderFunc(func(context.Context) (*Snapshot, error) {
		return nil, errors.New("io error")
	})

	candidates := []Descriptor{
		descriptor("A", nil, track("A", missing("A"))),
		descriptor("B", nil, track("B", failing)),
		descriptor("C", nil, track("C", found("i-c"))),
		descriptor("D", nil, track("D", found("i-d"))),
	}

	results := map[string]string{}
	f := &Finder{Observe: func(p, r string) { results[p] = r }}
	ds, err := f.Find(context.Background(), candidates, config.Config{})
	require.NoError(t, err)

	assert.Equal(t, "i-c", ds.InstanceID())
	assert.Equal(t, "C", ds.Name())
	assert.Equal(t, []string{"A", "B", "C"}, probed)
	assert.Equal(t, map[string]string{"A": ResultNotFound, "B": ResultError, "C": ResultFound}, results)
}

func TestFinder_NoneFound(t *testing.T) {
	f := &Finder{}
	_, err := f.Find(context.Background(), []Descriptor{descriptor("A", nil, missing("A"))}, nil)
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeDataSourceNotFound))

	_, err = f.Find(context.Background(), nil, nil)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeDataSourceNotFound))
}

func TestFinder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Finder{}).Find(ctx, []Descriptor{descriptor("A", nil, found("x"))}, nil)
	assert.True(t, cerrors.IsCode(err, cerrors.ErrCodeTimeout))
}

func TestFinder_TimeoutPerCandidate(t *testing.T) {
	hung := ProviderFunc(func(ctx context.Context) (*Snapshot, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	var sawDeadline bool
	slowButOK := ProviderFunc(func(ctx context.Context) (*Snapshot, error) {
		_, sawDeadline = ctx.Deadline()
		return &Snapshot{Metadata: map[string]any{KeyInstanceID: "i-late"}}, nil
	})

	results := map[string]string{}
	f := &Finder{Timeout: 20 * time.Millisecond, Observe: func(p, r string) { results[p] = r }}
	ds, err := f.Find(context.Background(), []Descriptor{
		descriptor("Hung", nil, hung),
		descriptor("Late", nil, slowButOK),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "i-late", ds.InstanceID())
	assert.True(t, sawDeadline)
	assert.Equal(t, map[string]string{"Hung": ResultError, "Late": ResultFound}, results)
}

func TestNotFound(t *testing.T) {
	err := NotFound("ConfigDrive", "no meta.js")
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestDataSource_InstanceID(t *testing.T) {
	assert.Equal(t, "iid-datasource", New(&Snapshot{}).InstanceID())
	assert.Equal(t, "i-123", New(&Snapshot{Metadata: map[string]any{"instance-id": "i-123"}}).InstanceID())
}

func TestDataSource_String(t *testing.T) {
	ds := New(&Snapshot{Provider: "ConfigDrive", Mode: "local", Seed: "/dev/vdb"})
	assert.Equal(t, "ConfigDrive[local] [seed=/dev/vdb]", ds.String())
	assert.Equal(t, "Ec2", New(&Snapshot{Provider: "Ec2"}).String())
}

func TestDataSource_PublicKeys(t *testing.T) {
	tests := []struct {
		name string
		md   map[string]any
		want []string
	}{
		{name: "none", md: map[string]any{}, want: nil},
		{name: "string", md: map[string]any{"public-keys": "ssh-rsa A"}, want: []string{"ssh-rsa A"}},
		{name: "list", md: map[string]any{"public-keys": []any{"k1", "k2"}}, want: []string{"k1", "k2"}},
		{name: "map", md: map[string]any{"public-keys": map[string]any{"0": "k1"}}, want: []string{"k1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(&Snapshot{Metadata: tt.md}).PublicKeys())
		})
	}
}

func TestDataSource_Hostname(t *testing.T) {
	hosts := filepath.Join(t.TempDir(), "hosts")
	require.NoError(t, os.WriteFile(hosts, []byte("10.0.0.5 box.example.org box\n"), 0o644))

	origHost, origFile := osHostname, hostsFile
	t.Cleanup(func() { osHostname, hostsFile = origHost, origFile })
	hostsFile = hosts

	tests := []struct {
		name      string
		md        map[string]any
		osHost    string
		wantShort string
		wantFQDN  string
	}{
		{name: "fqdn metadata", md: map[string]any{"local-hostname": "web.example.com"}, wantShort: "web", wantFQDN: "web.example.com"},
		{name: "short metadata", md: map[string]any{"local-hostname": "web"}, wantShort: "web", wantFQDN: "web.localdomain"},
		{name: "ipv4 metadata", md: map[string]any{"local-hostname": "10.1.2.3"}, wantShort: "ip-10-1-2-3", wantFQDN: "ip-10-1-2-3.localdomain"},
		{name: "hosts lookup", md: map[string]any{}, osHost: "box", wantShort: "box", wantFQDN: "box.example.org"},
		{name: "os hostname only", md: map[string]any{}, osHost: "lonely", wantShort: "lonely", wantFQDN: "lonely.localdomain"},
		{name: "nothing", md: map[string]any{}, osHost: "", wantShort: "localhost", wantFQDN: "localhost.localdomain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osHostname = func() (string, error) { return tt.osHost, nil }
			ds := New(&Snapshot{Metadata: tt.md})
			assert.Equal(t, tt.wantShort, ds.Hostname(false))
			assert.Equal(t, tt.wantFQDN, ds.Hostname(true))
		})
	}
}

func TestDataSource_ConfigObject(t *testing.T) {
	assert.Empty(t, New(&Snapshot{}).ConfigObject())
	ds := New(&Snapshot{Config: map[string]any{"timezone": "UTC"}})
	assert.Equal(t, "UTC", ds.ConfigObject().String("timezone", ""))
}
