package ec2

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/condense/pkg/config"
	"github.com/NVIDIA/condense/pkg/datasource"
)

func metadataServer(t *testing.T, userData string) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"/2009-04-04/meta-data/":               "instance-id\nlocal-hostname\npublic-keys/\nplacement/\n",
		"/2009-04-04/meta-data/instance-id":    "i-0abc",
		"/2009-04-04/meta-data/local-hostname": "ip-10-0-0-1.ec2.internal\n",
	}
	if userData != "" {
		files["/2009-04-04/user-data"] = userData
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func cfgFor(url string, maxWait int) config.Config {
	return config.Config{"datasource": map[string]any{
		"Ec2": map[string]any{"metadata_url": url, "max_wait": maxWait, "timeout": 5},
	}}
}

func TestProbe(t *testing.T) {
	srv := metadataServer(t, "#cloud-config\n")

	snap, err := New(cfgFor(srv.URL, 5), WithRetryInterval(time.Millisecond)).Probe(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Name, snap.Provider)
	assert.Equal(t, srv.URL, snap.Seed)
	assert.Equal(t, map[string]any{
		"instance-id":    "i-0abc",
		"local-hostname": "ip-10-0-0-1.ec2.internal",
	}, snap.Metadata)
	assert.Equal(t, "#cloud-config\n", string(snap.UserDataRaw))
}

func TestProbe_NoUserData(t *testing.T) {
	srv := metadataServer(t, "")

	snap, err := New(cfgFor(srv.URL, 0)).Probe(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.UserDataRaw)
}

func TestProbe_Unreachable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(cfgFor(srv.URL, 1), WithRetryInterval(200*time.Millisecond))
	start := time.Now()
	_, err := p.Probe(context.Background())

	require.Error(t, err)
	assert.True(t, datasource.IsNotFound(err))
	assert.GreaterOrEqual(t, calls.Load(), int32(2), "service should be polled more than once")
	assert.LessOrEqual(t, calls.Load(), int32(6), "polling must be paced")
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestNew_Defaults(t *testing.T) {
	p := New(config.Config{})
	assert.Equal(t, DefaultURL, p.baseURL)
	assert.Equal(t, DefaultVersion, p.version)
	assert.Equal(t, "http://169.254.169.254/2009-04-04/user-data", p.url("user-data"))
}

func TestRegister(t *testing.T) {
	reg := datasource.NewRegistry()
	Register(reg)

	assert.Empty(t, reg.List([]string{"ec2"}, datasource.Dependencies{datasource.DepFilesystem}, datasource.MatchExact))
	assert.Len(t, reg.List([]string{"ec2"},
		datasource.Dependencies{datasource.DepFilesystem, datasource.DepNetwork}, datasource.MatchExact), 1)
}
