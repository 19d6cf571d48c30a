package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New()
	assert.Equal(t, DefaultUserAgent, c.UserAgent)
	require.NotNil(t, c.HTTP)
	assert.Equal(t, c.TotalTimeout, c.HTTP.Timeout)

	custom := &http.Client{Timeout: time.Second}
	c = New(WithHTTPClient(custom), WithTotalTimeout(time.Minute))
	assert.Same(t, custom, c.HTTP)
	assert.Equal(t, time.Second, c.HTTP.Timeout)
}

func TestClient_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("hello"))
		case "/missing":
			http.NotFound(w, r)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := New(WithUserAgent("test-agent"))
	ctx := context.Background()

	body, err := c.Get(ctx, srv.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	_, err = c.Get(ctx, srv.URL+"/missing")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	_, err = c.Get(ctx, srv.URL+"/boom")
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.False(t, IsStatus(err, http.StatusNotFound))

	_, err = c.Get(ctx, "")
	assert.Error(t, err)
}

func TestClient_Get_Canceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Get(ctx, srv.URL)
	assert.Error(t, err)
}

func TestClient_PostForm(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		b, _ := io.ReadAll(r.Body)
		got, _ = url.ParseQuery(string(b))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := New().PostForm(context.Background(), srv.URL, url.Values{"instance_id": {"i-1"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "i-1", got.Get("instance_id"))
}
