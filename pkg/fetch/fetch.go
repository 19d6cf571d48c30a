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

package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NVIDIA/condense/pkg/defaults"
)

const (
	DefaultUserAgent = defaults.AppName + "/1.0"

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 16 << 20
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Option configures a Client.
type Option func(*Client)

// Client fetches small documents over HTTP with bounded timeouts.
type Client struct {
	UserAgent      string
	TotalTimeout   time.Duration
	ConnectTimeout time.Duration
	HTTP           *http.Client

	custom bool
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.UserAgent = userAgent
	}
}

// WithTotalTimeout bounds each request end to end.
func WithTotalTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.TotalTimeout = timeout
	}
}

// WithConnectTimeout bounds connection establishment.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.ConnectTimeout = timeout
	}
}

// WithHTTPClient replaces the underlying client. Timeout options are not
// applied to a caller-supplied client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.HTTP = client
		c.custom = true
	}
}

// New returns a Client using the default HTTP timeouts.
func New(opts ...Option) *Client {
	c := &Client{
		UserAgent:      DefaultUserAgent,
		TotalTimeout:   defaults.HTTPClientTimeout,
		ConnectTimeout: defaults.HTTPConnectTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.custom || c.HTTP == nil {
		c.HTTP = &http.Client{
			Timeout:   c.TotalTimeout,
			Transport: newTransport(c.ConnectTimeout),
		}
	}
	return c
}

func newTransport(connect time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connect,
			KeepAlive: defaults.HTTPKeepAlive,
		}).DialContext,
		TLSHandshakeTimeout:   defaults.HTTPTLSHandshakeTimeout,
		ResponseHeaderTimeout: defaults.HTTPResponseHeaderTimeout,
		IdleConnTimeout:       defaults.HTTPIdleConnTimeout,
		MaxIdleConns:          10,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
}

// Get fetches rawURL and returns the body. Non-2xx responses return a
// *StatusError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", rawURL, err)
	}
	return c.do(req)
}

// PostForm posts values url-encoded to rawURL and returns the body.
func (c *Client) PostForm(ctx context.Context, rawURL string, values url.Values) ([]byte, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("url is empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for url %s: %w", rawURL, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed for url %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", req.URL, err)
	}
	return data, nil
}
